package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a question code is unknown to the store.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrAttemptNotFound indicates an attempt id is unknown to the store.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrSessionNotFound is returned when an in-progress attempt session does not exist.
	ErrSessionNotFound = errors.New("attempt session not found")

	// ErrInconsistent marks a structural violation such as scoring a question
	// that is not part of the quiz. It is never a user error.
	ErrInconsistent = errors.New("internal consistency violation")
	// ErrKeyKindMismatch indicates an answer key that does not belong to the question kind.
	ErrKeyKindMismatch = errors.New("answer key does not match question kind")

	// ErrOutsideWindow rejects a start outside the quiz availability window.
	ErrOutsideWindow = errors.New("quiz is not available at this time")
	// ErrNotAssigned rejects a student who is not on the quiz assignment list.
	ErrNotAssigned = errors.New("student is not assigned to this quiz")
	// ErrAttemptLimitReached rejects a start once the allowed attempts are used.
	ErrAttemptLimitReached = errors.New("attempt limit reached")
	// ErrInvalidAttemptLimit flags a negative allowed-attempts value.
	ErrInvalidAttemptLimit = errors.New("allowed attempts must not be negative")

	// ErrInvalidTransition is returned when a session operation does not fit its current state.
	ErrInvalidTransition = errors.New("invalid attempt state transition")
	// ErrAlreadyGraded is returned when manual grading targets a terminal attempt.
	ErrAlreadyGraded = errors.New("attempt already graded")

	// ErrQuestionInUse rejects deleting or rescoring a question that quizzes or attempts reference.
	ErrQuestionInUse = errors.New("question is in use")
	// ErrQuizInUse rejects deleting or rescoring a quiz that already has attempts.
	ErrQuizInUse = errors.New("quiz already has recorded attempts")
	// ErrAssistUnavailable wraps any failure of the assist collaborator.
	ErrAssistUnavailable = errors.New("question assist unavailable")
)
