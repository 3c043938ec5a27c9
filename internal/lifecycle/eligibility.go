package lifecycle

import (
	"time"

	"assessment-service/internal/domain"
)

// Request describes who wants to start a quiz and when.
type Request struct {
	StudentID string
	Now       time.Time
	// Preview bypasses the assignment check for unauthenticated demo contexts.
	Preview bool
	// PriorAttempts is the number of attempts the student already recorded on the quiz.
	PriorAttempts int
}

// CheckEligibility reports why a student may not start quiz, or nil when
// the start is allowed. The window is inclusive on both ends and an
// allowed-attempts value of 0 means unlimited.
func CheckEligibility(quiz domain.Quiz, req Request) error {
	if quiz.AllowedAttempts < 0 {
		return domain.ErrInvalidAttemptLimit
	}
	if !quiz.Window.Contains(req.Now) {
		return domain.ErrOutsideWindow
	}
	if !req.Preview && !quiz.IsAssigned(req.StudentID) {
		return domain.ErrNotAssigned
	}
	if quiz.AllowedAttempts > 0 && req.PriorAttempts >= quiz.AllowedAttempts {
		return domain.ErrAttemptLimitReached
	}
	return nil
}

// CountAttempts counts the attempts a student recorded on a quiz.
func CountAttempts(attempts []domain.Attempt, quizID, studentID string) int {
	n := 0
	for _, a := range attempts {
		if a.QuizID == quizID && a.StudentID == studentID {
			n++
		}
	}
	return n
}
