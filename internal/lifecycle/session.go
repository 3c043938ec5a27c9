package lifecycle

import (
	"fmt"
	"sync"
	"time"

	"assessment-service/internal/domain"
	"assessment-service/internal/grading"
)

// State is the position of an attempt-in-progress in its state machine.
type State string

const (
	StateNotStarted       State = "not_started"
	StateInProgress       State = "in_progress"
	StateConfirmingSubmit State = "confirming_submit"
	StateFinished         State = "finished"
)

// View is a read-only snapshot of a session for clients.
type View struct {
	SessionID        string            `json:"sessionId"`
	QuizID           string            `json:"quizId"`
	StudentID        string            `json:"studentId"`
	State            State             `json:"state"`
	CurrentIndex     int               `json:"currentIndex"`
	QuestionCount    int               `json:"questionCount"`
	RemainingSeconds int               `json:"remainingSeconds"`
	Responses        map[string]string `json:"responses"`
}

// Session drives a single student's attempt from start to finalization.
// All methods are safe to call from the connection reader and the
// countdown ticker at the same time.
type Session struct {
	id        string
	quiz      domain.Quiz
	questions []domain.Question
	studentID string
	engine    *grading.Engine
	now       func() time.Time

	mu        sync.Mutex
	state     State
	current   int
	responses map[string]string
	remaining int
	startedAt time.Time
	deadline  time.Time
	result    *domain.Attempt
}

// NewSession prepares a session in the not-started state.
func NewSession(id string, quiz domain.Quiz, questions []domain.Question, studentID string, engine *grading.Engine) *Session {
	return NewSessionWithClock(id, quiz, questions, studentID, engine, time.Now)
}

// NewSessionWithClock allows deterministic timestamps in tests.
func NewSessionWithClock(id string, quiz domain.Quiz, questions []domain.Question, studentID string, engine *grading.Engine, now func() time.Time) *Session {
	return &Session{
		id:        id,
		quiz:      quiz,
		questions: questions,
		studentID: studentID,
		engine:    engine,
		now:       now,
		state:     StateNotStarted,
		responses: make(map[string]string),
	}
}

func (s *Session) ID() string        { return s.id }
func (s *Session) QuizID() string    { return s.quiz.ID }
func (s *Session) StudentID() string { return s.studentID }

// Quiz returns the quiz being taken.
func (s *Session) Quiz() domain.Quiz { return s.quiz }

// Questions returns the question definitions in quiz item order.
func (s *Session) Questions() []domain.Question {
	byCode := make(map[string]domain.Question, len(s.questions))
	for _, q := range s.questions {
		byCode[q.Code] = q
	}
	out := make([]domain.Question, 0, len(s.quiz.Items))
	for _, item := range s.quiz.Items {
		if q, ok := byCode[item.QuestionCode]; ok {
			out = append(out, q)
		}
	}
	return out
}

// Start checks eligibility and starts the countdown.
func (s *Session) Start(req Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateNotStarted {
		return fmt.Errorf("start from %s: %w", s.state, domain.ErrInvalidTransition)
	}
	req.StudentID = s.studentID
	if err := CheckEligibility(s.quiz, req); err != nil {
		return err
	}
	s.startedAt = s.now()
	s.remaining = s.quiz.TimeLimitMinutes * 60
	s.deadline = s.startedAt.Add(s.quiz.TimeLimit())
	s.state = StateInProgress
	return nil
}

// Answer stores or overwrites the response to a question. An empty
// response clears it.
func (s *Session) Answer(code, response string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return fmt.Errorf("answer in %s: %w", s.state, domain.ErrInvalidTransition)
	}
	if _, ok := s.quiz.Item(code); !ok {
		return fmt.Errorf("question %s: %w", code, domain.ErrQuestionNotFound)
	}
	if response == "" {
		delete(s.responses, code)
		return nil
	}
	s.responses[code] = response
	return nil
}

// Navigate moves to another question without touching any response.
func (s *Session) Navigate(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return fmt.Errorf("navigate in %s: %w", s.state, domain.ErrInvalidTransition)
	}
	if index < 0 || index >= len(s.quiz.Items) {
		return fmt.Errorf("question index %d: %w", index, domain.ErrQuestionNotFound)
	}
	s.current = index
	return nil
}

// RequestFinish opens the submit confirmation.
func (s *Session) RequestFinish() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return fmt.Errorf("finish in %s: %w", s.state, domain.ErrInvalidTransition)
	}
	s.state = StateConfirmingSubmit
	return nil
}

// CancelFinish returns from the confirmation to answering.
func (s *Session) CancelFinish() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConfirmingSubmit {
		return fmt.Errorf("cancel in %s: %w", s.state, domain.ErrInvalidTransition)
	}
	s.state = StateInProgress
	return nil
}

// ConfirmFinish submits the attempt. If the deadline already passed the
// attempt is finalized as expired instead.
func (s *Session) ConfirmFinish() (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConfirmingSubmit {
		return domain.Attempt{}, fmt.Errorf("confirm in %s: %w", s.state, domain.ErrInvalidTransition)
	}
	now := s.now()
	expired := s.remaining <= 0 || !now.Before(s.deadline)
	return s.finishLocked(now, expired)
}

// Tick advances the countdown by one second. When it reaches zero the
// attempt is finalized as expired and returned with finished=true.
func (s *Session) Tick() (attempt domain.Attempt, finished bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress && s.state != StateConfirmingSubmit {
		return domain.Attempt{}, false, nil
	}
	if s.remaining > 0 {
		s.remaining--
	}
	now := s.now()
	if s.remaining > 0 && now.Before(s.deadline) {
		return domain.Attempt{}, false, nil
	}
	attempt, err = s.finishLocked(now, true)
	return attempt, err == nil, err
}

// Remaining returns the countdown in seconds.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the finalized attempt once the session is finished.
func (s *Session) Result() (domain.Attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return domain.Attempt{}, false
	}
	return *s.result, true
}

// Snapshot returns a copy of the client-visible state.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	responses := make(map[string]string, len(s.responses))
	for code, r := range s.responses {
		responses[code] = r
	}
	return View{
		SessionID:        s.id,
		QuizID:           s.quiz.ID,
		StudentID:        s.studentID,
		State:            s.state,
		CurrentIndex:     s.current,
		QuestionCount:    len(s.quiz.Items),
		RemainingSeconds: s.remaining,
		Responses:        responses,
	}
}

func (s *Session) finishLocked(now time.Time, expired bool) (domain.Attempt, error) {
	s.state = StateFinished
	if expired {
		s.remaining = 0
	}
	attempt, err := s.engine.FinalizeAttempt(grading.Submission{
		Quiz:      s.quiz,
		Questions: s.questions,
		StudentID: s.studentID,
		Responses: s.responses,
		StartedAt: s.startedAt,
		EndedAt:   now,
		Expired:   expired,
	})
	if err != nil {
		return domain.Attempt{}, err
	}
	attempt.ID = s.id
	s.result = &attempt
	return attempt, nil
}
