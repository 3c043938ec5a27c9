package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"assessment-service/internal/domain"
	"assessment-service/internal/grading"
	"assessment-service/internal/lifecycle"
	"assessment-service/internal/logging"
	"assessment-service/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AttemptService contains the student-facing attempt use cases and manual grading.
type AttemptService struct {
	sessions  SessionRepository
	quizzes   QuizCache
	questions QuestionRepository
	attempts  AttemptRepository
	engine    *grading.Engine
	log       *zap.Logger
	now       func() time.Time
	newID     func() string

	// startMu makes the attempt-limit check and session registration atomic.
	startMu sync.Mutex
}

type AttemptDeps struct {
	Sessions  SessionRepository
	Quizzes   QuizCache
	Questions QuestionRepository
	Attempts  AttemptRepository
	Engine    *grading.Engine
	Logger    *zap.Logger
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

func NewAttemptService(deps AttemptDeps) *AttemptService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	engine := deps.Engine
	if engine == nil {
		engine = grading.NewEngine(grading.DefaultScale)
	}
	return &AttemptService{
		sessions:  deps.Sessions,
		quizzes:   deps.Quizzes,
		questions: deps.Questions,
		attempts:  deps.Attempts,
		engine:    engine,
		log:       logging.OrNop(deps.Logger),
		now:       now,
		newID:     func() string { return uuid.NewString() },
	}
}

// Start checks eligibility and opens a new session for the student.
func (s *AttemptService) Start(ctx context.Context, quizID, studentID string, preview bool) (*lifecycle.Session, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	questions, err := s.quizQuestions(ctx, quiz)
	if err != nil {
		return nil, err
	}

	s.startMu.Lock()
	defer s.startMu.Unlock()
	prior, err := s.priorAttempts(ctx, quizID, studentID)
	if err != nil {
		return nil, err
	}

	session := lifecycle.NewSessionWithClock(s.newID(), quiz, questions, studentID, s.engine, s.now)
	err = session.Start(lifecycle.Request{
		Now:           s.now(),
		Preview:       preview,
		PriorAttempts: prior,
	})
	if err != nil {
		metrics.EligibilityRejections.WithLabelValues(rejectionReason(err)).Inc()
		s.log.Info("quiz start rejected",
			zap.String("quiz", quizID), zap.String("student", studentID), zap.Error(err))
		return nil, err
	}
	s.sessions.Put(session)
	s.log.Info("attempt started",
		zap.String("session", session.ID()), zap.String("quiz", quizID), zap.String("student", studentID))
	return session, nil
}

// CheckEligibility reports whether a student could start a quiz right now
// without opening a session.
func (s *AttemptService) CheckEligibility(ctx context.Context, quizID, studentID string, preview bool) error {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	prior, err := s.priorAttempts(ctx, quizID, studentID)
	if err != nil {
		return err
	}
	return lifecycle.CheckEligibility(quiz, lifecycle.Request{
		StudentID:     studentID,
		Now:           s.now(),
		Preview:       preview,
		PriorAttempts: prior,
	})
}

// priorAttempts counts recorded attempts plus sessions still in progress.
func (s *AttemptService) priorAttempts(ctx context.Context, quizID, studentID string) (int, error) {
	attempts, err := s.attempts.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list attempts: %w", err)
	}
	return lifecycle.CountAttempts(attempts, quizID, studentID) + s.sessions.Open(quizID, studentID), nil
}

func (s *AttemptService) Answer(sessionID, questionCode, response string) (lifecycle.View, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return lifecycle.View{}, err
	}
	if err := session.Answer(questionCode, response); err != nil {
		return lifecycle.View{}, err
	}
	return session.Snapshot(), nil
}

func (s *AttemptService) Navigate(sessionID string, index int) (lifecycle.View, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return lifecycle.View{}, err
	}
	if err := session.Navigate(index); err != nil {
		return lifecycle.View{}, err
	}
	return session.Snapshot(), nil
}

func (s *AttemptService) RequestFinish(sessionID string) (lifecycle.View, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return lifecycle.View{}, err
	}
	if err := session.RequestFinish(); err != nil {
		return lifecycle.View{}, err
	}
	return session.Snapshot(), nil
}

func (s *AttemptService) CancelFinish(sessionID string) (lifecycle.View, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return lifecycle.View{}, err
	}
	if err := session.CancelFinish(); err != nil {
		return lifecycle.View{}, err
	}
	return session.Snapshot(), nil
}

// Confirm submits the attempt and records it.
func (s *AttemptService) Confirm(ctx context.Context, sessionID string) (domain.Attempt, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.Attempt{}, err
	}
	attempt, err := session.ConfirmFinish()
	if err != nil {
		return domain.Attempt{}, err
	}
	return s.record(ctx, attempt)
}

// Tick advances a session countdown by one second. finished is true once
// the attempt expired and has been recorded.
func (s *AttemptService) Tick(ctx context.Context, sessionID string) (lifecycle.View, *domain.Attempt, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return lifecycle.View{}, nil, err
	}
	attempt, finished, err := session.Tick()
	if err != nil {
		return lifecycle.View{}, nil, err
	}
	view := session.Snapshot()
	if !finished {
		return view, nil, nil
	}
	recorded, err := s.record(ctx, attempt)
	if err != nil {
		return view, nil, err
	}
	return view, &recorded, nil
}

func (s *AttemptService) Snapshot(sessionID string) (lifecycle.View, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return lifecycle.View{}, err
	}
	return session.Snapshot(), nil
}

// Abandon drops a session without recording anything.
func (s *AttemptService) Abandon(sessionID string) {
	if session, ok := s.sessions.Get(sessionID); ok && session.State() != lifecycle.StateFinished {
		s.log.Info("attempt abandoned", zap.String("session", sessionID))
	}
	s.sessions.Delete(sessionID)
}

func (s *AttemptService) ListAttempts(ctx context.Context) ([]domain.Attempt, error) {
	attempts, err := s.attempts.GetAll(ctx)
	if err != nil {
		s.log.Error("list attempts failed", zap.Error(err))
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return attempts, nil
}

// ManualGrade settles the free response answers of an attempt awaiting
// review. Out-of-range scores are clamped and returned as adjustments.
func (s *AttemptService) ManualGrade(ctx context.Context, attemptID string, scores map[string]float64) (domain.Attempt, []grading.Adjustment, error) {
	attempt, quiz, questions, err := s.loadForGrading(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, nil, err
	}
	graded, adjustments, err := s.engine.ApplyManualGrading(attempt, questions, quiz, scores)
	if err != nil {
		s.log.Error("manual grading rejected", zap.String("attempt", attemptID), zap.Error(err))
		return domain.Attempt{}, nil, err
	}
	if err := s.attempts.Update(ctx, graded); err != nil {
		s.log.Error("store graded attempt failed", zap.String("attempt", attemptID), zap.Error(err))
		return domain.Attempt{}, nil, fmt.Errorf("update attempt: %w", err)
	}
	for _, adj := range adjustments {
		s.log.Warn("manual score clamped",
			zap.String("attempt", attemptID),
			zap.String("question", adj.QuestionCode),
			zap.Float64("requested", adj.Requested),
			zap.Float64("applied", adj.Applied))
		metrics.ClampedScores.Inc()
	}
	metrics.ManualGradings.Inc()
	return graded, adjustments, nil
}

// GradeByRubric scores free response answers criterion by criterion. Each
// rubric total is scaled onto the points the quiz item is worth.
func (s *AttemptService) GradeByRubric(ctx context.Context, attemptID string, awards map[string]map[string]float64) (domain.Attempt, []grading.Adjustment, error) {
	_, quiz, questions, err := s.loadForGrading(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, nil, err
	}
	defs := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		defs[q.Code] = q
	}
	scores := make(map[string]float64, len(awards))
	for code, awarded := range awards {
		item, ok := quiz.Item(code)
		if !ok {
			return domain.Attempt{}, nil, fmt.Errorf("rubric score for question %s outside quiz %s: %w", code, quiz.ID, domain.ErrInconsistent)
		}
		rubric, ok := defs[code].Key.(domain.Rubric)
		if !ok {
			return domain.Attempt{}, nil, fmt.Errorf("question %s has no rubric: %w", code, domain.ErrKeyKindMismatch)
		}
		weight := grading.MaxPoints(rubric)
		if weight == 0 {
			scores[code] = 0
			continue
		}
		total, _ := grading.ScoreRubric(rubric, awarded)
		scores[code] = total / weight * float64(item.Points)
	}
	return s.ManualGrade(ctx, attemptID, scores)
}

func (s *AttemptService) loadForGrading(ctx context.Context, attemptID string) (domain.Attempt, domain.Quiz, []domain.Question, error) {
	attempts, err := s.attempts.GetAll(ctx)
	if err != nil {
		return domain.Attempt{}, domain.Quiz{}, nil, fmt.Errorf("list attempts: %w", err)
	}
	var attempt *domain.Attempt
	for i := range attempts {
		if attempts[i].ID == attemptID {
			attempt = &attempts[i]
			break
		}
	}
	if attempt == nil {
		return domain.Attempt{}, domain.Quiz{}, nil, domain.ErrAttemptNotFound
	}
	if !attempt.AwaitingReview() {
		return domain.Attempt{}, domain.Quiz{}, nil, fmt.Errorf("attempt %s: %w", attemptID, domain.ErrAlreadyGraded)
	}
	quiz, err := s.quizzes.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return domain.Attempt{}, domain.Quiz{}, nil, err
	}
	questions, err := s.quizQuestions(ctx, quiz)
	if err != nil {
		return domain.Attempt{}, domain.Quiz{}, nil, err
	}
	return *attempt, quiz, questions, nil
}

func (s *AttemptService) record(ctx context.Context, attempt domain.Attempt) (domain.Attempt, error) {
	defer s.sessions.Delete(attempt.ID)
	stored, err := s.attempts.Create(ctx, attempt)
	if err != nil {
		s.log.Error("store attempt failed", zap.String("attempt", attempt.ID), zap.Error(err))
		return domain.Attempt{}, fmt.Errorf("create attempt: %w", err)
	}
	metrics.AttemptsFinalized.WithLabelValues(string(stored.Status)).Inc()
	s.log.Info("attempt finalized",
		zap.String("attempt", stored.ID),
		zap.String("status", string(stored.Status)),
		zap.Float64("obtained", stored.Obtained),
		zap.Float64("possible", stored.Possible),
		zap.Float64("grade", stored.Grade))
	return stored, nil
}

func (s *AttemptService) session(id string) (*lifecycle.Session, error) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// quizQuestions returns the definitions of every item of quiz.
func (s *AttemptService) quizQuestions(ctx context.Context, quiz domain.Quiz) ([]domain.Question, error) {
	all, err := s.questions.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	out := make([]domain.Question, 0, len(quiz.Items))
	for _, q := range all {
		if _, ok := quiz.Item(q.Code); ok {
			out = append(out, q)
		}
	}
	if len(out) != len(quiz.Items) {
		return nil, fmt.Errorf("quiz %s references missing questions: %w", quiz.ID, domain.ErrInconsistent)
	}
	return out, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrOutsideWindow):
		return "window"
	case errors.Is(err, domain.ErrNotAssigned):
		return "assignment"
	case errors.Is(err, domain.ErrAttemptLimitReached):
		return "limit"
	case errors.Is(err, domain.ErrInvalidAttemptLimit):
		return "invalid_limit"
	default:
		return "other"
	}
}
