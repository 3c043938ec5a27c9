package app

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"assessment-service/internal/domain"
	"assessment-service/internal/logging"
	"go.uber.org/zap"
)

// CatalogService owns author-facing authoring of questions and quizzes.
type CatalogService struct {
	questions QuestionRepository
	quizzes   QuizRepository
	cache     QuizCache
	attempts  AttemptRepository
	subjects  SubjectRepository
	assistant Assistant
	log       *zap.Logger
	now       func() time.Time
}

type CatalogDeps struct {
	Questions QuestionRepository
	Quizzes   QuizRepository
	Cache     QuizCache
	Attempts  AttemptRepository
	Subjects  SubjectRepository
	Assistant Assistant
	Logger    *zap.Logger
}

func NewCatalogService(deps CatalogDeps) *CatalogService {
	return &CatalogService{
		questions: deps.Questions,
		quizzes:   deps.Quizzes,
		cache:     deps.Cache,
		attempts:  deps.Attempts,
		subjects:  deps.Subjects,
		assistant: deps.Assistant,
		log:       logging.OrNop(deps.Logger),
		now:       time.Now,
	}
}

func (s *CatalogService) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	qs, err := s.questions.GetAll(ctx)
	if err != nil {
		s.log.Error("list questions failed", zap.Error(err))
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return qs, nil
}

// CreateQuestion validates and stores a new question. The store assigns its code.
func (s *CatalogService) CreateQuestion(ctx context.Context, q domain.Question) (domain.Question, error) {
	if err := domain.ValidateQuestion(q); err != nil {
		return domain.Question{}, err
	}
	q.Code = ""
	q.CreatedAt = s.now().UTC()
	q.UsageCount = 0
	created, err := s.questions.Create(ctx, q)
	if err != nil {
		s.log.Error("create question failed", zap.Error(err))
		return domain.Question{}, fmt.Errorf("create question: %w", err)
	}
	s.log.Info("question created", zap.String("code", created.Code), zap.String("kind", string(created.Kind)))
	return created, nil
}

// UpdateQuestion replaces a question. Once attempts reference it only
// non-scoring fields may change.
func (s *CatalogService) UpdateQuestion(ctx context.Context, q domain.Question) error {
	if err := domain.ValidateQuestion(q); err != nil {
		return err
	}
	current, err := s.findQuestion(ctx, q.Code)
	if err != nil {
		return err
	}
	referenced, err := s.questionReferenced(ctx, q.Code)
	if err != nil {
		return err
	}
	if referenced && (current.Kind != q.Kind || !reflect.DeepEqual(current.Key, q.Key)) {
		return fmt.Errorf("update question %s: %w", q.Code, domain.ErrQuestionInUse)
	}
	q.CreatedAt = current.CreatedAt
	q.UsageCount = current.UsageCount
	if err := s.questions.Update(ctx, q); err != nil {
		s.log.Error("update question failed", zap.String("code", q.Code), zap.Error(err))
		return fmt.Errorf("update question: %w", err)
	}
	return nil
}

// DeleteQuestion removes a question that no quiz and no attempt references.
func (s *CatalogService) DeleteQuestion(ctx context.Context, code string) error {
	referenced, err := s.questionReferenced(ctx, code)
	if err != nil {
		return err
	}
	if !referenced {
		referenced, err = s.questionInQuiz(ctx, code)
		if err != nil {
			return err
		}
	}
	if referenced {
		return fmt.Errorf("delete question %s: %w", code, domain.ErrQuestionInUse)
	}
	if err := s.questions.Delete(ctx, code); err != nil {
		s.log.Error("delete question failed", zap.String("code", code), zap.Error(err))
		return fmt.Errorf("delete question: %w", err)
	}
	return nil
}

func (s *CatalogService) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	qs, err := s.quizzes.GetAll(ctx)
	if err != nil {
		s.log.Error("list quizzes failed", zap.Error(err))
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return qs, nil
}

// CreateQuiz validates and stores a quiz, then bumps the usage counter of
// every referenced question.
func (s *CatalogService) CreateQuiz(ctx context.Context, q domain.Quiz) (domain.Quiz, error) {
	if err := domain.ValidateQuiz(q); err != nil {
		return domain.Quiz{}, err
	}
	byCode, err := s.resolveItems(ctx, q.Items)
	if err != nil {
		return domain.Quiz{}, err
	}

	q.ID = ""
	created, err := s.quizzes.Create(ctx, q)
	if err != nil {
		s.log.Error("create quiz failed", zap.Error(err))
		return domain.Quiz{}, fmt.Errorf("create quiz: %w", err)
	}
	for _, item := range created.Items {
		question := byCode[item.QuestionCode]
		question.UsageCount++
		if err := s.questions.Update(ctx, question); err != nil {
			s.log.Warn("usage counter not updated", zap.String("code", question.Code), zap.Error(err))
		}
	}
	s.log.Info("quiz created", zap.String("id", created.ID), zap.Int("items", len(created.Items)))
	return created, nil
}

// UpdateQuiz replaces a quiz. Once attempts exist its items are frozen;
// title, window, assignments and attempt limit stay editable.
func (s *CatalogService) UpdateQuiz(ctx context.Context, q domain.Quiz) error {
	if err := domain.ValidateQuiz(q); err != nil {
		return err
	}
	current, err := s.findQuiz(ctx, q.ID)
	if err != nil {
		return err
	}
	if _, err := s.resolveItems(ctx, q.Items); err != nil {
		return err
	}
	if !reflect.DeepEqual(current.Items, q.Items) {
		used, err := s.quizHasAttempts(ctx, q.ID)
		if err != nil {
			return err
		}
		if used {
			return fmt.Errorf("update quiz %s: %w", q.ID, domain.ErrQuizInUse)
		}
	}
	if err := s.quizzes.Update(ctx, q); err != nil {
		s.log.Error("update quiz failed", zap.String("id", q.ID), zap.Error(err))
		return fmt.Errorf("update quiz: %w", err)
	}
	s.cache.Invalidate(ctx, q.ID)
	return nil
}

// Reschedule moves the availability window of a quiz.
func (s *CatalogService) Reschedule(ctx context.Context, quizID string, window domain.Window) error {
	if err := domain.ValidateWindow(window.Start, window.End); err != nil {
		return err
	}
	q, err := s.findQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	q.Window = window
	return s.UpdateQuiz(ctx, q)
}

// DeleteQuiz removes a quiz without recorded attempts.
func (s *CatalogService) DeleteQuiz(ctx context.Context, id string) error {
	used, err := s.quizHasAttempts(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return fmt.Errorf("delete quiz %s: %w", id, domain.ErrQuizInUse)
	}
	if err := s.quizzes.Delete(ctx, id); err != nil {
		s.log.Error("delete quiz failed", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("delete quiz: %w", err)
	}
	s.cache.Invalidate(ctx, id)
	return nil
}

func (s *CatalogService) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	subjects, err := s.subjects.GetAll(ctx)
	if err != nil {
		s.log.Error("list subjects failed", zap.Error(err))
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// Assist asks the assistant to complete a draft. On failure the draft is
// returned untouched together with an ErrAssistUnavailable error.
func (s *CatalogService) Assist(ctx context.Context, draft domain.Question) (domain.Question, error) {
	if s.assistant == nil {
		return draft, domain.ErrAssistUnavailable
	}
	partial, err := s.assistant.Assist(ctx, draft)
	if err != nil {
		s.log.Warn("question assist failed", zap.Error(err))
		return draft, fmt.Errorf("%w: %v", domain.ErrAssistUnavailable, err)
	}
	return mergeSuggestion(draft, partial), nil
}

// mergeSuggestion fills the draft from a suggestion, keeping only fields
// that fit the draft's kind.
func mergeSuggestion(draft domain.Question, p domain.PartialQuestion) domain.Question {
	out := draft
	if p.Prompt != "" {
		out.Prompt = p.Prompt
	}
	if p.Feedback != "" {
		out.Feedback = p.Feedback
	}
	switch draft.Kind {
	case domain.KindMultipleChoice:
		if len(p.Alternatives) > 0 {
			out.Key = domain.Alternatives{Options: append([]domain.Alternative(nil), p.Alternatives...)}
		}
	case domain.KindTrueFalse:
		if p.BooleanKey != nil {
			out.Key = domain.BooleanKey{Value: *p.BooleanKey}
		}
	case domain.KindFreeResponse:
		if len(p.Criteria) > 0 {
			out.Key = domain.Rubric{Criteria: append([]domain.Criterion(nil), p.Criteria...)}
		}
	}
	return out
}

func (s *CatalogService) findQuestion(ctx context.Context, code string) (domain.Question, error) {
	questions, err := s.ListQuestions(ctx)
	if err != nil {
		return domain.Question{}, err
	}
	for _, q := range questions {
		if q.Code == code {
			return q, nil
		}
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

func (s *CatalogService) findQuiz(ctx context.Context, id string) (domain.Quiz, error) {
	quizzes, err := s.ListQuizzes(ctx)
	if err != nil {
		return domain.Quiz{}, err
	}
	for _, q := range quizzes {
		if q.ID == id {
			return q, nil
		}
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (s *CatalogService) questionReferenced(ctx context.Context, code string) (bool, error) {
	attempts, err := s.attempts.GetAll(ctx)
	if err != nil {
		s.log.Error("list attempts failed", zap.Error(err))
		return false, fmt.Errorf("list attempts: %w", err)
	}
	for _, a := range attempts {
		for _, answer := range a.Answers {
			if answer.QuestionCode == code {
				return true, nil
			}
		}
	}
	return false, nil
}

// resolveItems maps every item code to its question and reports unknown
// codes as a validation error.
func (s *CatalogService) resolveItems(ctx context.Context, items []domain.QuizItem) (map[string]domain.Question, error) {
	questions, err := s.ListQuestions(ctx)
	if err != nil {
		return nil, err
	}
	byCode := make(map[string]domain.Question, len(questions))
	for _, question := range questions {
		byCode[question.Code] = question
	}
	verr := &domain.ValidationError{}
	for _, item := range items {
		if _, ok := byCode[item.QuestionCode]; !ok {
			verr.Problems = append(verr.Problems, fmt.Sprintf("unknown question %q", item.QuestionCode))
		}
	}
	if len(verr.Problems) > 0 {
		return nil, verr
	}
	return byCode, nil
}

func (s *CatalogService) questionInQuiz(ctx context.Context, code string) (bool, error) {
	quizzes, err := s.ListQuizzes(ctx)
	if err != nil {
		return false, err
	}
	for _, q := range quizzes {
		if _, ok := q.Item(code); ok {
			return true, nil
		}
	}
	return false, nil
}

func (s *CatalogService) quizHasAttempts(ctx context.Context, quizID string) (bool, error) {
	attempts, err := s.attempts.GetAll(ctx)
	if err != nil {
		s.log.Error("list attempts failed", zap.Error(err))
		return false, fmt.Errorf("list attempts: %w", err)
	}
	for _, a := range attempts {
		if a.QuizID == quizID {
			return true, nil
		}
	}
	return false, nil
}
