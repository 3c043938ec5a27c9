package memory

import (
	"context"
	"sort"
	"sync"

	"assessment-service/internal/domain"
	"github.com/google/uuid"
)

// QuestionStore keeps authored questions in process.
type QuestionStore struct {
	mu        sync.RWMutex
	questions map[string]domain.Question
}

func NewQuestionStore(seed ...domain.Question) *QuestionStore {
	s := &QuestionStore{questions: make(map[string]domain.Question, len(seed))}
	for _, q := range seed {
		s.questions[q.Code] = q
	}
	return s
}

func (s *QuestionStore) GetAll(_ context.Context) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0, len(s.questions))
	for _, q := range s.questions {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *QuestionStore) Create(_ context.Context, q domain.Question) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.Code == "" {
		q.Code = uuid.NewString()
	}
	s.questions[q.Code] = q
	return q, nil
}

func (s *QuestionStore) Update(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[q.Code]; !ok {
		return domain.ErrQuestionNotFound
	}
	s.questions[q.Code] = q
	return nil
}

func (s *QuestionStore) Delete(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[code]; !ok {
		return domain.ErrQuestionNotFound
	}
	delete(s.questions, code)
	return nil
}

// QuizStore keeps quizzes in process. It also serves as the QuizLoader
// behind a QuizCache.
type QuizStore struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
}

func NewQuizStore(seed ...domain.Quiz) *QuizStore {
	s := &QuizStore{quizzes: make(map[string]domain.Quiz, len(seed))}
	for _, q := range seed {
		s.quizzes[q.ID] = q
	}
	return s
}

func (s *QuizStore) GetAll(_ context.Context) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *QuizStore) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if q, ok := s.quizzes[quizID]; ok {
		return q, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (s *QuizStore) Create(_ context.Context, q domain.Quiz) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	s.quizzes[q.ID] = q
	return q, nil
}

func (s *QuizStore) Update(_ context.Context, q domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[q.ID]; !ok {
		return domain.ErrQuizNotFound
	}
	s.quizzes[q.ID] = q
	return nil
}

func (s *QuizStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[id]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, id)
	return nil
}

// AttemptStore keeps finalized attempts in insertion order.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts []domain.Attempt
}

func NewAttemptStore(seed ...domain.Attempt) *AttemptStore {
	return &AttemptStore{attempts: append([]domain.Attempt(nil), seed...)}
}

func (s *AttemptStore) GetAll(_ context.Context) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Attempt(nil), s.attempts...), nil
}

func (s *AttemptStore) Create(_ context.Context, a domain.Attempt) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.attempts = append(s.attempts, a)
	return a, nil
}

func (s *AttemptStore) Update(_ context.Context, a domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.attempts {
		if s.attempts[i].ID == a.ID {
			s.attempts[i] = a
			return nil
		}
	}
	return domain.ErrAttemptNotFound
}

// SubjectStore is a fixed list of subjects.
type SubjectStore struct {
	subjects []domain.Subject
}

func NewSubjectStore(subjects ...domain.Subject) *SubjectStore {
	return &SubjectStore{subjects: subjects}
}

func (s *SubjectStore) GetAll(_ context.Context) ([]domain.Subject, error) {
	return append([]domain.Subject(nil), s.subjects...), nil
}

// StudentStore is a fixed roster, usually seeded from config.
type StudentStore struct {
	students []domain.Student
}

func NewStudentStore(students ...domain.Student) *StudentStore {
	return &StudentStore{students: students}
}

func (s *StudentStore) GetAll(_ context.Context) ([]domain.Student, error) {
	return append([]domain.Student(nil), s.students...), nil
}
