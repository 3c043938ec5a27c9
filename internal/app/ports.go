package app

import (
	"context"

	"assessment-service/internal/domain"
	"assessment-service/internal/lifecycle"
)

// QuestionRepository stores authored questions. Create assigns the code.
type QuestionRepository interface {
	GetAll(ctx context.Context) ([]domain.Question, error)
	Create(ctx context.Context, q domain.Question) (domain.Question, error)
	Update(ctx context.Context, q domain.Question) error
	Delete(ctx context.Context, code string) error
}

// QuizRepository stores quizzes. Create assigns the id.
type QuizRepository interface {
	GetAll(ctx context.Context) ([]domain.Quiz, error)
	Create(ctx context.Context, q domain.Quiz) (domain.Quiz, error)
	Update(ctx context.Context, q domain.Quiz) error
	Delete(ctx context.Context, id string) error
}

// QuizCache serves single quizzes for the attempt path (cache/backing store).
type QuizCache interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	Invalidate(ctx context.Context, quizID string)
}

// AttemptRepository stores finalized attempts.
type AttemptRepository interface {
	GetAll(ctx context.Context) ([]domain.Attempt, error)
	Create(ctx context.Context, a domain.Attempt) (domain.Attempt, error)
	Update(ctx context.Context, a domain.Attempt) error
}

// SubjectRepository lists categorization labels.
type SubjectRepository interface {
	GetAll(ctx context.Context) ([]domain.Subject, error)
}

// StudentRepository lists the roster used by reports.
type StudentRepository interface {
	GetAll(ctx context.Context) ([]domain.Student, error)
}

// SessionRepository abstracts where in-progress attempt sessions live (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *lifecycle.Session)
	Get(sessionID string) (*lifecycle.Session, bool)
	Delete(sessionID string)
	// Open counts unfinished sessions of a student on a quiz.
	Open(quizID, studentID string) int
}

// Assistant drafts question content. It may fail at any time.
type Assistant interface {
	Assist(ctx context.Context, draft domain.Question) (domain.PartialQuestion, error)
}
