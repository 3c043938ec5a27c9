package app

import (
	"context"
	"fmt"

	"assessment-service/internal/domain"
	"assessment-service/internal/logging"
	"assessment-service/internal/stats"
	"go.uber.org/zap"
)

// ReportService builds the statistics dashboard. Every call reloads all
// inputs so a report never reflects stale grading.
type ReportService struct {
	students  StudentRepository
	questions QuestionRepository
	quizzes   QuizRepository
	attempts  AttemptRepository
	log       *zap.Logger
}

func NewReportService(students StudentRepository, questions QuestionRepository, quizzes QuizRepository, attempts AttemptRepository, logger *zap.Logger) *ReportService {
	return &ReportService{
		students:  students,
		questions: questions,
		quizzes:   quizzes,
		attempts:  attempts,
		log:       logging.OrNop(logger),
	}
}

func (s *ReportService) Dashboard(ctx context.Context) (stats.Dashboard, error) {
	roster, err := s.students.GetAll(ctx)
	if err != nil {
		return stats.Dashboard{}, s.fail("students", err)
	}
	questions, err := s.questions.GetAll(ctx)
	if err != nil {
		return stats.Dashboard{}, s.fail("questions", err)
	}
	quizzes, err := s.quizzes.GetAll(ctx)
	if err != nil {
		return stats.Dashboard{}, s.fail("quizzes", err)
	}
	attempts, err := s.attempts.GetAll(ctx)
	if err != nil {
		return stats.Dashboard{}, s.fail("attempts", err)
	}
	return stats.Build(withAssigned(roster, quizzes), questions, quizzes, attempts), nil
}

func (s *ReportService) fail(what string, err error) error {
	s.log.Error("report load failed", zap.String("source", what), zap.Error(err))
	return fmt.Errorf("load %s: %w", what, err)
}

// withAssigned extends the roster with students that are only known from
// quiz assignments.
func withAssigned(roster []domain.Student, quizzes []domain.Quiz) []domain.Student {
	seen := make(map[string]struct{}, len(roster))
	out := append([]domain.Student(nil), roster...)
	for _, st := range roster {
		seen[st.ID] = struct{}{}
	}
	for _, q := range quizzes {
		for _, id := range q.AssignedStudents {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, domain.Student{ID: id})
		}
	}
	return out
}
