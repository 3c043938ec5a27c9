package app_test

import (
	"context"
	"errors"
	"time"

	"assessment-service/internal/app"
	"assessment-service/internal/domain"
	"assessment-service/internal/grading"
	"assessment-service/internal/infra/memory"
)

var baseTime = time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC)

// fixture wires the services over in-memory stores with a controllable clock.
type fixture struct {
	now       time.Time
	questions *memory.QuestionStore
	quizzes   *memory.QuizStore
	attempts  *memory.AttemptStore
	sessions  *memory.SessionStore
	cache     *memory.QuizCache
	assistant *stubAssistant

	catalog *app.CatalogService
	attempt *app.AttemptService
	reports *app.ReportService
}

func newFixture() *fixture {
	f := &fixture{now: baseTime}
	f.questions = memory.NewQuestionStore(sampleQuestions()...)
	f.quizzes = memory.NewQuizStore(mixedQuiz(), objectiveQuiz())
	f.attempts = memory.NewAttemptStore()
	f.sessions = memory.NewSessionStore()
	f.cache = memory.NewQuizCache(f.quizzes, time.Minute)
	f.assistant = &stubAssistant{}

	f.catalog = app.NewCatalogService(app.CatalogDeps{
		Questions: f.questions,
		Quizzes:   f.quizzes,
		Cache:     f.cache,
		Attempts:  f.attempts,
		Subjects:  memory.NewSubjectStore(domain.Subject{ID: "math", Label: "Mathematics"}),
		Assistant: f.assistant,
	})
	f.attempt = app.NewAttemptService(app.AttemptDeps{
		Sessions:  f.sessions,
		Quizzes:   f.cache,
		Questions: f.questions,
		Attempts:  f.attempts,
		Engine:    grading.NewEngine(grading.DefaultScale),
		Now:       func() time.Time { return f.now },
	})
	f.reports = app.NewReportService(
		memory.NewStudentStore(domain.Student{ID: "s1", Name: "Ana"}, domain.Student{ID: "s2", Name: "Bruno"}),
		f.questions, f.quizzes, f.attempts, nil)
	return f
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			Code: "mc1", Kind: domain.KindMultipleChoice, Prompt: "2 + 2?", Difficulty: 1, Author: "t1", Feedback: "four",
			Key: domain.Alternatives{Options: []domain.Alternative{{ID: "a", Text: "3"}, {ID: "b", Text: "4", Correct: true}}},
		},
		{
			Code: "tf1", Kind: domain.KindTrueFalse, Prompt: "The earth is round", Difficulty: 1, Author: "t1", Feedback: "yes",
			Key: domain.BooleanKey{Value: true},
		},
		{
			Code: "fr1", Kind: domain.KindFreeResponse, Prompt: "Explain gravity", Difficulty: 3, Author: "t1",
			Key: domain.Rubric{Criteria: []domain.Criterion{{Key: "concept", Points: 3}, {Key: "example", Points: 1}}},
		},
	}
}

// mixedQuiz carries a free response item, so submissions wait for review.
func mixedQuiz() domain.Quiz {
	return domain.Quiz{
		ID:               "quiz-mixed",
		Title:            "Physics basics",
		Items:            []domain.QuizItem{{QuestionCode: "mc1", Points: 2}, {QuestionCode: "tf1", Points: 1}, {QuestionCode: "fr1", Points: 4}},
		Window:           domain.Window{Start: baseTime.Add(-time.Hour), End: baseTime.Add(24 * time.Hour)},
		TimeLimitMinutes: 10,
		AssignedStudents: []string{"s1", "s2"},
		AllowedAttempts:  2,
		Author:           "t1",
	}
}

func objectiveQuiz() domain.Quiz {
	return domain.Quiz{
		ID:               "quiz-objective",
		Title:            "Warm up",
		Items:            []domain.QuizItem{{QuestionCode: "mc1", Points: 1}, {QuestionCode: "tf1", Points: 1}},
		Window:           domain.Window{Start: baseTime.Add(-time.Hour), End: baseTime.Add(time.Hour)},
		TimeLimitMinutes: 1,
		AssignedStudents: []string{"s1"},
		Author:           "t1",
	}
}

type stubAssistant struct {
	suggestion domain.PartialQuestion
	err        error
	calls      int
}

func (s *stubAssistant) Assist(_ context.Context, _ domain.Question) (domain.PartialQuestion, error) {
	s.calls++
	return s.suggestion, s.err
}

var errAssistDown = errors.New("assist backend down")
