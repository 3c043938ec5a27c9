package lifecycle

import (
	"errors"
	"testing"
	"time"

	"assessment-service/internal/domain"
)

var opens = time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC)

func eligibilityQuiz(allowed int) domain.Quiz {
	return domain.Quiz{
		ID:               "quiz-1",
		Window:           domain.Window{Start: opens, End: opens.Add(2 * time.Hour)},
		TimeLimitMinutes: 10,
		AssignedStudents: []string{"s1"},
		AllowedAttempts:  allowed,
	}
}

func TestCheckEligibility(t *testing.T) {
	cases := []struct {
		name string
		quiz domain.Quiz
		req  Request
		want error
	}{
		{"allowed", eligibilityQuiz(1), Request{StudentID: "s1", Now: opens.Add(time.Minute)}, nil},
		{"window start inclusive", eligibilityQuiz(1), Request{StudentID: "s1", Now: opens}, nil},
		{"window end inclusive", eligibilityQuiz(1), Request{StudentID: "s1", Now: opens.Add(2 * time.Hour)}, nil},
		{"before window", eligibilityQuiz(1), Request{StudentID: "s1", Now: opens.Add(-time.Second)}, domain.ErrOutsideWindow},
		{"after window", eligibilityQuiz(1), Request{StudentID: "s1", Now: opens.Add(2*time.Hour + time.Second)}, domain.ErrOutsideWindow},
		{"not assigned", eligibilityQuiz(1), Request{StudentID: "s9", Now: opens}, domain.ErrNotAssigned},
		{"preview skips assignment", eligibilityQuiz(1), Request{StudentID: "s9", Now: opens, Preview: true}, nil},
		{"limit one with one prior", eligibilityQuiz(1), Request{StudentID: "s1", Now: opens, PriorAttempts: 1}, domain.ErrAttemptLimitReached},
		{"limit three with two prior", eligibilityQuiz(3), Request{StudentID: "s1", Now: opens, PriorAttempts: 2}, nil},
		{"unlimited", eligibilityQuiz(0), Request{StudentID: "s1", Now: opens, PriorAttempts: 500}, nil},
		{"negative limit", eligibilityQuiz(-1), Request{StudentID: "s1", Now: opens}, domain.ErrInvalidAttemptLimit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckEligibility(tc.quiz, tc.req)
			if tc.want == nil && err != nil {
				t.Fatalf("expected eligible, got %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCountAttempts(t *testing.T) {
	attempts := []domain.Attempt{
		{QuizID: "quiz-1", StudentID: "s1"},
		{QuizID: "quiz-1", StudentID: "s2"},
		{QuizID: "quiz-2", StudentID: "s1"},
		{QuizID: "quiz-1", StudentID: "s1", Status: domain.StatusPendingReview},
	}
	if got := CountAttempts(attempts, "quiz-1", "s1"); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
	if got := CountAttempts(nil, "quiz-1", "s1"); got != 0 {
		t.Fatalf("expected 0 attempts, got %d", got)
	}
}
