package grading

import (
	"fmt"
	"time"

	"assessment-service/internal/domain"
)

// Engine holds the single source of truth for score math.
type Engine struct {
	scale Scale
}

func NewEngine(scale Scale) *Engine {
	if !scale.Valid() {
		scale = DefaultScale
	}
	return &Engine{scale: scale}
}

// Scale returns the grade scale the engine applies.
func (e *Engine) Scale() Scale {
	return e.scale
}

// Submission is everything needed to turn raw responses into an Attempt.
type Submission struct {
	Quiz      domain.Quiz
	Questions []domain.Question
	StudentID string
	// Responses maps question code to the raw response; unanswered questions are absent.
	Responses map[string]string
	StartedAt time.Time
	EndedAt   time.Time
	// Expired marks an attempt forced out by the countdown.
	Expired bool
}

// Adjustment records a manual score that was clamped into range.
type Adjustment struct {
	QuestionCode string  `json:"questionCode"`
	Requested    float64 `json:"requested"`
	Applied      float64 `json:"applied"`
}

// ScoreAnswer scores one response. Free response answers always score 0
// here; they are settled by manual grading.
func ScoreAnswer(q domain.Question, points int, response string) float64 {
	if response == "" {
		return 0
	}
	switch key := q.Key.(type) {
	case domain.Alternatives:
		if correct, ok := key.CorrectID(); ok && response == correct {
			return float64(points)
		}
	case domain.BooleanKey:
		if response == key.Canonical() {
			return float64(points)
		}
	}
	return 0
}

// FinalizeAttempt scores every quiz item and derives totals, percentage,
// grade and status. Timeout takes precedence over pending review.
func (e *Engine) FinalizeAttempt(sub Submission) (domain.Attempt, error) {
	defs := indexQuestions(sub.Questions)
	for code := range sub.Responses {
		if _, ok := sub.Quiz.Item(code); !ok {
			return domain.Attempt{}, fmt.Errorf("response for question %s outside quiz %s: %w", code, sub.Quiz.ID, domain.ErrInconsistent)
		}
	}

	answers := make([]domain.Answer, 0, len(sub.Quiz.Items))
	hasFreeResponse := false
	for _, item := range sub.Quiz.Items {
		q, ok := defs[item.QuestionCode]
		if !ok {
			return domain.Attempt{}, fmt.Errorf("quiz %s references unknown question %s: %w", sub.Quiz.ID, item.QuestionCode, domain.ErrInconsistent)
		}
		response := sub.Responses[item.QuestionCode]
		answer := domain.Answer{
			QuestionCode: item.QuestionCode,
			Response:     response,
			Awarded:      ScoreAnswer(q, item.Points, response),
		}
		if q.Kind == domain.KindFreeResponse {
			hasFreeResponse = true
			answer.PendingManual = true
		}
		answers = append(answers, answer)
	}

	status := domain.StatusSubmitted
	switch {
	case sub.Expired:
		status = domain.StatusExpired
	case hasFreeResponse:
		status = domain.StatusPendingReview
	}

	attempt := domain.Attempt{
		QuizID:         sub.Quiz.ID,
		StudentID:      sub.StudentID,
		StartedAt:      sub.StartedAt,
		EndedAt:        sub.EndedAt,
		Answers:        answers,
		Possible:       float64(sub.Quiz.PossiblePoints()),
		ElapsedSeconds: elapsedSeconds(sub),
		Status:         status,
	}
	e.recompute(&attempt)
	return attempt, nil
}

// ApplyManualGrading settles free response answers with grader scores.
// Out-of-range scores are clamped into [0, points] and reported as
// adjustments. The attempt always ends up submitted.
func (e *Engine) ApplyManualGrading(attempt domain.Attempt, questions []domain.Question, quiz domain.Quiz, scores map[string]float64) (domain.Attempt, []Adjustment, error) {
	defs := indexQuestions(questions)
	for code := range scores {
		if _, ok := quiz.Item(code); !ok {
			return attempt, nil, fmt.Errorf("manual score for question %s outside quiz %s: %w", code, quiz.ID, domain.ErrInconsistent)
		}
	}

	graded := attempt
	graded.Answers = append([]domain.Answer(nil), attempt.Answers...)
	var adjustments []Adjustment
	for i, answer := range graded.Answers {
		q, ok := defs[answer.QuestionCode]
		if !ok {
			return attempt, nil, fmt.Errorf("attempt %s references unknown question %s: %w", attempt.ID, answer.QuestionCode, domain.ErrInconsistent)
		}
		if q.Kind != domain.KindFreeResponse {
			continue
		}
		item, ok := quiz.Item(answer.QuestionCode)
		if !ok {
			return attempt, nil, fmt.Errorf("attempt %s answer %s outside quiz %s: %w", attempt.ID, answer.QuestionCode, quiz.ID, domain.ErrInconsistent)
		}
		if requested, ok := scores[answer.QuestionCode]; ok {
			applied := clamp(requested, 0, float64(item.Points))
			if applied != requested {
				adjustments = append(adjustments, Adjustment{QuestionCode: answer.QuestionCode, Requested: requested, Applied: applied})
			}
			graded.Answers[i].Awarded = applied
		}
		graded.Answers[i].PendingManual = false
	}

	graded.Status = domain.StatusSubmitted
	e.recompute(&graded)
	return graded, adjustments, nil
}

// recompute overwrites obtained, percentage and grade from the answers.
func (e *Engine) recompute(a *domain.Attempt) {
	obtained := 0.0
	for _, answer := range a.Answers {
		obtained += answer.Awarded
	}
	a.Obtained = obtained
	a.Percentage = Percentage(obtained, a.Possible)
	a.Grade = e.scale.Grade(obtained, a.Possible)
}

func elapsedSeconds(sub Submission) int {
	elapsed := sub.EndedAt.Sub(sub.StartedAt)
	if elapsed < 0 {
		return 0
	}
	if limit := sub.Quiz.TimeLimit(); sub.Expired && limit > 0 && elapsed > limit {
		elapsed = limit
	}
	return int(elapsed / time.Second)
}

func indexQuestions(questions []domain.Question) map[string]domain.Question {
	defs := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		defs[q.Code] = q
	}
	return defs
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
