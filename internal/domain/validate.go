package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ValidationError lists every problem found in an authored entity.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

func (e *ValidationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

var validate = validator.New()

type questionFields struct {
	Kind       QuestionKind `validate:"required,oneof=multiple_choice true_false free_response"`
	Prompt     string       `validate:"required"`
	Difficulty int          `validate:"min=1,max=5"`
	Author     string       `validate:"required"`
}

type quizFields struct {
	Title            string     `validate:"required"`
	Items            []QuizItem `validate:"required,min=1,dive"`
	TimeLimitMinutes int        `validate:"gt=0"`
	Author           string     `validate:"required"`
}

type quizItemFields struct {
	QuestionCode string `validate:"required"`
	Points       int    `validate:"gte=1"`
}

// ValidateQuestion checks the authoring rules of a question. Feedback is
// mandatory for objective kinds.
func ValidateQuestion(q Question) error {
	verr := &ValidationError{}
	fields := questionFields{
		Kind:       q.Kind,
		Prompt:     strings.TrimSpace(q.Prompt),
		Difficulty: q.Difficulty,
		Author:     q.Author,
	}
	collect(verr, validate.Struct(fields))

	if q.Key == nil {
		verr.add("answer key is required")
		return verr
	}
	if q.Key.Kind() != q.Kind {
		verr.add("%v", ErrKeyKindMismatch)
		return verr
	}
	if q.Kind.Objective() && strings.TrimSpace(q.Feedback) == "" {
		verr.add("feedback is required for %s questions", q.Kind)
	}

	switch key := q.Key.(type) {
	case Alternatives:
		if len(key.Options) < 2 {
			verr.add("multiple choice needs at least 2 alternatives")
		}
		seen := make(map[string]struct{}, len(key.Options))
		correct := 0
		for _, opt := range key.Options {
			if opt.ID == "" {
				verr.add("alternative id is required")
			}
			if _, dup := seen[opt.ID]; dup {
				verr.add("duplicate alternative id %q", opt.ID)
			}
			seen[opt.ID] = struct{}{}
			if strings.TrimSpace(opt.Text) == "" {
				verr.add("alternative %q text is required", opt.ID)
			}
			if opt.Correct {
				correct++
			}
		}
		if correct != 1 {
			verr.add("exactly one alternative must be correct, got %d", correct)
		}
	case Rubric:
		for _, c := range key.Criteria {
			if c.Points < 0 {
				verr.add("rubric criterion %q has negative points", c.Key)
			}
		}
	}
	return verr.orNil()
}

// ValidateQuiz checks the structural rules of a quiz.
func ValidateQuiz(q Quiz) error {
	verr := &ValidationError{}
	collect(verr, validate.Struct(quizFields{
		Title:            strings.TrimSpace(q.Title),
		Items:            q.Items,
		TimeLimitMinutes: q.TimeLimitMinutes,
		Author:           q.Author,
	}))
	if q.AllowedAttempts < 0 {
		verr.add("%v", ErrInvalidAttemptLimit)
	}
	if !q.Window.End.After(q.Window.Start) {
		verr.add("window end must be after start")
	}
	seen := make(map[string]struct{}, len(q.Items))
	for _, item := range q.Items {
		collect(verr, validate.Struct(quizItemFields(item)))
		if _, dup := seen[item.QuestionCode]; dup {
			verr.add("question %q appears twice", item.QuestionCode)
		}
		seen[item.QuestionCode] = struct{}{}
	}
	return verr.orNil()
}

// ValidateWindow is a convenience for callers editing only the schedule.
func ValidateWindow(start, end time.Time) error {
	if !end.After(start) {
		return &ValidationError{Problems: []string{"window end must be after start"}}
	}
	return nil
}

func collect(verr *ValidationError, err error) {
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			verr.add("%s failed %s", strings.ToLower(fe.Field()), fe.Tag())
		}
		return
	}
	verr.add("%v", err)
}
