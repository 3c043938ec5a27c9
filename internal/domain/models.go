package domain

import "time"

// QuestionKind selects which answer key a question carries.
type QuestionKind string

const (
	KindMultipleChoice QuestionKind = "multiple_choice"
	KindTrueFalse      QuestionKind = "true_false"
	KindFreeResponse   QuestionKind = "free_response"
)

func (k QuestionKind) Valid() bool {
	return k == KindMultipleChoice || k == KindTrueFalse || k == KindFreeResponse
}

// Objective reports whether answers of this kind are scored automatically.
func (k QuestionKind) Objective() bool {
	return k == KindMultipleChoice || k == KindTrueFalse
}

// AttemptStatus is the terminal (or review-pending) state of a recorded attempt.
type AttemptStatus string

const (
	StatusSubmitted     AttemptStatus = "submitted"
	StatusExpired       AttemptStatus = "expired"
	StatusPendingReview AttemptStatus = "pending_review"
)

// Canonical TrueFalse responses. Comparison is case-sensitive.
const (
	ResponseTrue  = "true"
	ResponseFalse = "false"
)

// AnswerKey is the kind-specific part of a question. Exactly one of
// Alternatives, BooleanKey or Rubric backs a question, chosen by its Kind.
type AnswerKey interface {
	Kind() QuestionKind
}

// Alternative is one labeled choice of a multiple choice question.
type Alternative struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Alternatives is the answer key of a multiple choice question.
type Alternatives struct {
	Options []Alternative
}

func (Alternatives) Kind() QuestionKind { return KindMultipleChoice }

// CorrectID returns the id of the alternative marked correct.
func (a Alternatives) CorrectID() (string, bool) {
	for _, opt := range a.Options {
		if opt.Correct {
			return opt.ID, true
		}
	}
	return "", false
}

// BooleanKey is the answer key of a true/false question.
type BooleanKey struct {
	Value bool
}

func (BooleanKey) Kind() QuestionKind { return KindTrueFalse }

// Canonical returns the response string that matches this key.
func (b BooleanKey) Canonical() string {
	if b.Value {
		return ResponseTrue
	}
	return ResponseFalse
}

// Criterion is one weighted line of a free response rubric.
type Criterion struct {
	Key         string  `json:"key"`
	Description string  `json:"description"`
	Points      float64 `json:"points"`
}

// Rubric guides manual grading of a free response question. It has no single key.
type Rubric struct {
	Criteria []Criterion
}

func (Rubric) Kind() QuestionKind { return KindFreeResponse }

// Question is an authored item that quizzes reference by code.
type Question struct {
	Code       string
	Kind       QuestionKind
	Prompt     string
	Key        AnswerKey
	Feedback   string
	Difficulty int
	SubjectID  string
	Author     string
	CreatedAt  time.Time
	UsageCount int
}

// QuizItem places a question in a quiz with a point value chosen by the quiz author.
type QuizItem struct {
	QuestionCode string `json:"questionCode"`
	Points       int    `json:"points"`
}

// Window is the inclusive availability interval of a quiz.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies within [Start, End].
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Quiz is an ordered set of questions with availability and attempt rules.
type Quiz struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Items            []QuizItem `json:"items"`
	Window           Window     `json:"window"`
	TimeLimitMinutes int        `json:"timeLimitMinutes"`
	AssignedStudents []string   `json:"assignedStudents"`
	AllowedAttempts  int        `json:"allowedAttempts"` // 0 means unlimited
	Author           string     `json:"author"`
}

// Item returns the quiz entry for a question code.
func (q Quiz) Item(code string) (QuizItem, bool) {
	for _, item := range q.Items {
		if item.QuestionCode == code {
			return item, true
		}
	}
	return QuizItem{}, false
}

// PossiblePoints is the sum of every item's point value.
func (q Quiz) PossiblePoints() int {
	total := 0
	for _, item := range q.Items {
		total += item.Points
	}
	return total
}

// IsAssigned reports whether studentID is on the quiz's assignment list.
func (q Quiz) IsAssigned(studentID string) bool {
	for _, id := range q.AssignedStudents {
		if id == studentID {
			return true
		}
	}
	return false
}

// TimeLimit is the countdown budget of a single attempt.
func (q Quiz) TimeLimit() time.Duration {
	return time.Duration(q.TimeLimitMinutes) * time.Minute
}

// Answer is one question's entry in an attempt.
type Answer struct {
	QuestionCode  string  `json:"questionCode"`
	Response      string  `json:"response"`
	Awarded       float64 `json:"awarded"`
	PendingManual bool    `json:"pendingManual"`
}

// Answered reports whether the student provided any response.
func (a Answer) Answered() bool {
	return a.Response != ""
}

// Attempt is one student's finalized record of taking a quiz.
type Attempt struct {
	ID             string        `json:"id"`
	QuizID         string        `json:"quizId"`
	StudentID      string        `json:"studentId"`
	StartedAt      time.Time     `json:"startedAt"`
	EndedAt        time.Time     `json:"endedAt"`
	Answers        []Answer      `json:"answers"`
	Obtained       float64       `json:"obtained"`
	Possible       float64       `json:"possible"`
	Percentage     float64       `json:"percentage"`
	Grade          float64       `json:"grade"`
	ElapsedSeconds int           `json:"elapsedSeconds"`
	Status         AttemptStatus `json:"status"`
}

// Pending reports whether the attempt still waits for manual grading.
func (a Attempt) Pending() bool {
	return a.Status == StatusPendingReview
}

// AwaitingReview reports whether any free response answer is still ungraded.
func (a Attempt) AwaitingReview() bool {
	if a.Status == StatusPendingReview {
		return true
	}
	for _, answer := range a.Answers {
		if answer.PendingManual {
			return true
		}
	}
	return false
}

// Student is a roster entry.
type Student struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Subject is a label used to categorize questions.
type Subject struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// PartialQuestion is what an assist collaborator suggests for a draft.
// Empty fields mean "no suggestion".
type PartialQuestion struct {
	Prompt       string        `json:"prompt,omitempty"`
	Feedback     string        `json:"feedback,omitempty"`
	Alternatives []Alternative `json:"alternatives,omitempty"`
	BooleanKey   *bool         `json:"booleanKey,omitempty"`
	Criteria     []Criterion   `json:"criteria,omitempty"`
}
