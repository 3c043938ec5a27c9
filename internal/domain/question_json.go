package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// questionJSON is the flattened wire shape of a Question. Only the field
// matching Kind is populated.
type questionJSON struct {
	Code         string        `json:"code"`
	Kind         QuestionKind  `json:"kind"`
	Prompt       string        `json:"prompt"`
	Alternatives []Alternative `json:"alternatives,omitempty"`
	BooleanKey   *bool         `json:"booleanKey,omitempty"`
	Rubric       []Criterion   `json:"rubric,omitempty"`
	Feedback     string        `json:"feedback,omitempty"`
	Difficulty   int           `json:"difficulty"`
	SubjectID    string        `json:"subjectId,omitempty"`
	Author       string        `json:"author"`
	CreatedAt    time.Time     `json:"createdAt"`
	UsageCount   int           `json:"usageCount"`
}

func (q Question) MarshalJSON() ([]byte, error) {
	out := questionJSON{
		Code:       q.Code,
		Kind:       q.Kind,
		Prompt:     q.Prompt,
		Feedback:   q.Feedback,
		Difficulty: q.Difficulty,
		SubjectID:  q.SubjectID,
		Author:     q.Author,
		CreatedAt:  q.CreatedAt,
		UsageCount: q.UsageCount,
	}
	switch key := q.Key.(type) {
	case Alternatives:
		out.Alternatives = key.Options
	case BooleanKey:
		v := key.Value
		out.BooleanKey = &v
	case Rubric:
		out.Rubric = key.Criteria
	case nil:
	default:
		return nil, fmt.Errorf("marshal question %s: unsupported answer key %T", q.Code, key)
	}
	return json.Marshal(out)
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var in questionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*q = Question{
		Code:       in.Code,
		Kind:       in.Kind,
		Prompt:     in.Prompt,
		Feedback:   in.Feedback,
		Difficulty: in.Difficulty,
		SubjectID:  in.SubjectID,
		Author:     in.Author,
		CreatedAt:  in.CreatedAt,
		UsageCount: in.UsageCount,
	}
	switch in.Kind {
	case KindMultipleChoice:
		if in.BooleanKey != nil || len(in.Rubric) > 0 {
			return fmt.Errorf("question %s: %w", in.Code, ErrKeyKindMismatch)
		}
		q.Key = Alternatives{Options: in.Alternatives}
	case KindTrueFalse:
		if len(in.Alternatives) > 0 || len(in.Rubric) > 0 {
			return fmt.Errorf("question %s: %w", in.Code, ErrKeyKindMismatch)
		}
		if in.BooleanKey != nil {
			q.Key = BooleanKey{Value: *in.BooleanKey}
		}
	case KindFreeResponse:
		if len(in.Alternatives) > 0 || in.BooleanKey != nil {
			return fmt.Errorf("question %s: %w", in.Code, ErrKeyKindMismatch)
		}
		q.Key = Rubric{Criteria: in.Rubric}
	}
	return nil
}
