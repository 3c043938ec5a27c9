package grading

import (
	"fmt"

	"assessment-service/internal/domain"
)

// ScoreRubric sums per-criterion awards, clamping each into [0, criterion points].
// The returned notes describe the applied value per criterion.
func ScoreRubric(r domain.Rubric, awarded map[string]float64) (float64, []string) {
	total := 0.0
	notes := make([]string, 0, len(r.Criteria))
	for _, c := range r.Criteria {
		v := clamp(awarded[c.Key], 0, c.Points)
		total += v
		notes = append(notes, fmt.Sprintf("%s:%.2f", c.Key, v))
	}
	return total, notes
}

// MaxPoints is the sum of the rubric criterion weights.
func MaxPoints(r domain.Rubric) float64 {
	total := 0.0
	for _, c := range r.Criteria {
		total += c.Points
	}
	return total
}
