// Package stats derives read-only report views from the full attempt history.
// Every function recomputes from scratch and ignores attempts that are still
// pending review.
package stats

import (
	"sort"

	"assessment-service/internal/domain"
)

// StudentStats summarizes one student's graded attempts.
type StudentStats struct {
	StudentID         string  `json:"studentId"`
	Name              string  `json:"name"`
	Attempts          int     `json:"attempts"`
	AveragePercentage float64 `json:"averagePercentage"`
	AverageGrade      float64 `json:"averageGrade"`
}

// QuestionStats summarizes how a question was answered.
type QuestionStats struct {
	QuestionCode string             `json:"questionCode"`
	Kind         domain.QuestionKind `json:"kind"`
	Answered     int                `json:"answered"`
	Correct      int                `json:"correct"`
	SuccessRate  float64            `json:"successRate"`
	// Distractors counts how often each alternative id was selected. Only
	// multiple choice questions carry it.
	Distractors map[string]int `json:"distractors,omitempty"`
}

// QuizStats summarizes the graded attempts of one quiz.
type QuizStats struct {
	QuizID             string  `json:"quizId"`
	Title              string  `json:"title"`
	Participants       int     `json:"participants"`
	Attempts           int     `json:"attempts"`
	AveragePercentage  float64 `json:"averagePercentage"`
	AverageTimeSeconds float64 `json:"averageTimeSeconds"`
	HighestPercentage  float64 `json:"highestPercentage"`
	LowestPercentage   float64 `json:"lowestPercentage"`
}

// Dashboard bundles every report view.
type Dashboard struct {
	Students  []StudentStats  `json:"students"`
	Questions []QuestionStats `json:"questions"`
	Quizzes   []QuizStats     `json:"quizzes"`
	// PendingReview is the number of attempts excluded from the aggregates.
	PendingReview int `json:"pendingReview"`
}

// Counted reports whether an attempt participates in aggregates.
func Counted(a domain.Attempt) bool {
	return a.Status != domain.StatusPendingReview
}

// PerStudent reports every roster student, plus any student seen only in
// graded attempts. Students without graded attempts report zeros.
func PerStudent(roster []domain.Student, attempts []domain.Attempt) []StudentStats {
	type acc struct {
		name            string
		n               int
		sumPct, sumGrad float64
	}
	byID := make(map[string]*acc, len(roster))
	order := make([]string, 0, len(roster))
	for _, st := range roster {
		if _, ok := byID[st.ID]; ok {
			continue
		}
		byID[st.ID] = &acc{name: st.Name}
		order = append(order, st.ID)
	}
	for _, a := range attempts {
		if !Counted(a) {
			continue
		}
		entry, ok := byID[a.StudentID]
		if !ok {
			entry = &acc{}
			byID[a.StudentID] = entry
			order = append(order, a.StudentID)
		}
		entry.n++
		entry.sumPct += a.Percentage
		entry.sumGrad += a.Grade
	}

	out := make([]StudentStats, 0, len(order))
	for _, id := range order {
		entry := byID[id]
		out = append(out, StudentStats{
			StudentID:         id,
			Name:              entry.name,
			Attempts:          entry.n,
			AveragePercentage: mean(entry.sumPct, entry.n),
			AverageGrade:      mean(entry.sumGrad, entry.n),
		})
	}
	return out
}

// PerQuestion reports success rate and, for multiple choice, the
// distractor breakdown. Only answered entries count, and free response
// answers still waiting for a grader are skipped.
func PerQuestion(questions []domain.Question, attempts []domain.Attempt) []QuestionStats {
	byCode := make(map[string]*QuestionStats, len(questions))
	out := make([]*QuestionStats, 0, len(questions))
	for _, q := range questions {
		qs := &QuestionStats{QuestionCode: q.Code, Kind: q.Kind}
		if q.Kind == domain.KindMultipleChoice {
			qs.Distractors = make(map[string]int)
		}
		byCode[q.Code] = qs
		out = append(out, qs)
	}

	for _, a := range attempts {
		if !Counted(a) {
			continue
		}
		for _, answer := range a.Answers {
			qs, ok := byCode[answer.QuestionCode]
			if !ok || !answer.Answered() || answer.PendingManual {
				continue
			}
			qs.Answered++
			if answer.Awarded > 0 {
				qs.Correct++
			}
			if qs.Distractors != nil {
				qs.Distractors[answer.Response]++
			}
		}
	}

	result := make([]QuestionStats, 0, len(out))
	for _, qs := range out {
		qs.SuccessRate = ratio(qs.Correct, qs.Answered)
		result = append(result, *qs)
	}
	return result
}

// PerQuiz reports participation, averages and extremes for every quiz.
func PerQuiz(quizzes []domain.Quiz, attempts []domain.Attempt) []QuizStats {
	byQuiz := make(map[string][]domain.Attempt, len(quizzes))
	for _, a := range attempts {
		if Counted(a) {
			byQuiz[a.QuizID] = append(byQuiz[a.QuizID], a)
		}
	}

	out := make([]QuizStats, 0, len(quizzes))
	for _, quiz := range quizzes {
		qs := QuizStats{QuizID: quiz.ID, Title: quiz.Title}
		graded := byQuiz[quiz.ID]
		students := make(map[string]struct{}, len(graded))
		var sumPct, sumTime float64
		for i, a := range graded {
			students[a.StudentID] = struct{}{}
			sumPct += a.Percentage
			sumTime += float64(a.ElapsedSeconds)
			if i == 0 || a.Percentage > qs.HighestPercentage {
				qs.HighestPercentage = a.Percentage
			}
			if i == 0 || a.Percentage < qs.LowestPercentage {
				qs.LowestPercentage = a.Percentage
			}
		}
		qs.Participants = len(students)
		qs.Attempts = len(graded)
		qs.AveragePercentage = mean(sumPct, len(graded))
		qs.AverageTimeSeconds = mean(sumTime, len(graded))
		out = append(out, qs)
	}
	return out
}

// Build derives the complete dashboard.
func Build(roster []domain.Student, questions []domain.Question, quizzes []domain.Quiz, attempts []domain.Attempt) Dashboard {
	pending := 0
	for _, a := range attempts {
		if !Counted(a) {
			pending++
		}
	}
	students := PerStudent(roster, attempts)
	sort.SliceStable(students, func(i, j int) bool { return students[i].StudentID < students[j].StudentID })
	return Dashboard{
		Students:      students,
		Questions:     PerQuestion(questions, attempts),
		Quizzes:       PerQuiz(quizzes, attempts),
		PendingReview: pending,
	}
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func ratio(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
