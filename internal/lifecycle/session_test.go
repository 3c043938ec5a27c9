package lifecycle

import (
	"errors"
	"sync"
	"testing"
	"time"

	"assessment-service/internal/domain"
	"assessment-service/internal/grading"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func fiveQuestionQuiz() (domain.Quiz, []domain.Question) {
	quiz := domain.Quiz{
		ID:               "quiz-5",
		Title:            "Five",
		Window:           domain.Window{Start: opens.Add(-time.Hour), End: opens.Add(time.Hour)},
		TimeLimitMinutes: 1,
		AssignedStudents: []string{"s1"},
	}
	var questions []domain.Question
	for _, code := range []string{"q1", "q2", "q3", "q4", "q5"} {
		quiz.Items = append(quiz.Items, domain.QuizItem{QuestionCode: code, Points: 2})
		questions = append(questions, domain.Question{Code: code, Kind: domain.KindTrueFalse, Key: domain.BooleanKey{Value: true}})
	}
	return quiz, questions
}

func startedSession(t *testing.T) (*Session, *clock) {
	t.Helper()
	quiz, questions := fiveQuestionQuiz()
	c := &clock{now: opens}
	s := NewSessionWithClock("sess-1", quiz, questions, "s1", grading.NewEngine(grading.DefaultScale), c.Now)
	if err := s.Start(Request{Now: opens}); err != nil {
		t.Fatalf("start: %v", err)
	}
	return s, c
}

func TestSessionStartsCountdown(t *testing.T) {
	s, _ := startedSession(t)
	if s.State() != StateInProgress {
		t.Fatalf("expected in progress, got %s", s.State())
	}
	if s.Remaining() != 60 {
		t.Fatalf("expected 60 seconds, got %d", s.Remaining())
	}
	if err := s.Start(Request{Now: opens}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition on restart, got %v", err)
	}
}

func TestSessionStartRejectsIneligible(t *testing.T) {
	quiz, questions := fiveQuestionQuiz()
	s := NewSession("sess-2", quiz, questions, "stranger", grading.NewEngine(grading.DefaultScale))
	if err := s.Start(Request{Now: opens}); !errors.Is(err, domain.ErrNotAssigned) {
		t.Fatalf("expected ErrNotAssigned, got %v", err)
	}
	if s.State() != StateNotStarted {
		t.Fatalf("rejected start must not change state, got %s", s.State())
	}
}

func TestSessionExpiresWithPartialAnswers(t *testing.T) {
	s, c := startedSession(t)
	if err := s.Answer("q1", "true"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := s.Answer("q2", "false"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	var (
		attempt  domain.Attempt
		finished bool
		err      error
	)
	for i := 0; i < 60 && !finished; i++ {
		c.Advance(time.Second)
		attempt, finished, err = s.Tick()
		if err != nil {
			t.Fatalf("tick: %v", err)
		}
	}
	if !finished {
		t.Fatalf("countdown never finished")
	}
	if attempt.Status != domain.StatusExpired {
		t.Fatalf("expected expired, got %s", attempt.Status)
	}
	if attempt.Obtained != 2 || attempt.Possible != 10 {
		t.Fatalf("expected 2/10, got %v/%v", attempt.Obtained, attempt.Possible)
	}
	if attempt.ElapsedSeconds != 60 {
		t.Fatalf("expected 60 elapsed seconds, got %d", attempt.ElapsedSeconds)
	}
	for _, answer := range attempt.Answers[2:] {
		if answer.Answered() || answer.Awarded != 0 {
			t.Fatalf("unanswered question %s should score 0", answer.QuestionCode)
		}
	}
	if s.State() != StateFinished || s.Remaining() != 0 {
		t.Fatalf("expected finished with no time left, got %s/%d", s.State(), s.Remaining())
	}
	if _, _, err := s.Tick(); err != nil {
		t.Fatalf("tick after finish should be a no-op, got %v", err)
	}
	if err := s.Answer("q3", "true"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition after expiry, got %v", err)
	}
}

func TestSessionExpiryWinsDuringConfirmation(t *testing.T) {
	s, c := startedSession(t)
	if err := s.RequestFinish(); err != nil {
		t.Fatalf("request finish: %v", err)
	}
	c.Advance(2 * time.Minute)
	_, finished, err := s.Tick()
	if err != nil || !finished {
		t.Fatalf("expected the deadline to finish the attempt, finished=%v err=%v", finished, err)
	}
	if _, err := s.ConfirmFinish(); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("confirm after expiry should fail, got %v", err)
	}
	result, ok := s.Result()
	if !ok || result.Status != domain.StatusExpired {
		t.Fatalf("expected expired result, got %+v", result)
	}
}

func TestSessionConfirmAfterDeadlineIsExpired(t *testing.T) {
	s, c := startedSession(t)
	if err := s.RequestFinish(); err != nil {
		t.Fatalf("request finish: %v", err)
	}
	c.Advance(90 * time.Second)
	attempt, err := s.ConfirmFinish()
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if attempt.Status != domain.StatusExpired {
		t.Fatalf("expected expired, got %s", attempt.Status)
	}
	if attempt.ElapsedSeconds != 60 {
		t.Fatalf("elapsed should be capped at the limit, got %d", attempt.ElapsedSeconds)
	}
}

func TestSessionTransitions(t *testing.T) {
	s, c := startedSession(t)

	if err := s.CancelFinish(); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("cancel without confirmation should fail, got %v", err)
	}
	if _, err := s.ConfirmFinish(); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("confirm without request should fail, got %v", err)
	}
	if err := s.Answer("nope", "true"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected unknown question, got %v", err)
	}
	if err := s.Navigate(5); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected out of range index, got %v", err)
	}

	if err := s.Answer("q1", "true"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := s.Navigate(3); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if err := s.RequestFinish(); err != nil {
		t.Fatalf("request finish: %v", err)
	}
	if err := s.Answer("q2", "true"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("answers are frozen while confirming, got %v", err)
	}
	if err := s.CancelFinish(); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	view := s.Snapshot()
	if view.CurrentIndex != 3 || view.Responses["q1"] != "true" || view.State != StateInProgress {
		t.Fatalf("unexpected view %+v", view)
	}

	if err := s.Answer("q1", ""); err != nil {
		t.Fatalf("clear answer: %v", err)
	}
	if err := s.RequestFinish(); err != nil {
		t.Fatalf("request finish: %v", err)
	}
	c.Advance(15 * time.Second)
	attempt, err := s.ConfirmFinish()
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if attempt.Status != domain.StatusSubmitted || attempt.ID != "sess-1" {
		t.Fatalf("unexpected attempt %+v", attempt)
	}
	if attempt.Obtained != 0 || attempt.ElapsedSeconds != 15 {
		t.Fatalf("cleared answer should not score, got %v in %ds", attempt.Obtained, attempt.ElapsedSeconds)
	}
}

func TestSessionQuestionsFollowQuizOrder(t *testing.T) {
	quiz, questions := fiveQuestionQuiz()
	reversed := make([]domain.Question, 0, len(questions))
	for i := len(questions) - 1; i >= 0; i-- {
		reversed = append(reversed, questions[i])
	}
	s := NewSession("sess-3", quiz, reversed, "s1", grading.NewEngine(grading.DefaultScale))
	got := s.Questions()
	for i, q := range got {
		if q.Code != quiz.Items[i].QuestionCode {
			t.Fatalf("position %d: expected %s, got %s", i, quiz.Items[i].QuestionCode, q.Code)
		}
	}
}
