package memory

import (
	"testing"

	"assessment-service/internal/grading"
	"assessment-service/internal/lifecycle"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()
	session := lifecycle.NewSession("sess-1", sampleQuiz(), nil, "s1", grading.NewEngine(grading.DefaultScale))

	store.Put(session)
	got, ok := store.Get("sess-1")
	if !ok || got != session {
		t.Fatalf("expected stored session")
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", store.Len())
	}

	store.Delete("sess-1")
	if _, ok := store.Get("sess-1"); ok {
		t.Fatalf("expected session removed")
	}
}

func TestSessionStoreOpenCountsUnfinished(t *testing.T) {
	store := NewSessionStore()
	quiz := sampleQuiz()
	engine := grading.NewEngine(grading.DefaultScale)
	store.Put(lifecycle.NewSession("sess-1", quiz, nil, "s1", engine))
	store.Put(lifecycle.NewSession("sess-2", quiz, nil, "s1", engine))
	store.Put(lifecycle.NewSession("sess-3", quiz, nil, "s2", engine))

	if got := store.Open(quiz.ID, "s1"); got != 2 {
		t.Fatalf("expected 2 open sessions for s1, got %d", got)
	}
	if got := store.Open("other-quiz", "s1"); got != 0 {
		t.Fatalf("expected no sessions on another quiz, got %d", got)
	}
	store.Delete("sess-2")
	if got := store.Open(quiz.ID, "s1"); got != 1 {
		t.Fatalf("expected 1 open session after delete, got %d", got)
	}
}
