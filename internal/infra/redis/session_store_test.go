package redis

import (
	"testing"
	"time"

	"assessment-service/internal/grading"
	"assessment-service/internal/lifecycle"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)
	session := lifecycle.NewSession("sess-1", sampleQuiz(), nil, "s1", grading.NewEngine(grading.DefaultScale))

	store.Put(session)
	if !mr.Exists("quiz:session:sess-1") {
		t.Fatalf("expected redis key to be set")
	}
	if got := mr.HGet("quiz:session:sess-1", "student"); got != "s1" {
		t.Fatalf("expected student s1, got %q", got)
	}
	if _, ok := store.Get("sess-1"); !ok {
		t.Fatalf("expected local session")
	}

	store.Delete("sess-1")
	if mr.Exists("quiz:session:sess-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("sess-1"); ok {
		t.Fatalf("expected local session removed")
	}
}
