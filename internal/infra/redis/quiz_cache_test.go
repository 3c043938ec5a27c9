package redis

import (
	"context"
	"testing"
	"time"

	"assessment-service/internal/domain"
	"assessment-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestQuizCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{QuizLoader: memory.NewQuizStore(sampleQuiz())}
	cache := NewQuizCache(newClient(mr), loader, time.Minute)

	got, err := cache.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("quiz:quiz-1") {
		t.Fatalf("expected quiz stored in redis")
	}

	again, err := cache.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if again.Title != got.Title || len(again.Items) != 1 || again.Items[0].Points != 3 {
		t.Fatalf("cached quiz differs: %+v", again)
	}
	if !again.Window.End.Equal(got.Window.End) {
		t.Fatalf("window lost in cache round trip")
	}
}

func TestQuizCacheInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{QuizLoader: memory.NewQuizStore(sampleQuiz())}
	cache := NewQuizCache(newClient(mr), loader, time.Minute)
	ctx := context.Background()

	_, _ = cache.GetQuiz(ctx, "quiz-1")
	cache.Invalidate(ctx, "quiz-1")
	if mr.Exists("quiz:quiz-1") {
		t.Fatalf("expected key removed")
	}
	_, _ = cache.GetQuiz(ctx, "quiz-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, calls=%d", loader.calls)
	}
}

func TestQuizCacheTTLExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{QuizLoader: memory.NewQuizStore(sampleQuiz())}
	cache := NewQuizCache(newClient(mr), loader, time.Minute)
	ctx := context.Background()

	_, _ = cache.GetQuiz(ctx, "quiz-1")
	mr.FastForward(2 * time.Minute)
	_, _ = cache.GetQuiz(ctx, "quiz-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, calls=%d", loader.calls)
	}
}

func TestQuizCacheCorruptEntryReloads(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	if err := mr.Set("quiz:quiz-1", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	loader := &countingLoader{QuizLoader: memory.NewQuizStore(sampleQuiz())}
	cache := NewQuizCache(newClient(mr), loader, time.Minute)

	if _, err := cache.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader fallback, calls=%d", loader.calls)
	}
}

type countingLoader struct {
	memory.QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	return domain.Quiz{
		ID:               "quiz-1",
		Title:            "Fractions",
		Items:            []domain.QuizItem{{QuestionCode: "q1", Points: 3}},
		Window:           domain.Window{Start: start, End: start.Add(48 * time.Hour)},
		TimeLimitMinutes: 15,
		AssignedStudents: []string{"s1"},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
