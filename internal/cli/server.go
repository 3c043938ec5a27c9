package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"assessment-service/internal/app"
	"assessment-service/internal/assist"
	"assessment-service/internal/config"
	"assessment-service/internal/domain"
	"assessment-service/internal/grading"
	"assessment-service/internal/infra/memory"
	"assessment-service/internal/infra/postgres"
	infraredis "assessment-service/internal/infra/redis"
	"assessment-service/internal/logging"
	transport "assessment-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the assessment server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

type stores struct {
	questions app.QuestionRepository
	quizzes   app.QuizRepository
	loader    memory.QuizLoader
	attempts  app.AttemptRepository
	subjects  app.SubjectRepository
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var st stores
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		subjects := postgres.NewSubjectStore(pool)
		if err := subjects.Seed(ctx, cfg.Subjects); err != nil {
			return err
		}
		quizzes := postgres.NewQuizStore(pool)
		st = stores{
			questions: postgres.NewQuestionStore(pool),
			quizzes:   quizzes,
			loader:    quizzes,
			attempts:  postgres.NewAttemptStore(pool),
			subjects:  subjects,
		}
		logger.Info("using postgres stores")
	} else {
		questions, quizzes := sampleCatalog(time.Now())
		quizStore := memory.NewQuizStore(quizzes...)
		st = stores{
			questions: memory.NewQuestionStore(questions...),
			quizzes:   quizStore,
			loader:    quizStore,
			attempts:  memory.NewAttemptStore(),
			subjects:  memory.NewSubjectStore(cfg.Subjects...),
		}
		logger.Warn("postgres not configured, using in-memory stores with sample data")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)

	var cache app.QuizCache
	var sessions app.SessionRepository
	if redisClient != nil {
		cache = infraredis.NewQuizCache(redisClient, st.loader, quizTTL)
		sessions = infraredis.NewSessionStore(redisClient, redisTTL)
	} else {
		cache = memory.NewQuizCache(st.loader, quizTTL)
		sessions = memory.NewSessionStore()
	}

	var assistant app.Assistant
	if cfg.Assist.BaseURL != "" {
		assistant = assist.NewClient(assist.Options{
			BaseURL: cfg.Assist.BaseURL,
			APIKey:  cfg.Assist.APIKey,
			Timeout: config.TTLDuration(cfg.Assist.Timeout, 20*time.Second),
		})
	}

	engine := grading.NewEngine(cfg.Grading)
	catalog := app.NewCatalogService(app.CatalogDeps{
		Questions: st.questions,
		Quizzes:   st.quizzes,
		Cache:     cache,
		Attempts:  st.attempts,
		Subjects:  st.subjects,
		Assistant: assistant,
		Logger:    logger.Named("catalog"),
	})
	attempts := app.NewAttemptService(app.AttemptDeps{
		Sessions:  sessions,
		Quizzes:   cache,
		Questions: st.questions,
		Attempts:  st.attempts,
		Engine:    engine,
		Logger:    logger.Named("attempts"),
	})
	reports := app.NewReportService(memory.NewStudentStore(cfg.Students...), st.questions, st.quizzes, st.attempts, logger.Named("reports"))

	api := transport.NewAPIServer(catalog, attempts, reports, logger.Named("api"))
	ws := transport.NewWSHandler(attempts, logger.Named("ws"))

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.NewRouter(api, ws),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("starting assessment service",
			zap.String("port", finalPort),
			zap.Float64("gradeFloor", engine.Scale().Floor),
			zap.Float64("gradeCeiling", engine.Scale().Ceiling))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleCatalog seeds the in-memory mode with a small quiz open for a week
// and assigned to the demo student.
func sampleCatalog(now time.Time) ([]domain.Question, []domain.Quiz) {
	questions := []domain.Question{
		{
			Code:       "q-sum",
			Kind:       domain.KindMultipleChoice,
			Prompt:     "What is 2 + 2?",
			Difficulty: 1,
			Author:     "demo",
			Feedback:   "Two pairs make four.",
			CreatedAt:  now,
			UsageCount: 1,
			Key: domain.Alternatives{Options: []domain.Alternative{
				{ID: "a", Text: "3"},
				{ID: "b", Text: "4", Correct: true},
				{ID: "c", Text: "5"},
			}},
		},
		{
			Code:       "q-prime",
			Kind:       domain.KindTrueFalse,
			Prompt:     "7 is a prime number.",
			Difficulty: 2,
			Author:     "demo",
			Feedback:   "7 has no divisors other than 1 and itself.",
			CreatedAt:  now,
			UsageCount: 1,
			Key:        domain.BooleanKey{Value: true},
		},
		{
			Code:       "q-explain",
			Kind:       domain.KindFreeResponse,
			Prompt:     "Explain why division by zero is undefined.",
			Difficulty: 3,
			Author:     "demo",
			CreatedAt:  now,
			UsageCount: 1,
			Key: domain.Rubric{Criteria: []domain.Criterion{
				{Key: "idea", Description: "States that no number times zero gives a non-zero value", Points: 2},
				{Key: "example", Description: "Gives an example", Points: 1},
			}},
		},
	}
	quizzes := []domain.Quiz{
		{
			ID:               "quiz-demo",
			Title:            "Number sense",
			Items:            []domain.QuizItem{{QuestionCode: "q-sum", Points: 2}, {QuestionCode: "q-prime", Points: 1}, {QuestionCode: "q-explain", Points: 3}},
			Window:           domain.Window{Start: now.Add(-time.Hour), End: now.Add(7 * 24 * time.Hour)},
			TimeLimitMinutes: 20,
			AssignedStudents: []string{"student-demo"},
			AllowedAttempts:  3,
			Author:           "demo",
		},
	}
	return questions, quizzes
}
