package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"assessment-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AttemptStore keeps finalized attempts. Quiz, student and status are
// mirrored into columns for indexing; the document stays authoritative.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

func (s *AttemptStore) GetAll(ctx context.Context) ([]domain.Attempt, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM attempts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []domain.Attempt
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		var a domain.Attempt
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("unmarshal attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *AttemptStore) Create(ctx context.Context, a domain.Attempt) (domain.Attempt, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	data, err := json.Marshal(a)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("marshal attempt: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO attempts (id, quiz_id, student_id, status, data) VALUES ($1, $2, $3, $4, $5::jsonb)`,
		a.ID, a.QuizID, a.StudentID, string(a.Status), string(data))
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}
	return a, nil
}

func (s *AttemptStore) Update(ctx context.Context, a domain.Attempt) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE attempts SET status=$2, data=$3::jsonb WHERE id=$1`,
		a.ID, string(a.Status), string(data))
	if err != nil {
		return fmt.Errorf("update attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAttemptNotFound
	}
	return nil
}
