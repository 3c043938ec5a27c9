package postgres

import (
	"context"
	"fmt"

	"assessment-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

type SubjectStore struct {
	pool *pgxpool.Pool
}

func NewSubjectStore(pool *pgxpool.Pool) *SubjectStore {
	return &SubjectStore{pool: pool}
}

func (s *SubjectStore) GetAll(ctx context.Context) ([]domain.Subject, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, label FROM subjects ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer rows.Close()

	var out []domain.Subject
	for rows.Next() {
		var subject domain.Subject
		if err := rows.Scan(&subject.ID, &subject.Label); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		out = append(out, subject)
	}
	return out, rows.Err()
}

// Seed inserts subjects that are not present yet.
func (s *SubjectStore) Seed(ctx context.Context, subjects []domain.Subject) error {
	for _, subject := range subjects {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO subjects (id, label) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
			subject.ID, subject.Label)
		if err != nil {
			return fmt.Errorf("seed subject %s: %w", subject.ID, err)
		}
	}
	return nil
}
