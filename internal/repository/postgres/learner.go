package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/btimofeyev/tutor-ai-core/internal/repository"
)

// LearnerRepository implements repository.LearnerRepository using PostgreSQL
type LearnerRepository struct {
	db *sqlx.DB
}

// NewLearnerRepository creates a new PostgreSQL learner repository
func NewLearnerRepository(db *sqlx.DB) repository.LearnerRepository {
	return &LearnerRepository{db: db}
}

// Get retrieves a learner by ID
func (r *LearnerRepository) Get(ctx context.Context, id string) (*repository.Learner, error) {
	var learner repository.Learner
	query := `SELECT id, guardian_id, name FROM learners WHERE id = $1`

	if err := r.db.GetContext(ctx, &learner, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("learner %s not found", id)
		}
		return nil, err
	}

	return &learner, nil
}

// ListIDs retrieves all learner IDs
func (r *LearnerRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	query := `SELECT id FROM learners ORDER BY id`

	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, err
	}

	return ids, nil
}
