package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/collections-sequencer/internal/domain"
)

// HistoryRepository stores audit entries.
type HistoryRepository interface {
	Create(ctx context.Context, history *domain.SequenceHistory) error
	ListBySequence(ctx context.Context, sequenceID string) ([]domain.SequenceHistory, error)
}

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository builds repository.
func NewHistoryRepository(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepository{pool: pool}
}

func (r *historyRepository) Create(ctx context.Context, history *domain.SequenceHistory) error {
	const query = `
        INSERT INTO sequence_history (sequence_id, changed_by_type, changed_by_id, change_type, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		history.SequenceID,
		history.ChangedByType,
		history.ChangedByID,
		history.ChangeType,
		history.OldValue,
		history.NewValue,
	).Scan(&history.ID, &history.CreatedAt)
}

func (r *historyRepository) ListBySequence(ctx context.Context, sequenceID string) ([]domain.SequenceHistory, error) {
	const query = `
        SELECT id, sequence_id, changed_by_type, changed_by_id, change_type, old_value, new_value, created_at
        FROM sequence_history WHERE sequence_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, sequenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SequenceHistory
	for rows.Next() {
		var history domain.SequenceHistory
		if err := rows.Scan(
			&history.ID,
			&history.SequenceID,
			&history.ChangedByType,
			&history.ChangedByID,
			&history.ChangeType,
			&history.OldValue,
			&history.NewValue,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, history)
	}
	return result, rows.Err()
}
