package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/collections-sequencer/internal/domain"
)

// ErrDuplicateOpenSequence signals the idempotent-create guard: at most one
// open (active or paused) sequence may exist per account.
var ErrDuplicateOpenSequence = errors.New("account already has an open sequence")

// SequenceFilter captures listing parameters.
type SequenceFilter struct {
	AccountID *string
	Statuses  []domain.SequenceStatus
	Limit     int
	Offset    int
}

// SequenceRepository encapsulates sequence persistence.
type SequenceRepository interface {
	Create(ctx context.Context, seq *domain.Sequence) error
	Update(ctx context.Context, seq *domain.Sequence) error
	GetByID(ctx context.Context, id string) (*domain.Sequence, error)
	GetOpenByAccount(ctx context.Context, accountID string) (*domain.Sequence, error)
	ListWithFilter(ctx context.Context, filter SequenceFilter) ([]domain.Sequence, error)
	ListActiveIDs(ctx context.Context) ([]string, error)
}

type sequenceRepository struct {
	pool *pgxpool.Pool
}

// NewSequenceRepository instantiates repository.
func NewSequenceRepository(pool *pgxpool.Pool) SequenceRepository {
	return &sequenceRepository{pool: pool}
}

func (r *sequenceRepository) Create(ctx context.Context, seq *domain.Sequence) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO sequences (account_id, total_balance, started_at, current_step_offset, status, paused_at)
        VALUES ($1, $2::numeric, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`
	err = tx.QueryRow(ctx, query,
		seq.AccountID,
		seq.TotalBalance.String(),
		seq.StartedAt,
		seq.CurrentStepOffset,
		seq.Status,
		seq.PausedAt,
	).Scan(&seq.ID, &seq.CreatedAt, &seq.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateOpenSequence
		}
		return err
	}

	for i := range seq.Steps {
		seq.Steps[i].SequenceID = seq.ID
		if err := upsertStep(ctx, tx, &seq.Steps[i]); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *sequenceRepository) Update(ctx context.Context, seq *domain.Sequence) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        UPDATE sequences SET total_balance=$1::numeric, current_step_offset=$2, status=$3,
            paused_at=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := tx.Exec(ctx, query,
		seq.TotalBalance.String(),
		seq.CurrentStepOffset,
		seq.Status,
		seq.PausedAt,
		seq.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	for i := range seq.Steps {
		seq.Steps[i].SequenceID = seq.ID
		if err := upsertStep(ctx, tx, &seq.Steps[i]); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func upsertStep(ctx context.Context, tx pgx.Tx, rec *domain.StepRecord) error {
	const query = `
        INSERT INTO sequence_steps (sequence_id, day_offset, status, sent_at, action, response, manual)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (sequence_id, day_offset)
        DO UPDATE SET status=EXCLUDED.status, sent_at=EXCLUDED.sent_at, action=EXCLUDED.action,
            response=EXCLUDED.response, manual=EXCLUDED.manual
        RETURNING id`
	return tx.QueryRow(ctx, query,
		rec.SequenceID,
		rec.DayOffset,
		rec.Status,
		rec.SentAt,
		rec.Action,
		rec.Response,
		rec.Manual,
	).Scan(&rec.ID)
}

func (r *sequenceRepository) GetByID(ctx context.Context, id string) (*domain.Sequence, error) {
	const query = `
        SELECT id, account_id, total_balance::text, started_at, current_step_offset, status,
               paused_at, created_at, updated_at
        FROM sequences WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *sequenceRepository) GetOpenByAccount(ctx context.Context, accountID string) (*domain.Sequence, error) {
	const query = `
        SELECT id, account_id, total_balance::text, started_at, current_step_offset, status,
               paused_at, created_at, updated_at
        FROM sequences WHERE account_id=$1 AND status IN ('active','paused')`
	return r.fetchSingle(ctx, query, accountID)
}

func (r *sequenceRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Sequence, error) {
	seq, err := scanSequence(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	steps, err := r.loadSteps(ctx, seq.ID)
	if err != nil {
		return nil, err
	}
	seq.Steps = steps
	return seq, nil
}

func (r *sequenceRepository) ListWithFilter(ctx context.Context, filter SequenceFilter) ([]domain.Sequence, error) {
	base := `SELECT id, account_id, total_balance::text, started_at, current_step_offset, status,
                    paused_at, created_at, updated_at
             FROM sequences`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.AccountID != nil {
		args = append(args, *filter.AccountID)
		clauses = append(clauses, fmt.Sprintf("account_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Sequence
	for rows.Next() {
		seq, err := scanSequence(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *seq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range result {
		steps, err := r.loadSteps(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Steps = steps
	}
	return result, nil
}

func (r *sequenceRepository) ListActiveIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT id FROM sequences WHERE status='active' ORDER BY started_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *sequenceRepository) loadSteps(ctx context.Context, sequenceID string) ([]domain.StepRecord, error) {
	const query = `
        SELECT id, sequence_id, day_offset, status, sent_at, action, response, manual
        FROM sequence_steps WHERE sequence_id=$1 ORDER BY day_offset ASC`
	rows, err := r.pool.Query(ctx, query, sequenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []domain.StepRecord
	for rows.Next() {
		var rec domain.StepRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.SequenceID,
			&rec.DayOffset,
			&rec.Status,
			&rec.SentAt,
			&rec.Action,
			&rec.Response,
			&rec.Manual,
		); err != nil {
			return nil, err
		}
		steps = append(steps, rec)
	}
	return steps, rows.Err()
}

func scanSequence(row pgx.Row) (*domain.Sequence, error) {
	var seq domain.Sequence
	var balance string
	if err := row.Scan(
		&seq.ID,
		&seq.AccountID,
		&balance,
		&seq.StartedAt,
		&seq.CurrentStepOffset,
		&seq.Status,
		&seq.PausedAt,
		&seq.CreatedAt,
		&seq.UpdatedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("parse balance: %w", err)
	}
	seq.TotalBalance = parsed
	return &seq, nil
}
