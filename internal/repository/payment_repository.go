package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/collections-sequencer/internal/domain"
)

// PaymentRepository stores the payment audit log.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	ListBySequence(ctx context.Context, sequenceID string) ([]domain.Payment, error)
}

type paymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository builds repository.
func NewPaymentRepository(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepository{pool: pool}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	const query = `
        INSERT INTO payments (sequence_id, account_id, amount, overpaid_by, balance_after, received_at)
        VALUES ($1,$2,$3::numeric,$4::numeric,$5::numeric,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		payment.SequenceID,
		payment.AccountID,
		payment.Amount.String(),
		payment.OverpaidBy.String(),
		payment.BalanceAfter.String(),
		payment.ReceivedAt,
	).Scan(&payment.ID, &payment.CreatedAt)
}

func (r *paymentRepository) ListBySequence(ctx context.Context, sequenceID string) ([]domain.Payment, error) {
	const query = `
        SELECT id, sequence_id, account_id, amount::text, overpaid_by::text, balance_after::text,
               received_at, created_at
        FROM payments WHERE sequence_id=$1 ORDER BY received_at ASC`
	rows, err := r.pool.Query(ctx, query, sequenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

func scanPayments(rows pgx.Rows) ([]domain.Payment, error) {
	var result []domain.Payment
	for rows.Next() {
		var payment domain.Payment
		var amount, overpaid, after string
		if err := rows.Scan(
			&payment.ID,
			&payment.SequenceID,
			&payment.AccountID,
			&amount,
			&overpaid,
			&after,
			&payment.ReceivedAt,
			&payment.CreatedAt,
		); err != nil {
			return nil, err
		}
		var err error
		if payment.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount: %w", err)
		}
		if payment.OverpaidBy, err = decimal.NewFromString(overpaid); err != nil {
			return nil, fmt.Errorf("parse overpaid_by: %w", err)
		}
		if payment.BalanceAfter, err = decimal.NewFromString(after); err != nil {
			return nil, fmt.Errorf("parse balance_after: %w", err)
		}
		result = append(result, payment)
	}
	return result, rows.Err()
}
