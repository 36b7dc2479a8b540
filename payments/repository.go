package payments

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

func (r *repository) Save(ctx context.Context, deposit Deposit) error {
	query := `INSERT INTO commitment_deposits (id, trip_id, participant_id, amount, currency, payment_intent_id, status, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		deposit.ID,
		deposit.TripID,
		deposit.ParticipantID,
		deposit.Amount,
		deposit.Currency,
		deposit.PaymentIntentID,
		deposit.Status,
		deposit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting deposit: %w", err)
	}
	return nil
}

// GetByTrip returns all deposits for a trip, newest first.
func (r *repository) GetByTrip(ctx context.Context, tripID uuid.UUID) ([]Deposit, error) {
	query := `SELECT id, trip_id, participant_id, amount, currency, COALESCE(payment_intent_id, ''), status, created_at
              FROM commitment_deposits
              WHERE trip_id = $1
              ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deposits []Deposit
	for rows.Next() {
		var d Deposit
		err := rows.Scan(&d.ID, &d.TripID, &d.ParticipantID, &d.Amount, &d.Currency, &d.PaymentIntentID, &d.Status, &d.CreatedAt)
		if err != nil {
			return nil, err
		}
		deposits = append(deposits, d)
	}

	return deposits, rows.Err()
}

// UpdateStatusByIntent flips the status of the deposit tied to a payment
// intent, used when the processor reports an outcome.
func (r *repository) UpdateStatusByIntent(ctx context.Context, paymentIntentID string, status DepositStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE commitment_deposits SET status = $1 WHERE payment_intent_id = $2`,
		status, paymentIntentID,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUnknownIntent
	}
	return nil
}
