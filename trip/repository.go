package trip

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

// CreateTrip persists a trip and its initial participants in one
// transaction.
func (r *repository) CreateTrip(ctx context.Context, trip Trip, participants []Participant) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO trips (id, name, creator_id, status, currency, start_date, end_date, final_destination, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = tx.ExecContext(
		ctx,
		query,
		trip.ID,
		trip.Name,
		trip.CreatorID,
		trip.Status,
		trip.Currency,
		trip.StartDate,
		trip.EndDate,
		trip.FinalDestination,
		trip.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting trip: %w", err)
	}

	for _, p := range participants {
		query = `INSERT INTO participants (id, trip_id, name, email, created_at) VALUES ($1, $2, $3, $4, $5)`
		_, err = tx.ExecContext(ctx, query, p.ID, p.TripID, p.Name, p.Email, p.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting participant: %w", err)
		}
	}

	return tx.Commit()
}

func (r *repository) GetByID(ctx context.Context, tripID uuid.UUID) (*Trip, error) {
	query := `SELECT id, name, creator_id, status, currency, start_date, end_date, COALESCE(final_destination, ''), created_at
              FROM trips WHERE id = $1`

	var trip Trip
	err := r.db.QueryRowContext(ctx, query, tripID).Scan(
		&trip.ID,
		&trip.Name,
		&trip.CreatorID,
		&trip.Status,
		&trip.Currency,
		&trip.StartDate,
		&trip.EndDate,
		&trip.FinalDestination,
		&trip.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &trip, nil
}

// Update writes the mutable trip fields: status, dates and destination.
func (r *repository) Update(ctx context.Context, trip Trip) error {
	query := `UPDATE trips SET status = $1, start_date = $2, end_date = $3, final_destination = $4 WHERE id = $5`
	_, err := r.db.ExecContext(ctx, query, trip.Status, trip.StartDate, trip.EndDate, trip.FinalDestination, trip.ID)
	return err
}

// Delete removes a trip and everything it owns. Cascades are explicit so
// the ownership chain is visible here rather than buried in the schema.
func (r *repository) Delete(ctx context.Context, tripID uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	statements := []string{
		`DELETE FROM expense_splits WHERE expense_id IN (SELECT id FROM expenses WHERE trip_id = $1)`,
		`DELETE FROM expenses WHERE trip_id = $1`,
		`DELETE FROM votes WHERE option_id IN (SELECT o.id FROM poll_options o INNER JOIN polls p ON o.poll_id = p.id WHERE p.trip_id = $1)`,
		`DELETE FROM poll_options WHERE poll_id IN (SELECT id FROM polls WHERE trip_id = $1)`,
		`DELETE FROM polls WHERE trip_id = $1`,
		`DELETE FROM activities WHERE day_id IN (SELECT id FROM itinerary_days WHERE trip_id = $1)`,
		`DELETE FROM itinerary_days WHERE trip_id = $1`,
		`DELETE FROM commitment_deposits WHERE trip_id = $1`,
		`DELETE FROM participants WHERE trip_id = $1`,
		`DELETE FROM trips WHERE id = $1`,
	}
	for _, statement := range statements {
		if _, err := tx.ExecContext(ctx, statement, tripID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetParticipants returns a trip's participants in creation order.
func (r *repository) GetParticipants(ctx context.Context, tripID uuid.UUID) ([]Participant, error) {
	query := `SELECT id, trip_id, name, email, created_at
              FROM participants
              WHERE trip_id = $1
              ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []Participant
	for rows.Next() {
		var p Participant
		err := rows.Scan(&p.ID, &p.TripID, &p.Name, &p.Email, &p.CreatedAt)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

// AddParticipant inserts a participant. When the email is already on the
// trip the existing record comes back instead, so re-inviting someone is
// harmless.
func (r *repository) AddParticipant(ctx context.Context, p Participant) (*Participant, error) {
	var existing Participant
	query := `SELECT id, trip_id, name, email, created_at FROM participants WHERE trip_id = $1 AND email = $2`
	err := r.db.QueryRowContext(ctx, query, p.TripID, p.Email).Scan(
		&existing.ID,
		&existing.TripID,
		&existing.Name,
		&existing.Email,
		&existing.CreatedAt,
	)
	if err == nil {
		return &existing, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	query = `INSERT INTO participants (id, trip_id, name, email, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, p.ID, p.TripID, p.Name, p.Email, p.CreatedAt); err != nil {
		return nil, fmt.Errorf("inserting participant: %w", err)
	}

	return &p, nil
}
