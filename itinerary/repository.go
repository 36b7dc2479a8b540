package itinerary

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/google/uuid"
)

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

func (r *repository) CreateDay(ctx context.Context, day Day) error {
	query := `INSERT INTO itinerary_days (id, trip_id, date, title, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, day.ID, day.TripID, day.Date, day.Title, day.CreatedAt)
	if err != nil {
		// unique (trip_id, date)
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateDay
		}
		return fmt.Errorf("inserting itinerary day: %w", err)
	}
	return nil
}

func (r *repository) GetDay(ctx context.Context, dayID uuid.UUID) (*Day, error) {
	query := `SELECT id, trip_id, date, COALESCE(title, ''), created_at FROM itinerary_days WHERE id = $1`

	var day Day
	err := r.db.QueryRowContext(ctx, query, dayID).Scan(&day.ID, &day.TripID, &day.Date, &day.Title, &day.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &day, nil
}

// GetDays returns a trip's itinerary days in date order.
func (r *repository) GetDays(ctx context.Context, tripID uuid.UUID) ([]Day, error) {
	query := `SELECT id, trip_id, date, COALESCE(title, ''), created_at
              FROM itinerary_days
              WHERE trip_id = $1
              ORDER BY date`

	rows, err := r.db.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []Day
	for rows.Next() {
		var day Day
		if err := rows.Scan(&day.ID, &day.TripID, &day.Date, &day.Title, &day.CreatedAt); err != nil {
			return nil, err
		}
		days = append(days, day)
	}

	return days, rows.Err()
}

func (r *repository) CreateActivity(ctx context.Context, activity Activity) error {
	query := `INSERT INTO activities (id, day_id, title, notes, start_time, end_time, location, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		activity.ID,
		activity.DayID,
		activity.Title,
		activity.Notes,
		activity.StartTime,
		activity.EndTime,
		activity.Location,
		activity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting activity: %w", err)
	}
	return nil
}

// GetActivities returns a day's activities ordered by start time.
func (r *repository) GetActivities(ctx context.Context, dayID uuid.UUID) ([]Activity, error) {
	query := `SELECT id, day_id, title, COALESCE(notes, ''), COALESCE(start_time, ''), COALESCE(end_time, ''), COALESCE(location, ''), created_at
              FROM activities
              WHERE day_id = $1
              ORDER BY start_time, created_at`

	rows, err := r.db.QueryContext(ctx, query, dayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		var a Activity
		err := rows.Scan(&a.ID, &a.DayID, &a.Title, &a.Notes, &a.StartTime, &a.EndTime, &a.Location, &a.CreatedAt)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}

	return activities, rows.Err()
}

// ActivityTripID resolves which trip an activity belongs to, for
// validating expense-to-activity links. Returns uuid.Nil when the
// activity doesn't exist.
func (r *repository) ActivityTripID(ctx context.Context, activityID uuid.UUID) (uuid.UUID, error) {
	query := `SELECT d.trip_id
              FROM activities a
              INNER JOIN itinerary_days d ON a.day_id = d.id
              WHERE a.id = $1`

	var tripID uuid.UUID
	err := r.db.QueryRowContext(ctx, query, activityID).Scan(&tripID)
	if err != nil {
		if err == sql.ErrNoRows {
			return uuid.Nil, nil
		}
		return uuid.Nil, err
	}

	return tripID, nil
}
