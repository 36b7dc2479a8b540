package poll

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

// CreatePoll persists a poll and its options atomically.
func (r *repository) CreatePoll(ctx context.Context, p Poll) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO polls (id, trip_id, question, is_active, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err = tx.ExecContext(ctx, query, p.ID, p.TripID, p.Question, p.IsActive, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting poll: %w", err)
	}

	for _, option := range p.Options {
		query = `INSERT INTO poll_options (id, poll_id, content) VALUES ($1, $2, $3)`
		_, err = tx.ExecContext(ctx, query, option.ID, option.PollID, option.Content)
		if err != nil {
			return fmt.Errorf("inserting poll option: %w", err)
		}
	}

	return tx.Commit()
}

// GetByTrip returns a trip's polls with options and votes attached.
func (r *repository) GetByTrip(ctx context.Context, tripID uuid.UUID) ([]Poll, error) {
	query := `SELECT id, trip_id, question, is_active, created_at
              FROM polls
              WHERE trip_id = $1
              ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var polls []Poll
	for rows.Next() {
		var p Poll
		if err := rows.Scan(&p.ID, &p.TripID, &p.Question, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, err
		}
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range polls {
		options, err := r.getOptions(ctx, polls[i].ID)
		if err != nil {
			return nil, err
		}
		polls[i].Options = options
	}

	return polls, nil
}

func (r *repository) getOptions(ctx context.Context, pollID uuid.UUID) ([]Option, error) {
	query := `SELECT id, poll_id, content FROM poll_options WHERE poll_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var options []Option
	for rows.Next() {
		var o Option
		if err := rows.Scan(&o.ID, &o.PollID, &o.Content); err != nil {
			return nil, err
		}
		options = append(options, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range options {
		votes, err := r.getVotes(ctx, options[i].ID)
		if err != nil {
			return nil, err
		}
		options[i].Votes = votes
	}

	return options, nil
}

func (r *repository) getVotes(ctx context.Context, optionID uuid.UUID) ([]Vote, error) {
	query := `SELECT id, option_id, participant_id, created_at FROM votes WHERE option_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, optionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []Vote
	for rows.Next() {
		var v Vote
		if err := rows.Scan(&v.ID, &v.OptionID, &v.ParticipantID, &v.CreatedAt); err != nil {
			return nil, err
		}
		votes = append(votes, v)
	}

	return votes, rows.Err()
}

// CastVote records a vote, leaning on the unique (option_id,
// participant_id) constraint to reject double votes.
func (r *repository) CastVote(ctx context.Context, vote Vote) error {
	var isActive bool
	query := `SELECT p.is_active FROM polls p INNER JOIN poll_options o ON o.poll_id = p.id WHERE o.id = $1`
	err := r.db.QueryRowContext(ctx, query, vote.OptionID).Scan(&isActive)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrUnknownOption
		}
		return err
	}
	if !isActive {
		return ErrPollClosed
	}

	query = `INSERT INTO votes (id, option_id, participant_id, created_at) VALUES ($1, $2, $3, $4)`
	_, err = r.db.ExecContext(ctx, query, vote.ID, vote.OptionID, vote.ParticipantID, vote.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return ErrAlreadyVoted
		}
		return fmt.Errorf("inserting vote: %w", err)
	}

	return nil
}

// ClosePoll deactivates a poll so no further votes are accepted.
func (r *repository) ClosePoll(ctx context.Context, pollID uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE polls SET is_active = false WHERE id = $1`, pollID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}
