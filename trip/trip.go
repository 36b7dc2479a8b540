package trip

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPlanning   Status = "planning"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusArchived   Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPlanning, StatusConfirmed, StatusInProgress, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

type Trip struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	CreatorID        uuid.UUID  `json:"creator_id"`
	Status           Status     `json:"status"`
	Currency         string     `json:"currency"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	FinalDestination string     `json:"final_destination,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type Participant struct {
	ID        uuid.UUID `json:"id"`
	TripID    uuid.UUID `json:"trip_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrEmptyName     = errors.New("name can't be empty")
	ErrEmptyEmail    = errors.New("email can't be empty")
	ErrEmptyCurrency = errors.New("currency can't be empty")
	ErrInvalidStatus = errors.New("invalid trip status")
	ErrBadDateRange  = errors.New("end date can't be before start date")
)

func NewTrip(name, currency string, createdBy uuid.UUID, startDate, endDate *time.Time) (Trip, error) {
	if name == "" {
		return Trip{}, ErrEmptyName
	}
	if currency == "" {
		return Trip{}, ErrEmptyCurrency
	}
	if startDate != nil && endDate != nil && endDate.Before(*startDate) {
		return Trip{}, ErrBadDateRange
	}

	return Trip{
		ID:        uuid.New(),
		Name:      name,
		CreatorID: createdBy,
		Status:    StatusPlanning,
		Currency:  currency,
		StartDate: startDate,
		EndDate:   endDate,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func NewParticipant(tripID uuid.UUID, name, email string) (Participant, error) {
	if name == "" {
		return Participant{}, ErrEmptyName
	}
	if email == "" {
		return Participant{}, ErrEmptyEmail
	}

	return Participant{
		ID:        uuid.New(),
		TripID:    tripID,
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// MemberIDs returns the participant IDs in creation order. This is the
// stable order used for equal-split remainder assignment, so it must not
// change between calls for the same trip.
func MemberIDs(participants []Participant) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(participants))
	for _, p := range participants {
		out = append(out, p.ID)
	}
	return out
}
