package poll

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Poll struct {
	ID        uuid.UUID `json:"id"`
	TripID    uuid.UUID `json:"trip_id"`
	Question  string    `json:"question"`
	IsActive  bool      `json:"is_active"`
	Options   []Option  `json:"options,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Option struct {
	ID      uuid.UUID `json:"id"`
	PollID  uuid.UUID `json:"poll_id"`
	Content string    `json:"content"`
	Votes   []Vote    `json:"votes,omitempty"`
}

type Vote struct {
	ID            uuid.UUID `json:"id"`
	OptionID      uuid.UUID `json:"option_id"`
	ParticipantID uuid.UUID `json:"participant_id"`
	CreatedAt     time.Time `json:"created_at"`
}

var (
	ErrEmptyQuestion = errors.New("question can't be empty")
	ErrTooFewOptions = errors.New("poll needs at least two options")
	ErrAlreadyVoted  = errors.New("participant already voted on this option")
	ErrPollClosed    = errors.New("poll is closed")
	ErrUnknownOption = errors.New("poll option does not exist")
)

// NewPoll builds a poll with its options. Polls always start active.
func NewPoll(tripID uuid.UUID, question string, options []string) (Poll, error) {
	if question == "" {
		return Poll{}, ErrEmptyQuestion
	}
	if len(options) < 2 {
		return Poll{}, ErrTooFewOptions
	}

	p := Poll{
		ID:        uuid.New(),
		TripID:    tripID,
		Question:  question,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	for _, content := range options {
		p.Options = append(p.Options, Option{
			ID:      uuid.New(),
			PollID:  p.ID,
			Content: content,
		})
	}
	return p, nil
}

func NewVote(optionID, participantID uuid.UUID) Vote {
	return Vote{
		ID:            uuid.New(),
		OptionID:      optionID,
		ParticipantID: participantID,
		CreatedAt:     time.Now().UTC(),
	}
}
