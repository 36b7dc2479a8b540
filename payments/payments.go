// Package payments tracks commitment deposits for trip participants.
// The actual payment processor stays behind the IntentClient interface;
// this package only records intents and reacts to their outcomes.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mcruz/wayfare/ledger"
)

type DepositStatus string

const (
	StatusPending  DepositStatus = "pending"
	StatusPaid     DepositStatus = "paid"
	StatusRefunded DepositStatus = "refunded"
	StatusFailed   DepositStatus = "failed"
)

type Deposit struct {
	ID              uuid.UUID     `json:"id"`
	TripID          uuid.UUID     `json:"trip_id"`
	ParticipantID   uuid.UUID     `json:"participant_id"`
	Amount          ledger.Cents  `json:"amount"`
	Currency        string        `json:"currency"`
	PaymentIntentID string        `json:"payment_intent_id,omitempty"`
	Status          DepositStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
}

var (
	ErrInvalidAmount = errors.New("deposit amount must be positive")
	ErrUnknownIntent = errors.New("no deposit for that payment intent")
)

func NewDeposit(tripID, participantID uuid.UUID, amount ledger.Cents, currency string) (Deposit, error) {
	if amount <= 0 {
		return Deposit{}, ErrInvalidAmount
	}

	return Deposit{
		ID:            uuid.New(),
		TripID:        tripID,
		ParticipantID: participantID,
		Amount:        amount,
		Currency:      currency,
		Status:        StatusPending,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// Intent is what the processor hands back when a payment is initiated.
// ClientSecret goes to the frontend to complete the payment.
type Intent struct {
	ID           string
	ClientSecret string
}

// IntentClient creates payment intents with an external processor.
// Implementations must not mutate local state; deposit rows are the
// source of truth and are updated separately from intent outcomes.
type IntentClient interface {
	CreateIntent(ctx context.Context, amount ledger.Cents, currency string, metadata map[string]string) (*Intent, error)
}

// LogIntentClient is the development stand-in for a real processor: it
// fabricates intent IDs and logs what would have been charged.
type LogIntentClient struct{}

func (LogIntentClient) CreateIntent(ctx context.Context, amount ledger.Cents, currency string, metadata map[string]string) (*Intent, error) {
	id := fmt.Sprintf("pi_dev_%s", uuid.New())
	slog.Info("payment intent created (dev client)",
		"intent_id", id,
		"amount", amount.String(),
		"currency", currency,
	)
	return &Intent{ID: id, ClientSecret: id + "_secret"}, nil
}
