package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mcruz/wayfare/eventlogger"
	"github.com/mcruz/wayfare/ledger"
	"github.com/mcruz/wayfare/payments"
)

type createDepositRequest struct {
	ParticipantID uuid.UUID    `json:"participant_id"`
	Amount        ledger.Cents `json:"amount"`
	Currency      string       `json:"currency"`
}

type createDepositResponse struct {
	payments.Deposit
	ClientSecret string `json:"client_secret"`
}

// createDeposit opens a commitment deposit for a participant: the intent
// is created with the processor first, then the deposit row is stored as
// pending until the webhook resolves it.
func (s *Server) createDeposit(w http.ResponseWriter, r *http.Request) {
	tripID, ok := urlUUID(w, r, "tripID")
	if !ok {
		return
	}

	var req createDepositRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := s.trips.GetByID(r.Context(), tripID)
	if err != nil {
		fail(w, err)
		return
	}
	if t == nil {
		respondError(w, http.StatusNotFound, "trip not found")
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = t.Currency
	}

	deposit, err := payments.NewDeposit(tripID, req.ParticipantID, req.Amount, currency)
	if err != nil {
		fail(w, err)
		return
	}

	intent, err := s.intents.CreateIntent(r.Context(), deposit.Amount, deposit.Currency, map[string]string{
		"trip_id":        tripID.String(),
		"participant_id": req.ParticipantID.String(),
	})
	if err != nil {
		fail(w, err)
		return
	}
	deposit.PaymentIntentID = intent.ID

	if err := s.deposits.Save(r.Context(), deposit); err != nil {
		fail(w, err)
		return
	}

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventlogger.TypeDepositInitiated),
		eventlogger.WithTrip(tripID),
		eventlogger.WithData(map[string]any{
			"deposit_id": deposit.ID.String(),
			"amount":     deposit.Amount.String(),
		}),
	))

	respondJSON(w, http.StatusCreated, createDepositResponse{
		Deposit:      deposit,
		ClientSecret: intent.ClientSecret,
	})
}

func (s *Server) listDeposits(w http.ResponseWriter, r *http.Request) {
	tripID, ok := urlUUID(w, r, "tripID")
	if !ok {
		return
	}

	deposits, err := s.deposits.GetByTrip(r.Context(), tripID)
	if err != nil {
		fail(w, err)
		return
	}

	respondJSON(w, http.StatusOK, deposits)
}

type webhookRequest struct {
	PaymentIntentID string `json:"payment_intent_id"`
	Status          string `json:"status"`
}

// PaymentWebhook receives intent outcomes from the processor and moves
// the matching deposit to its final status. It is mounted outside the
// session middleware because processors don't carry cookies.
func (s *Server) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PaymentIntentID == "" {
		respondError(w, http.StatusBadRequest, "payment_intent_id is required")
		return
	}

	status := payments.DepositStatus(req.Status)
	switch status {
	case payments.StatusPaid, payments.StatusRefunded, payments.StatusFailed:
	default:
		respondError(w, http.StatusBadRequest, "unknown status")
		return
	}

	if err := s.deposits.UpdateStatusByIntent(r.Context(), req.PaymentIntentID, status); err != nil {
		fail(w, err)
		return
	}

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventlogger.TypeDepositResolved),
		eventlogger.WithData(map[string]any{
			"payment_intent_id": req.PaymentIntentID,
			"status":            string(status),
		}),
	))

	w.WriteHeader(http.StatusNoContent)
}
