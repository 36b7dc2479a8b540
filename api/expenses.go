package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mcruz/wayfare/eventlogger"
	"github.com/mcruz/wayfare/ledger"
	"github.com/mcruz/wayfare/trip"
)

type splitShareRequest struct {
	ParticipantID uuid.UUID    `json:"participant_id"`
	OwedAmount    ledger.Cents `json:"owed_amount"`
}

type createExpenseRequest struct {
	Description string              `json:"description"`
	Amount      ledger.Cents        `json:"amount"`
	Currency    string              `json:"currency"`
	Date        string              `json:"date"`
	PaidByID    uuid.UUID           `json:"paid_by_id"`
	ActivityID  uuid.UUID           `json:"activity_id"`
	Splits      []splitShareRequest `json:"splits"`
}

// createExpense records an expense against a trip. When the request
// carries no splits the amount is divided equally across all current
// participants, remainder cents going to the earliest joined members.
func (s *Server) createExpense(w http.ResponseWriter, r *http.Request) {
	tripID, ok := urlUUID(w, r, "tripID")
	if !ok {
		return
	}

	var req createExpenseRequest
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

	participants, err := s.trips.GetParticipants(r.Context(), tripID)
	if err != nil {
		fail(w, err)
		return
	}
	members := trip.MemberIDs(participants)

	date := time.Now().UTC()
	if req.Date != "" {
		date, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
	}

	currency := req.Currency
	if currency == "" {
		currency = t.Currency
	}

	var shares []ledger.SplitShare
	if len(req.Splits) == 0 {
		shares = ledger.EqualSplits(req.Amount, members)
	} else {
		shares = make([]ledger.SplitShare, 0, len(req.Splits))
		for _, sr := range req.Splits {
			shares = append(shares, ledger.SplitShare{
				ParticipantID: sr.ParticipantID,
				OwedAmount:    sr.OwedAmount,
			})
		}
	}

	expense, splits, err := ledger.NewExpense(tripID, req.Description, req.Amount, currency, date, req.PaidByID, shares, members)
	if err != nil {
		fail(w, err)
		return
	}

	if req.ActivityID != uuid.Nil {
		owner, err := s.days.ActivityTripID(r.Context(), req.ActivityID)
		if err != nil {
			fail(w, err)
			return
		}
		if owner != tripID {
			respondError(w, http.StatusBadRequest, "activity does not belong to this trip")
			return
		}
		expense.ActivityID = req.ActivityID
	}

	if err := s.expenses.SaveExpense(r.Context(), expense, splits); err != nil {
		fail(w, err)
		return
	}

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventlogger.TypeExpenseRecorded),
		eventlogger.WithTrip(tripID),
		eventlogger.WithData(map[string]any{
			"expense_id": expense.ID.String(),
			"amount":     expense.Amount.String(),
			"paid_by":    expense.PaidBy.String(),
		}),
	))

	respondJSON(w, http.StatusCreated, expenseResponse{Expense: *expense, Splits: splits})
}

type expenseResponse struct {
	ledger.Expense
	Splits []ledger.ExpenseSplit `json:"splits"`
}

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	tripID, ok := urlUUID(w, r, "tripID")
	if !ok {
		return
	}

	expenses, splits, err := s.expenses.GetSnapshot(r.Context(), tripID)
	if err != nil {
		fail(w, err)
		return
	}

	byExpense := make(map[uuid.UUID][]ledger.ExpenseSplit, len(expenses))
	for _, split := range splits {
		byExpense[split.ExpenseID] = append(byExpense[split.ExpenseID], split)
	}

	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, expenseResponse{Expense: e, Splits: byExpense[e.ID]})
	}

	respondJSON(w, http.StatusOK, out)
}

func (s *Server) deleteExpense(w http.ResponseWriter, r *http.Request) {
	expenseID, ok := urlUUID(w, r, "expenseID")
	if !ok {
		return
	}

	expense, _, err := s.expenses.GetExpense(r.Context(), expenseID)
	if err != nil {
		fail(w, err)
		return
	}
	if expense == nil {
		respondError(w, http.StatusNotFound, "expense not found")
		return
	}

	if err := s.expenses.DeleteExpense(r.Context(), expenseID); err != nil {
		fail(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type balanceResponse struct {
	ParticipantID uuid.UUID    `json:"participant_id"`
	Name          string       `json:"name"`
	NetBalance    ledger.Cents `json:"net_balance"`
}

func (s *Server) getBalances(w http.ResponseWriter, r *http.Request) {
	tripID, ok := urlUUID(w, r, "tripID")
	if !ok {
		return
	}

	balances, participants, err := s.computeBalances(r, tripID)
	if err != nil {
		fail(w, err)
		return
	}
	if balances == nil {
		respondError(w, http.StatusNotFound, "trip not found")
		return
	}

	names := make(map[uuid.UUID]string, len(participants))
	for _, p := range participants {
		names[p.ID] = p.Name
	}

	out := make([]balanceResponse, 0, len(balances))
	for _, b := range balances {
		out = append(out, balanceResponse{
			ParticipantID: b.ParticipantID,
			Name:          names[b.ParticipantID],
			NetBalance:    b.Net,
		})
	}

	respondJSON(w, http.StatusOK, out)
}

type transferResponse struct {
	FromParticipantID uuid.UUID    `json:"from_participant_id"`
	FromName          string       `json:"from_name"`
	ToParticipantID   uuid.UUID    `json:"to_participant_id"`
	ToName            string       `json:"to_name"`
	Amount            ledger.Cents `json:"amount"`
}

type settlementResponse struct {
	Transfers []transferResponse `json:"transfers"`
	Count     int                `json:"count"`
}

// getSettlement computes the minimal transfer plan for the trip. The plan
// is recomputed from the full ledger on every call and never stored.
func (s *Server) getSettlement(w http.ResponseWriter, r *http.Request) {
	tripID, ok := urlUUID(w, r, "tripID")
	if !ok {
		return
	}

	balances, participants, err := s.computeBalances(r, tripID)
	if err != nil {
		fail(w, err)
		return
	}
	if balances == nil {
		respondError(w, http.StatusNotFound, "trip not found")
		return
	}

	transfers, err := ledger.Settle(balances)
	if err != nil {
		fail(w, err)
		return
	}

	names := make(map[uuid.UUID]string, len(participants))
	for _, p := range participants {
		names[p.ID] = p.Name
	}

	out := make([]transferResponse, 0, len(transfers))
	for _, tr := range transfers {
		out = append(out, transferResponse{
			FromParticipantID: tr.From,
			FromName:          names[tr.From],
			ToParticipantID:   tr.To,
			ToName:            names[tr.To],
			Amount:            tr.Amount,
		})
	}

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventlogger.TypeSettlementComputed),
		eventlogger.WithTrip(tripID),
		eventlogger.WithData(map[string]any{"transfers": len(out)}),
	))

	respondJSON(w, http.StatusOK, settlementResponse{Transfers: out, Count: len(out)})
}

// computeBalances loads the trip's members and a consistent ledger
// snapshot and nets them. A nil balance slice with nil error means the
// trip does not exist.
func (s *Server) computeBalances(r *http.Request, tripID uuid.UUID) ([]ledger.Balance, []trip.Participant, error) {
	t, err := s.trips.GetByID(r.Context(), tripID)
	if err != nil {
		return nil, nil, err
	}
	if t == nil {
		return nil, nil, nil
	}

	participants, err := s.trips.GetParticipants(r.Context(), tripID)
	if err != nil {
		return nil, nil, err
	}

	expenses, splits, err := s.expenses.GetSnapshot(r.Context(), tripID)
	if err != nil {
		return nil, nil, err
	}

	balances := ledger.CalculateBalances(expenses, splits, trip.MemberIDs(participants))
	return balances, participants, nil
}

func (s *Server) settleSplit(w http.ResponseWriter, r *http.Request) {
	splitID, ok := urlUUID(w, r, "splitID")
	if !ok {
		return
	}

	found, err := s.expenses.MarkSplitSettled(r.Context(), splitID)
	if err != nil {
		fail(w, err)
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "split not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
