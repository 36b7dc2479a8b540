package ledger

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Tolerance is the rounding slack, in minor units, allowed when checking
// that split amounts add up to an expense and that trip balances add up
// to zero. One cent absorbs division remainders from upstream clients.
const Tolerance Cents = 1

type Expense struct {
	ID          uuid.UUID `json:"id"`
	TripID      uuid.UUID `json:"trip_id"`
	Description string    `json:"description"`
	Amount      Cents     `json:"amount"`
	Currency    string    `json:"currency"`
	Date        time.Time `json:"date"`
	PaidBy      uuid.UUID `json:"paid_by_id"`
	ActivityID  uuid.UUID `json:"activity_id,omitzero"`
	CreatedAt   time.Time `json:"created_at"`
}

type ExpenseSplit struct {
	ID            uuid.UUID `json:"id"`
	ExpenseID     uuid.UUID `json:"expense_id"`
	ParticipantID uuid.UUID `json:"participant_id"`
	OwedAmount    Cents     `json:"owed_amount"`
	IsSettled     bool      `json:"is_settled"`
}

// SplitShare is one participant's portion of an expense being recorded.
type SplitShare struct {
	ParticipantID uuid.UUID
	OwedAmount    Cents
}

// Balance is a participant's net position across all trip expenses.
// Positive means the group owes them, negative means they owe the group.
// Always derived on demand, never persisted.
type Balance struct {
	ParticipantID uuid.UUID
	Net           Cents
}

// Transfer is a recommended settlement payment between two participants.
type Transfer struct {
	From   uuid.UUID
	To     uuid.UUID
	Amount Cents
}

var (
	ErrEmptyDescription     = errors.New("description can't be empty")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrNoSplits             = errors.New("expense needs at least one split")
	ErrNegativeSplit        = errors.New("split amount can't be negative")
	ErrDuplicateParticipant = errors.New("participant appears more than once in splits")
	ErrUnknownParticipant   = errors.New("participant does not belong to this trip")
	ErrSplitMismatch        = errors.New("splits don't sum to the expense amount")
	ErrUnbalanced           = errors.New("trip balances don't sum to zero")
)

// EqualSplits divides amount evenly across members, handing the remainder
// out one cent at a time starting from the first member. memberIDs must be
// in a stable order (participant creation order) so the same expense always
// produces the same splits. The shares always sum to exactly amount.
func EqualSplits(amount Cents, memberIDs []uuid.UUID) []SplitShare {
	n := Cents(len(memberIDs))
	if n == 0 {
		return nil
	}

	base := amount / n
	remainder := amount % n

	shares := make([]SplitShare, 0, n)
	for i, id := range memberIDs {
		owed := base
		if Cents(i) < remainder {
			owed++
		}
		shares = append(shares, SplitShare{ParticipantID: id, OwedAmount: owed})
	}
	return shares
}

// NewExpense validates and builds an expense with its splits. members is
// the authoritative participant list of the trip; paidBy and every share
// must reference one of them. The shares must sum to amount within
// Tolerance. Nothing is persisted here.
func NewExpense(tripID uuid.UUID, description string, amount Cents, currency string, date time.Time, paidBy uuid.UUID, shares []SplitShare, members []uuid.UUID) (*Expense, []ExpenseSplit, error) {
	if description == "" {
		return nil, nil, ErrEmptyDescription
	}
	if amount <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	if len(shares) == 0 {
		return nil, nil, ErrNoSplits
	}

	memberSet := make(map[uuid.UUID]bool, len(members))
	for _, id := range members {
		memberSet[id] = true
	}
	if !memberSet[paidBy] {
		return nil, nil, fmt.Errorf("%w: payer %s", ErrUnknownParticipant, paidBy)
	}

	var total Cents
	seen := make(map[uuid.UUID]bool, len(shares))
	for _, share := range shares {
		if share.OwedAmount < 0 {
			return nil, nil, ErrNegativeSplit
		}
		if !memberSet[share.ParticipantID] {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnknownParticipant, share.ParticipantID)
		}
		if seen[share.ParticipantID] {
			return nil, nil, fmt.Errorf("%w: %s", ErrDuplicateParticipant, share.ParticipantID)
		}
		seen[share.ParticipantID] = true
		total += share.OwedAmount
	}

	if (total - amount).abs() > Tolerance {
		return nil, nil, fmt.Errorf("%w: splits sum to %s, expense is %s", ErrSplitMismatch, total, amount)
	}

	expense := &Expense{
		ID:          uuid.New(),
		TripID:      tripID,
		Description: description,
		Amount:      amount,
		Currency:    currency,
		Date:        date,
		PaidBy:      paidBy,
		CreatedAt:   time.Now().UTC(),
	}

	splits := make([]ExpenseSplit, 0, len(shares))
	for _, share := range shares {
		splits = append(splits, ExpenseSplit{
			ID:            uuid.New(),
			ExpenseID:     expense.ID,
			ParticipantID: share.ParticipantID,
			OwedAmount:    share.OwedAmount,
		})
	}

	return expense, splits, nil
}

// CalculateBalances computes every member's net balance from a snapshot of
// a trip's expenses and splits: credit the payer with the full amount,
// debit each split's participant with what they owe. The result is sorted
// by participant ID and always includes every member, settled or not.
func CalculateBalances(expenses []Expense, splits []ExpenseSplit, memberIDs []uuid.UUID) []Balance {
	net := make(map[uuid.UUID]Cents, len(memberIDs))
	for _, id := range memberIDs {
		net[id] = 0
	}

	for _, expense := range expenses {
		net[expense.PaidBy] += expense.Amount
	}
	for _, split := range splits {
		net[split.ParticipantID] -= split.OwedAmount
	}

	balances := make([]Balance, 0, len(net))
	for id, amount := range net {
		balances = append(balances, Balance{ParticipantID: id, Net: amount})
	}
	slices.SortFunc(balances, func(a, b Balance) int {
		return compareIDs(a.ParticipantID, b.ParticipantID)
	})
	return balances
}

// Settle produces a list of transfers that zeroes out the given balances,
// by repeatedly paying the largest debt to the largest credit. Ties go to
// the lower participant ID, so the output is deterministic. Each step
// fully settles at least one participant, so at most len(balances)-1
// transfers come out.
//
// The balances must come from CalculateBalances: if they don't sum to
// (approximately) zero something upstream is broken and ErrUnbalanced is
// returned rather than a plan that can't actually settle the trip.
func Settle(balances []Balance) ([]Transfer, error) {
	var sum Cents
	for _, b := range balances {
		sum += b.Net
	}
	if sum.abs() > Tolerance {
		return nil, fmt.Errorf("%w: net sum is %s", ErrUnbalanced, sum)
	}

	var creditors, debtors []Balance
	for _, b := range balances {
		switch {
		case b.Net > Tolerance:
			creditors = append(creditors, b)
		case b.Net < -Tolerance:
			debtors = append(debtors, b)
		}
	}

	var transfers []Transfer
	for len(creditors) > 0 && len(debtors) > 0 {
		ci := largest(creditors, func(b Balance) Cents { return b.Net })
		di := largest(debtors, func(b Balance) Cents { return -b.Net })

		amount := min(creditors[ci].Net, -debtors[di].Net)
		transfers = append(transfers, Transfer{
			From:   debtors[di].ParticipantID,
			To:     creditors[ci].ParticipantID,
			Amount: amount,
		})

		creditors[ci].Net -= amount
		debtors[di].Net += amount

		if creditors[ci].Net <= Tolerance {
			creditors = slices.Delete(creditors, ci, ci+1)
		}
		if debtors[di].Net >= -Tolerance {
			debtors = slices.Delete(debtors, di, di+1)
		}
	}

	return transfers, nil
}

// largest returns the index of the balance with the biggest key, breaking
// ties by ascending participant ID.
func largest(balances []Balance, key func(Balance) Cents) int {
	best := 0
	for i := 1; i < len(balances); i++ {
		k, bk := key(balances[i]), key(balances[best])
		if k > bk || (k == bk && compareIDs(balances[i].ParticipantID, balances[best].ParticipantID) < 0) {
			best = i
		}
	}
	return best
}

func compareIDs(a, b uuid.UUID) int {
	return slices.Compare(a[:], b[:])
}
