package eventlogger

// Event types emitted across the app. Kept in one place so the audit
// trail stays greppable.
const (
	TypeUserRegistered     = "user.registered"
	TypeUserLoggedIn       = "user.logged_in"
	TypeTripCreated        = "trip.created"
	TypeTripUpdated        = "trip.updated"
	TypeParticipantAdded   = "trip.participant_added"
	TypeDayAdded           = "itinerary.day_added"
	TypeActivityAdded      = "itinerary.activity_added"
	TypeExpenseRecorded    = "expense.recorded"
	TypeExpenseDeleted     = "expense.deleted"
	TypeSplitSettled       = "expense.split_settled"
	TypeSettlementComputed = "expense.settlement_computed"
	TypePollCreated        = "poll.created"
	TypePollClosed         = "poll.closed"
	TypeVoteCast           = "poll.vote_cast"
	TypeDepositInitiated   = "payment.deposit_initiated"
	TypeDepositResolved    = "payment.deposit_resolved"
)
