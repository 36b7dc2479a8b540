// Package api exposes the application over JSON REST. Handlers stay
// thin: validation and arithmetic live in the domain packages, the
// repositories own persistence.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mcruz/wayfare/eventlogger"
	"github.com/mcruz/wayfare/itinerary"
	"github.com/mcruz/wayfare/ledger"
	"github.com/mcruz/wayfare/payments"
	"github.com/mcruz/wayfare/poll"
	"github.com/mcruz/wayfare/session"
	"github.com/mcruz/wayfare/trip"
	"github.com/mcruz/wayfare/user"
)

type TripStore interface {
	CreateTrip(ctx context.Context, t trip.Trip, participants []trip.Participant) error
	GetByID(ctx context.Context, tripID uuid.UUID) (*trip.Trip, error)
	Update(ctx context.Context, t trip.Trip) error
	Delete(ctx context.Context, tripID uuid.UUID) error
	GetParticipants(ctx context.Context, tripID uuid.UUID) ([]trip.Participant, error)
	AddParticipant(ctx context.Context, p trip.Participant) (*trip.Participant, error)
}

type LedgerStore interface {
	SaveExpense(ctx context.Context, expense *ledger.Expense, splits []ledger.ExpenseSplit) error
	GetSnapshot(ctx context.Context, tripID uuid.UUID) ([]ledger.Expense, []ledger.ExpenseSplit, error)
	GetExpense(ctx context.Context, expenseID uuid.UUID) (*ledger.Expense, []ledger.ExpenseSplit, error)
	DeleteExpense(ctx context.Context, expenseID uuid.UUID) error
	MarkSplitSettled(ctx context.Context, splitID uuid.UUID) (bool, error)
}

type ItineraryStore interface {
	CreateDay(ctx context.Context, day itinerary.Day) error
	GetDay(ctx context.Context, dayID uuid.UUID) (*itinerary.Day, error)
	GetDays(ctx context.Context, tripID uuid.UUID) ([]itinerary.Day, error)
	CreateActivity(ctx context.Context, activity itinerary.Activity) error
	GetActivities(ctx context.Context, dayID uuid.UUID) ([]itinerary.Activity, error)
	ActivityTripID(ctx context.Context, activityID uuid.UUID) (uuid.UUID, error)
}

type PollStore interface {
	CreatePoll(ctx context.Context, p poll.Poll) error
	GetByTrip(ctx context.Context, tripID uuid.UUID) ([]poll.Poll, error)
	CastVote(ctx context.Context, vote poll.Vote) error
	ClosePoll(ctx context.Context, pollID uuid.UUID) (bool, error)
}

type DepositStore interface {
	Save(ctx context.Context, deposit payments.Deposit) error
	GetByTrip(ctx context.Context, tripID uuid.UUID) ([]payments.Deposit, error)
	UpdateStatusByIntent(ctx context.Context, paymentIntentID string, status payments.DepositStatus) error
}

// EventSink is where handlers drop audit events; the worker satisfies it.
type EventSink interface {
	Log(event eventlogger.Event)
}

type Server struct {
	trips     TripStore
	expenses  LedgerStore
	days      ItineraryStore
	polls     PollStore
	deposits  DepositStore
	users     user.Repository
	sessions  session.Repository
	intents   payments.IntentClient
	events    EventSink
	eventRead eventlogger.EventLogger
}

type Config struct {
	Trips       TripStore
	Expenses    LedgerStore
	Itinerary   ItineraryStore
	Polls       PollStore
	Deposits    DepositStore
	Users       user.Repository
	Sessions    session.Repository
	Intents     payments.IntentClient
	Events      EventSink
	EventReader eventlogger.EventLogger
}

func NewServer(cfg Config) *Server {
	return &Server{
		trips:     cfg.Trips,
		expenses:  cfg.Expenses,
		days:      cfg.Itinerary,
		polls:     cfg.Polls,
		deposits:  cfg.Deposits,
		users:     cfg.Users,
		sessions:  cfg.Sessions,
		intents:   cfg.Intents,
		events:    cfg.Events,
		eventRead: cfg.EventReader,
	}
}

// Routes registers every authenticated endpoint on the given router.
// Auth middleware and the public user routes are wired by the caller.
func (s *Server) Routes(r chi.Router) {
	r.Route("/trips", func(r chi.Router) {
		r.Post("/", s.createTrip)
		r.Route("/{tripID}", func(r chi.Router) {
			r.Get("/", s.getTrip)
			r.Patch("/", s.updateTrip)
			r.Delete("/", s.deleteTrip)
			r.Get("/events/", s.listTripEvents)
			r.Post("/participants/", s.addParticipant)
			r.Post("/days/", s.createDay)
			r.Post("/polls/", s.createPoll)
			r.Get("/polls/", s.listPolls)
			r.Route("/expenses", func(r chi.Router) {
				r.Post("/", s.createExpense)
				r.Get("/", s.listExpenses)
				r.Delete("/{expenseID}", s.deleteExpense)
				r.Get("/balance/", s.getBalances)
				r.Get("/settlement/", s.getSettlement)
			})
			r.Post("/deposits/", s.createDeposit)
			r.Get("/deposits/", s.listDeposits)
		})
	})
	r.Post("/days/{dayID}/activities/", s.createActivity)
	r.Post("/polls/{pollID}/close", s.closePoll)
	r.Post("/polls/options/{optionID}/vote", s.castVote)
	r.Post("/expenses/splits/{splitID}/settle", s.settleSplit)
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// fail translates domain errors into HTTP responses. Validation failures
// carry their message to the client; anything unexpected is logged and
// reported as a generic 500 so internals don't leak.
func fail(w http.ResponseWriter, err error) {
	switch {
	case isValidationErr(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, poll.ErrAlreadyVoted),
		errors.Is(err, user.ErrEmailExists),
		errors.Is(err, itinerary.ErrDuplicateDay):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, poll.ErrUnknownOption),
		errors.Is(err, payments.ErrUnknownIntent):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrUnbalanced):
		// Invariant violation: a ledger bug, never user input.
		slog.Error("ledger invariant violated", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	default:
		slog.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func isValidationErr(err error) bool {
	for _, sentinel := range []error{
		ledger.ErrEmptyDescription,
		ledger.ErrInvalidAmount,
		ledger.ErrNoSplits,
		ledger.ErrNegativeSplit,
		ledger.ErrDuplicateParticipant,
		ledger.ErrUnknownParticipant,
		ledger.ErrSplitMismatch,
		ledger.ErrMalformedAmount,
		trip.ErrEmptyName,
		trip.ErrEmptyEmail,
		trip.ErrEmptyCurrency,
		trip.ErrInvalidStatus,
		trip.ErrBadDateRange,
		itinerary.ErrEmptyTitle,
		itinerary.ErrBadTimeRange,
		itinerary.ErrMalformedTime,
		poll.ErrEmptyQuestion,
		poll.ErrTooFewOptions,
		poll.ErrPollClosed,
		payments.ErrInvalidAmount,
		user.ErrInvalidEmail,
		user.ErrBlankPassword,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func decodeBody(r *http.Request, dest any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dest)
}

// urlUUID parses a uuid path parameter, writing a 400 on failure.
func urlUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
