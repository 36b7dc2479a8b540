package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcruz/wayfare/eventlogger"
	"github.com/mcruz/wayfare/itinerary"
	"github.com/mcruz/wayfare/ledger"
	"github.com/mcruz/wayfare/middleware"
	"github.com/mcruz/wayfare/payments"
	"github.com/mcruz/wayfare/poll"
	"github.com/mcruz/wayfare/session"
	"github.com/mcruz/wayfare/trip"
	"github.com/mcruz/wayfare/user"
)

// In-memory stores so handler behavior can be tested without Postgres.

type fakeTrips struct {
	trips        map[uuid.UUID]trip.Trip
	participants map[uuid.UUID][]trip.Participant
}

func newFakeTrips() *fakeTrips {
	return &fakeTrips{
		trips:        make(map[uuid.UUID]trip.Trip),
		participants: make(map[uuid.UUID][]trip.Participant),
	}
}

func (f *fakeTrips) CreateTrip(_ context.Context, t trip.Trip, participants []trip.Participant) error {
	f.trips[t.ID] = t
	f.participants[t.ID] = participants
	return nil
}

func (f *fakeTrips) GetByID(_ context.Context, tripID uuid.UUID) (*trip.Trip, error) {
	t, ok := f.trips[tripID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (f *fakeTrips) Update(_ context.Context, t trip.Trip) error {
	f.trips[t.ID] = t
	return nil
}

func (f *fakeTrips) Delete(_ context.Context, tripID uuid.UUID) error {
	delete(f.trips, tripID)
	delete(f.participants, tripID)
	return nil
}

func (f *fakeTrips) GetParticipants(_ context.Context, tripID uuid.UUID) ([]trip.Participant, error) {
	return f.participants[tripID], nil
}

func (f *fakeTrips) AddParticipant(_ context.Context, p trip.Participant) (*trip.Participant, error) {
	for _, existing := range f.participants[p.TripID] {
		if existing.Email == p.Email {
			return &existing, nil
		}
	}
	f.participants[p.TripID] = append(f.participants[p.TripID], p)
	return &p, nil
}

type fakeLedger struct {
	expenses []ledger.Expense
	splits   []ledger.ExpenseSplit
}

func (f *fakeLedger) SaveExpense(_ context.Context, expense *ledger.Expense, splits []ledger.ExpenseSplit) error {
	f.expenses = append(f.expenses, *expense)
	f.splits = append(f.splits, splits...)
	return nil
}

func (f *fakeLedger) GetSnapshot(_ context.Context, tripID uuid.UUID) ([]ledger.Expense, []ledger.ExpenseSplit, error) {
	var expenses []ledger.Expense
	ids := make(map[uuid.UUID]bool)
	for _, e := range f.expenses {
		if e.TripID == tripID {
			expenses = append(expenses, e)
			ids[e.ID] = true
		}
	}
	var splits []ledger.ExpenseSplit
	for _, s := range f.splits {
		if ids[s.ExpenseID] {
			splits = append(splits, s)
		}
	}
	return expenses, splits, nil
}

func (f *fakeLedger) GetExpense(_ context.Context, expenseID uuid.UUID) (*ledger.Expense, []ledger.ExpenseSplit, error) {
	for _, e := range f.expenses {
		if e.ID == expenseID {
			var splits []ledger.ExpenseSplit
			for _, s := range f.splits {
				if s.ExpenseID == expenseID {
					splits = append(splits, s)
				}
			}
			return &e, splits, nil
		}
	}
	return nil, nil, nil
}

func (f *fakeLedger) DeleteExpense(_ context.Context, expenseID uuid.UUID) error {
	var expenses []ledger.Expense
	for _, e := range f.expenses {
		if e.ID != expenseID {
			expenses = append(expenses, e)
		}
	}
	f.expenses = expenses
	var splits []ledger.ExpenseSplit
	for _, s := range f.splits {
		if s.ExpenseID != expenseID {
			splits = append(splits, s)
		}
	}
	f.splits = splits
	return nil
}

func (f *fakeLedger) MarkSplitSettled(_ context.Context, splitID uuid.UUID) (bool, error) {
	for i, s := range f.splits {
		if s.ID == splitID {
			f.splits[i].IsSettled = true
			return true, nil
		}
	}
	return false, nil
}

type fakeItinerary struct {
	days       map[uuid.UUID]itinerary.Day
	activities map[uuid.UUID][]itinerary.Activity
}

func newFakeItinerary() *fakeItinerary {
	return &fakeItinerary{
		days:       make(map[uuid.UUID]itinerary.Day),
		activities: make(map[uuid.UUID][]itinerary.Activity),
	}
}

func (f *fakeItinerary) CreateDay(_ context.Context, day itinerary.Day) error {
	for _, existing := range f.days {
		if existing.TripID == day.TripID && existing.Date.Equal(day.Date) {
			return itinerary.ErrDuplicateDay
		}
	}
	f.days[day.ID] = day
	return nil
}

func (f *fakeItinerary) GetDay(_ context.Context, dayID uuid.UUID) (*itinerary.Day, error) {
	day, ok := f.days[dayID]
	if !ok {
		return nil, nil
	}
	return &day, nil
}

func (f *fakeItinerary) GetDays(_ context.Context, tripID uuid.UUID) ([]itinerary.Day, error) {
	var days []itinerary.Day
	for _, day := range f.days {
		if day.TripID == tripID {
			days = append(days, day)
		}
	}
	return days, nil
}

func (f *fakeItinerary) CreateActivity(_ context.Context, activity itinerary.Activity) error {
	f.activities[activity.DayID] = append(f.activities[activity.DayID], activity)
	return nil
}

func (f *fakeItinerary) GetActivities(_ context.Context, dayID uuid.UUID) ([]itinerary.Activity, error) {
	return f.activities[dayID], nil
}

func (f *fakeItinerary) ActivityTripID(_ context.Context, activityID uuid.UUID) (uuid.UUID, error) {
	for dayID, activities := range f.activities {
		for _, a := range activities {
			if a.ID == activityID {
				return f.days[dayID].TripID, nil
			}
		}
	}
	return uuid.Nil, nil
}

type fakePolls struct {
	polls map[uuid.UUID]poll.Poll
}

func newFakePolls() *fakePolls {
	return &fakePolls{polls: make(map[uuid.UUID]poll.Poll)}
}

func (f *fakePolls) CreatePoll(_ context.Context, p poll.Poll) error {
	f.polls[p.ID] = p
	return nil
}

func (f *fakePolls) GetByTrip(_ context.Context, tripID uuid.UUID) ([]poll.Poll, error) {
	var polls []poll.Poll
	for _, p := range f.polls {
		if p.TripID == tripID {
			polls = append(polls, p)
		}
	}
	return polls, nil
}

func (f *fakePolls) CastVote(_ context.Context, vote poll.Vote) error {
	for id, p := range f.polls {
		for i, option := range p.Options {
			if option.ID != vote.OptionID {
				continue
			}
			if !p.IsActive {
				return poll.ErrPollClosed
			}
			for _, v := range option.Votes {
				if v.ParticipantID == vote.ParticipantID {
					return poll.ErrAlreadyVoted
				}
			}
			p.Options[i].Votes = append(p.Options[i].Votes, vote)
			f.polls[id] = p
			return nil
		}
	}
	return poll.ErrUnknownOption
}

func (f *fakePolls) ClosePoll(_ context.Context, pollID uuid.UUID) (bool, error) {
	p, ok := f.polls[pollID]
	if !ok {
		return false, nil
	}
	p.IsActive = false
	f.polls[pollID] = p
	return true, nil
}

type fakeDeposits struct {
	deposits []payments.Deposit
}

func (f *fakeDeposits) Save(_ context.Context, deposit payments.Deposit) error {
	f.deposits = append(f.deposits, deposit)
	return nil
}

func (f *fakeDeposits) GetByTrip(_ context.Context, tripID uuid.UUID) ([]payments.Deposit, error) {
	var out []payments.Deposit
	for _, d := range f.deposits {
		if d.TripID == tripID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDeposits) UpdateStatusByIntent(_ context.Context, paymentIntentID string, status payments.DepositStatus) error {
	for i, d := range f.deposits {
		if d.PaymentIntentID == paymentIntentID {
			f.deposits[i].Status = status
			return nil
		}
	}
	return payments.ErrUnknownIntent
}

type fakeUsers struct {
	byEmail map[string]*user.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: make(map[string]*user.User)}
}

func (f *fakeUsers) Register(_ context.Context, email, password, name string) (*user.User, error) {
	if email == "" || !bytes.Contains([]byte(email), []byte("@")) {
		return nil, user.ErrInvalidEmail
	}
	if password == "" {
		return nil, user.ErrBlankPassword
	}
	if _, exists := f.byEmail[email]; exists {
		return nil, user.ErrEmailExists
	}
	u := &user.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: password,
		CreatedAt:    time.Now().UTC(),
	}
	f.byEmail[email] = u
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	return f.byEmail[email], nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) VerifyPassword(hashedPassword, password string) error {
	if hashedPassword != password {
		return errors.New("mismatch")
	}
	return nil
}

func (f *fakeUsers) UpdateName(_ context.Context, userID uuid.UUID, name string) error {
	for _, u := range f.byEmail {
		if u.ID == userID {
			u.Name = name
		}
	}
	return nil
}

type fakeSessions struct {
	byToken map[string]*session.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byToken: make(map[string]*session.Session)}
}

func (f *fakeSessions) Create(_ context.Context, userID uuid.UUID) (*session.Session, error) {
	s := &session.Session{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
	f.byToken[s.Token] = s
	return s, nil
}

func (f *fakeSessions) GetByToken(_ context.Context, token string) (*session.Session, error) {
	s, ok := f.byToken[token]
	if !ok {
		return nil, session.ErrInvalidSession
	}
	return s, nil
}

func (f *fakeSessions) Delete(_ context.Context, token string) error {
	delete(f.byToken, token)
	return nil
}

func (f *fakeSessions) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	for token, s := range f.byToken {
		if s.UserID == userID {
			delete(f.byToken, token)
		}
	}
	return nil
}

type memoryEvents struct {
	events []eventlogger.Event
}

func (m *memoryEvents) Log(event eventlogger.Event) {
	m.events = append(m.events, event)
}

func (m *memoryEvents) Save(_ context.Context, e eventlogger.Event) error {
	m.events = append(m.events, e)
	return nil
}

func (m *memoryEvents) GetByType(_ context.Context, eventType string) ([]eventlogger.Event, error) {
	var out []eventlogger.Event
	for _, e := range m.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryEvents) GetByTrip(_ context.Context, tripID uuid.UUID) ([]eventlogger.Event, error) {
	var out []eventlogger.Event
	for _, e := range m.events {
		if e.Metadata["trip_id"] == tripID.String() {
			out = append(out, e)
		}
	}
	return out, nil
}

type testEnv struct {
	router   http.Handler
	trips    *fakeTrips
	expenses *fakeLedger
	polls    *fakePolls
	deposits *fakeDeposits
	users    *fakeUsers
	events   *memoryEvents
	userID   uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		trips:    newFakeTrips(),
		expenses: &fakeLedger{},
		polls:    newFakePolls(),
		deposits: &fakeDeposits{},
		users:    newFakeUsers(),
		events:   &memoryEvents{},
		userID:   uuid.New(),
	}

	server := NewServer(Config{
		Trips:       env.trips,
		Expenses:    env.expenses,
		Itinerary:   newFakeItinerary(),
		Polls:       env.polls,
		Deposits:    env.deposits,
		Users:       env.users,
		Sessions:    newFakeSessions(),
		Intents:     payments.LogIntentClient{},
		Events:      env.events,
		EventReader: env.events,
	})

	router := chi.NewRouter()
	// Every request runs as the same test user, no cookies involved.
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserIDKey, env.userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	server.PublicRoutes(router)
	server.AccountRoutes(router)
	server.Routes(router)
	router.Post("/payments/webhook", server.PaymentWebhook)

	env.router = router
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// seedTrip creates a trip with n participants directly in the fakes and
// returns it along with the participants in creation order.
func (env *testEnv) seedTrip(t *testing.T, n int) (trip.Trip, []trip.Participant) {
	t.Helper()

	tr, err := trip.NewTrip("Lisbon", "EUR", env.userID, nil, nil)
	require.NoError(t, err)

	participants := make([]trip.Participant, 0, n)
	for i := 0; i < n; i++ {
		p, err := trip.NewParticipant(tr.ID, string(rune('A'+i)), string(rune('a'+i))+"@example.com")
		require.NoError(t, err)
		participants = append(participants, p)
	}

	require.NoError(t, env.trips.CreateTrip(context.Background(), tr, participants))
	return tr, participants
}

func TestCreateTrip(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/trips", map[string]any{
		"name":     "Lisbon",
		"currency": "EUR",
		"participants": []map[string]string{
			{"name": "Ana", "email": "ana@example.com"},
			{"name": "Bruno", "email": "bruno@example.com"},
		},
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[tripResponse](t, rec)
	assert.Equal(t, "Lisbon", resp.Name)
	assert.Equal(t, trip.StatusPlanning, resp.Status)
	assert.Equal(t, env.userID, resp.CreatorID)
	assert.Len(t, resp.Participants, 2)
}

func TestCreateTripDefaultsToCreator(t *testing.T) {
	env := newTestEnv(t)

	creator, err := env.users.Register(context.Background(), "ana@example.com", "hunter2", "Ana")
	require.NoError(t, err)
	env.userID = creator.ID

	rec := env.do(t, http.MethodPost, "/trips", map[string]any{
		"name":     "Lisbon",
		"currency": "EUR",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decode[tripResponse](t, rec)
	require.Len(t, resp.Participants, 1)
	assert.Equal(t, "Ana", resp.Participants[0].Name)
	assert.Equal(t, "ana@example.com", resp.Participants[0].Email)
}

func TestCreateTripValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"currency": "EUR"}},
		{"missing currency", map[string]any{"name": "Lisbon"}},
		{"end before start", map[string]any{
			"name": "Lisbon", "currency": "EUR",
			"start_date": "2026-09-10", "end_date": "2026-09-01",
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/trips", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetTripNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/trips/"+uuid.NewString()+"/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/trips/not-a-uuid/", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateTripStatus(t *testing.T) {
	env := newTestEnv(t)
	tr, _ := env.seedTrip(t, 2)

	rec := env.do(t, http.MethodPatch, "/trips/"+tr.ID.String()+"/", map[string]any{
		"status": "confirmed",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[trip.Trip](t, rec)
	assert.Equal(t, trip.StatusConfirmed, resp.Status)

	rec = env.do(t, http.MethodPatch, "/trips/"+tr.ID.String()+"/", map[string]any{
		"status": "bogus",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCastVoteConflicts(t *testing.T) {
	env := newTestEnv(t)
	tr, participants := env.seedTrip(t, 2)

	rec := env.do(t, http.MethodPost, "/trips/"+tr.ID.String()+"/polls/", map[string]any{
		"question": "Where to eat?",
		"options":  []string{"Tapas", "Ramen"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[poll.Poll](t, rec)
	require.Len(t, created.Options, 2)

	votePath := "/polls/options/" + created.Options[0].ID.String() + "/vote"
	body := map[string]any{"participant_id": participants[0].ID}

	rec = env.do(t, http.MethodPost, votePath, body)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Same participant, same option: conflict.
	rec = env.do(t, http.MethodPost, votePath, body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Closed poll rejects further votes.
	rec = env.do(t, http.MethodPost, "/polls/"+created.ID.String()+"/close", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodPost, votePath, map[string]any{"participant_id": participants[1].ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDepositWebhookRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	tr, participants := env.seedTrip(t, 2)

	rec := env.do(t, http.MethodPost, "/trips/"+tr.ID.String()+"/deposits/", map[string]any{
		"participant_id": participants[0].ID,
		"amount":         50.00,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[createDepositResponse](t, rec)
	assert.Equal(t, payments.StatusPending, created.Status)
	assert.Equal(t, "EUR", created.Currency)
	require.NotEmpty(t, created.PaymentIntentID)
	require.NotEmpty(t, created.ClientSecret)

	rec = env.do(t, http.MethodPost, "/payments/webhook", map[string]any{
		"payment_intent_id": created.PaymentIntentID,
		"status":            "paid",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/trips/"+tr.ID.String()+"/deposits/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	deposits := decode[[]payments.Deposit](t, rec)
	require.Len(t, deposits, 1)
	assert.Equal(t, payments.StatusPaid, deposits[0].Status)
}

func TestWebhookUnknownIntent(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/payments/webhook", map[string]any{
		"payment_intent_id": "pi_missing",
		"status":            "paid",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhookRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/payments/webhook", map[string]any{
		"payment_intent_id": "pi_x",
		"status":            "exploded",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTripEventsTrail(t *testing.T) {
	env := newTestEnv(t)
	tr, _ := env.seedTrip(t, 3)

	rec := env.do(t, http.MethodPost, "/trips/"+tr.ID.String()+"/expenses/", map[string]any{
		"description": "Dinner",
		"amount":      90.00,
		"paid_by_id":  env.trips.participants[tr.ID][0].ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/trips/"+tr.ID.String()+"/events/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events := decode[[]eventlogger.Event](t, rec)
	require.Len(t, events, 1)
	assert.Equal(t, eventlogger.TypeExpenseRecorded, events[0].Type)
}
