package trip

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrip(t *testing.T) {
	creator := uuid.New()

	trip, err := NewTrip("Lisbon 2027", "EUR", creator, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusPlanning, trip.Status)
	assert.Equal(t, creator, trip.CreatorID)
	assert.NotEqual(t, uuid.Nil, trip.ID)

	_, err = NewTrip("", "EUR", creator, nil, nil)
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = NewTrip("Lisbon 2027", "", creator, nil, nil)
	assert.ErrorIs(t, err, ErrEmptyCurrency)

	start := time.Date(2027, 6, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -3)
	_, err = NewTrip("Lisbon 2027", "EUR", creator, &start, &end)
	assert.ErrorIs(t, err, ErrBadDateRange)
}

func TestNewParticipant(t *testing.T) {
	tripID := uuid.New()

	p, err := NewParticipant(tripID, "Ana", "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, tripID, p.TripID)

	_, err = NewParticipant(tripID, "", "ana@example.com")
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = NewParticipant(tripID, "Ana", "")
	assert.ErrorIs(t, err, ErrEmptyEmail)
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPlanning, StatusConfirmed, StatusInProgress, StatusCompleted, StatusArchived} {
		assert.True(t, s.Valid())
	}
	assert.False(t, Status("cancelled").Valid())
	assert.False(t, Status("").Valid())
}

func TestMemberIDs(t *testing.T) {
	a, _ := NewParticipant(uuid.New(), "Ana", "ana@example.com")
	b, _ := NewParticipant(uuid.New(), "Bruno", "bruno@example.com")

	got := MemberIDs([]Participant{a, b})
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, got)
	assert.Empty(t, MemberIDs(nil))
}
