package itinerary

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Day struct {
	ID        uuid.UUID `json:"id"`
	TripID    uuid.UUID `json:"trip_id"`
	Date      time.Time `json:"date"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Activity struct {
	ID        uuid.UUID `json:"id"`
	DayID     uuid.UUID `json:"day_id"`
	Title     string    `json:"title"`
	Notes     string    `json:"notes,omitempty"`
	StartTime string    `json:"start_time,omitempty"` // "15:04"
	EndTime   string    `json:"end_time,omitempty"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrEmptyTitle    = errors.New("title can't be empty")
	ErrDuplicateDay  = errors.New("trip already has a day for that date")
	ErrBadTimeRange  = errors.New("end time can't be before start time")
	ErrMalformedTime = errors.New("time must be HH:MM")
)

func NewDay(tripID uuid.UUID, date time.Time, title string) Day {
	return Day{
		ID:        uuid.New(),
		TripID:    tripID,
		Date:      date,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
}

func NewActivity(dayID uuid.UUID, title, notes, startTime, endTime, location string) (Activity, error) {
	if title == "" {
		return Activity{}, ErrEmptyTitle
	}
	// Times are optional "HH:MM" strings, stored zero-padded so stored
	// values compare correctly as strings.
	var start, end time.Time
	if startTime != "" {
		var err error
		if start, err = time.Parse("15:04", startTime); err != nil {
			return Activity{}, fmt.Errorf("%w: %q", ErrMalformedTime, startTime)
		}
		startTime = start.Format("15:04")
	}
	if endTime != "" {
		var err error
		if end, err = time.Parse("15:04", endTime); err != nil {
			return Activity{}, fmt.Errorf("%w: %q", ErrMalformedTime, endTime)
		}
		endTime = end.Format("15:04")
	}
	if startTime != "" && endTime != "" && end.Before(start) {
		return Activity{}, ErrBadTimeRange
	}

	return Activity{
		ID:        uuid.New(),
		DayID:     dayID,
		Title:     title,
		Notes:     notes,
		StartTime: startTime,
		EndTime:   endTime,
		Location:  location,
		CreatedAt: time.Now().UTC(),
	}, nil
}
