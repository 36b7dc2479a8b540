package api

import (
	"net/http"
	"time"

	"github.com/mcruz/wayfare/eventlogger"
	"github.com/mcruz/wayfare/itinerary"
)

type createDayRequest struct {
	Date  string `json:"date"`
	Title string `json:"title"`
}

func (s *Server) createDay(w http.ResponseWriter, r *http.Request) {
	tripID, ok := urlUUID(w, r, "tripID")
	if !ok {
		return
	}

	var req createDayRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
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

	day := itinerary.NewDay(tripID, date, req.Title)
	if err := s.days.CreateDay(r.Context(), day); err != nil {
		fail(w, err)
		return
	}

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventlogger.TypeDayAdded),
		eventlogger.WithTrip(tripID),
		eventlogger.WithData(map[string]any{"day_id": day.ID.String(), "date": req.Date}),
	))

	respondJSON(w, http.StatusCreated, day)
}

type createActivityRequest struct {
	Title     string `json:"title"`
	Notes     string `json:"notes"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Location  string `json:"location"`
}

func (s *Server) createActivity(w http.ResponseWriter, r *http.Request) {
	dayID, ok := urlUUID(w, r, "dayID")
	if !ok {
		return
	}

	var req createActivityRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	day, err := s.days.GetDay(r.Context(), dayID)
	if err != nil {
		fail(w, err)
		return
	}
	if day == nil {
		respondError(w, http.StatusNotFound, "day not found")
		return
	}

	activity, err := itinerary.NewActivity(dayID, req.Title, req.Notes, req.StartTime, req.EndTime, req.Location)
	if err != nil {
		fail(w, err)
		return
	}

	if err := s.days.CreateActivity(r.Context(), activity); err != nil {
		fail(w, err)
		return
	}

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventlogger.TypeActivityAdded),
		eventlogger.WithTrip(day.TripID),
		eventlogger.WithData(map[string]any{"activity_id": activity.ID.String(), "title": activity.Title}),
	))

	respondJSON(w, http.StatusCreated, activity)
}
