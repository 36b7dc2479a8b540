package api

import (
	"net/http"
	"time"

	"github.com/mcruz/wayfare/eventlogger"
	"github.com/mcruz/wayfare/itinerary"
	"github.com/mcruz/wayfare/middleware"
	"github.com/mcruz/wayfare/poll"
	"github.com/mcruz/wayfare/trip"
)

type participantRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type createTripRequest struct {
	Name             string               `json:"name"`
	Currency         string               `json:"currency"`
	StartDate        *string              `json:"start_date"`
	EndDate          *string              `json:"end_date"`
	FinalDestination string               `json:"final_destination"`
	Participants     []participantRequest `json:"participants"`
}

func (s *Server) createTrip(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createTripRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start, ok := parseOptionalDate(w, req.StartDate, "start_date")
	if !ok {
		return
	}
	end, ok := parseOptionalDate(w, req.EndDate, "end_date")
	if !ok {
		return
	}

	t, err := trip.NewTrip(req.Name, req.Currency, userID, start, end)
	if err != nil {
		fail(w, err)
		return
	}
	t.FinalDestination = req.FinalDestination

	participants := make([]trip.Participant, 0, len(req.Participants))
	for _, pr := range req.Participants {
		p, err := trip.NewParticipant(t.ID, pr.Name, pr.Email)
		if err != nil {
			fail(w, err)
			return
		}
		participants = append(participants, p)
	}

	// A trip with no listed participants starts with its creator.
	if len(participants) == 0 {
		creator, err := s.users.GetByID(r.Context(), userID)
		if err != nil {
			fail(w, err)
			return
		}
		if creator != nil {
			name := creator.Name
			if name == "" {
				name = creator.Email
			}
			p, err := trip.NewParticipant(t.ID, name, creator.Email)
			if err != nil {
				fail(w, err)
				return
			}
			participants = append(participants, p)
		}
	}

	if err := s.trips.CreateTrip(r.Context(), t, participants); err != nil {
		fail(w, err)
		return
	}

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventlogger.TypeTripCreated),
		eventlogger.WithTrip(t.ID),
		eventlogger.WithData(map[string]any{"name": t.Name, "participants": len(participants)}),
	))

	respondJSON(w, http.StatusCreated, tripResponse{Trip: t, Participants: participants})
}

type tripResponse struct {
	trip.Trip
	Participants []trip.Participant `json:"participants"`
}

type dayResponse struct {
	itinerary.Day
	Activities []itinerary.Activity `json:"activities"`
}

type tripDetailResponse struct {
	trip.Trip
	Participants []trip.Participant `json:"participants"`
	Days         []dayResponse      `json:"days"`
	Polls        []poll.Poll        `json:"polls"`
}

// getTrip returns the trip aggregate: participants, itinerary and polls
// in one response. Expenses have their own endpoints.
func (s *Server) getTrip(w http.ResponseWriter, r *http.Request) {
	tripID, ok := urlUUID(w, r, "tripID")
	if !ok {
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

	days, err := s.days.GetDays(r.Context(), tripID)
	if err != nil {
		fail(w, err)
		return
	}
	detailDays := make([]dayResponse, 0, len(days))
	for _, d := range days {
		activities, err := s.days.GetActivities(r.Context(), d.ID)
		if err != nil {
			fail(w, err)
			return
		}
		detailDays = append(detailDays, dayResponse{Day: d, Activities: activities})
	}

	polls, err := s.polls.GetByTrip(r.Context(), tripID)
	if err != nil {
		fail(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tripDetailResponse{
		Trip:         *t,
		Participants: participants,
		Days:         detailDays,
		Polls:        polls,
	})
}

type updateTripRequest struct {
	Name             *string `json:"name"`
	Status           *string `json:"status"`
	Currency         *string `json:"currency"`
	StartDate        *string `json:"start_date"`
	EndDate          *string `json:"end_date"`
	FinalDestination *string `json:"final_destination"`
}

func (s *Server) updateTrip(w http.ResponseWriter, r *http.Request) {
	tripID, ok := urlUUID(w, r, "tripID")
	if !ok {
		return
	}

	var req updateTripRequest
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

	if req.Name != nil {
		if *req.Name == "" {
			fail(w, trip.ErrEmptyName)
			return
		}
		t.Name = *req.Name
	}
	if req.Status != nil {
		status := trip.Status(*req.Status)
		if !status.Valid() {
			fail(w, trip.ErrInvalidStatus)
			return
		}
		t.Status = status
	}
	if req.Currency != nil {
		if *req.Currency == "" {
			fail(w, trip.ErrEmptyCurrency)
			return
		}
		t.Currency = *req.Currency
	}
	if req.StartDate != nil {
		start, ok := parseOptionalDate(w, req.StartDate, "start_date")
		if !ok {
			return
		}
		t.StartDate = start
	}
	if req.EndDate != nil {
		end, ok := parseOptionalDate(w, req.EndDate, "end_date")
		if !ok {
			return
		}
		t.EndDate = end
	}
	if t.StartDate != nil && t.EndDate != nil && t.EndDate.Before(*t.StartDate) {
		fail(w, trip.ErrBadDateRange)
		return
	}
	if req.FinalDestination != nil {
		t.FinalDestination = *req.FinalDestination
	}

	if err := s.trips.Update(r.Context(), *t); err != nil {
		fail(w, err)
		return
	}

	respondJSON(w, http.StatusOK, t)
}

func (s *Server) deleteTrip(w http.ResponseWriter, r *http.Request) {
	tripID, ok := urlUUID(w, r, "tripID")
	if !ok {
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

	if err := s.trips.Delete(r.Context(), tripID); err != nil {
		fail(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addParticipant(w http.ResponseWriter, r *http.Request) {
	tripID, ok := urlUUID(w, r, "tripID")
	if !ok {
		return
	}

	var req participantRequest
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

	p, err := trip.NewParticipant(tripID, req.Name, req.Email)
	if err != nil {
		fail(w, err)
		return
	}

	saved, err := s.trips.AddParticipant(r.Context(), p)
	if err != nil {
		fail(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) listTripEvents(w http.ResponseWriter, r *http.Request) {
	tripID, ok := urlUUID(w, r, "tripID")
	if !ok {
		return
	}

	events, err := s.eventRead.GetByTrip(r.Context(), tripID)
	if err != nil {
		fail(w, err)
		return
	}

	respondJSON(w, http.StatusOK, events)
}

func parseOptionalDate(w http.ResponseWriter, value *string, field string) (*time.Time, bool) {
	if value == nil || *value == "" {
		return nil, true
	}
	parsed, err := time.Parse("2006-01-02", *value)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid "+field+", expected YYYY-MM-DD")
		return nil, false
	}
	return &parsed, true
}
