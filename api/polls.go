package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mcruz/wayfare/eventlogger"
	"github.com/mcruz/wayfare/poll"
)

type createPollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

func (s *Server) createPoll(w http.ResponseWriter, r *http.Request) {
	tripID, ok := urlUUID(w, r, "tripID")
	if !ok {
		return
	}

	var req createPollRequest
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

	p, err := poll.NewPoll(tripID, req.Question, req.Options)
	if err != nil {
		fail(w, err)
		return
	}

	if err := s.polls.CreatePoll(r.Context(), p); err != nil {
		fail(w, err)
		return
	}

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventlogger.TypePollCreated),
		eventlogger.WithTrip(tripID),
		eventlogger.WithData(map[string]any{"poll_id": p.ID.String(), "question": p.Question}),
	))

	respondJSON(w, http.StatusCreated, p)
}

func (s *Server) listPolls(w http.ResponseWriter, r *http.Request) {
	tripID, ok := urlUUID(w, r, "tripID")
	if !ok {
		return
	}

	polls, err := s.polls.GetByTrip(r.Context(), tripID)
	if err != nil {
		fail(w, err)
		return
	}

	respondJSON(w, http.StatusOK, polls)
}

type castVoteRequest struct {
	ParticipantID uuid.UUID `json:"participant_id"`
}

func (s *Server) castVote(w http.ResponseWriter, r *http.Request) {
	optionID, ok := urlUUID(w, r, "optionID")
	if !ok {
		return
	}

	var req castVoteRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ParticipantID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "participant_id is required")
		return
	}

	vote := poll.NewVote(optionID, req.ParticipantID)
	if err := s.polls.CastVote(r.Context(), vote); err != nil {
		fail(w, err)
		return
	}

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventlogger.TypeVoteCast),
		eventlogger.WithData(map[string]any{
			"option_id":      optionID.String(),
			"participant_id": req.ParticipantID.String(),
		}),
	))

	respondJSON(w, http.StatusCreated, vote)
}

func (s *Server) closePoll(w http.ResponseWriter, r *http.Request) {
	pollID, ok := urlUUID(w, r, "pollID")
	if !ok {
		return
	}

	found, err := s.polls.ClosePoll(r.Context(), pollID)
	if err != nil {
		fail(w, err)
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "poll not found")
		return
	}

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventlogger.TypePollClosed),
		eventlogger.WithData(map[string]any{"poll_id": pollID.String()}),
	))

	w.WriteHeader(http.StatusNoContent)
}
