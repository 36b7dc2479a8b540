package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mcruz/wayfare/eventlogger"
	"github.com/mcruz/wayfare/middleware"
	"github.com/mcruz/wayfare/session"
)

// PublicRoutes registers the endpoints that work without a session.
func (s *Server) PublicRoutes(r chi.Router) {
	r.Post("/user/register", s.register)
	r.Post("/user/login", s.login)
}

// AccountRoutes registers the endpoints that require a session.
func (s *Server) AccountRoutes(r chi.Router) {
	r.Post("/user/logout", s.logout)
	r.Get("/user/me", s.me)
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := s.users.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		fail(w, err)
		return
	}

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventlogger.TypeUserRegistered),
		eventlogger.WithData(map[string]any{"user_id": u.ID.String()}),
	))

	s.startSession(w, r, u.ID, http.StatusCreated, u)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := s.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		fail(w, err)
		return
	}
	if u == nil || s.users.VerifyPassword(u.PasswordHash, req.Password) != nil {
		respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	s.startSession(w, r, u.ID, http.StatusOK, u)
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request, userID uuid.UUID, status int, body any) {
	sess, err := s.sessions.Create(r.Context(), userID)
	if err != nil {
		fail(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, status, body)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(session.CookieName); err == nil {
		if err := s.sessions.Delete(r.Context(), cookie.Value); err != nil {
			fail(w, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	u, err := s.users.GetByID(r.Context(), userID)
	if err != nil {
		fail(w, err)
		return
	}
	if u == nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	respondJSON(w, http.StatusOK, u)
}
