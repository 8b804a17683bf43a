package server

import (
	"encoding/json"
	"net/http"

	autherrors "github.com/adboardhq/auth-relay/internal/errors"
	"github.com/adboardhq/auth-relay/message"
	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json; charset=utf-8"

type openSessionRequest struct {
	SessionID string `json:"sessionId"`
}

type writeRequest struct {
	SessionID string              `json:"sessionId"`
	AuthData  message.AuthMessage `json:"authData"`
}

type readResponse struct {
	Found    bool                 `json:"found"`
	AuthData *message.AuthMessage `json:"authData,omitempty"`
}

// OpenSessionHandler registers an empty relay session. The initiator calls
// it before opening the popup so the emitter's later write has somewhere to
// land.
func (s *Server) OpenSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req openSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if err := s.repo.Create(r.Context(), req.SessionID); err != nil {
			log.Error().Err(err).Msg("relay session create failed")
			http.Error(w, "failed to create session", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]bool{"ok": true})
	}
}

// WriteHandler stores the popup's login result. Duplicate writes for the
// same session are accepted with 200 but only the first is preserved.
func (s *Server) WriteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req writeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		switch req.AuthData.Type {
		case message.TypeAuthSuccess, message.TypeAuthError:
		default:
			http.Error(w, "unsupported authData type", http.StatusBadRequest)
			return
		}
		accepted, err := s.repo.Write(r.Context(), req.SessionID, req.AuthData)
		if autherrors.Is(err, autherrors.ErrSessionNotFound) {
			http.Error(w, "session not found or expired", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error().Err(err).Str("sessionId", req.SessionID).Msg("relay write failed")
			http.Error(w, "failed to store auth data", http.StatusInternalServerError)
			return
		}
		if !accepted {
			log.Debug().Str("sessionId", req.SessionID).Msg("duplicate relay write ignored")
		}
		writeJSON(w, map[string]bool{"ok": true})
	}
}

// ReadHandler serves the poller. An unwritten session answers found=false.
func (s *Server) ReadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("sessionId")
		if sessionID == "" {
			http.Error(w, "missing sessionId", http.StatusBadRequest)
			return
		}
		payload, err := s.repo.Read(r.Context(), sessionID)
		if autherrors.Is(err, autherrors.ErrSessionNotFound) {
			http.Error(w, "session not found or expired", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error().Err(err).Str("sessionId", sessionID).Msg("relay read failed")
			http.Error(w, "failed to read auth data", http.StatusInternalServerError)
			return
		}
		writeJSON(w, readResponse{Found: payload != nil, AuthData: payload})
	}
}

func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	_ = json.NewEncoder(w).Encode(v)
}
