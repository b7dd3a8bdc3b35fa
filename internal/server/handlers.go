package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/raysh454/eddy/internal/engine"
	"github.com/raysh454/eddy/internal/logging"
)

// Sessions

// handleCreateSession godoc
// @Summary Create a session for a page
// @Tags sessions
// @Accept json
// @Produce json
// @Param body body CreateSessionRequest true "Session"
// @Success 201 {object} model.Eddy
// @Failure 400 {object} ErrorResponse
// @Router /sessions [post]
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var body CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	e, err := s.sessions.Create(r.Context(), body.Name, body.URL)
	if err != nil {
		s.fail(w, "creating session", err)
		return
	}
	s.logger.Info("created session", logging.Field{Key: "id", Value: e.ID}, logging.Field{Key: "domain", Value: e.Domain})
	writeJSON(w, http.StatusCreated, e)
}

// handleListSessions godoc
// @Summary List sessions, most recently updated first
// @Tags sessions
// @Produce json
// @Param domain query string false "Page URL or host to filter by"
// @Success 200 {array} model.Eddy
// @Router /sessions [get]
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.sessions.List(r.Context(), r.URL.Query().Get("domain"))
	if err != nil {
		s.fail(w, "listing sessions", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	e, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "getting session", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleRenameSession(w http.ResponseWriter, r *http.Request) {
	var body RenameSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	e, err := s.sessions.Rename(r.Context(), chi.URLParam(r, "id"), body.Name)
	if err != nil {
		s.fail(w, "renaming session", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		s.fail(w, "deleting session", err)
		return
	}
	s.logger.Info("deleted session", logging.Field{Key: "id", Value: id})
	w.WriteHeader(http.StatusNoContent)
}

// History

func (s *Server) handleBeginApply(w http.ResponseWriter, r *http.Request) {
	tok, err := s.sessions.BeginApply(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "issuing apply token", err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: uint64(tok)})
}

// handleApply godoc
// @Summary Apply a modification batch as a new layer
// @Tags history
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param body body ApplyRequest true "Batch"
// @Success 200 {object} MutationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/apply [post]
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var body ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	out, err := s.sessions.Apply(r.Context(), chi.URLParam(r, "id"), engine.Token(body.Token), body.Modifications, body.UserQuery)
	s.writeMutation(w, "applying batch", out, err)
}

// mutation adapts a cursor operation to a handler.
func (s *Server) mutation(op func(context.Context, string) (engine.Outcome, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := op(r.Context(), chi.URLParam(r, "id"))
		s.writeMutation(w, "mutating history", out, err)
	}
}

// writeMutation answers 200 whenever history moved, carrying any script or
// save failure alongside the outcome.
func (s *Server) writeMutation(w http.ResponseWriter, msg string, out engine.Outcome, err error) {
	if err != nil && !out.Changed {
		s.fail(w, msg, err)
		return
	}
	resp := MutationResponse{Outcome: out}
	if err != nil {
		s.logger.Warn(msg+" partially failed", logging.Field{Key: "error", Value: err.Error()})
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	v, err := s.sessions.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "reading history", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleDiff godoc
// @Summary Compare effective snapshots at two cursor positions
// @Tags history
// @Produce json
// @Param id path string true "Session id"
// @Param from query int true "Base cursor"
// @Param to query int false "Head cursor, defaults to the current one"
// @Success 200 {object} diff.Result
// @Failure 400 {object} ErrorResponse
// @Router /sessions/{id}/diff [get]
func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	from, err := strconv.Atoi(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from cursor")
		return
	}
	var to int
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err = strconv.Atoi(raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid to cursor")
			return
		}
	} else {
		v, err := s.sessions.History(r.Context(), id)
		if err != nil {
			s.fail(w, "reading history", err)
			return
		}
		to = v.Cursor
	}
	res, err := s.sessions.Diff(r.Context(), id, from, to)
	if err != nil {
		s.fail(w, "diffing history", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Renders

func (s *Server) handleEffective(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.Effective(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "reading effective snapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCSS(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.Effective(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "reading effective snapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, CSSResponse{CSS: snap.CSSText()})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	page, err := s.sessions.Preview(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("url"))
	if err != nil {
		s.fail(w, "rendering preview", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, page)
}

// WebSockets

func (s *Server) handleBridgeWS(w http.ResponseWriter, r *http.Request) {
	if s.bridge == nil {
		writeError(w, http.StatusNotFound, "websocket bridge disabled")
		return
	}
	s.bridge.ServeHTTP(w, r)
}
