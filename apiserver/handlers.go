package apiserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/hupe1980/toolmesh"
	"github.com/hupe1980/toolmesh/catalog"
	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/httpexec"
	"github.com/hupe1980/toolmesh/session"
	"github.com/hupe1980/toolmesh/tool"
)

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

// CredentialsRequest selects at most one credential kind.
type CredentialsRequest struct {
	BearerToken string          `json:"bearerToken,omitempty"`
	APIKey      *core.APIKey    `json:"apiKey,omitempty"`
	Basic       *core.BasicAuth `json:"basic,omitempty"`
}

func (c *CredentialsRequest) credentials() core.Credentials {
	switch {
	case c == nil:
		return nil
	case c.BearerToken != "":
		return core.BearerToken(c.BearerToken)
	case c.APIKey != nil:
		return *c.APIKey
	case c.Basic != nil:
		return *c.Basic
	}
	return nil
}

// TurnRequest is the body of the turn endpoints. Conversation is ignored by
// the session endpoint.
type TurnRequest struct {
	Conversation  core.Conversation          `json:"conversation"`
	Query         string                     `json:"query,omitempty"`
	StaticContext *core.StaticRequestContext `json:"staticContext,omitempty"`
	Credentials   *CredentialsRequest        `json:"credentials,omitempty"`
	// Run keeps taking turns until the model answers in plain text.
	Run bool `json:"run,omitempty"`
}

// TurnResponse carries the updated conversation.
type TurnResponse struct {
	Conversation core.Conversation `json:"conversation"`
	Reply        string            `json:"reply,omitempty"`
}

// ToolsResponse is the catalog search result envelope.
type ToolsResponse struct {
	Tools []core.ToolDefinition `json:"tools"`
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// writeJSON serialises data as JSON and writes it to the response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// writeError writes a JSON error envelope to the response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps turn errors to HTTP status codes.
func statusFor(err error) int {
	var (
		malformed *core.MalformedArgumentsError
		toolErr   *tool.ToolError
		status    *httpexec.StatusError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	case errors.As(err, &malformed):
		return http.StatusUnprocessableEntity
	case errors.As(err, &toolErr) && toolErr.Code == tool.CodeTimeout,
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrNoResponse),
		errors.As(err, &status),
		errors.As(err, &toolErr):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrStepLimit):
		return http.StatusConflict
	case errors.Is(err, session.ErrDeleted):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) runTurn(ctx context.Context, req TurnRequest, conv core.Conversation) (core.Conversation, error) {
	in := toolmesh.TurnInput{
		Conversation:  conv,
		Query:         req.Query,
		StaticContext: req.StaticContext,
		Credentials:   req.Credentials.credentials(),
	}
	if req.Run {
		return s.orchestrator.Run(ctx, in, s.maxSteps)
	}
	return s.orchestrator.Turn(ctx, in)
}

func newTurnResponse(conv core.Conversation) TurnResponse {
	resp := TurnResponse{Conversation: conv}
	if last, ok := conv.Last(); ok && last.Role == core.RoleAssistant && !last.HasToolCall() {
		resp.Reply = last.Content
	}
	return resp
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------
// Turns
// ---------------------------------------------------------------------------

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := s.runTurn(r.Context(), req, req.Conversation)
	if err != nil {
		s.logger.Warn("turn failed", zap.Error(err))
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, newTurnResponse(conv))
}

func (s *Server) handleSessionTurn(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := s.sessions.Update(r.Context(), id, func(ctx context.Context, current core.Conversation) (core.Conversation, error) {
		return s.runTurn(ctx, req, current)
	})
	if err != nil {
		s.logger.Warn("session turn failed", zap.String("session", id), zap.Error(err))
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, newTurnResponse(conv))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	conv, err := s.sessions.Get(id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "session not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, newTurnResponse(conv))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Delete(mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

func (s *Server) handleSearchTools(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	defs, err := s.orchestrator.Search(r.Context(), q)
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if n > 0 && len(defs) > n {
			defs = defs[:n]
		}
	}
	if defs == nil {
		defs = []core.ToolDefinition{}
	}
	s.writeJSON(w, http.StatusOK, ToolsResponse{Tools: defs})
}

func (s *Server) handleBaseTools(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, ToolsResponse{Tools: s.orchestrator.BaseTools()})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		s.writeError(w, http.StatusNotImplemented, "catalog is read-only")
		return
	}
	defs, err := s.registry.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if defs == nil {
		defs = []core.ToolDefinition{}
	}
	s.writeJSON(w, http.StatusOK, ToolsResponse{Tools: defs})
}

func (s *Server) handleRegisterTools(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		s.writeError(w, http.StatusNotImplemented, "catalog is read-only")
		return
	}
	var body ToolsResponse
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.registry.Register(r.Context(), body.Tools...); err != nil {
		if errors.Is(err, catalog.ErrInvalidName) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("tools registered", zap.Strings("tools", core.ToolNames(body.Tools)))
	s.writeJSON(w, http.StatusCreated, body)
}

func (s *Server) handleDeleteTool(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		s.writeError(w, http.StatusNotImplemented, "catalog is read-only")
		return
	}
	name := mux.Vars(r)["name"]
	if err := s.registry.Delete(r.Context(), name); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "tool not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
