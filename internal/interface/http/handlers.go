package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/connecta-hub/connecta-points/internal/application/command"
	"github.com/connecta-hub/connecta-points/internal/application/query"
	"github.com/connecta-hub/connecta-points/internal/domain/shared"
	"github.com/connecta-hub/connecta-points/internal/interface/http/handlers"
	"github.com/connecta-hub/connecta-points/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, r, http.StatusOK, map[string]string{
			"status":  "healthy",
			"uptime":  s.Uptime().String(),
			"version": s.config.Version,
		})
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, status)
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// USERS & POINTS
// ══════════════════════════════════════════════════════════════════════════════

type registerUserRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.deps.RegisterUser.Handle(r.Context(), command.RegisterUserCommand{
		UserID: req.UserID,
		Name:   req.Name,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, res)
}

type pointEventRequest struct {
	Delta      int             `json:"delta"`
	Reason     string          `json:"reason"`
	ActorID    string          `json:"actor_id"`
	Predicates map[string]bool `json:"predicates"`
	Counters   map[string]int  `json:"counters"`
}

func (s *Server) handleApplyPointEvent(w http.ResponseWriter, r *http.Request) {
	var req pointEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.deps.ApplyPointEvent.Handle(r.Context(), command.ApplyPointEventCommand{
		UserID:     r.PathValue("id"),
		Delta:      req.Delta,
		Reason:     req.Reason,
		ActorID:    req.ActorID,
		Predicates: req.Predicates,
		Counters:   req.Counters,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// setPointsRequest carries no actor: the override is attributed to the
// identity behind the verified admin token.
type setPointsRequest struct {
	Points *int `json:"points"`
}

func (s *Server) handleSetAbsolutePoints(w http.ResponseWriter, r *http.Request) {
	var req setPointsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Points == nil {
		writeJSONError(w, r, http.StatusBadRequest, "validation_error", "points is required")
		return
	}
	actorID, ok := handlers.AdminActorFromContext(r.Context())
	if !ok {
		writeJSONError(w, r, http.StatusUnauthorized, "missing_admin_token", "admin token is required")
		return
	}

	res, err := s.deps.SetAbsolutePoints.Handle(r.Context(), command.SetAbsolutePointsCommand{
		UserID:     r.PathValue("id"),
		NewBalance: *req.Points,
		ActorID:    actorID,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleGetUserAchievements(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.GetUserAchievements.Handle(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if list == nil {
		list = []query.UserAchievementDTO{}
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (s *Server) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r, "limit")
	if !ok {
		return
	}
	entries, err := s.deps.GetLedger.Handle(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if entries == nil {
		entries = []query.LedgerEntryDTO{}
	}
	writeJSON(w, r, http.StatusOK, entries)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetRanking(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r, "limit")
	if !ok {
		return
	}
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "all"
	}

	res, err := s.deps.GetRanking.Handle(r.Context(), query.GetRankingQuery{Period: period, Limit: limit})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleReloadCatalogue(w http.ResponseWriter, r *http.Request) {
	if s.deps.ReloadCatalogue == nil {
		writeJSONError(w, r, http.StatusNotImplemented, "not_supported", "catalogue reload is not configured")
		return
	}
	if err := s.deps.ReloadCatalogue(r.Context()); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "reloaded"})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST / ERROR HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		writeJSONError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

// intParam reads an optional integer query parameter; missing means 0.
func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeJSONError(w, r, http.StatusBadRequest, "validation_error", name+" must be an integer")
		return 0, false
	}
	return v, true
}

// statusFor maps domain errors to HTTP statuses. Order matters: specific
// sentinels are checked before the generic kinds they wrap.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, shared.ErrInvalidDelta):
		return http.StatusUnprocessableEntity, "invalid_delta"
	case errors.Is(err, shared.ErrUnknownPeriod):
		return http.StatusBadRequest, "unknown_period"
	case shared.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case shared.IsAlreadyExists(err):
		return http.StatusConflict, "already_exists"
	case shared.IsValidation(err):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, shared.ErrTierConfiguration), errors.Is(err, shared.ErrMisconfigured):
		return http.StatusInternalServerError, "misconfigured"
	case shared.IsRetryable(err):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed",
			logger.String("path", r.URL.Path),
			logger.String("code", code),
			logger.Err(err),
		)
		writeJSONError(w, r, status, code, http.StatusText(status))
		return
	}
	writeJSONError(w, r, status, code, err.Error())
}
