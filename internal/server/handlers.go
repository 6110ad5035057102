package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"roomwatch.dev/roomwatch/pkg/metrics"
	"roomwatch.dev/roomwatch/pkg/tagread"
)

// Storage calls made on behalf of a request get this deadline so a
// stalled database surfaces as a 500 instead of a hung request.
const requestTimeout = 5 * time.Second

// Gateway is the ingestion gateway: the HTTP/JSON façade that validates
// inbound requests, delegates to the stores and the mode cell, and shapes
// responses. It holds no request state of its own.
type Gateway struct {
	logger  *slog.Logger
	store   *Store
	mode    *ModeState
	alerter *Alerter
	metrics *metrics.ServerMetrics // Optional metrics
}

// GatewayConfig holds the configuration for the Gateway.
type GatewayConfig struct {
	Logger  *slog.Logger
	Store   *Store
	Mode    *ModeState
	Alerter *Alerter
	Metrics *metrics.ServerMetrics
}

// NewGateway creates a new Gateway instance.
func NewGateway(cfg *GatewayConfig) (*Gateway, error) {
	if cfg == nil {
		return nil, errors.New("gateway config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Store == nil {
		return nil, errors.New("store cannot be nil")
	}

	if cfg.Mode == nil {
		return nil, errors.New("mode state cannot be nil")
	}

	if cfg.Alerter == nil {
		return nil, errors.New("alerter cannot be nil")
	}

	return &Gateway{
		logger:  cfg.Logger,
		store:   cfg.Store,
		mode:    cfg.Mode,
		alerter: cfg.Alerter,
		metrics: cfg.Metrics,
	}, nil
}

// Routes configures the HTTP routes.
func (g *Gateway) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", g.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("POST /register", g.instrument("/register", g.handleRegister))
	mux.HandleFunc("POST /login", g.instrument("/login", g.handleLogin))

	mux.HandleFunc("GET /data", g.instrument("/data", g.handleListEvents))
	mux.HandleFunc("POST /esp-data", g.instrument("/esp-data", g.handleIngestEvent))

	mux.HandleFunc("GET /mode", g.instrument("/mode", g.handleGetMode))
	mux.HandleFunc("POST /mode", g.instrument("/mode", g.handleSetMode))

	mux.HandleFunc("POST /token", g.instrument("/token", g.handleRegisterToken))
	mux.HandleFunc("POST /buzzer/on", g.instrument("/buzzer/on", g.handleBuzzer))

	// Greeting (catch-all, must be last)
	mux.HandleFunc("GET /{$}", g.handleRoot)

	return mux
}

// statusRecorder captures the response status code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument wraps a handler with request metrics under the given path label.
func (g *Gateway) instrument(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.metrics == nil {
			next(w, r)
			return
		}

		g.metrics.HTTPRequestsInFlight.WithLabelValues(r.Method, path).Inc()
		defer g.metrics.HTTPRequestsInFlight.WithLabelValues(r.Method, path).Dec()

		timer := prometheus.NewTimer(g.metrics.HTTPRequestDuration.WithLabelValues(r.Method, path))
		defer timer.ObserveDuration()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		g.metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
	}
}

// writeJSON writes a JSON response with the given status code.
func (g *Gateway) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		g.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps a component error to an HTTP status and a JSON body
// with an "error" field. Internal detail is logged, never returned.
func (g *Gateway) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *ValidationError
		conflictErr   *ConflictError
		authErr       *AuthError
		notFoundErr   *NotFoundError
	)

	switch {
	case errors.As(err, &validationErr):
		g.writeJSON(w, http.StatusBadRequest, map[string]string{"error": validationErr.Msg})
	case errors.As(err, &conflictErr):
		g.writeJSON(w, http.StatusBadRequest, map[string]string{"error": conflictErr.Msg})
	case errors.As(err, &authErr):
		g.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": authErr.Msg})
	case errors.As(err, &notFoundErr):
		g.writeJSON(w, http.StatusNotFound, map[string]string{"error": notFoundErr.Msg})
	default:
		g.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		g.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// handleRoot serves the greeting.
func (g *Gateway) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("roomwatch presence monitoring service is running")); err != nil {
		g.logger.Error("failed to write greeting", "error", err)
	}
}

// handleHealth serves the health check endpoint.
func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
		g.logger.Error("failed to write health response", "error", err)
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleRegister creates a new user account.
func (g *Gateway) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeError(w, r, &ValidationError{Msg: "invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, err := g.store.CreateUser(ctx, req.Username, req.Password); err != nil {
		g.writeError(w, r, err)
		return
	}

	g.writeJSON(w, http.StatusCreated, map[string]string{"message": "registration successful"})
}

// handleLogin verifies a credential pair.
func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeError(w, r, &ValidationError{Msg: "invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, err := g.store.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		g.writeError(w, r, err)
		return
	}

	g.writeJSON(w, http.StatusOK, map[string]string{
		"message":  "login successful",
		"username": user.Username,
	})
}

// eventResponse is the JSON shape of one stored event.
type eventResponse struct {
	TagID      string    `json:"tagId"`
	Status     string    `json:"status"`
	ObservedAt time.Time `json:"observedAt"`
}

// handleListEvents returns the most recent events, newest first. The
// limit query parameter is parsed forgivingly: omitted, non-numeric, or
// non-positive values fall back to the default.
func (g *Gateway) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit := DefaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	events, err := g.store.ListRecentEvents(ctx, limit)
	if err != nil {
		g.writeError(w, r, err)
		return
	}

	resp := make([]eventResponse, len(events))
	for i, event := range events {
		resp[i] = eventResponse{
			TagID:      event.TagID,
			Status:     event.Status,
			ObservedAt: event.ObservedAt,
		}
	}

	g.writeJSON(w, http.StatusOK, resp)
}

// handleIngestEvent stores one tag read reported by a device.
func (g *Gateway) handleIngestEvent(w http.ResponseWriter, r *http.Request) {
	var read tagread.TagRead
	if err := json.NewDecoder(r.Body).Decode(&read); err != nil {
		g.writeError(w, r, &ValidationError{Msg: "invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, err := g.store.AppendEvent(ctx, read); err != nil {
		g.writeError(w, r, err)
		return
	}

	g.writeJSON(w, http.StatusCreated, map[string]string{"message": "event stored"})
}

type modeRequest struct {
	InRoom bool `json:"inRoom"`
}

type modeResponse struct {
	InRoom bool `json:"inRoom"`
}

// handleGetMode returns the current presence mode.
func (g *Gateway) handleGetMode(w http.ResponseWriter, _ *http.Request) {
	g.writeJSON(w, http.StatusOK, modeResponse{InRoom: g.mode.Get()})
}

// handleSetMode overwrites the presence mode. Concurrent writers race;
// the last completed write wins. A transition fires a mode-change
// notification.
func (g *Gateway) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeError(w, r, &ValidationError{Msg: "invalid request body"})
		return
	}

	previous := g.mode.Set(req.InRoom)

	if g.metrics != nil {
		g.metrics.ModeChanges.Inc()
	}

	if previous != req.InRoom {
		g.alerter.NotifyModeChange(r.Context(), req.InRoom)
	}

	g.logger.Info("mode updated", "in_room", req.InRoom, "previous", previous)

	g.writeJSON(w, http.StatusOK, modeResponse{InRoom: req.InRoom})
}

type tokenRequest struct {
	Token string `json:"token"`
}

// handleRegisterToken upserts a push-notification token.
func (g *Gateway) handleRegisterToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeError(w, r, &ValidationError{Msg: "invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, err := g.store.RegisterToken(ctx, req.Token); err != nil {
		g.writeError(w, r, err)
		return
	}

	g.writeJSON(w, http.StatusOK, map[string]string{"message": "token saved"})
}

// handleBuzzer fires the buzzer alert. No guard and no debounce: every
// call fires independently.
func (g *Gateway) handleBuzzer(w http.ResponseWriter, r *http.Request) {
	g.alerter.TriggerBuzzer(r.Context())
	g.writeJSON(w, http.StatusOK, map[string]string{"message": "buzzer activated"})
}
