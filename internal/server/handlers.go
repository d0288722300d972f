package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/audiobook-skill/internal/voice"
)

// maxBodyBytes bounds a request envelope.
const maxBodyBytes = 1 << 20

// EventHandler answers a classified platform event.
type EventHandler interface {
	Handle(ctx context.Context, ev voice.Event) (voice.Response, error)
}

// Limiter decides whether a keyed request may proceed.
type Limiter interface {
	Allow(key string) bool
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	events        EventHandler
	validator     *validator.Validate
	logger        *slog.Logger
	applicationID string
	limiter       Limiter
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithApplicationID rejects envelopes addressed to any other skill.
// An empty id accepts every envelope.
func WithApplicationID(appID string) HandlerOption {
	return func(h *Handlers) {
		h.applicationID = appID
	}
}

// WithRateLimiter limits requests per device.
func WithRateLimiter(l Limiter) HandlerOption {
	return func(h *Handlers) {
		h.limiter = l
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(events EventHandler, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		events:    events,
		validator: validator.New(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Skill handles POST /skill requests.
func (h *Handlers) Skill(w http.ResponseWriter, r *http.Request) {
	var env voice.RequestEnvelope
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&env); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("request_id", RequestID(r.Context())),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", CodeInvalidJSON)
		return
	}

	// Validate request
	if err := h.validator.Struct(env); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("request_id", RequestID(r.Context())),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), CodeValidation)
		return
	}

	ev := voice.ParseEvent(&env)

	if h.applicationID != "" && ev.ApplicationID != h.applicationID {
		h.logger.Warn("request for another application",
			slog.String("request_id", RequestID(r.Context())),
			slog.String("application_id", ev.ApplicationID),
		)
		writeError(w, http.StatusForbidden, "application not allowed", CodeForbiddenApplication)
		return
	}

	if h.limiter != nil && !h.limiter.Allow(ev.DeviceID) {
		h.logger.Warn("rate limited",
			slog.String("request_id", RequestID(r.Context())),
			slog.String("device_id", ev.DeviceID),
		)
		writeError(w, http.StatusTooManyRequests, "too many requests", CodeRateLimited)
		return
	}

	resp, err := h.events.Handle(r.Context(), ev)
	if err != nil {
		h.logger.Error("failed to handle event",
			slog.String("request_id", RequestID(r.Context())),
			slog.String("type", ev.RequestType),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), CodeInvalidEvent)
		return
	}

	h.logger.Debug("event handled",
		slog.String("request_id", RequestID(r.Context())),
		slog.String("type", ev.RequestType),
		slog.String("intent", ev.IntentName),
	)
	writeJSON(w, http.StatusOK, resp.Envelope())
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
