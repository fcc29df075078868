package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	platformerrors "github.com/jmgilman/go/errors"
	"go.uber.org/zap"

	"github.com/eugenenazirov/box-estimator/internal/estimator"
	"github.com/eugenenazirov/box-estimator/internal/logging"
	"github.com/eugenenazirov/box-estimator/internal/packing"
)

const (
	maxRequestBytes = 1 << 20

	// SourceHeader reports whether a decision came from the cache, the
	// packing service or the local fallback.
	SourceHeader = "X-Pack-Source"
)

// Estimator is the packing pipeline behind the HTTP handlers.
type Estimator interface {
	Estimate(ctx context.Context, items []packing.Item) (estimator.Result, error)
	Boxes(ctx context.Context) ([]packing.Box, error)
}

// Handler wires the estimator into HTTP handlers.
type Handler struct {
	estimator Estimator
	logger    *zap.Logger

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithHandlerLogger sets the logger used for server-side failures.
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(est Estimator, opts ...HandlerOption) *Handler {
	h := &Handler{
		estimator: est,
		logger:    zap.NewNop(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListBoxes(w http.ResponseWriter, r *http.Request) {
	boxes, err := h.estimator.Boxes(r.Context())
	if err != nil {
		h.writeEstimateError(w, r, err)
		return
	}

	resp := boxesResponse{Boxes: make([]boxResponse, len(boxes))}
	for i, b := range boxes {
		resp.Boxes[i] = boxResponse{
			ID:        b.ID,
			Width:     b.Width,
			Height:    b.Height,
			Length:    b.Length,
			MaxWeight: b.MaxWeight,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePack(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body is too large")
			return
		}
		logging.For(r.Context(), h.logger).Debug("request body unreadable", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Unable to read full body contents of the request")
		return
	}

	items, err := decodePackRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, messageOf(err))
		return
	}

	result, err := h.estimator.Estimate(r.Context(), items)
	if err != nil {
		h.writeEstimateError(w, r, err)
		return
	}

	w.Header().Set(SourceHeader, string(result.Source))
	writeJSON(w, http.StatusOK, packResponse{BoxID: result.Decision})
}

func (h *Handler) writeEstimateError(w http.ResponseWriter, r *http.Request, err error) {
	switch platformerrors.GetCode(err) {
	case platformerrors.CodeInvalidInput:
		writeError(w, http.StatusBadRequest, messageOf(err))
	case platformerrors.CodeUnavailable:
		logging.For(r.Context(), h.logger).Error("catalog unavailable", zap.Error(err))
		writeError(w, http.StatusInternalServerError, messageOf(err))
	default:
		writeInternalError(w, h.logger, r, err)
	}
}

// messageOf returns the human-readable part of a platform error without its
// cause chain.
func messageOf(err error) string {
	var perr platformerrors.PlatformError
	if errors.As(err, &perr) {
		return perr.Message()
	}
	return "Invalid request"
}

type packResponse struct {
	BoxID packing.Decision `json:"box_id"`
}

type boxesResponse struct {
	Boxes []boxResponse `json:"boxes"`
}

type boxResponse struct {
	ID        int64   `json:"id"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Length    float64 `json:"length"`
	MaxWeight float64 `json:"max_weight"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

// writeInternalError logs err and answers with a generic message; internal
// details never reach the client.
func writeInternalError(w http.ResponseWriter, logger *zap.Logger, r *http.Request, err error) {
	logging.For(r.Context(), logger).Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Internal error")
}
