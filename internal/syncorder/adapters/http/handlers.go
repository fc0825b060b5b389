// Package http exposes the sync admin API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dejobratic/ordersync/internal/syncorder/app/commands"
	"github.com/dejobratic/ordersync/internal/syncorder/app/queries"
	"github.com/dejobratic/ordersync/internal/syncorder/app/runner"
	"github.com/dejobratic/ordersync/internal/syncorder/app/services"
	"github.com/dejobratic/ordersync/internal/syncorder/domain"
)

// ViaAPI is recorded on history rows written through this API.
const ViaAPI = "api"

const defaultHistoryLimit = 10

// SyncService is the subset of the sync facade the API serves.
type SyncService interface {
	QueueOrder(ctx context.Context, orderID int64, via string, info map[string]any) (commands.ActionResult, error)
	GetSyncOrder(ctx context.Context, orderID int64, historyLimit int) (*queries.SyncOrderView, error)
	RequeueStuck(ctx context.Context, in services.RequeueInput) (services.SweepResult, error)
	CleanupHistory(ctx context.Context, in services.RetentionInput) (services.SweepResult, error)
	CleanupAllHistory(ctx context.Context, storeIDs []int64) (services.SweepResult, error)
	RunQueue(ctx context.Context, in runner.RunInput) (runner.RunSummary, error)
}

// Handler exposes HTTP endpoints for sync operations.
type Handler struct {
	service SyncService
	logger  *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(service SyncService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes returns the /v1 routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/sync-orders/{orderID}", h.getSyncOrder)
	r.Post("/sync-orders/{orderID}/queue", h.queueOrder)
	r.Route("/sync", func(r chi.Router) {
		r.Post("/requeue-stuck", h.requeueStuck)
		r.Post("/history/cleanup", h.cleanupHistory)
		r.Post("/run", h.runQueue)
	})
	return r
}

// RouterConfig carries everything mounted next to the /v1 API.
type RouterConfig struct {
	Metrics        *Metrics
	MetricsPath    string
	MetricsHandler http.Handler
	Ready          func(ctx context.Context) error
	Logger         *slog.Logger
}

// NewRouter builds the full admin router: middleware, probes, metrics and /v1.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(WithLogging(logger))
	r.Use(middleware.Recoverer)
	r.Use(WithMetrics(cfg.Metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, cfg.MetricsHandler)
	}

	r.Mount("/v1", h.Routes())
	return r
}

func (h *Handler) getSyncOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("history_limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "history_limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	view, err := h.service.GetSyncOrder(r.Context(), orderID, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type queueRequest struct {
	AdditionalInformation map[string]any `json:"additional_information"`
}

func (h *Handler) queueOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var payload queueRequest
	if !decodeOptionalJSON(w, r, &payload) {
		return
	}

	result, err := h.service.QueueOrder(r.Context(), orderID, ViaAPI, payload.AdditionalInformation)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	status := http.StatusAccepted
	if !result.Success {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

type requeueRequest struct {
	StoreIDs         []int64 `json:"store_ids"`
	ThresholdMinutes *int    `json:"threshold_minutes"`
}

func (h *Handler) requeueStuck(w http.ResponseWriter, r *http.Request) {
	var payload requeueRequest
	if !decodeOptionalJSON(w, r, &payload) {
		return
	}

	result, err := h.service.RequeueStuck(r.Context(), services.RequeueInput{
		StoreIDs:         payload.StoreIDs,
		ThresholdMinutes: payload.ThresholdMinutes,
		Via:              ViaAPI,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type cleanupRequest struct {
	Status        string  `json:"status"`
	StoreIDs      []int64 `json:"store_ids"`
	ThresholdDays *int    `json:"threshold_days"`
}

func (h *Handler) cleanupHistory(w http.ResponseWriter, r *http.Request) {
	var payload cleanupRequest
	if !decodeOptionalJSON(w, r, &payload) {
		return
	}

	var (
		result services.SweepResult
		err    error
	)
	if payload.Status == "" {
		if payload.ThresholdDays != nil {
			writeError(w, http.StatusBadRequest, "threshold_days requires status")
			return
		}
		result, err = h.service.CleanupAllHistory(r.Context(), payload.StoreIDs)
	} else {
		status, parseErr := domain.ParseKnownStatus(payload.Status)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, parseErr.Error())
			return
		}
		result, err = h.service.CleanupHistory(r.Context(), services.RetentionInput{
			SyncStatus:    status,
			StoreIDs:      payload.StoreIDs,
			ThresholdDays: payload.ThresholdDays,
		})
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type runRequest struct {
	StoreIDs []int64 `json:"store_ids"`
	PageSize int     `json:"page_size"`
}

func (h *Handler) runQueue(w http.ResponseWriter, r *http.Request) {
	var payload runRequest
	if !decodeOptionalJSON(w, r, &payload) {
		return
	}
	if payload.PageSize < 0 {
		writeError(w, http.StatusBadRequest, "page_size must not be negative")
		return
	}

	summary, err := h.service.RunQueue(r.Context(), runner.RunInput{
		StoreIDs: payload.StoreIDs,
		PageSize: payload.PageSize,
		Via:      ViaAPI,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrInvalidSearchCriteria),
		errors.Is(err, domain.ErrOrderInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "request canceled")
	default:
		h.logger.ErrorContext(r.Context(), "admin request failed",
			slog.String("route", routePattern(r)),
			slog.Any("error", err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func orderIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "orderID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid order id %q", raw))
		return 0, false
	}
	return id, true
}

// decodeOptionalJSON accepts an empty body as the zero value.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
