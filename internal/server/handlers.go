package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/soundsync/internal/models"
	"github.com/desertthunder/soundsync/internal/shared"
	"github.com/desertthunder/soundsync/internal/tasks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// UserFinder resolves the user named in a sync request.
type UserFinder interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// Dispatcher is the part of [tasks.Dispatcher] the handlers trigger.
type Dispatcher interface {
	tasks.BatchRunner
	TriggerSync(user *models.User, sourceURL string) error
	Pending() int
}

// SyncResponse is the body returned by the sync endpoints.
type SyncResponse struct {
	Status   string `json:"status"`
	Username string `json:"username,omitempty"`
	Message  string `json:"message,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// HealthHandler reports liveness and the number of pending triggered jobs.
type HealthHandler struct {
	dispatcher Dispatcher
}

// NewHealthHandler creates a [HealthHandler].
func NewHealthHandler(d Dispatcher) *HealthHandler {
	return &HealthHandler{dispatcher: d}
}

func (h *HealthHandler) Routes() []string { return []string{"/health"} }

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"pending": h.dispatcher.Pending(),
	})
}

// MetricsHandler serves the Prometheus exposition for gatherer.
func MetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SyncHandler triggers syncs for one user or for every user with a source URL.
//
// Both routes answer as soon as work is accepted. A batch runs in the background on the
// handler's base context; only one batch may run at a time.
type SyncHandler struct {
	users      UserFinder
	dispatcher Dispatcher
	logger     *log.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	running atomic.Bool
	wg      sync.WaitGroup
}

// NewSyncHandler creates a [SyncHandler]. Background batches run on a child of base and are
// cancelled when base ends or [SyncHandler.Wait] times out.
func NewSyncHandler(base context.Context, users UserFinder, d Dispatcher, logger *log.Logger) *SyncHandler {
	h := &SyncHandler{users: users, dispatcher: d, logger: logger}
	h.ctx, h.cancel = context.WithCancel(base)
	return h
}

func (h *SyncHandler) Routes() []string {
	return []string{"/api/sync", "/api/users/{username}/sync"}
}

func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if username := r.PathValue("username"); username != "" {
		h.syncUser(w, r, username)
		return
	}
	h.syncAll(w)
}

func (h *SyncHandler) syncUser(w http.ResponseWriter, r *http.Request, username string) {
	user, err := h.users.GetByUsername(r.Context(), username)
	if errors.Is(err, shared.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to look up user", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to look up user")
		return
	}

	if !user.Eligible() {
		_ = h.dispatcher.TriggerSync(user, "")
		writeJSON(w, http.StatusOK, SyncResponse{Status: "skipped", Username: username, Message: "source URL not set"})
		return
	}

	switch err := h.dispatcher.TriggerSync(user, user.SourceURL()); {
	case err == nil:
		writeJSON(w, http.StatusAccepted, SyncResponse{Status: "queued", Username: username})
	case errors.Is(err, shared.ErrJobInFlight):
		writeJSON(w, http.StatusConflict, SyncResponse{Status: "busy", Username: username, Message: err.Error()})
	case errors.Is(err, shared.ErrQueueFull), errors.Is(err, shared.ErrQueueClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("failed to trigger sync", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to trigger sync")
	}
}

func (h *SyncHandler) syncAll(w http.ResponseWriter) {
	if !h.running.CompareAndSwap(false, true) {
		writeJSON(w, http.StatusConflict, SyncResponse{Status: "busy", Message: "a batch is already running"})
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer h.running.Store(false)

		res, err := h.dispatcher.RunScheduledSync(h.ctx)
		if err != nil {
			h.logger.Error("triggered batch failed", "error", err)
			return
		}
		h.logger.Info("triggered batch done", "users", res.Total, "succeeded", res.Succeeded, "failed", res.Failed)
	}()

	writeJSON(w, http.StatusAccepted, SyncResponse{Status: "started"})
}

// Wait blocks until a background batch started by this handler has returned. When ctx ends
// first the batch is cancelled and Wait returns once it has unwound.
func (h *SyncHandler) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		h.cancel()
		<-done
	}
	h.cancel()
}
