// Package tbhttp exposes trial balance ticket endpoints.
package tbhttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/glengine/internal/export"
	"github.com/odyssey-erp/glengine/internal/platform/httpx"
	"github.com/odyssey-erp/glengine/internal/progress"
	"github.com/odyssey-erp/glengine/internal/tbreport"
	"github.com/odyssey-erp/glengine/jobs"
)

// Enqueuer submits build tasks. *jobs.Client satisfies it.
type Enqueuer interface {
	EnqueueTrialBalance(ctx context.Context, payload jobs.TrialBalancePayload) (*asynq.TaskInfo, error)
}

// StatusStore reads and seeds ticket state. *progress.Store satisfies it.
type StatusStore interface {
	Set(ctx context.Context, ticket string, status progress.Status, percent int, message string) error
	Finish(ctx context.Context, ticket string, status progress.Status, message, result string) error
	Get(ctx context.Context, ticket string) (progress.Record, error)
}

// Handler serves the enqueue and polling endpoints.
type Handler struct {
	queue     Enqueuer
	status    StatusStore
	validator *validator.Validate
	logger    *slog.Logger
	basePath  string
	newTicket func() string
}

// DefaultBasePath is where the router mounts the handler.
const DefaultBasePath = "/reports/trial-balance"

// NewHandler constructs the HTTP handler.
func NewHandler(queue Enqueuer, status StatusStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		queue:     queue,
		status:    status,
		validator: validator.New(),
		logger:    logger.With(slog.String("component", "tbhttp")),
		basePath:  DefaultBasePath,
		newTicket: uuid.NewString,
	}
}

// WithBasePath changes the prefix used in returned URLs.
func (h *Handler) WithBasePath(path string) *Handler {
	h.basePath = path
	return h
}

// MountRoutes attaches the routes under the caller's prefix.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/{ticket}", h.show)
	r.Get("/{ticket}/download", h.download)
}

type createResponse struct {
	Ticket    string `json:"ticket"`
	StatusURL string `json:"status_url"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req tbreport.Request
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := req.Validate(h.validator); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrValidation, err))
		return
	}

	ticket := h.newTicket()
	ctx := r.Context()
	if err := h.status.Set(ctx, ticket, progress.StatusQueued, 0, "queued"); err != nil {
		h.logger.Error("seed ticket status", slog.String("ticket", ticket), slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: status store", httpx.ErrUnavailable))
		return
	}
	if _, err := h.queue.EnqueueTrialBalance(ctx, req.Payload(ticket)); err != nil {
		h.logger.Error("enqueue trial balance", slog.String("ticket", ticket), slog.Any("error", err))
		_ = h.status.Finish(context.WithoutCancel(ctx), ticket, progress.StatusFailed, "could not be queued", "")
		httpx.RespondError(w, fmt.Errorf("%w: queue", httpx.ErrUnavailable))
		return
	}
	h.logger.Info("trial balance queued",
		slog.String("ticket", ticket),
		slog.Int64("company_id", req.CompanyID),
		slog.String("requested_by", req.RequestedBy))
	w.Header().Set("Location", h.statusURL(ticket))
	httpx.JSON(w, http.StatusAccepted, createResponse{Ticket: ticket, StatusURL: h.statusURL(ticket)})
}

type statusResponse struct {
	progress.Record
	DownloadURL string `json:"download_url,omitempty"`
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.load(w, r)
	if !ok {
		return
	}
	resp := statusResponse{Record: rec}
	// Callers get a URL, never the worker's file system path.
	resp.Result = ""
	if rec.Status == progress.StatusDone {
		resp.DownloadURL = h.statusURL(rec.Ticket) + "/download"
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.load(w, r)
	if !ok {
		return
	}
	if rec.Status != progress.StatusDone || rec.Result == "" {
		httpx.RespondError(w, fmt.Errorf("%w: ticket %s is %s", httpx.ErrConflict, rec.Ticket, rec.Status))
		return
	}
	f, err := os.Open(rec.Result)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			httpx.RespondError(w, fmt.Errorf("%w: report file expired", httpx.ErrNotFound))
			return
		}
		h.logger.Error("open report", slog.String("ticket", rec.Ticket), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	name := filepath.Base(rec.Result)
	format, _ := export.ParseFormat(strings.TrimPrefix(filepath.Ext(name), "."))
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=trial-balance-%s", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (progress.Record, bool) {
	ticket := chi.URLParam(r, "ticket")
	if !tbreport.ValidTicket(ticket) {
		httpx.RespondError(w, fmt.Errorf("%w: ticket %q", httpx.ErrNotFound, ticket))
		return progress.Record{}, false
	}
	rec, err := h.status.Get(r.Context(), ticket)
	if err != nil {
		if errors.Is(err, progress.ErrNotFound) {
			httpx.RespondError(w, fmt.Errorf("%w: ticket %s", httpx.ErrNotFound, ticket))
			return progress.Record{}, false
		}
		h.logger.Error("load ticket status", slog.String("ticket", ticket), slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: status store", httpx.ErrUnavailable))
		return progress.Record{}, false
	}
	return rec, true
}

func (h *Handler) statusURL(ticket string) string {
	return strings.TrimRight(h.basePath, "/") + "/" + ticket
}
