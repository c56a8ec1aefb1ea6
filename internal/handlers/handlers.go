package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"dailytasks/internal/models"
	"dailytasks/internal/taskstore"
)

// TaskService is the subset of *taskstore.TaskStore the handlers use.
type TaskService interface {
	Add(ctx context.Context, text string, priority models.Priority) (*models.Task, error)
	Edit(ctx context.Context, id int64, text string, priority models.Priority) (*models.Task, error)
	ToggleComplete(ctx context.Context, id int64) (*models.Task, error)
	Delete(ctx context.Context, id int64) (bool, error)
	ClearCompleted(ctx context.Context) (int, error)
	Import(ctx context.Context, r io.Reader) error
	Filtered(f models.Filter) []models.Task
	Get(id int64) (models.Task, bool)
	Stats() models.Stats
	Export(w io.Writer) error
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	tasks TaskService
	log   *slog.Logger
}

// New creates a new Handlers instance.
func New(tasks TaskService, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		tasks: tasks,
		log:   logger,
	}
}

// parseID extracts and parses an integer ID from URL parameters.
func parseID(r *http.Request, param string) (int64, error) {
	idStr := chi.URLParam(r, param)
	return strconv.ParseInt(idStr, 10, 64)
}

type errorBody struct {
	Error string `json:"error"`
}

// respondError sends a JSON error response.
func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, errorBody{Error: message})
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// respondStoreError maps taskstore errors onto status codes.
func (h *Handlers) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, taskstore.ErrNotFound):
		respondError(w, http.StatusNotFound, "task not found")
	case errors.Is(err, taskstore.ErrImport):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, taskstore.ErrStorage):
		h.log.Error("storage error", "error", err)
		respondError(w, http.StatusInsufficientStorage, "failed to save tasks")
	default:
		h.log.Error("internal server error", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
