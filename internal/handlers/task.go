package handlers

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"dailytasks/internal/models"
	"dailytasks/internal/taskstore"
)

// maxImportBytes bounds the size of an uploaded import file.
const maxImportBytes = 4 << 20

// ListResponse is the body returned for list requests.
type ListResponse struct {
	Filter models.Filter `json:"filter"`
	Tasks  []models.Task `json:"tasks"`
	Stats  models.Stats  `json:"stats"`
}

// TaskResponse is the body returned after a single-task mutation.
type TaskResponse struct {
	Task  models.Task  `json:"task"`
	Stats models.Stats `json:"stats"`
}

// ListTasks returns the tasks matching the filter query parameter.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	filter, err := models.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, ListResponse{
		Filter: filter,
		Tasks:  h.tasks.Filtered(filter),
		Stats:  h.tasks.Stats(),
	})
}

// GetTask returns a single task.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	task, ok := h.tasks.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "task not found")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// CreateTask adds a new task. Blank text yields 204 No Content.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	task, err := h.tasks.Add(r.Context(), r.FormValue("text"), models.Priority(r.FormValue("priority")))
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	if task == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	respondJSON(w, http.StatusCreated, TaskResponse{Task: *task, Stats: h.tasks.Stats()})
}

// UpdateTask edits the text and priority of an existing task.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	// An omitted priority keeps the current one.
	priority := models.Priority(strings.TrimSpace(r.FormValue("priority")))
	if priority == "" {
		if cur, ok := h.tasks.Get(id); ok {
			priority = cur.Priority
		}
	}

	task, err := h.tasks.Edit(r.Context(), id, r.FormValue("text"), priority)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	if task == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	respondJSON(w, http.StatusOK, TaskResponse{Task: *task, Stats: h.tasks.Stats()})
}

// ToggleTask toggles the completion status of a task.
func (h *Handlers) ToggleTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	task, err := h.tasks.ToggleComplete(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, TaskResponse{Task: *task, Stats: h.tasks.Stats()})
}

// DeleteTask deletes a task.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	removed, err := h.tasks.Delete(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	if !removed {
		respondError(w, http.StatusNotFound, "task not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"deleted": true, "stats": h.tasks.Stats()})
}

// ClearCompleted removes every completed task.
func (h *Handlers) ClearCompleted(w http.ResponseWriter, r *http.Request) {
	n, err := h.tasks.ClearCompleted(r.Context())
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"removed": n, "stats": h.tasks.Stats()})
}

// Stats returns the collection counters.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.tasks.Stats())
}

// Export downloads the collection as tasks.json.
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", taskstore.ExportFilename))
	if err := h.tasks.Export(w); err != nil {
		h.log.Error("export failed", "error", err)
	}
}

// Import replaces the collection with an uploaded file. The payload is
// read from the multipart field "file" or, for other content types, from
// the request body.
func (h *Handlers) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	var src io.Reader = r.Body
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		file, _, err := r.FormFile("file")
		if err != nil {
			respondError(w, http.StatusBadRequest, "missing file upload")
			return
		}
		defer file.Close()
		src = file
	}

	if err := h.tasks.Import(r.Context(), src); err != nil {
		h.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.tasks.Stats())
}
