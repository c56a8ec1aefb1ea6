// Package taskstore owns the task collection: every read and write of the
// list goes through a TaskStore, which persists the whole collection to a
// key-value slot after each mutation.
package taskstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"dailytasks/internal/models"
	"dailytasks/internal/store"
)

// Key is the slot key holding the serialized collection.
const Key = "tasks"

// ExportFilename is the suggested name for exported collections.
const ExportFilename = "tasks.json"

// TaskStore is the single authority over an ordered, newest-first task
// collection. It is safe for concurrent use; each operation is atomic.
type TaskStore struct {
	mu     sync.Mutex
	slot   store.Store
	tasks  []models.Task
	lastID int64
	now    func() time.Time
	log    *slog.Logger

	discardCorrupt bool
}

// Option configures a TaskStore.
type Option func(*TaskStore)

// WithClock replaces time.Now as the source of ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *TaskStore) { s.now = now }
}

// WithDiscardCorrupt makes Open start from an empty collection when the
// persisted value cannot be decoded, instead of failing. The slot is left
// as is until the next successful mutation overwrites it.
func WithDiscardCorrupt() Option {
	return func(s *TaskStore) { s.discardCorrupt = true }
}

// WithLogger sets the logger used for storage and import events.
func WithLogger(l *slog.Logger) Option {
	return func(s *TaskStore) { s.log = l }
}

// Open loads the collection persisted in slot. A slot that has never been
// written yields an empty collection.
func Open(ctx context.Context, slot store.Store, opts ...Option) (*TaskStore, error) {
	s := &TaskStore{
		slot:  slot,
		tasks: []models.Task{},
		now:   time.Now,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	raw, ok, err := slot.Get(ctx, Key)
	if err != nil {
		return nil, fmt.Errorf("failed to read persisted tasks: %w", err)
	}
	if !ok || isEmptyPayload(raw) {
		return s, nil
	}

	tasks, err := decode(raw)
	if err != nil {
		if s.discardCorrupt {
			s.log.Warn("ignoring unreadable persisted tasks", "error", err)
			return s, nil
		}
		return nil, fmt.Errorf("persisted tasks are unreadable: %w", err)
	}
	s.tasks = tasks
	s.lastID = maxID(tasks)

	return s, nil
}

// Add creates a task at the front of the collection. Blank text is ignored:
// Add returns a nil task and a nil error. Unknown priorities become medium.
func (s *TaskStore) Add(ctx context.Context, text string, priority models.Priority) (*models.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, prevLast := s.tasks, s.lastID
	id, err := s.nextID()
	if err != nil {
		return nil, err
	}
	task := models.Task{
		ID:        id,
		Text:      text,
		Priority:  models.ParsePriority(string(priority)),
		CreatedAt: s.timestamp(),
	}
	s.tasks = slices.Insert(slices.Clone(s.tasks), 0, task)

	if err := s.commit(ctx, "add", prev, prevLast); err != nil {
		return nil, err
	}
	return &task, nil
}

// Edit replaces the text and priority of the task with the given id. Blank
// text is ignored (nil task, nil error). Identity, creation time and
// completion state are preserved.
func (s *TaskStore) Edit(ctx context.Context, id int64, text string, priority models.Priority) (*models.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("edit %d: %w", id, ErrNotFound)
	}

	prev := s.tasks
	s.tasks = slices.Clone(s.tasks)
	s.tasks[i].Text = text
	s.tasks[i].Priority = models.ParsePriority(string(priority))

	if err := s.commit(ctx, "edit", prev, s.lastID); err != nil {
		return nil, err
	}
	task := s.tasks[i]
	return &task, nil
}

// ToggleComplete flips the completion state of a task, stamping or clearing
// CompletedAt accordingly.
func (s *TaskStore) ToggleComplete(ctx context.Context, id int64) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("toggle %d: %w", id, ErrNotFound)
	}

	prev := s.tasks
	s.tasks = slices.Clone(s.tasks)
	t := &s.tasks[i]
	t.Completed = !t.Completed
	if t.Completed {
		at := s.timestamp()
		t.CompletedAt = &at
	} else {
		t.CompletedAt = nil
	}

	if err := s.commit(ctx, "toggle", prev, s.lastID); err != nil {
		return nil, err
	}
	task := *t
	return &task, nil
}

// Delete removes the task with the given id and reports whether one was
// removed.
func (s *TaskStore) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}

	prev := s.tasks
	s.tasks = slices.Delete(slices.Clone(s.tasks), i, i+1)

	if err := s.commit(ctx, "delete", prev, s.lastID); err != nil {
		return false, err
	}
	return true, nil
}

// ClearCompleted removes every completed task and returns how many were
// removed.
func (s *TaskStore) ClearCompleted(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.tasks
	kept := slices.DeleteFunc(slices.Clone(s.tasks), func(t models.Task) bool { return t.Completed })
	removed := len(prev) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	s.tasks = kept

	if err := s.commit(ctx, "clear completed", prev, s.lastID); err != nil {
		return 0, err
	}
	return removed, nil
}

// Load replaces the whole collection with the tasks encoded in raw. On any
// error the collection is unchanged.
func (s *TaskStore) Load(ctx context.Context, raw string) error {
	if isEmptyPayload(raw) {
		return &ImportError{Index: -1, Err: fmt.Errorf("payload is empty or null, expected a JSON array")}
	}
	tasks, err := decode(raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, prevLast := s.tasks, s.lastID
	s.tasks = tasks
	s.lastID = max(s.lastID, maxID(tasks))

	if err := s.commit(ctx, "import", prev, prevLast); err != nil {
		return err
	}
	s.log.Info("tasks imported", "count", len(tasks))
	return nil
}

// Import reads a payload from r and loads it.
func (s *TaskStore) Import(ctx context.Context, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return &ImportError{Index: -1, Err: fmt.Errorf("failed to read payload: %w", err)}
	}
	return s.Load(ctx, string(data))
}

// Tasks returns a copy of the whole collection in display order.
func (s *TaskStore) Tasks() []models.Task {
	return s.Filtered(models.FilterAll)
}

// Filtered returns the tasks matching f, preserving collection order.
func (s *TaskStore) Filtered(f models.Filter) []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// Get returns the task with the given id.
func (s *TaskStore) Get(id int64) (models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 {
		return s.tasks[i], true
	}
	return models.Task{}, false
}

// Stats counts the collection.
func (s *TaskStore) Stats() models.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := models.Stats{Total: len(s.tasks)}
	for _, t := range s.tasks {
		if t.Completed {
			st.Completed++
		}
	}
	st.Pending = st.Total - st.Completed
	return st
}

// Serialize renders the collection in the pretty-printed export format.
func (s *TaskStore) Serialize() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := encode(s.tasks, true)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Export writes the serialized collection to w.
func (s *TaskStore) Export(w io.Writer) error {
	out, err := s.Serialize()
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// commit persists the current collection, restoring prev and prevLast when
// the write fails. Callers hold s.mu.
func (s *TaskStore) commit(ctx context.Context, op string, prev []models.Task, prevLast int64) error {
	if err := s.persist(ctx); err != nil {
		s.tasks, s.lastID = prev, prevLast
		s.log.Warn("persist failed, rolled back", "op", op, "error", err)
		return &StorageError{Op: op, Err: err}
	}
	return nil
}

func (s *TaskStore) persist(ctx context.Context) error {
	data, err := encode(s.tasks, false)
	if err != nil {
		return err
	}
	return s.slot.Set(ctx, Key, string(data))
}

// nextID returns an id greater than every id ever seen by this store,
// tracking the clock in milliseconds while it moves forward.
// It fails rather than exceed models.MaxID.
func (s *TaskStore) nextID() (int64, error) {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		if s.lastID >= models.MaxID {
			return 0, ErrIDsExhausted
		}
		id = s.lastID + 1
	}
	if id > models.MaxID {
		return 0, ErrIDsExhausted
	}
	s.lastID = id
	return id, nil
}

func (s *TaskStore) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *TaskStore) indexOf(id int64) int {
	return slices.IndexFunc(s.tasks, func(t models.Task) bool { return t.ID == id })
}

func maxID(tasks []models.Task) int64 {
	var m int64
	for _, t := range tasks {
		m = max(m, t.ID)
	}
	return m
}
