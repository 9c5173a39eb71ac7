package task

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dkotenko/taskflow/internal/eventbus"
	"github.com/dkotenko/taskflow/pkg/cerr"
	"github.com/dkotenko/taskflow/pkg/storage"
)

// saveGracePeriod keeps the self-save flag raised briefly after a write so
// the watcher does not reload the registry's own output.
const saveGracePeriod = 100 * time.Millisecond

// Renderer turns the collection into the readable markdown view.
type Renderer func(tasks []*Task) string

// Registry owns the in-memory task collection. Every mutation goes through
// it; it persists to the structured store, regenerates the markdown view and
// publishes change events.
type Registry struct {
	mu           sync.RWMutex
	tasks        map[string]*Task
	store        Store
	storage      storage.Storage
	bus          *eventbus.Bus
	render       Renderer
	markdownName string
	stateName    string
	autoSave     bool

	saving  atomic.Bool
	watcher io.Closer
	stopCh  chan struct{}
}

type Options struct {
	MarkdownName string
	StateName    string
	AutoSave     bool
}

func NewRegistry(st storage.Storage, store Store, bus *eventbus.Bus, render Renderer, opts Options) *Registry {
	return &Registry{
		tasks:        make(map[string]*Task),
		store:        store,
		storage:      st,
		bus:          bus,
		render:       render,
		markdownName: opts.MarkdownName,
		stateName:    opts.StateName,
		autoSave:     opts.AutoSave,
		stopCh:       make(chan struct{}),
	}
}

// Initialize loads persisted state and starts watching the state file for
// external edits. A missing or broken state file means an empty collection.
func (r *Registry) Initialize(ctx context.Context) error {
	tasks, err := r.store.Load(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	for _, t := range tasks {
		r.tasks[t.ID] = t
	}
	if len(r.tasks) > 0 {
		r.writeMarkdownLocked(ctx)
	}
	r.mu.Unlock()

	if err := r.startWatcher(); err != nil {
		slog.WarnContext(ctx, "state file watcher unavailable", "error", err)
	}
	return nil
}

// Close stops the watcher. The event bus is owned by the caller.
func (r *Registry) Close() {
	close(r.stopCh)
	if r.watcher != nil {
		_ = r.watcher.Close()
	}
}

// Draft carries the caller-supplied fields of a new task.
type Draft struct {
	Title             string
	Description       string
	Priority          Priority
	Category          string
	Tag               string
	DueDate           *time.Time
	Assignee          string
	SubTasks          []SubTask
	InstructionID     string
	ExecutionDuration int
}

func (r *Registry) Add(ctx context.Context, draft Draft) (*Task, error) {
	if err := ValidateTitle(draft.Title); err != nil {
		return nil, err
	}
	if err := ValidateTag(draft.Tag); err != nil {
		return nil, err
	}
	if err := ValidateExecutionDuration(draft.ExecutionDuration); err != nil {
		return nil, err
	}
	priority := draft.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	now := time.Now()
	t := &Task{
		ID:                ulid.Make().String(),
		Title:             strings.TrimSpace(draft.Title),
		Description:       draft.Description,
		Status:            StatusPending,
		Priority:          priority,
		Category:          strings.TrimSpace(draft.Category),
		Tag:               strings.TrimSpace(draft.Tag),
		DueDate:           draft.DueDate,
		Assignee:          draft.Assignee,
		SubTasks:          draft.SubTasks,
		InstructionID:     draft.InstructionID,
		ExecutionDuration: draft.ExecutionDuration,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for i := range t.SubTasks {
		if t.SubTasks[i].ID == "" {
			t.SubTasks[i].ID = ulid.Make().String()
		}
	}

	r.mu.Lock()
	r.tasks[t.ID] = t
	err := r.persistLocked(ctx)
	clone := t.Clone()
	r.mu.Unlock()

	r.bus.PublishNew(eventbus.TypeTaskCreated, t.ID)
	return clone, err
}

// Updates holds the optional fields of an update; nil pointers leave the
// current value untouched. ClearDueDate removes the due date.
type Updates struct {
	Title             *string
	Description       *string
	Status            *Status
	Priority          *Priority
	Category          *string
	Tag               *string
	DueDate           *time.Time
	ClearDueDate      bool
	Assignee          *string
	SubTasks          *[]SubTask
	InstructionID     *string
	ExecutionDuration *int
	Result            *string
}

func (r *Registry) Update(ctx context.Context, id string, up Updates) (*Task, error) {
	if up.Title != nil {
		if err := ValidateTitle(*up.Title); err != nil {
			return nil, err
		}
	}
	if up.Tag != nil {
		if err := ValidateTag(*up.Tag); err != nil {
			return nil, err
		}
	}
	if up.ExecutionDuration != nil {
		if err := ValidateExecutionDuration(*up.ExecutionDuration); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	t, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return nil, cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	applyUpdates(t, up)
	t.UpdatedAt = time.Now()
	err := r.persistLocked(ctx)
	clone := t.Clone()
	r.mu.Unlock()

	r.bus.PublishNew(eventbus.TypeTaskUpdated, id)
	return clone, err
}

func applyUpdates(t *Task, up Updates) {
	if up.Title != nil {
		t.Title = strings.TrimSpace(*up.Title)
	}
	if up.Description != nil {
		t.Description = *up.Description
	}
	if up.Status != nil {
		t.Status = *up.Status
	}
	if up.Priority != nil {
		t.Priority = *up.Priority
	}
	if up.Category != nil {
		t.Category = strings.TrimSpace(*up.Category)
	}
	if up.Tag != nil {
		t.Tag = strings.TrimSpace(*up.Tag)
	}
	if up.DueDate != nil {
		d := *up.DueDate
		t.DueDate = &d
	}
	if up.ClearDueDate {
		t.DueDate = nil
	}
	if up.Assignee != nil {
		t.Assignee = *up.Assignee
	}
	if up.SubTasks != nil {
		t.SubTasks = *up.SubTasks
		for i := range t.SubTasks {
			if t.SubTasks[i].ID == "" {
				t.SubTasks[i].ID = ulid.Make().String()
			}
		}
	}
	if up.InstructionID != nil {
		t.InstructionID = *up.InstructionID
	}
	if up.ExecutionDuration != nil {
		t.ExecutionDuration = *up.ExecutionDuration
	}
	if up.Result != nil {
		t.Result = *up.Result
	}
}

func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	if t.Queued() {
		r.shiftDownAfterLocked(*t.QueuePosition)
	}
	delete(r.tasks, id)
	err := r.persistLocked(ctx)
	r.mu.Unlock()

	r.bus.PublishNew(eventbus.TypeTaskDeleted, id)
	return err
}

// Toggle flips a task between completed and pending. Any non-completed
// status toggles to completed.
func (r *Registry) Toggle(ctx context.Context, id string) (*Task, error) {
	t, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	next := StatusCompleted
	if t.Status == StatusCompleted {
		next = StatusPending
	}
	return r.Update(ctx, id, Updates{Status: &next})
}

func (r *Registry) Get(id string) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	return t.Clone(), nil
}

// List returns the collection in creation order.
func (r *Registry) List() []*Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneAll(r.listLocked())
}

func (r *Registry) listLocked() []*Task {
	tasks := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks
}

func cloneAll(tasks []*Task) []*Task {
	clones := make([]*Task, len(tasks))
	for i, t := range tasks {
		clones[i] = t.Clone()
	}
	return clones
}

func (r *Registry) filter(keep func(*Task) bool) []*Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Task
	for _, t := range r.listLocked() {
		if keep(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}

func (r *Registry) ByCategory(category string) []*Task {
	return r.filter(func(t *Task) bool { return t.Category == category })
}

func (r *Registry) ByPriority(p Priority) []*Task {
	return r.filter(func(t *Task) bool { return t.Priority == p })
}

func (r *Registry) ByStatus(s Status) []*Task {
	return r.filter(func(t *Task) bool { return t.Status == s })
}

func (r *Registry) Overdue() []*Task {
	now := time.Now()
	return r.filter(func(t *Task) bool { return t.IsOverdue(now) })
}

// Categories returns the distinct non-empty categories, sorted.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, t := range r.tasks {
		if t.Category != "" {
			seen[t.Category] = struct{}{}
		}
	}
	categories := make([]string, 0, len(seen))
	for c := range seen {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories
}

// Progress summarizes the whole collection. An empty collection reports
// zero percent.
func (r *Registry) Progress() ProgressStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := ProgressStats{Total: len(r.tasks)}
	for _, t := range r.tasks {
		if t.Status == StatusCompleted {
			stats.Completed++
		}
	}
	stats.Pending = stats.Total - stats.Completed
	if stats.Total > 0 {
		stats.Percentage = roundPercent(stats.Completed, stats.Total)
	}
	return stats
}

// TaskProgress summarizes one task's subtasks. Without subtasks the task
// counts as all-or-nothing on its own status.
func TaskProgress(t *Task) ProgressStats {
	if len(t.SubTasks) == 0 {
		stats := ProgressStats{}
		if t.Status == StatusCompleted {
			stats.Percentage = 100
		}
		return stats
	}
	stats := ProgressStats{Total: len(t.SubTasks)}
	for _, st := range t.SubTasks {
		if st.Completed {
			stats.Completed++
		}
	}
	stats.Pending = stats.Total - stats.Completed
	stats.Percentage = roundPercent(stats.Completed, stats.Total)
	return stats
}

func roundPercent(part, total int) int {
	return int(math.Round(float64(part) / float64(total) * 100))
}

// Import inserts externally produced tasks, keeping their identifiers.
// Tasks whose id already exists are skipped. Incoming queue positions are
// treated as relative order only: the newcomers line up after the already
// queued tasks and the whole queue is reflowed to stay contiguous. One
// persist covers the batch.
func (r *Registry) Import(ctx context.Context, incoming []*Task) (int, error) {
	now := time.Now()
	r.mu.Lock()
	base := r.maxQueuePositionLocked()
	var queuedImports []*Task
	added := 0
	for _, t := range incoming {
		if t.ID == "" {
			t.ID = ulid.Make().String()
		}
		if _, exists := r.tasks[t.ID]; exists {
			continue
		}
		if err := ValidateTag(t.Tag); err != nil {
			slog.WarnContext(ctx, "skipping imported task with invalid tag", "id", t.ID, "error", err)
			continue
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		if t.UpdatedAt.IsZero() {
			t.UpdatedAt = now
		}
		if t.Priority == "" {
			t.Priority = PriorityMedium
		}
		if t.Status == "" {
			t.Status = StatusPending
		}
		for i := range t.SubTasks {
			if t.SubTasks[i].ID == "" {
				t.SubTasks[i].ID = ulid.Make().String()
			}
		}
		if t.Queued() {
			queuedImports = append(queuedImports, t)
		}
		r.tasks[t.ID] = t
		added++
	}
	if len(queuedImports) > 0 {
		sort.SliceStable(queuedImports, func(i, j int) bool {
			return *queuedImports[i].QueuePosition < *queuedImports[j].QueuePosition
		})
		for i, t := range queuedImports {
			pos := base + i + 1
			t.QueuePosition = &pos
		}
		r.reflowLocked()
	}
	var err error
	if added > 0 {
		err = r.persistLocked(ctx)
	}
	r.mu.Unlock()

	if added > 0 {
		r.bus.PublishNew(eventbus.TypeReloaded, "")
	}
	return added, err
}

// persistLocked writes the store and the markdown view. The self-save flag
// stays raised for a grace period so the watcher ignores our own writes.
// The in-memory state is NOT rolled back on failure; the next successful
// save reconciles the file.
func (r *Registry) persistLocked(ctx context.Context) error {
	if !r.autoSave {
		return nil
	}
	r.saving.Store(true)
	defer time.AfterFunc(saveGracePeriod, func() { r.saving.Store(false) })

	snapshot := r.listLocked()
	if err := r.store.Save(ctx, snapshot); err != nil {
		return err
	}
	r.writeMarkdownLocked(ctx)
	return nil
}

func (r *Registry) writeMarkdownLocked(ctx context.Context) {
	content := r.render(r.listLocked())
	if err := r.storage.Write(ctx, r.markdownName, []byte(content)); err != nil {
		slog.WarnContext(ctx, "failed to write markdown view", "error", err)
	}
}
