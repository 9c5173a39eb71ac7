package task

import (
	"context"
	"sort"
	"time"

	"github.com/dkotenko/taskflow/internal/eventbus"
	"github.com/dkotenko/taskflow/pkg/cerr"
)

// Queued returns the queued tasks ascending by position.
func (r *Registry) Queued() []*Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	queued := r.queuedLocked()
	return cloneAll(queued)
}

func (r *Registry) queuedLocked() []*Task {
	var queued []*Task
	for _, t := range r.tasks {
		if t.Queued() {
			queued = append(queued, t)
		}
	}
	sort.Slice(queued, func(i, j int) bool {
		return *queued[i].QueuePosition < *queued[j].QueuePosition
	})
	return queued
}

func (r *Registry) maxQueuePositionLocked() int {
	max := 0
	for _, t := range r.tasks {
		if t.Queued() && *t.QueuePosition > max {
			max = *t.QueuePosition
		}
	}
	return max
}

// Enqueue appends a task and reflows the queue by priority: higher-priority
// tasks always sit ahead, order within a priority band is preserved.
func (r *Registry) Enqueue(ctx context.Context, id string) error {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	if t.Queued() {
		r.mu.Unlock()
		return cerr.NewError(cerr.AlreadyExists, "task is already queued", nil)
	}
	temp := 0
	t.QueuePosition = &temp
	r.reflowLocked()
	t.UpdatedAt = time.Now()
	err := r.persistLocked(ctx)
	r.mu.Unlock()

	r.bus.PublishNew(eventbus.TypeQueueChanged, id)
	return err
}

// reflowLocked reassigns contiguous positions 1..N, sorted by priority rank
// with the previous position as tie-break. A task holding the temporary
// position 0 lands at the head of its priority band.
func (r *Registry) reflowLocked() {
	queued := r.queuedLocked()
	sort.SliceStable(queued, func(i, j int) bool {
		ri, rj := queued[i].Priority.Rank(), queued[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return *queued[i].QueuePosition < *queued[j].QueuePosition
	})
	for i, t := range queued {
		pos := i + 1
		t.QueuePosition = &pos
	}
}

// Dequeue removes a task from the queue and closes the gap it leaves.
func (r *Registry) Dequeue(ctx context.Context, id string) error {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	if !t.Queued() {
		r.mu.Unlock()
		return cerr.NewError(cerr.FailedPrecondition, "task is not queued", nil)
	}
	removed := *t.QueuePosition
	t.QueuePosition = nil
	t.UpdatedAt = time.Now()
	r.shiftDownAfterLocked(removed)
	err := r.persistLocked(ctx)
	r.mu.Unlock()

	r.bus.PublishNew(eventbus.TypeQueueChanged, id)
	return err
}

func (r *Registry) shiftDownAfterLocked(removed int) {
	for _, other := range r.tasks {
		if other.Queued() && *other.QueuePosition > removed {
			pos := *other.QueuePosition - 1
			other.QueuePosition = &pos
		}
	}
}

// MoveInQueue places a queued task at the given 1-based position, shifting
// the tasks in between.
func (r *Registry) MoveInQueue(ctx context.Context, id string, position int) error {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	if !t.Queued() {
		r.mu.Unlock()
		return cerr.NewError(cerr.FailedPrecondition, "task is not queued", nil)
	}
	queued := r.queuedLocked()
	if position < 1 || position > len(queued) {
		r.mu.Unlock()
		return cerr.NewError(cerr.OutOfRange, "queue position out of range", nil)
	}
	old := *t.QueuePosition
	if old == position {
		r.mu.Unlock()
		return nil
	}
	for _, other := range queued {
		if other.ID == id {
			continue
		}
		p := *other.QueuePosition
		switch {
		case old < position && p > old && p <= position:
			p--
		case old > position && p >= position && p < old:
			p++
		default:
			continue
		}
		other.QueuePosition = &p
	}
	t.QueuePosition = &position
	t.UpdatedAt = time.Now()
	err := r.persistLocked(ctx)
	r.mu.Unlock()

	r.bus.PublishNew(eventbus.TypeQueueChanged, id)
	return err
}
