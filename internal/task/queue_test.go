package task_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkotenko/taskflow/internal/task"
	"github.com/dkotenko/taskflow/pkg/cerr"
)

func queuedTitles(t *testing.T, env *testEnv) []string {
	t.Helper()
	queued := env.registry.Queued()
	titles := make([]string, 0, len(queued))
	for i, qt := range queued {
		require.NotNil(t, qt.QueuePosition)
		require.Equal(t, i+1, *qt.QueuePosition, "positions must be contiguous from 1")
		titles = append(titles, qt.Title)
	}
	return titles
}

func TestEnqueueReflowsByPriority(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	a := env.add(t, task.Draft{Title: "A", Priority: task.PriorityLow})
	b := env.add(t, task.Draft{Title: "B", Priority: task.PriorityHigh})
	c := env.add(t, task.Draft{Title: "C", Priority: task.PriorityMedium})

	require.NoError(t, env.registry.Enqueue(ctx, a.ID))
	require.NoError(t, env.registry.Enqueue(ctx, b.ID))
	require.NoError(t, env.registry.Enqueue(ctx, c.ID))

	assert.Equal(t, []string{"B", "C", "A"}, queuedTitles(t, env))
}

func TestEnqueueHeadsOwnPriorityBand(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	first := env.add(t, task.Draft{Title: "first medium", Priority: task.PriorityMedium})
	second := env.add(t, task.Draft{Title: "second medium", Priority: task.PriorityMedium})
	high := env.add(t, task.Draft{Title: "high", Priority: task.PriorityHigh})

	require.NoError(t, env.registry.Enqueue(ctx, first.ID))
	require.NoError(t, env.registry.Enqueue(ctx, second.ID))
	require.NoError(t, env.registry.Enqueue(ctx, high.ID))

	// A newly queued task enters at the head of its priority band, existing
	// order within the band is otherwise preserved.
	assert.Equal(t, []string{"high", "second medium", "first medium"}, queuedTitles(t, env))
}

func TestEnqueueErrors(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	created := env.add(t, task.Draft{Title: "once"})

	require.NoError(t, env.registry.Enqueue(ctx, created.ID))
	err := env.registry.Enqueue(ctx, created.ID)
	assert.True(t, cerr.IsCode(err, cerr.AlreadyExists))

	err = env.registry.Enqueue(ctx, "missing")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestDequeueClosesGap(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"one", "two", "three"} {
		created := env.add(t, task.Draft{Title: title})
		require.NoError(t, env.registry.Enqueue(ctx, created.ID))
		ids = append(ids, created.ID)
	}

	require.NoError(t, env.registry.Dequeue(ctx, ids[1]))
	assert.Equal(t, []string{"one", "three"}, queuedTitles(t, env))

	got, err := env.registry.Get(ids[1])
	require.NoError(t, err)
	assert.Nil(t, got.QueuePosition)

	err = env.registry.Dequeue(ctx, ids[1])
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))
}

func TestDeleteQueuedTaskClosesGap(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"one", "two", "three"} {
		created := env.add(t, task.Draft{Title: title})
		require.NoError(t, env.registry.Enqueue(ctx, created.ID))
		ids = append(ids, created.ID)
	}

	require.NoError(t, env.registry.Delete(ctx, ids[0]))
	assert.Equal(t, []string{"two", "three"}, queuedTitles(t, env))
}

func TestMoveInQueue(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"a", "b", "c", "d"} {
		created := env.add(t, task.Draft{Title: title})
		require.NoError(t, env.registry.Enqueue(ctx, created.ID))
		ids = append(ids, created.ID)
	}

	// Move down: a goes from 1 to 3, b and c shift up.
	require.NoError(t, env.registry.MoveInQueue(ctx, ids[0], 3))
	assert.Equal(t, []string{"b", "c", "a", "d"}, queuedTitles(t, env))

	// Move up: d goes from 4 to 1, everyone else shifts down.
	require.NoError(t, env.registry.MoveInQueue(ctx, ids[3], 1))
	assert.Equal(t, []string{"d", "b", "c", "a"}, queuedTitles(t, env))

	// Moving to the current position is a no-op.
	require.NoError(t, env.registry.MoveInQueue(ctx, ids[3], 1))
	assert.Equal(t, []string{"d", "b", "c", "a"}, queuedTitles(t, env))
}

func TestMoveInQueueErrors(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	queued := env.add(t, task.Draft{Title: "queued"})
	require.NoError(t, env.registry.Enqueue(ctx, queued.ID))
	loose := env.add(t, task.Draft{Title: "loose"})

	err := env.registry.MoveInQueue(ctx, queued.ID, 0)
	assert.True(t, cerr.IsCode(err, cerr.OutOfRange))

	err = env.registry.MoveInQueue(ctx, queued.ID, 2)
	assert.True(t, cerr.IsCode(err, cerr.OutOfRange))

	err = env.registry.MoveInQueue(ctx, loose.ID, 1)
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))

	err = env.registry.MoveInQueue(ctx, "missing", 1)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}
