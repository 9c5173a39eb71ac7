package runner

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkotenko/taskflow/internal/eventbus"
	"github.com/dkotenko/taskflow/internal/markdown"
	"github.com/dkotenko/taskflow/internal/task"
	"github.com/dkotenko/taskflow/internal/task/storeimpl"
	"github.com/dkotenko/taskflow/pkg/storage"
)

type stubGenerator struct {
	output string
	block  bool
	calls  int
	errOn  int // 1-based call number that fails, 0 for never
	err    error
	panics bool
}

func (g *stubGenerator) Generate(ctx context.Context, _ *task.Task, _ bool) (string, error) {
	g.calls++
	if g.panics && g.calls == 1 {
		panic("generator exploded")
	}
	if g.errOn != 0 && g.calls == g.errOn {
		return "", g.err
	}
	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return g.output, nil
}

type stubResolver struct {
	resolutions []Resolution
	calls       int
}

func (r *stubResolver) Resolve(_ context.Context, _ *task.Task, _ string) (Resolution, error) {
	res := r.resolutions[r.calls%len(r.resolutions)]
	r.calls++
	return res, nil
}

func newRunnerRegistry(t *testing.T) *task.Registry {
	t.Helper()
	st, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	store := storeimpl.NewJSONStore(st, ".taskflow_state.json")
	bus := eventbus.New()
	t.Cleanup(bus.Close)
	reg := task.NewRegistry(st, store, bus, markdown.Generate, task.Options{
		MarkdownName: "tasks.md",
		StateName:    ".taskflow_state.json",
		AutoSave:     true,
	})
	require.NoError(t, reg.Initialize(context.Background()))
	t.Cleanup(reg.Close)
	return reg
}

func enqueueTask(t *testing.T, reg *task.Registry, title string) *task.Task {
	t.Helper()
	created, err := reg.Add(context.Background(), task.Draft{Title: title})
	require.NoError(t, err)
	require.NoError(t, reg.Enqueue(context.Background(), created.ID))
	return created
}

func TestStartNext(t *testing.T) {
	reg := newRunnerRegistry(t)
	ctx := context.Background()
	seq := New(reg, &stubGenerator{}, &stubResolver{resolutions: []Resolution{{}}}, Config{Mode: ModeManual}, io.Discard)

	started, err := seq.StartNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, started, "an empty queue starts nothing")

	first := enqueueTask(t, reg, "first")
	enqueueTask(t, reg, "second")

	started, err = seq.StartNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, started)
	assert.Equal(t, first.ID, started.ID)
	assert.Equal(t, task.StatusInProgress, started.Status)

	// The started task is skipped on the next call.
	started, err = seq.StartNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, started)
	assert.Equal(t, "second", started.Title)

	started, err = seq.StartNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, started, "everything queued is already in progress")
}

func TestRunNextComplete(t *testing.T) {
	reg := newRunnerRegistry(t)
	ctx := context.Background()
	created := enqueueTask(t, reg, "do it")

	resolver := &stubResolver{resolutions: []Resolution{{Outcome: OutcomeCompleted, Result: "all done"}}}
	seq := New(reg, &stubGenerator{output: "prompt sent"}, resolver, Config{Mode: ModeManual}, io.Discard)

	ran, res, err := seq.RunNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, ran)
	require.NotNil(t, res)
	assert.Equal(t, OutcomeCompleted, res.Outcome)

	got, err := reg.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, got.Status)
	assert.Equal(t, "all done", got.Result)
	assert.Nil(t, got.QueuePosition)
}

func TestRunNextSkipLeavesTaskInProgress(t *testing.T) {
	reg := newRunnerRegistry(t)
	ctx := context.Background()
	created := enqueueTask(t, reg, "not now")

	resolver := &stubResolver{resolutions: []Resolution{{Outcome: OutcomeSkipped}}}
	seq := New(reg, &stubGenerator{}, resolver, Config{Mode: ModeManual}, io.Discard)

	_, res, err := seq.RunNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, res.Outcome)

	got, err := reg.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, got.Status)
	assert.Nil(t, got.QueuePosition, "a skipped task leaves the queue")
}

func TestAutomaticGenerationWins(t *testing.T) {
	reg := newRunnerRegistry(t)
	ctx := context.Background()
	created := enqueueTask(t, reg, "quick")

	gen := &stubGenerator{output: "generated result"}
	seq := New(reg, gen, nil, Config{Mode: ModeAutomatic, DefaultDuration: 5 * time.Second}, io.Discard)

	_, res, err := seq.RunNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, "generated result", res.Result)

	got, err := reg.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, got.Status)
	assert.Equal(t, "generated result", got.Result)
}

func TestAutomaticWindowExpiry(t *testing.T) {
	reg := newRunnerRegistry(t)
	ctx := context.Background()
	created := enqueueTask(t, reg, "slow")

	gen := &stubGenerator{block: true}
	seq := New(reg, gen, nil, Config{Mode: ModeAutomatic, DefaultDuration: 50 * time.Millisecond}, io.Discard)

	_, res, err := seq.RunNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Empty(t, res.Result)

	got, err := reg.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, got.Status)
}

func TestAutomaticInterrupt(t *testing.T) {
	reg := newRunnerRegistry(t)
	ctx := context.Background()
	created := enqueueTask(t, reg, "interrupted")

	gen := &stubGenerator{block: true}
	seq := New(reg, gen, nil, Config{Mode: ModeAutomatic, DefaultDuration: 5 * time.Second}, io.Discard)
	seq.Interrupt(Resolution{Outcome: OutcomeSkipped})

	_, res, err := seq.RunNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, OutcomeSkipped, res.Outcome)

	got, err := reg.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, got.Status)
	assert.Nil(t, got.QueuePosition)
}

func TestListenInterruptsResolvesAutomaticWindow(t *testing.T) {
	reg := newRunnerRegistry(t)
	ctx := context.Background()
	created := enqueueTask(t, reg, "typed away")

	gen := &stubGenerator{block: true}
	seq := New(reg, gen, nil, Config{Mode: ModeAutomatic, DefaultDuration: 5 * time.Second}, io.Discard)

	done := make(chan struct{})
	go func() {
		seq.ListenInterrupts(ctx, strings.NewReader("huh\ns\n"))
		close(done)
	}()
	<-done

	_, res, err := seq.RunNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, OutcomeSkipped, res.Outcome)

	got, err := reg.Get(created.ID)
	require.NoError(t, err)
	assert.Nil(t, got.QueuePosition)
}

func TestRunQueue(t *testing.T) {
	reg := newRunnerRegistry(t)
	ctx := context.Background()
	enqueueTask(t, reg, "one")
	enqueueTask(t, reg, "two")

	resolver := &stubResolver{resolutions: []Resolution{{Outcome: OutcomeCompleted}}}
	seq := New(reg, &stubGenerator{}, resolver, Config{Mode: ModeManual}, io.Discard)

	sum, err := seq.RunQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Completed: 2}, sum)
	assert.Empty(t, reg.Queued())
}

func TestRunQueueContinuesPastFailure(t *testing.T) {
	reg := newRunnerRegistry(t)
	ctx := context.Background()
	failing := enqueueTask(t, reg, "fails")
	enqueueTask(t, reg, "succeeds")

	gen := &stubGenerator{errOn: 1, err: io.ErrUnexpectedEOF}
	resolver := &stubResolver{resolutions: []Resolution{{Outcome: OutcomeCompleted}}}
	seq := New(reg, gen, resolver, Config{Mode: ModeManual}, io.Discard)

	sum, err := seq.RunQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Completed: 1, Errors: 1}, sum)

	// The failed task stays queued and in progress for a later retry.
	got, err := reg.Get(failing.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, got.Status)
	assert.NotNil(t, got.QueuePosition)
}

func TestRunQueueContainsPanics(t *testing.T) {
	reg := newRunnerRegistry(t)
	ctx := context.Background()
	enqueueTask(t, reg, "explodes")
	enqueueTask(t, reg, "fine")

	gen := &stubGenerator{panics: true}
	resolver := &stubResolver{resolutions: []Resolution{{Outcome: OutcomeCompleted}}}
	seq := New(reg, gen, resolver, Config{Mode: ModeManual}, io.Discard)

	sum, err := seq.RunQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Completed: 1, Errors: 1}, sum)
}

func TestCompleteAndStartNext(t *testing.T) {
	reg := newRunnerRegistry(t)
	ctx := context.Background()
	first := enqueueTask(t, reg, "first")
	second := enqueueTask(t, reg, "second")

	seq := New(reg, &stubGenerator{}, &stubResolver{resolutions: []Resolution{{}}}, Config{Mode: ModeManual}, io.Discard)
	started, err := seq.StartNext(ctx)
	require.NoError(t, err)
	require.Equal(t, first.ID, started.ID)

	next, err := seq.CompleteAndStartNext(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, second.ID, next.ID)

	done, err := reg.Get(first.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, done.Status)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"manual", ModeManual, false},
		{"", ModeManual, false},
		{"automatic", ModeAutomatic, false},
		{"auto", ModeAutomatic, false},
		{"turbo", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConsoleResolver(t *testing.T) {
	t.Run("complete with note", func(t *testing.T) {
		in := strings.NewReader("what\nc\nshipped\n")
		var out strings.Builder
		r := NewConsoleResolver(in, &out)

		res, err := r.Resolve(context.Background(), &task.Task{Title: "t"}, "generated output")
		require.NoError(t, err)
		assert.Equal(t, OutcomeCompleted, res.Outcome)
		assert.Equal(t, "shipped", res.Result)
		assert.Contains(t, out.String(), "generated output")
		// The unrecognized answer triggers a second prompt.
		assert.Equal(t, 2, strings.Count(out.String(), "complete or skip?"))
	})

	t.Run("skip", func(t *testing.T) {
		r := NewConsoleResolver(strings.NewReader("S\n"), io.Discard)
		res, err := r.Resolve(context.Background(), &task.Task{Title: "t"}, "")
		require.NoError(t, err)
		assert.Equal(t, OutcomeSkipped, res.Outcome)
	})

	t.Run("closed input", func(t *testing.T) {
		r := NewConsoleResolver(strings.NewReader(""), io.Discard)
		_, err := r.Resolve(context.Background(), &task.Task{Title: "t"}, "")
		assert.Error(t, err)
	})
}

func TestProgressInterval(t *testing.T) {
	assert.Equal(t, time.Second, progressInterval(5*time.Second))
	assert.Equal(t, 3*time.Second, progressInterval(30*time.Second))
	assert.Equal(t, time.Minute, progressInterval(time.Hour))
}
