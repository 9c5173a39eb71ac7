// Package runner drives queued tasks through generation and resolution,
// one at a time.
package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dkotenko/taskflow/internal/task"
	"github.com/dkotenko/taskflow/pkg/cerr"
	"github.com/dkotenko/taskflow/pkg/panicerr"
)

type Mode string

const (
	ModeManual    Mode = "manual"
	ModeAutomatic Mode = "automatic"
)

func ParseMode(s string) (Mode, error) {
	switch s {
	case "manual", "":
		return ModeManual, nil
	case "automatic", "auto":
		return ModeAutomatic, nil
	}
	return "", cerr.NewError(cerr.InvalidArgument, "unknown execution mode: "+s, nil)
}

type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeSkipped
)

type Resolution struct {
	Outcome Outcome
	Result  string
}

// Generator produces the work for a task and returns its textual output.
type Generator interface {
	Generate(ctx context.Context, t *task.Task, autoComplete bool) (string, error)
}

// Resolver asks the user what became of a task after generation.
type Resolver interface {
	Resolve(ctx context.Context, t *task.Task, output string) (Resolution, error)
}

type Config struct {
	Mode            Mode
	DefaultDuration time.Duration // automatic execution window when the task sets none
	Pause           time.Duration // pause between tasks in a batch run
}

type Sequencer struct {
	registry   *task.Registry
	gen        Generator
	resolver   Resolver
	cfg        Config
	out        io.Writer
	interrupts chan Resolution
}

func New(registry *task.Registry, gen Generator, resolver Resolver, cfg Config, out io.Writer) *Sequencer {
	return &Sequencer{
		registry:   registry,
		gen:        gen,
		resolver:   resolver,
		cfg:        cfg,
		out:        out,
		interrupts: make(chan Resolution, 1),
	}
}

// Interrupt short-circuits a running automatic execution window. The first
// interrupt wins; later ones are dropped.
func (s *Sequencer) Interrupt(res Resolution) {
	select {
	case s.interrupts <- res:
	default:
	}
}

// StartNext marks the first queued task not already in flight as in
// progress and returns it. A nil task means nothing is ready: the queue is
// empty or every queued task is already running.
func (s *Sequencer) StartNext(ctx context.Context) (*task.Task, error) {
	queued := s.registry.Queued()
	if len(queued) == 0 {
		fmt.Fprintln(s.out, "The queue is empty.")
		return nil, nil
	}
	for _, t := range queued {
		if t.Status == task.StatusInProgress {
			continue
		}
		status := task.StatusInProgress
		return s.registry.Update(ctx, t.ID, task.Updates{Status: &status})
	}
	fmt.Fprintln(s.out, "Every queued task is already in progress.")
	return nil, nil
}

// ExecuteTask runs generation for a started task and resolves its outcome
// according to the configured mode.
func (s *Sequencer) ExecuteTask(ctx context.Context, t *task.Task) (Resolution, error) {
	if s.cfg.Mode == ModeAutomatic {
		return s.executeAutomatic(ctx, t)
	}
	output, err := s.gen.Generate(ctx, t, false)
	if err != nil {
		return Resolution{}, err
	}
	return s.resolver.Resolve(ctx, t, output)
}

// executeAutomatic races the execution window against generation finishing
// and against a user interrupt. Whichever fires first decides; the losers
// are cancelled.
func (s *Sequencer) executeAutomatic(ctx context.Context, t *task.Task) (Resolution, error) {
	window := s.cfg.DefaultDuration
	if t.ExecutionDuration > 0 {
		window = time.Duration(t.ExecutionDuration) * time.Minute
	}
	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type genResult struct {
		output string
		err    error
	}
	done := make(chan genResult, 1)
	go func() {
		output, err := s.gen.Generate(genCtx, t, true)
		done <- genResult{output: output, err: err}
	}()

	timer := time.NewTimer(window)
	defer timer.Stop()
	ticker := time.NewTicker(progressInterval(window))
	defer ticker.Stop()
	deadline := time.Now().Add(window)

	for {
		select {
		case g := <-done:
			if g.err != nil {
				return Resolution{}, g.err
			}
			return Resolution{Outcome: OutcomeCompleted, Result: g.output}, nil
		case <-timer.C:
			cancel()
			slog.InfoContext(ctx, "execution window elapsed, auto-completing", "task", t.ID)
			return Resolution{Outcome: OutcomeCompleted}, nil
		case res := <-s.interrupts:
			cancel()
			return res, nil
		case <-ticker.C:
			fmt.Fprintf(s.out, "%s remaining for %q\n", time.Until(deadline).Round(time.Second), t.Title)
		case <-ctx.Done():
			return Resolution{}, ctx.Err()
		}
	}
}

// Apply records a resolution. A completed task gets its status and result
// and leaves the queue; a skipped task only leaves the queue, keeping its
// in-progress status.
func (s *Sequencer) Apply(ctx context.Context, id string, res Resolution) error {
	if res.Outcome == OutcomeCompleted {
		status := task.StatusCompleted
		up := task.Updates{Status: &status}
		if res.Result != "" {
			up.Result = &res.Result
		}
		if _, err := s.registry.Update(ctx, id, up); err != nil {
			return err
		}
	}
	if err := s.registry.Dequeue(ctx, id); err != nil && !cerr.IsCode(err, cerr.FailedPrecondition) {
		return err
	}
	return nil
}

// RunNext starts, executes and resolves a single task. The returned task is
// nil when nothing was ready.
func (s *Sequencer) RunNext(ctx context.Context) (*task.Task, *Resolution, error) {
	t, err := s.StartNext(ctx)
	if err != nil || t == nil {
		return nil, nil, err
	}
	res, err := s.ExecuteTask(ctx, t)
	if err != nil {
		return t, nil, err
	}
	if err := s.Apply(ctx, t.ID, res); err != nil {
		return t, &res, err
	}
	return t, &res, nil
}

// CompleteAndStartNext completes the given task, removes it from the queue
// and starts the next one.
func (s *Sequencer) CompleteAndStartNext(ctx context.Context, id string) (*task.Task, error) {
	if err := s.Apply(ctx, id, Resolution{Outcome: OutcomeCompleted}); err != nil {
		return nil, err
	}
	return s.StartNext(ctx)
}

type Summary struct {
	Completed int
	Skipped   int
	Errors    int
}

// RunQueue drains the queue, one task per cycle. A failing task counts as
// an error and the batch moves on; panics are contained the same way.
func (s *Sequencer) RunQueue(ctx context.Context) (Summary, error) {
	var sum Summary
	for len(s.registry.Queued()) > 0 {
		t, err := s.StartNext(ctx)
		if err != nil {
			sum.Errors++
			return sum, err
		}
		if t == nil {
			break
		}

		run := panicerr.SafeContext(func(ctx context.Context) error {
			res, err := s.ExecuteTask(ctx, t)
			if err != nil {
				return err
			}
			if err := s.Apply(ctx, t.ID, res); err != nil {
				return err
			}
			if res.Outcome == OutcomeCompleted {
				sum.Completed++
			} else {
				sum.Skipped++
			}
			return nil
		})
		if err := run(ctx); err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			sum.Errors++
			slog.WarnContext(ctx, "task execution failed, continuing", "task", t.ID, "error", err)
		}

		select {
		case <-time.After(s.cfg.Pause):
		case <-ctx.Done():
			return sum, ctx.Err()
		}
	}
	return sum, nil
}

func progressInterval(window time.Duration) time.Duration {
	interval := window / 10
	if interval < time.Second {
		return time.Second
	}
	if interval > time.Minute {
		return time.Minute
	}
	return interval
}
