package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dkotenko/taskflow/internal/task"
	"github.com/dkotenko/taskflow/pkg/cerr"
)

// ListenInterrupts reads resolution commands and short-circuits the running
// automatic window: "c" completes the current task, "s" skips it. It returns
// when the reader is exhausted or ctx is done.
func (s *Sequencer) ListenInterrupts(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "c", "complete":
			s.Interrupt(Resolution{Outcome: OutcomeCompleted})
		case "s", "skip":
			s.Interrupt(Resolution{Outcome: OutcomeSkipped})
		}
	}
}

// ConsoleResolver asks on the terminal whether a task was completed or
// should be skipped. Anything else, including an empty answer, re-asks.
type ConsoleResolver struct {
	in  *bufio.Scanner
	out io.Writer
}

func NewConsoleResolver(in io.Reader, out io.Writer) *ConsoleResolver {
	return &ConsoleResolver{in: bufio.NewScanner(in), out: out}
}

func (r *ConsoleResolver) Resolve(ctx context.Context, t *task.Task, output string) (Resolution, error) {
	if output != "" {
		fmt.Fprintln(r.out, output)
	}
	for {
		if err := ctx.Err(); err != nil {
			return Resolution{}, err
		}
		fmt.Fprintf(r.out, "Task %q - complete or skip? [c/s]: ", t.Title)
		if !r.in.Scan() {
			if err := r.in.Err(); err != nil {
				return Resolution{}, err
			}
			return Resolution{}, cerr.NewError(cerr.Aborted, "input closed", nil)
		}
		switch strings.ToLower(strings.TrimSpace(r.in.Text())) {
		case "c", "complete":
			fmt.Fprint(r.out, "Result note (optional): ")
			note := ""
			if r.in.Scan() {
				note = strings.TrimSpace(r.in.Text())
			}
			return Resolution{Outcome: OutcomeCompleted, Result: note}, nil
		case "s", "skip":
			return Resolution{Outcome: OutcomeSkipped}, nil
		}
	}
}
