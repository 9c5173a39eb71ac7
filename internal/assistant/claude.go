// Package assistant hands tasks off to the Claude CLI for code generation.
// When the CLI is unavailable the prompt is copied to the clipboard instead,
// so the user can paste it into whatever tool they have at hand.
package assistant

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/atotto/clipboard"
	claudeagent "github.com/kazz187/claude-agent-sdk-go"

	"github.com/dkotenko/taskflow/internal/instruction"
	"github.com/dkotenko/taskflow/internal/task"
	"github.com/dkotenko/taskflow/pkg/cerr"
)

type InstructionResolver interface {
	Resolve(ctx context.Context, id string) *instruction.Instruction
}

type ClaudeGenerator struct {
	enabled      bool
	cwd          string
	instructions InstructionResolver
	out          io.Writer
}

func NewClaudeGenerator(enabled bool, cwd string, instructions InstructionResolver, out io.Writer) *ClaudeGenerator {
	return &ClaudeGenerator{
		enabled:      enabled,
		cwd:          cwd,
		instructions: instructions,
		out:          out,
	}
}

// Generate runs the task prompt through the Claude CLI and returns its
// output. On failure the prompt lands on the clipboard and an empty output
// is returned; only a failed clipboard copy is an error.
func (g *ClaudeGenerator) Generate(ctx context.Context, t *task.Task, autoComplete bool) (string, error) {
	if !g.enabled {
		slog.InfoContext(ctx, "assistant disabled, skipping generation", "task", t.ID)
		fmt.Fprintln(g.out, "Assistant integration is disabled.")
		return "", nil
	}

	prompt := BuildPrompt(t)
	inst := g.instructions.Resolve(ctx, t.InstructionID)

	opts := &claudeagent.ClaudeAgentOptions{
		SystemPrompt: inst.Content,
		Cwd:          g.cwd,
		StderrCallback: func(line string) {
			slog.DebugContext(ctx, "claude stderr", "task", t.ID, "line", line)
		},
	}
	if autoComplete {
		// Unattended runs must not block on permission prompts.
		opts.PermissionMode = claudeagent.PermissionMode("acceptEdits")
	}

	result, err := claudeagent.RunQuerySync(ctx, prompt, opts)
	if err != nil {
		slog.WarnContext(ctx, "claude query failed", "task", t.ID, "error", err)
		return "", g.fallbackToClipboard(prompt)
	}
	if result.Result == nil || result.Result.IsError {
		slog.WarnContext(ctx, "claude reported an error result", "task", t.ID)
		return "", g.fallbackToClipboard(prompt)
	}

	slog.InfoContext(ctx, "generation finished", "task", t.ID, "session", result.Result.SessionID)
	return result.Result.Result, nil
}

func (g *ClaudeGenerator) fallbackToClipboard(prompt string) error {
	if err := clipboard.WriteAll(prompt); err != nil {
		return cerr.NewError(cerr.Unavailable,
			"generation unavailable and clipboard copy failed", err)
	}
	fmt.Fprintln(g.out, "Assistant unavailable. The task prompt was copied to the clipboard; paste it into your generation tool.")
	return nil
}
