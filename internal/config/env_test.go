package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvDefaults(t *testing.T) {
	t.Setenv("TASKFLOW_TASKS_FILE", filepath.Join(t.TempDir(), "tasks.md"))

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "local", env.Env)
	assert.Equal(t, "info", env.LogLevel)
	assert.True(t, env.AutoSave)
	assert.Equal(t, "manual", env.ExecutionMode)
	assert.Equal(t, 30, env.DefaultTaskMinutes)
	assert.Equal(t, 1, env.QueuePauseSeconds)
	assert.True(t, env.AssistantEnabled)
	assert.Equal(t, "https://api.trello.com/1", env.TrelloBaseURL)
}

func TestWorkspacePaths(t *testing.T) {
	env := WorkspaceEnv{TasksFile: ".taskflow/tasks.md"}
	assert.Equal(t, ".taskflow", env.WorkspaceDir())
	assert.Equal(t, "tasks.md", env.MarkdownName())
	assert.Equal(t, ".taskflow_state.json", env.StateName())
	assert.Equal(t, filepath.Join(".taskflow", "config.yaml"), env.ConfigFile())
}

func TestFileConfigOverlay(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TASKFLOW_TASKS_FILE", filepath.Join(dir, "tasks.md"))

	content := `log_level: debug
execution_mode: automatic
default_task_minutes: 45
trello:
  api_key: file-key
youtrack:
  project_id: PRJ
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "debug", env.LogLevel)
	assert.Equal(t, "automatic", env.ExecutionMode)
	assert.Equal(t, 45, env.DefaultTaskMinutes)
	assert.Equal(t, "file-key", env.TrelloAPIKey)
	assert.Equal(t, "PRJ", env.YouTrackProjectID)
	// Untouched settings keep their defaults.
	assert.True(t, env.AutoSave)
}

func TestEnvironmentWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TASKFLOW_TASKS_FILE", filepath.Join(dir, "tasks.md"))
	t.Setenv("TASKFLOW_LOG_LEVEL", "warn")
	t.Setenv("TASKFLOW_DEFAULT_TASK_MINUTES", "10")

	content := "log_level: debug\ndefault_task_minutes: 45\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "warn", env.LogLevel)
	assert.Equal(t, 10, env.DefaultTaskMinutes)
}

func TestBrokenConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TASKFLOW_TASKS_FILE", filepath.Join(dir, "tasks.md"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log_level: [unclosed"), 0o644))

	_, err := LoadEnv()
	assert.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		env := BaseEnv{LogLevel: tt.in}
		assert.Equal(t, tt.want, env.SlogLevel(), "level %q", tt.in)
	}
}
