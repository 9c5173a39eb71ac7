package config

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

type WorkspaceEnv struct {
	TasksFile string `envconfig:"TASKS_FILE" default:".taskflow/tasks.md"`
	AutoSave  bool   `envconfig:"AUTO_SAVE" default:"true"`
}

type RunnerEnv struct {
	ExecutionMode      string `envconfig:"EXECUTION_MODE" default:"manual"`
	DefaultTaskMinutes int    `envconfig:"DEFAULT_TASK_MINUTES" default:"30"`
	QueuePauseSeconds  int    `envconfig:"QUEUE_PAUSE_SECONDS" default:"1"`
	AssistantEnabled   bool   `envconfig:"ASSISTANT_ENABLED" default:"true"`
}

type TrelloEnv struct {
	TrelloAPIKey  string   `envconfig:"TRELLO_API_KEY"`
	TrelloToken   string   `envconfig:"TRELLO_TOKEN"`
	TrelloBoardID string   `envconfig:"TRELLO_BOARD_ID"`
	TrelloListIDs []string `envconfig:"TRELLO_LIST_IDS"`
	TrelloBaseURL string   `envconfig:"TRELLO_BASE_URL" default:"https://api.trello.com/1"`
}

type YouTrackEnv struct {
	YouTrackBaseURL   string `envconfig:"YOUTRACK_BASE_URL"`
	YouTrackToken     string `envconfig:"YOUTRACK_TOKEN"`
	YouTrackProjectID string `envconfig:"YOUTRACK_PROJECT_ID"`
	YouTrackQuery     string `envconfig:"YOUTRACK_QUERY"`
}

type Env struct {
	BaseEnv
	WorkspaceEnv
	RunnerEnv
	TrelloEnv
	YouTrackEnv
}

const namespace = "TASKFLOW"

// stateFileName is the hidden structured store written next to the tasks file.
const stateFileName = ".taskflow_state.json"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	if err := applyFileConfig(&env); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelInfo
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// WorkspaceDir is the directory holding the tasks file, the state file,
// the config overlay and the instruction templates.
func (e *WorkspaceEnv) WorkspaceDir() string {
	return filepath.Dir(e.TasksFile)
}

// MarkdownName is the tasks file name relative to WorkspaceDir.
func (e *WorkspaceEnv) MarkdownName() string {
	return filepath.Base(e.TasksFile)
}

// StateName is the structured store file name relative to WorkspaceDir.
func (e *WorkspaceEnv) StateName() string {
	return stateFileName
}

// InstructionsDirName is the instruction templates directory relative to WorkspaceDir.
func (e *WorkspaceEnv) InstructionsDirName() string {
	return "instructions"
}

func (e *WorkspaceEnv) ConfigFile() string {
	return filepath.Join(e.WorkspaceDir(), "config.yaml")
}
