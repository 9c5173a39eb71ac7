package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the optional per-workspace config.yaml overlay. Pointer
// fields distinguish "not set" from zero values. Environment variables win
// over the file.
type FileConfig struct {
	LogLevel           *string `yaml:"log_level"`
	AutoSave           *bool   `yaml:"auto_save"`
	ExecutionMode      *string `yaml:"execution_mode"`
	DefaultTaskMinutes *int    `yaml:"default_task_minutes"`
	QueuePauseSeconds  *int    `yaml:"queue_pause_seconds"`
	AssistantEnabled   *bool   `yaml:"assistant_enabled"`

	Trello struct {
		APIKey  *string   `yaml:"api_key"`
		Token   *string   `yaml:"token"`
		BoardID *string   `yaml:"board_id"`
		ListIDs *[]string `yaml:"list_ids"`
	} `yaml:"trello"`

	YouTrack struct {
		BaseURL   *string `yaml:"base_url"`
		Token     *string `yaml:"token"`
		ProjectID *string `yaml:"project_id"`
		Query     *string `yaml:"query"`
	} `yaml:"youtrack"`
}

func applyFileConfig(env *Env) error {
	data, err := os.ReadFile(env.ConfigFile())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", env.ConfigFile(), err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse %s: %w", env.ConfigFile(), err)
	}

	overrideString(&env.LogLevel, "LOG_LEVEL", fc.LogLevel)
	overrideBool(&env.AutoSave, "AUTO_SAVE", fc.AutoSave)
	overrideString(&env.ExecutionMode, "EXECUTION_MODE", fc.ExecutionMode)
	overrideInt(&env.DefaultTaskMinutes, "DEFAULT_TASK_MINUTES", fc.DefaultTaskMinutes)
	overrideInt(&env.QueuePauseSeconds, "QUEUE_PAUSE_SECONDS", fc.QueuePauseSeconds)
	overrideBool(&env.AssistantEnabled, "ASSISTANT_ENABLED", fc.AssistantEnabled)

	overrideString(&env.TrelloAPIKey, "TRELLO_API_KEY", fc.Trello.APIKey)
	overrideString(&env.TrelloToken, "TRELLO_TOKEN", fc.Trello.Token)
	overrideString(&env.TrelloBoardID, "TRELLO_BOARD_ID", fc.Trello.BoardID)
	if fc.Trello.ListIDs != nil && !envSet("TRELLO_LIST_IDS") {
		env.TrelloListIDs = *fc.Trello.ListIDs
	}

	overrideString(&env.YouTrackBaseURL, "YOUTRACK_BASE_URL", fc.YouTrack.BaseURL)
	overrideString(&env.YouTrackToken, "YOUTRACK_TOKEN", fc.YouTrack.Token)
	overrideString(&env.YouTrackProjectID, "YOUTRACK_PROJECT_ID", fc.YouTrack.ProjectID)
	overrideString(&env.YouTrackQuery, "YOUTRACK_QUERY", fc.YouTrack.Query)
	return nil
}

func envSet(name string) bool {
	_, ok := os.LookupEnv(namespace + "_" + name)
	return ok
}

func overrideString(dst *string, name string, val *string) {
	if val != nil && !envSet(name) {
		*dst = *val
	}
}

func overrideBool(dst *bool, name string, val *bool) {
	if val != nil && !envSet(name) {
		*dst = *val
	}
}

func overrideInt(dst *int, name string, val *int) {
	if val != nil && !envSet(name) {
		*dst = *val
	}
}
