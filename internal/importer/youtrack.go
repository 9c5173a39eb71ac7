package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dkotenko/taskflow/internal/task"
	"github.com/dkotenko/taskflow/pkg/cerr"
)

const (
	youtrackIDPrefix = "youtrack-"
	youtrackPageSize = 100
)

type YouTrackImporter struct {
	baseURL   string
	token     string
	projectID string
	query     string
	hc        *http.Client
}

func NewYouTrackImporter(baseURL, token, projectID, query string) *YouTrackImporter {
	return &YouTrackImporter{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		projectID: projectID,
		query:     query,
		hc:        &http.Client{Timeout: 30 * time.Second},
	}
}

func (i *YouTrackImporter) Name() string { return "youtrack" }

type ytUser struct {
	Login    string `json:"login"`
	FullName string `json:"fullName"`
}

type ytCustomField struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

type ytIssue struct {
	IDReadable   string          `json:"idReadable"`
	Summary      string          `json:"summary"`
	Description  string          `json:"description"`
	Reporter     *ytUser         `json:"reporter"`
	CustomFields []ytCustomField `json:"customFields"`
}

func (i *YouTrackImporter) Import(ctx context.Context) ([]*task.Task, error) {
	if i.baseURL == "" || i.token == "" {
		return nil, cerr.NewError(cerr.FailedPrecondition, "youtrack connection is not configured", nil)
	}

	query := i.query
	if i.projectID != "" {
		query = strings.TrimSpace(fmt.Sprintf("project: %s %s", i.projectID, i.query))
	}
	params := url.Values{
		"fields": {"idReadable,summary,description,reporter(login,fullName),customFields(name,value(name))"},
		"$top":   {fmt.Sprint(youtrackPageSize)},
	}
	if query != "" {
		params.Set("query", query)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, i.baseURL+"/api/issues?"+params.Encode(), nil)
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, "failed to build youtrack request", err)
	}
	req.Header.Set("Authorization", "Bearer "+i.token)
	req.Header.Set("Accept", "application/json")

	resp, err := i.hc.Do(req)
	if err != nil {
		return nil, cerr.NewError(cerr.Unavailable, "youtrack request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, wrapHTTPStatus("youtrack", resp.StatusCode)
	}

	var issues []ytIssue
	if err := json.NewDecoder(resp.Body).Decode(&issues); err != nil {
		return nil, cerr.NewError(cerr.Unavailable, "failed to decode youtrack response", err)
	}

	tasks := make([]*task.Task, 0, len(issues))
	for _, issue := range issues {
		tasks = append(tasks, mapIssue(issue))
	}
	return tasks, nil
}

func mapIssue(issue ytIssue) *task.Task {
	t := &task.Task{
		ID:          youtrackIDPrefix + issue.IDReadable,
		Title:       fmt.Sprintf("[%s] %s", issue.IDReadable, issue.Summary),
		Description: issue.Description,
		Status:      task.StatusPending,
		Priority:    task.PriorityMedium,
		Tag:         issue.IDReadable,
	}
	if issue.Reporter != nil {
		t.Assignee = issue.Reporter.FullName
		if t.Assignee == "" {
			t.Assignee = issue.Reporter.Login
		}
	}
	for _, field := range issue.CustomFields {
		value := strings.ToLower(fieldValueName(field.Value))
		if value == "" {
			continue
		}
		switch strings.ToLower(field.Name) {
		case "state", "состояние":
			t.Status = issueStatus(value)
		case "priority", "приоритет":
			t.Priority = issuePriority(value)
		case "type", "тип":
			t.Category = fieldValueName(field.Value)
		}
	}
	return t
}

func fieldValueName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v.Name
}

func issueStatus(state string) task.Status {
	switch {
	case strings.Contains(state, "done") || strings.Contains(state, "fixed") ||
		strings.Contains(state, "verified") || strings.Contains(state, "closed") ||
		strings.Contains(state, "завершен") || strings.Contains(state, "готов"):
		return task.StatusCompleted
	case strings.Contains(state, "progress") || strings.Contains(state, "работе"):
		return task.StatusInProgress
	}
	return task.StatusPending
}

func issuePriority(priority string) task.Priority {
	switch {
	case strings.Contains(priority, "critical") || strings.Contains(priority, "major") ||
		strings.Contains(priority, "show-stopper") || strings.Contains(priority, "высок") ||
		strings.Contains(priority, "критич"):
		return task.PriorityHigh
	case strings.Contains(priority, "minor") || strings.Contains(priority, "низк"):
		return task.PriorityLow
	}
	return task.PriorityMedium
}
