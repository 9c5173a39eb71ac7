package importer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkotenko/taskflow/internal/task"
	"github.com/dkotenko/taskflow/pkg/cerr"
)

const youtrackIssuesBody = `[
  {
    "idReadable": "PRJ-12",
    "summary": "Fix the login flow",
    "description": "Session expires too early",
    "reporter": {"login": "msmith", "fullName": "Maria Smith"},
    "customFields": [
      {"name": "State", "value": {"name": "In Progress"}},
      {"name": "Priority", "value": {"name": "Critical"}},
      {"name": "Type", "value": {"name": "Bug"}}
    ]
  },
  {
    "idReadable": "PRJ-13",
    "summary": "Задача на русском",
    "reporter": {"login": "ivan", "fullName": ""},
    "customFields": [
      {"name": "Состояние", "value": {"name": "Завершена"}},
      {"name": "Приоритет", "value": {"name": "Низкий"}},
      {"name": "Тип", "value": null}
    ]
  }
]`

func TestYouTrackImport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/issues", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Contains(t, r.URL.Query().Get("query"), "project: PRJ")
		assert.Contains(t, r.URL.Query().Get("fields"), "idReadable")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(youtrackIssuesBody))
	}))
	defer srv.Close()

	imp := NewYouTrackImporter(srv.URL, "secret", "PRJ", "")
	tasks, err := imp.Import(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	first := tasks[0]
	assert.Equal(t, "youtrack-PRJ-12", first.ID)
	assert.Equal(t, "[PRJ-12] Fix the login flow", first.Title)
	assert.Equal(t, "Session expires too early", first.Description)
	assert.Equal(t, "PRJ-12", first.Tag)
	assert.Equal(t, "Maria Smith", first.Assignee)
	assert.Equal(t, task.StatusInProgress, first.Status)
	assert.Equal(t, task.PriorityHigh, first.Priority)
	assert.Equal(t, "Bug", first.Category)

	second := tasks[1]
	assert.Equal(t, "ivan", second.Assignee, "login is used when the full name is empty")
	assert.Equal(t, task.StatusCompleted, second.Status)
	assert.Equal(t, task.PriorityLow, second.Priority)
	assert.Empty(t, second.Category)
}

func TestYouTrackImportNotConfigured(t *testing.T) {
	imp := NewYouTrackImporter("", "", "PRJ", "")
	_, err := imp.Import(context.Background())
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))
}

func TestYouTrackImportHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	imp := NewYouTrackImporter(srv.URL, "secret", "PRJ", "")
	_, err := imp.Import(context.Background())
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestIssueStatusAndPriority(t *testing.T) {
	assert.Equal(t, task.StatusCompleted, issueStatus("fixed"))
	assert.Equal(t, task.StatusCompleted, issueStatus("готово"))
	assert.Equal(t, task.StatusInProgress, issueStatus("в работе"))
	assert.Equal(t, task.StatusPending, issueStatus("open"))

	assert.Equal(t, task.PriorityHigh, issuePriority("show-stopper"))
	assert.Equal(t, task.PriorityHigh, issuePriority("высокий"))
	assert.Equal(t, task.PriorityLow, issuePriority("minor"))
	assert.Equal(t, task.PriorityMedium, issuePriority("normal"))
}
