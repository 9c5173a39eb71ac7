package task

import (
	"strings"
	"testing"
	"time"

	"github.com/dkotenko/taskflow/pkg/cerr"
)

func TestValidateTag(t *testing.T) {
	tests := []struct {
		name    string
		tag     string
		wantErr bool
	}{
		{name: "empty", tag: "", wantErr: false},
		{name: "whitespace only", tag: "   ", wantErr: false},
		{name: "simple", tag: "backend", wantErr: false},
		{name: "digits and separators", tag: "task_42-b", wantErr: false},
		{name: "cyrillic", tag: "задача-1", wantErr: false},
		{name: "surrounding whitespace trimmed", tag: "  fix-123  ", wantErr: false},
		{name: "exactly 50 runes", tag: strings.Repeat("я", 50), wantErr: false},
		{name: "51 runes", tag: strings.Repeat("я", 51), wantErr: true},
		{name: "inner space", tag: "two words", wantErr: true},
		{name: "punctuation", tag: "bad!tag", wantErr: true},
		{name: "slash", tag: "a/b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTag(tt.tag)
			if tt.wantErr && err == nil {
				t.Fatalf("ValidateTag(%q) = nil, want error", tt.tag)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("ValidateTag(%q) = %v, want nil", tt.tag, err)
			}
			if tt.wantErr && !cerr.IsCode(err, cerr.InvalidArgument) {
				t.Fatalf("ValidateTag(%q) code = %v, want InvalidArgument", tt.tag, err)
			}
		})
	}
}

func TestValidateExecutionDuration(t *testing.T) {
	tests := []struct {
		minutes int
		wantErr bool
	}{
		{0, false},
		{1, false},
		{480, false},
		{481, true},
		{-5, true},
	}
	for _, tt := range tests {
		err := ValidateExecutionDuration(tt.minutes)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateExecutionDuration(%d) = %v, wantErr %v", tt.minutes, err, tt.wantErr)
		}
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in      string
		want    Priority
		wantErr bool
	}{
		{"high", PriorityHigh, false},
		{"High", PriorityHigh, false},
		{"medium", PriorityMedium, false},
		{"", PriorityMedium, false},
		{"LOW", PriorityLow, false},
		{"urgent", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePriority(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePriority(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePriority(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsOverdue(t *testing.T) {
	now := time.Now()
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)

	tests := []struct {
		name string
		task Task
		want bool
	}{
		{name: "no due date", task: Task{Status: StatusPending}, want: false},
		{name: "due in the past", task: Task{Status: StatusPending, DueDate: &yesterday}, want: true},
		{name: "due in the future", task: Task{Status: StatusPending, DueDate: &tomorrow}, want: false},
		{name: "completed past due", task: Task{Status: StatusCompleted, DueDate: &yesterday}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.IsOverdue(now); got != tt.want {
				t.Errorf("IsOverdue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTaskProgress(t *testing.T) {
	t.Run("subtask counts", func(t *testing.T) {
		task := &Task{SubTasks: []SubTask{
			{Title: "a", Completed: true},
			{Title: "b", Completed: true},
			{Title: "c", Completed: false},
		}}
		stats := TaskProgress(task)
		if stats.Total != 3 || stats.Completed != 2 || stats.Pending != 1 {
			t.Fatalf("unexpected counts: %+v", stats)
		}
		if stats.Percentage != 67 {
			t.Fatalf("Percentage = %d, want 67", stats.Percentage)
		}
	})

	t.Run("no subtasks, completed task", func(t *testing.T) {
		stats := TaskProgress(&Task{Status: StatusCompleted})
		if stats.Total != 0 || stats.Percentage != 100 {
			t.Fatalf("unexpected stats: %+v", stats)
		}
	})

	t.Run("no subtasks, pending task", func(t *testing.T) {
		stats := TaskProgress(&Task{Status: StatusPending})
		if stats.Percentage != 0 {
			t.Fatalf("Percentage = %d, want 0", stats.Percentage)
		}
	})
}

func TestClone(t *testing.T) {
	due := time.Now()
	pos := 2
	orig := &Task{
		ID:            "t1",
		DueDate:       &due,
		QueuePosition: &pos,
		SubTasks:      []SubTask{{ID: "s1", Title: "sub"}},
	}
	clone := orig.Clone()
	*clone.QueuePosition = 9
	clone.SubTasks[0].Title = "changed"
	if *orig.QueuePosition != 2 {
		t.Error("clone shares queue position with original")
	}
	if orig.SubTasks[0].Title != "sub" {
		t.Error("clone shares subtask slice with original")
	}
}
