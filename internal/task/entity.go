package task

import (
	"strings"
	"time"

	"github.com/dkotenko/taskflow/pkg/cerr"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, nil
	case "in_progress", "in-progress", "inprogress":
		return StatusInProgress, nil
	case "completed", "done":
		return StatusCompleted, nil
	}
	return "", cerr.NewError(cerr.InvalidArgument, "unknown status: "+s, nil)
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh, nil
	case "medium", "":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	}
	return "", cerr.NewError(cerr.InvalidArgument, "unknown priority: "+s, nil)
}

// Rank orders priorities for queue sorting: high first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

type SubTask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type Task struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	Status            Status     `json:"status"`
	Priority          Priority   `json:"priority"`
	Category          string     `json:"category,omitempty"`
	Tag               string     `json:"tag,omitempty"`
	DueDate           *time.Time `json:"dueDate,omitempty"`
	Assignee          string     `json:"assignee,omitempty"`
	SubTasks          []SubTask  `json:"subtasks,omitempty"`
	QueuePosition     *int       `json:"queuePosition,omitempty"`
	InstructionID     string     `json:"instructionId,omitempty"`
	ExecutionDuration int        `json:"executionDuration,omitempty"` // minutes
	Result            string     `json:"result,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func (t *Task) Queued() bool {
	return t.QueuePosition != nil
}

func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != StatusCompleted
}

func (t *Task) Clone() *Task {
	c := *t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.QueuePosition != nil {
		p := *t.QueuePosition
		c.QueuePosition = &p
	}
	if t.SubTasks != nil {
		c.SubTasks = make([]SubTask, len(t.SubTasks))
		copy(c.SubTasks, t.SubTasks)
	}
	return &c
}

type ProgressStats struct {
	Total      int
	Completed  int
	Pending    int
	Percentage int
}
