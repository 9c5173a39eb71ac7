// Package markdown renders the task collection as a human-readable outline
// and parses edited outlines back into tasks. The two directions are kept
// inverse to each other so an external edit of the file round-trips.
package markdown

import (
	"fmt"
	"strings"

	"github.com/dkotenko/taskflow/internal/task"
)

const (
	header             = "# Tasks"
	uncategorizedLabel = "Uncategorized"
	dueDateLayout      = "2006-01-02"
)

func Generate(tasks []*task.Task) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")

	var categories []string
	grouped := make(map[string][]*task.Task)
	var uncategorized []*task.Task
	for _, t := range tasks {
		if t.Category == "" {
			uncategorized = append(uncategorized, t)
			continue
		}
		if _, ok := grouped[t.Category]; !ok {
			categories = append(categories, t.Category)
		}
		grouped[t.Category] = append(grouped[t.Category], t)
	}
	if len(uncategorized) > 0 {
		categories = append(categories, uncategorizedLabel)
		grouped[uncategorizedLabel] = uncategorized
	}

	for _, category := range categories {
		fmt.Fprintf(&b, "## %s\n\n", category)
		for _, t := range grouped[category] {
			writeTask(&b, t)
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeTask(b *strings.Builder, t *task.Task) {
	fmt.Fprintf(b, "- [%s] %s", checkbox(t.Status == task.StatusCompleted), t.Title)
	switch t.Priority {
	case task.PriorityHigh:
		b.WriteString(" [High]")
	case task.PriorityLow:
		b.WriteString(" [Low]")
	}
	if t.DueDate != nil {
		fmt.Fprintf(b, " Due: %s", t.DueDate.Format(dueDateLayout))
	}
	if t.Assignee != "" {
		fmt.Fprintf(b, " @%s", t.Assignee)
	}
	if t.QueuePosition != nil {
		fmt.Fprintf(b, " Queue: %d", *t.QueuePosition)
	}
	b.WriteString("\n")

	if t.Description != "" {
		for _, line := range strings.Split(t.Description, "\n") {
			fmt.Fprintf(b, "  %s\n", line)
		}
	}
	for _, st := range t.SubTasks {
		fmt.Fprintf(b, "  - [%s] %s\n", checkbox(st.Completed), st.Title)
	}
	b.WriteString("\n")
}

func checkbox(done bool) string {
	if done {
		return "x"
	}
	return " "
}
