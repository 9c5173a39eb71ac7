package assistant

import (
	"fmt"
	"strings"

	"github.com/dkotenko/taskflow/internal/task"
)

// BuildPrompt renders a task as the generation prompt.
func BuildPrompt(t *task.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Task: %s\n\n", t.Title)
	if t.Description != "" {
		b.WriteString("## Description\n")
		b.WriteString(t.Description)
		b.WriteString("\n\n")
	}

	b.WriteString("## Details\n")
	fmt.Fprintf(&b, "- Priority: %s\n", t.Priority)
	fmt.Fprintf(&b, "- Status: %s\n", t.Status)
	if t.Category != "" {
		fmt.Fprintf(&b, "- Category: %s\n", t.Category)
	}
	if t.DueDate != nil {
		fmt.Fprintf(&b, "- Due date: %s\n", t.DueDate.Format("2006-01-02"))
	}
	if t.Assignee != "" {
		fmt.Fprintf(&b, "- Assignee: %s\n", t.Assignee)
	}
	b.WriteString("\n")

	if len(t.SubTasks) > 0 {
		b.WriteString("## Subtasks\n")
		for _, st := range t.SubTasks {
			mark := " "
			if st.Completed {
				mark = "x"
			}
			fmt.Fprintf(&b, "- [%s] %s\n", mark, st.Title)
		}
		b.WriteString("\n")
	}

	b.WriteString("Complete this task. Work through any unfinished subtasks in order.\n")
	return b.String()
}
