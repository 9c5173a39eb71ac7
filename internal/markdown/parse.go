package markdown

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dkotenko/taskflow/internal/task"
)

var (
	taskLinePattern    = regexp.MustCompile(`^- \[([ xX])\]\s*(.+)$`)
	subTaskLinePattern = regexp.MustCompile(`^\s+- \[([ xX])\]\s*(.+)$`)
	priorityPattern    = regexp.MustCompile(`\s*\[(?i:high|medium|low)\]`)
	duePattern         = regexp.MustCompile(`\s*\bDue:\s*(\d{4}-\d{2}-\d{2})`)
	assigneePattern    = regexp.MustCompile(`\s@(\S+)`)
	queuePattern       = regexp.MustCompile(`\s*\bQueue:\s*(\d+)`)
)

// Parse reads an outline back into tasks. Parsed tasks get fresh identifiers
// and timestamps; the caller reconciles against the existing collection.
func Parse(content string) []*task.Task {
	var tasks []*task.Task
	var current *task.Task
	var descLines []string
	category := ""
	inCodeBlock := false
	now := time.Now()

	flush := func() {
		if current == nil {
			return
		}
		current.Description = strings.Join(descLines, "\n")
		descLines = nil
		tasks = append(tasks, current)
		current = nil
	}

	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inCodeBlock = !inCodeBlock
			continue
		}
		if inCodeBlock {
			continue
		}

		if strings.HasPrefix(line, "## ") {
			flush()
			category = strings.TrimSpace(strings.TrimPrefix(line, "## "))
			if category == uncategorizedLabel {
				category = ""
			}
			continue
		}

		if m := taskLinePattern.FindStringSubmatch(line); m != nil {
			flush()
			current = parseTaskLine(m[1], m[2], category, now)
			continue
		}

		if current == nil {
			continue
		}
		if m := subTaskLinePattern.FindStringSubmatch(line); m != nil {
			current.SubTasks = append(current.SubTasks, task.SubTask{
				ID:        ulid.Make().String(),
				Title:     strings.TrimSpace(m[2]),
				Completed: m[1] != " ",
			})
			continue
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" && strings.HasPrefix(line, "  ") {
			descLines = append(descLines, trimmed)
		}
	}
	flush()
	return tasks
}

func parseTaskLine(mark, rest, category string, now time.Time) *task.Task {
	t := &task.Task{
		ID:        ulid.Make().String(),
		Status:    task.StatusPending,
		Priority:  task.PriorityMedium,
		Category:  category,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if mark != " " {
		t.Status = task.StatusCompleted
	}

	if m := priorityPattern.FindString(rest); m != "" {
		name := strings.Trim(strings.TrimSpace(m), "[]")
		if p, err := task.ParsePriority(name); err == nil {
			t.Priority = p
		}
		rest = priorityPattern.ReplaceAllString(rest, "")
	}
	if m := duePattern.FindStringSubmatch(rest); m != nil {
		if due, err := time.Parse(dueDateLayout, m[1]); err == nil {
			t.DueDate = &due
		}
		rest = duePattern.ReplaceAllString(rest, "")
	}
	if m := queuePattern.FindStringSubmatch(rest); m != nil {
		if pos, err := strconv.Atoi(m[1]); err == nil {
			t.QueuePosition = &pos
		}
		rest = queuePattern.ReplaceAllString(rest, "")
	}
	if m := assigneePattern.FindStringSubmatch(rest); m != nil {
		t.Assignee = m[1]
		rest = assigneePattern.ReplaceAllString(rest, "")
	}

	t.Title = strings.Join(strings.Fields(rest), " ")
	return t
}
