package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/dkotenko/taskflow/internal/config"
	"github.com/dkotenko/taskflow/internal/importer"
	"github.com/dkotenko/taskflow/internal/instruction"
	"github.com/dkotenko/taskflow/internal/markdown"
	"github.com/dkotenko/taskflow/internal/runner"
	"github.com/dkotenko/taskflow/internal/task"
	"github.com/dkotenko/taskflow/pkg/cerr"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
)

type handlers struct {
	env          *config.Env
	registry     *task.Registry
	instructions instruction.Repository
	sequencer    *runner.Sequencer
}

func (h *handlers) dispatch(ctx context.Context, command string) error {
	switch command {
	case initCmd.FullCommand():
		return h.handleInit(ctx)
	case addCmd.FullCommand():
		return h.handleAdd(ctx)
	case listCmd.FullCommand():
		return h.handleList()
	case showCmd.FullCommand():
		return h.handleShow()
	case updateCmd.FullCommand():
		return h.handleUpdate(ctx)
	case deleteCmd.FullCommand():
		return h.handleDelete(ctx)
	case toggleCmd.FullCommand():
		return h.handleToggle(ctx)
	case progressCmd.FullCommand():
		return h.handleProgress()
	case categoriesCmd.FullCommand():
		return h.handleCategories()
	case queueAddCmd.FullCommand():
		return h.handleQueueAdd(ctx)
	case queueRemoveCmd.FullCommand():
		return h.handleQueueRemove(ctx)
	case queueMoveCmd.FullCommand():
		return h.handleQueueMove(ctx)
	case queueListCmd.FullCommand():
		return h.handleQueueList()
	case runNextCmd.FullCommand():
		return h.handleRunNext(ctx)
	case runQueueCmd.FullCommand():
		return h.handleRunQueue(ctx)
	case instructionCreateCmd.FullCommand():
		return h.handleInstructionCreate(ctx)
	case instructionListCmd.FullCommand():
		return h.handleInstructionList(ctx)
	case instructionShowCmd.FullCommand():
		return h.handleInstructionShow(ctx)
	case instructionDeleteCmd.FullCommand():
		return h.handleInstructionDelete(ctx)
	case importTrelloCmd.FullCommand():
		return h.handleImportTrello(ctx)
	case importYouTrackCmd.FullCommand():
		return h.handleImportYouTrack(ctx)
	case importMarkdownCmd.FullCommand():
		return h.handleImportMarkdown(ctx)
	}
	return cerr.NewError(cerr.Unimplemented, "unknown command: "+command, nil)
}

func (h *handlers) handleInit(ctx context.Context) error {
	if len(h.registry.List()) > 0 {
		fmt.Println("Workspace already initialized.")
		return nil
	}
	t, err := h.registry.Add(ctx, task.Draft{
		Title:       "Review the generated tasks file",
		Description: "Edit " + h.env.TasksFile + " or use the CLI to manage tasks.",
	})
	if err != nil {
		return err
	}
	fmt.Printf("Workspace created at %s (starter task %s).\n", h.env.WorkspaceDir(), faint(t.ID))
	return nil
}

func (h *handlers) handleAdd(ctx context.Context) error {
	priority, err := task.ParsePriority(*addPriority)
	if err != nil {
		return err
	}
	due, err := parseDue(*addDue)
	if err != nil {
		return err
	}
	t, err := h.registry.Add(ctx, task.Draft{
		Title:             *addTitle,
		Description:       *addDescription,
		Priority:          priority,
		Category:          *addCategory,
		Tag:               *addTag,
		DueDate:           due,
		Assignee:          *addAssignee,
		InstructionID:     *addInstruction,
		ExecutionDuration: *addDuration,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Added %s %s\n", faint(t.ID), t.Title)
	return nil
}

func (h *handlers) handleList() error {
	tasks := h.registry.List()
	if *listOverdue {
		tasks = h.registry.Overdue()
	} else if *listCategory != "" {
		tasks = h.registry.ByCategory(*listCategory)
	} else if *listPriority != "" {
		p, err := task.ParsePriority(*listPriority)
		if err != nil {
			return err
		}
		tasks = h.registry.ByPriority(p)
	} else if *listStatus != "" {
		s, err := task.ParseStatus(*listStatus)
		if err != nil {
			return err
		}
		tasks = h.registry.ByStatus(s)
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks.")
		return nil
	}
	for _, t := range tasks {
		printTaskLine(t)
	}
	return nil
}

func (h *handlers) handleShow() error {
	t, err := h.resolve(*showID)
	if err != nil {
		return err
	}
	printTaskDetails(t)
	return nil
}

func (h *handlers) handleUpdate(ctx context.Context) error {
	t, err := h.resolve(*updateID)
	if err != nil {
		return err
	}
	var up task.Updates
	if *updateTitle != "" {
		up.Title = updateTitle
	}
	if *updateDescription != "" {
		up.Description = updateDescription
	}
	if *updateStatus != "" {
		s, err := task.ParseStatus(*updateStatus)
		if err != nil {
			return err
		}
		up.Status = &s
	}
	if *updatePriority != "" {
		p, err := task.ParsePriority(*updatePriority)
		if err != nil {
			return err
		}
		up.Priority = &p
	}
	if *updateCategory != "" {
		up.Category = updateCategory
	}
	if *updateTag != "" {
		up.Tag = updateTag
	}
	if *updateDue != "" {
		due, err := parseDue(*updateDue)
		if err != nil {
			return err
		}
		up.DueDate = due
	}
	up.ClearDueDate = *updateClearDue
	if *updateAssignee != "" {
		up.Assignee = updateAssignee
	}
	if *updateInstruction != "" {
		up.InstructionID = updateInstruction
	}
	if *updateDuration != 0 {
		up.ExecutionDuration = updateDuration
	}
	updated, err := h.registry.Update(ctx, t.ID, up)
	if err != nil {
		return err
	}
	fmt.Printf("Updated %s %s\n", faint(updated.ID), updated.Title)
	return nil
}

func (h *handlers) handleDelete(ctx context.Context) error {
	t, err := h.resolve(*deleteID)
	if err != nil {
		return err
	}
	if err := h.registry.Delete(ctx, t.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted %s %s\n", faint(t.ID), t.Title)
	return nil
}

func (h *handlers) handleToggle(ctx context.Context) error {
	t, err := h.resolve(*toggleID)
	if err != nil {
		return err
	}
	toggled, err := h.registry.Toggle(ctx, t.ID)
	if err != nil {
		return err
	}
	fmt.Printf("%s is now %s\n", toggled.Title, statusLabel(toggled.Status))
	return nil
}

func (h *handlers) handleProgress() error {
	if *progressID != "" {
		t, err := h.resolve(*progressID)
		if err != nil {
			return err
		}
		stats := task.TaskProgress(t)
		fmt.Printf("%s: %d/%d subtasks done (%d%%)\n", t.Title, stats.Completed, stats.Total, stats.Percentage)
		return nil
	}
	stats := h.registry.Progress()
	fmt.Printf("%d tasks, %s completed, %s pending (%d%%)\n",
		stats.Total, green(stats.Completed), yellow(stats.Pending), stats.Percentage)
	return nil
}

func (h *handlers) handleCategories() error {
	categories := h.registry.Categories()
	if len(categories) == 0 {
		fmt.Println("No categories.")
		return nil
	}
	for _, c := range categories {
		fmt.Println(c)
	}
	return nil
}

func (h *handlers) handleQueueAdd(ctx context.Context) error {
	t, err := h.resolve(*queueAddID)
	if err != nil {
		return err
	}
	if err := h.registry.Enqueue(ctx, t.ID); err != nil {
		if cerr.IsCode(err, cerr.AlreadyExists) {
			fmt.Printf("%s is already queued.\n", t.Title)
			return nil
		}
		return err
	}
	return h.handleQueueList()
}

func (h *handlers) handleQueueRemove(ctx context.Context) error {
	t, err := h.resolve(*queueRemoveID)
	if err != nil {
		return err
	}
	if err := h.registry.Dequeue(ctx, t.ID); err != nil {
		if cerr.IsCode(err, cerr.FailedPrecondition) {
			fmt.Printf("%s is not queued.\n", t.Title)
			return nil
		}
		return err
	}
	fmt.Printf("Removed %s from the queue.\n", t.Title)
	return nil
}

func (h *handlers) handleQueueMove(ctx context.Context) error {
	t, err := h.resolve(*queueMoveID)
	if err != nil {
		return err
	}
	if err := h.registry.MoveInQueue(ctx, t.ID, *queueMovePos); err != nil {
		return err
	}
	return h.handleQueueList()
}

func (h *handlers) handleQueueList() error {
	queued := h.registry.Queued()
	if len(queued) == 0 {
		fmt.Println("The queue is empty.")
		return nil
	}
	for _, t := range queued {
		fmt.Printf("%2d. %s %s %s\n", *t.QueuePosition, priorityLabel(t.Priority), t.Title, faint(t.ID))
	}
	return nil
}

func (h *handlers) handleRunNext(ctx context.Context) error {
	t, res, err := h.sequencer.RunNext(ctx)
	if err != nil {
		return err
	}
	if t == nil || res == nil {
		return nil
	}
	if res.Outcome == runner.OutcomeCompleted {
		fmt.Printf("%s %s\n", green("Completed"), t.Title)
	} else {
		fmt.Printf("%s %s\n", yellow("Skipped"), t.Title)
	}
	return nil
}

func (h *handlers) handleRunQueue(ctx context.Context) error {
	queued := h.registry.Queued()
	if len(queued) == 0 {
		fmt.Println("The queue is empty.")
		return nil
	}
	fmt.Printf("Running %d queued task(s)...\n", len(queued))
	sum, err := h.sequencer.RunQueue(ctx)
	fmt.Printf("Done: %s completed, %s skipped, %s failed.\n",
		green(sum.Completed), yellow(sum.Skipped), red(sum.Errors))
	return err
}

func (h *handlers) handleInstructionCreate(ctx context.Context) error {
	content := *instructionCreateContent
	if *instructionCreateFile != "" {
		data, err := os.ReadFile(*instructionCreateFile)
		if err != nil {
			return cerr.NewError(cerr.InvalidArgument, "failed to read content file", err)
		}
		content = string(data)
	}
	if strings.TrimSpace(content) == "" {
		return cerr.NewError(cerr.InvalidArgument, "instruction content must not be empty", nil)
	}
	inst, err := h.instructions.Create(ctx, *instructionCreateName, *instructionCreateDesc, content)
	if err != nil {
		return err
	}
	fmt.Printf("Created instruction %s\n", cyan(inst.ID))
	return nil
}

func (h *handlers) handleInstructionList(ctx context.Context) error {
	instructions, err := h.instructions.List(ctx)
	if err != nil {
		return err
	}
	for _, inst := range instructions {
		marker := " "
		if inst.IsDefault {
			marker = "*"
		}
		fmt.Printf("%s %s %s\n", marker, cyan(inst.ID), inst.Name)
	}
	return nil
}

func (h *handlers) handleInstructionShow(ctx context.Context) error {
	inst, err := h.instructions.Get(ctx, *instructionShowID)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n", inst.Name, inst.ID)
	if inst.Description != "" {
		fmt.Println(faint(inst.Description))
	}
	fmt.Println()
	fmt.Println(inst.Content)
	return nil
}

func (h *handlers) handleInstructionDelete(ctx context.Context) error {
	if err := h.instructions.Delete(ctx, *instructionDeleteID); err != nil {
		return err
	}
	fmt.Printf("Deleted instruction %s\n", cyan(*instructionDeleteID))
	return nil
}

func (h *handlers) handleImportTrello(ctx context.Context) error {
	imp := importer.NewTrelloImporter(
		h.env.TrelloAPIKey, h.env.TrelloToken, h.env.TrelloBoardID,
		h.env.TrelloListIDs, h.env.TrelloBaseURL)
	return h.runImport(ctx, imp)
}

func (h *handlers) handleImportYouTrack(ctx context.Context) error {
	imp := importer.NewYouTrackImporter(
		h.env.YouTrackBaseURL, h.env.YouTrackToken,
		h.env.YouTrackProjectID, h.env.YouTrackQuery)
	return h.runImport(ctx, imp)
}

func (h *handlers) runImport(ctx context.Context, imp importer.Importer) error {
	result, err := importer.Run(ctx, h.registry, imp)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %s task(s) from %s, %d duplicate(s) skipped.\n",
		green(result.Added), imp.Name(), result.Skipped)
	return nil
}

func (h *handlers) handleImportMarkdown(ctx context.Context) error {
	data, err := os.ReadFile(*importMarkdownFile)
	if err != nil {
		return cerr.NewError(cerr.InvalidArgument, "failed to read markdown file", err)
	}
	parsed := markdown.Parse(string(data))
	fresh, duplicates := importer.Deduplicate(h.registry.List(), parsed)
	added, err := h.registry.Import(ctx, fresh)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %s task(s), %d duplicate(s) skipped.\n", green(added), duplicates)
	return nil
}

// resolve finds a task by exact id, unique id prefix or tag.
func (h *handlers) resolve(ref string) (*task.Task, error) {
	if t, err := h.registry.Get(ref); err == nil {
		return t, nil
	}
	var match *task.Task
	for _, t := range h.registry.List() {
		if strings.HasPrefix(t.ID, ref) || strings.EqualFold(t.Tag, ref) {
			if match != nil {
				return nil, cerr.NewError(cerr.InvalidArgument, "ambiguous task reference: "+ref, nil)
			}
			match = t
		}
	}
	if match == nil {
		return nil, cerr.NewError(cerr.NotFound, "task not found: "+ref, nil)
	}
	return match, nil
}

func parseDue(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	due, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, cerr.NewError(cerr.InvalidArgument, "due date must be YYYY-MM-DD", err)
	}
	return &due, nil
}

func printTaskLine(t *task.Task) {
	mark := "[ ]"
	if t.Status == task.StatusCompleted {
		mark = green("[x]")
	} else if t.Status == task.StatusInProgress {
		mark = yellow("[~]")
	}
	line := fmt.Sprintf("%s %s %s", mark, priorityLabel(t.Priority), t.Title)
	if t.Category != "" {
		line += " " + faint("("+t.Category+")")
	}
	if t.Queued() {
		line += fmt.Sprintf(" queue:%d", *t.QueuePosition)
	}
	fmt.Printf("%s %s\n", line, faint(t.ID))
}

func printTaskDetails(t *task.Task) {
	fmt.Printf("%s\n", t.Title)
	fmt.Printf("  id:       %s\n", t.ID)
	fmt.Printf("  status:   %s\n", statusLabel(t.Status))
	fmt.Printf("  priority: %s\n", priorityLabel(t.Priority))
	if t.Category != "" {
		fmt.Printf("  category: %s\n", t.Category)
	}
	if t.Tag != "" {
		fmt.Printf("  tag:      %s\n", t.Tag)
	}
	if t.DueDate != nil {
		fmt.Printf("  due:      %s\n", t.DueDate.Format("2006-01-02"))
	}
	if t.Assignee != "" {
		fmt.Printf("  assignee: %s\n", t.Assignee)
	}
	if t.Queued() {
		fmt.Printf("  queue:    %d\n", *t.QueuePosition)
	}
	if t.InstructionID != "" {
		fmt.Printf("  instruction: %s\n", t.InstructionID)
	}
	if t.ExecutionDuration > 0 {
		fmt.Printf("  duration: %d min\n", t.ExecutionDuration)
	}
	if t.Description != "" {
		fmt.Printf("\n%s\n", t.Description)
	}
	if len(t.SubTasks) > 0 {
		fmt.Println()
		for _, st := range t.SubTasks {
			mark := "[ ]"
			if st.Completed {
				mark = green("[x]")
			}
			fmt.Printf("  %s %s\n", mark, st.Title)
		}
	}
	if t.Result != "" {
		fmt.Printf("\n%s %s\n", faint("result:"), t.Result)
	}
}

func statusLabel(s task.Status) string {
	switch s {
	case task.StatusCompleted:
		return green(string(s))
	case task.StatusInProgress:
		return yellow(string(s))
	default:
		return string(s)
	}
}

func priorityLabel(p task.Priority) string {
	switch p {
	case task.PriorityHigh:
		return red("[high]")
	case task.PriorityLow:
		return cyan("[low]")
	default:
		return faint("[med]")
	}
}

func printError(err error) {
	msg := err.Error()
	var cErr *cerr.Error
	if errors.As(err, &cErr) {
		msg = cErr.Msg
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", red("error:"), msg)
}
