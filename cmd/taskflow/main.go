package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/dkotenko/taskflow/internal/assistant"
	"github.com/dkotenko/taskflow/internal/config"
	"github.com/dkotenko/taskflow/internal/eventbus"
	"github.com/dkotenko/taskflow/internal/instruction/repositoryimpl"
	"github.com/dkotenko/taskflow/internal/markdown"
	"github.com/dkotenko/taskflow/internal/runner"
	"github.com/dkotenko/taskflow/internal/task"
	"github.com/dkotenko/taskflow/internal/task/storeimpl"
	"github.com/dkotenko/taskflow/pkg/cerr"
	"github.com/dkotenko/taskflow/pkg/clog"
	"github.com/dkotenko/taskflow/pkg/storage"
)

var (
	app = kingpin.New("taskflow", "Workspace task tracker with an execution queue and assistant hand-off")

	initCmd = app.Command("init", "Create the workspace files")

	addCmd         = app.Command("add", "Add a new task")
	addTitle       = addCmd.Arg("title", "Task title").Required().String()
	addDescription = addCmd.Flag("description", "Task description").Short('d').String()
	addPriority    = addCmd.Flag("priority", "Priority (high, medium, low)").Default("medium").String()
	addCategory    = addCmd.Flag("category", "Category").String()
	addTag         = addCmd.Flag("tag", "Short tag").String()
	addDue         = addCmd.Flag("due", "Due date (YYYY-MM-DD)").String()
	addAssignee    = addCmd.Flag("assignee", "Assignee").String()
	addInstruction = addCmd.Flag("instruction", "Instruction template id").String()
	addDuration    = addCmd.Flag("duration", "Execution window in minutes").Int()

	listCmd      = app.Command("list", "List tasks")
	listCategory = listCmd.Flag("category", "Filter by category").String()
	listPriority = listCmd.Flag("priority", "Filter by priority").String()
	listStatus   = listCmd.Flag("status", "Filter by status").String()
	listOverdue  = listCmd.Flag("overdue", "Only overdue tasks").Bool()

	showCmd = app.Command("show", "Show task details")
	showID  = showCmd.Arg("id", "Task ID or tag").Required().String()

	updateCmd         = app.Command("update", "Update a task")
	updateID          = updateCmd.Arg("id", "Task ID or tag").Required().String()
	updateTitle       = updateCmd.Flag("title", "New title").String()
	updateDescription = updateCmd.Flag("description", "New description").String()
	updateStatus      = updateCmd.Flag("status", "New status").String()
	updatePriority    = updateCmd.Flag("priority", "New priority").String()
	updateCategory    = updateCmd.Flag("category", "New category").String()
	updateTag         = updateCmd.Flag("tag", "New tag").String()
	updateDue         = updateCmd.Flag("due", "New due date (YYYY-MM-DD)").String()
	updateClearDue    = updateCmd.Flag("clear-due", "Remove the due date").Bool()
	updateAssignee    = updateCmd.Flag("assignee", "New assignee").String()
	updateInstruction = updateCmd.Flag("instruction", "Instruction template id").String()
	updateDuration    = updateCmd.Flag("duration", "Execution window in minutes").Int()

	deleteCmd = app.Command("delete", "Delete a task")
	deleteID  = deleteCmd.Arg("id", "Task ID or tag").Required().String()

	toggleCmd = app.Command("toggle", "Toggle a task between completed and pending")
	toggleID  = toggleCmd.Arg("id", "Task ID or tag").Required().String()

	progressCmd = app.Command("progress", "Show completion progress")
	progressID  = progressCmd.Arg("id", "Task ID or tag (omit for the whole collection)").String()

	categoriesCmd = app.Command("categories", "List the known categories")

	queueCmd = app.Command("queue", "Execution queue commands")

	queueAddCmd = queueCmd.Command("add", "Add a task to the queue")
	queueAddID  = queueAddCmd.Arg("id", "Task ID or tag").Required().String()

	queueRemoveCmd = queueCmd.Command("remove", "Remove a task from the queue")
	queueRemoveID  = queueRemoveCmd.Arg("id", "Task ID or tag").Required().String()

	queueMoveCmd = queueCmd.Command("move", "Move a task inside the queue")
	queueMoveID  = queueMoveCmd.Arg("id", "Task ID or tag").Required().String()
	queueMovePos = queueMoveCmd.Arg("position", "Target position (1-based)").Required().Int()

	queueListCmd = queueCmd.Command("list", "Show the queue")

	runCmd = app.Command("run", "Execute queued tasks")

	runNextCmd = runCmd.Command("next", "Start and resolve the next queued task")

	runQueueCmd  = runCmd.Command("queue", "Run the whole queue")
	runQueueAuto = runQueueCmd.Flag("auto", "Automatic mode: timed windows instead of prompts").Bool()

	instructionCmd = app.Command("instruction", "Instruction template commands")

	instructionCreateCmd     = instructionCmd.Command("create", "Create an instruction template")
	instructionCreateName    = instructionCreateCmd.Arg("name", "Template name").Required().String()
	instructionCreateDesc    = instructionCreateCmd.Flag("description", "Short description").String()
	instructionCreateContent = instructionCreateCmd.Flag("content", "Template content").String()
	instructionCreateFile    = instructionCreateCmd.Flag("file", "Read the content from a file").String()

	instructionListCmd = instructionCmd.Command("list", "List instruction templates")

	instructionShowCmd = instructionCmd.Command("show", "Show an instruction template")
	instructionShowID  = instructionShowCmd.Arg("id", "Template id").Required().String()

	instructionDeleteCmd = instructionCmd.Command("delete", "Delete an instruction template")
	instructionDeleteID  = instructionDeleteCmd.Arg("id", "Template id").Required().String()

	importCmd = app.Command("import", "Import tasks from external sources")

	importTrelloCmd   = importCmd.Command("trello", "Import open Trello cards")
	importYouTrackCmd = importCmd.Command("youtrack", "Import YouTrack issues")

	importMarkdownCmd  = importCmd.Command("markdown", "Import tasks from a markdown outline")
	importMarkdownFile = importMarkdownCmd.Arg("file", "Markdown file").Required().String()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	clog.Setup(os.Stderr, env.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = clog.ContextWithSlog(ctx)

	if err := run(ctx, command, env); err != nil {
		printError(err)
		if cerr.CodeOf(err).Level() == clog.LevelError {
			cerr.Log(ctx, err)
			os.Exit(1)
		}
	}
}

func run(ctx context.Context, command string, env *config.Env) error {
	st, err := storage.NewLocalStorage(env.WorkspaceDir())
	if err != nil {
		return cerr.NewError(cerr.Internal, "failed to open workspace", err)
	}
	store := storeimpl.NewJSONStore(st, env.StateName())
	bus := eventbus.New()
	defer bus.Close()

	registry := task.NewRegistry(st, store, bus, markdown.Generate, task.Options{
		MarkdownName: env.MarkdownName(),
		StateName:    env.StateName(),
		AutoSave:     env.AutoSave,
	})
	if err := registry.Initialize(ctx); err != nil {
		return err
	}
	defer registry.Close()

	instructions := repositoryimpl.NewMarkdownRepository(st, env.InstructionsDirName())

	cwd, err := os.Getwd()
	if err != nil {
		return cerr.NewError(cerr.Internal, "failed to resolve working directory", err)
	}
	generator := assistant.NewClaudeGenerator(env.AssistantEnabled, cwd, instructions, os.Stdout)

	mode, err := runner.ParseMode(env.ExecutionMode)
	if err != nil {
		return err
	}
	if command == runQueueCmd.FullCommand() && *runQueueAuto {
		mode = runner.ModeAutomatic
	}
	sequencer := runner.New(registry, generator, runner.NewConsoleResolver(os.Stdin, os.Stdout), runner.Config{
		Mode:            mode,
		DefaultDuration: time.Duration(env.DefaultTaskMinutes) * time.Minute,
		Pause:           time.Duration(env.QueuePauseSeconds) * time.Second,
	}, os.Stdout)

	if mode == runner.ModeAutomatic && (command == runNextCmd.FullCommand() || command == runQueueCmd.FullCommand()) {
		fmt.Println("Type c to complete or s to skip the running task.")
		go sequencer.ListenInterrupts(ctx, os.Stdin)
	}

	h := &handlers{
		env:          env,
		registry:     registry,
		instructions: instructions,
		sequencer:    sequencer,
	}
	return h.dispatch(ctx, command)
}
