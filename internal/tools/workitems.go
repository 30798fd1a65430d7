package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/crewd/internal/store"
)

// accessDenied is returned when a tool call references data outside the
// calling agent's team. It is text, not an error value, so the model can
// read it.
const accessDenied = "access denied: the requested record belongs to another team"

// CreateTaskTool creates a team task.
type CreateTaskTool struct {
	Tasks store.TaskStore
}

func (t *CreateTaskTool) Name() string        { return "create_task" }
func (t *CreateTaskTool) Description() string { return "Create a task on the team board." }
func (t *CreateTaskTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"title":       prop("string", "Task title"),
		"description": prop("string", "Task details"),
	}, "title")
}
func (t *CreateTaskTool) Execute(ctx context.Context, args map[string]any) *Result {
	title := argString(args, "title")
	if title == "" {
		return ErrorResult("create_task requires a title")
	}
	task := &store.TaskData{
		TeamID:      TeamIDFromCtx(ctx),
		AgentID:     AgentIDFromCtx(ctx),
		Title:       title,
		Description: argString(args, "description"),
	}
	if err := t.Tasks.Create(ctx, task); err != nil {
		return ErrorResult(fmt.Sprintf("create task: %v", err))
	}
	return NewResult(fmt.Sprintf("task created: %s (%s)", task.Title, task.ID))
}

// UpdateTaskTool updates a team task's fields.
type UpdateTaskTool struct {
	Tasks store.TaskStore
}

func (t *UpdateTaskTool) Name() string        { return "update_task" }
func (t *UpdateTaskTool) Description() string { return "Update a task's title, description or status (todo, in_progress, done)." }
func (t *UpdateTaskTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"task_id":     prop("string", "Task id"),
		"title":       prop("string", "New title (optional)"),
		"description": prop("string", "New description (optional)"),
		"status":      prop("string", "New status (optional)"),
	}, "task_id")
}
func (t *UpdateTaskTool) Execute(ctx context.Context, args map[string]any) *Result {
	id, err := uuid.Parse(argString(args, "task_id"))
	if err != nil {
		return ErrorResult("update_task requires a valid task_id")
	}

	existing, err := t.Tasks.Get(ctx, id)
	if err != nil {
		return ErrorResult(fmt.Sprintf("task %s not found", id))
	}
	if existing.TeamID != TeamIDFromCtx(ctx) {
		return ErrorResult(accessDenied)
	}

	status := argString(args, "status")
	switch status {
	case "", "todo", "in_progress", "done":
	default:
		return ErrorResult("status must be one of: todo, in_progress, done")
	}

	if err := t.Tasks.Update(ctx, id, argString(args, "title"), argString(args, "description"), status); err != nil {
		return ErrorResult(fmt.Sprintf("update task: %v", err))
	}
	return NewResult("task updated: " + id.String())
}

// ListTasksTool lists the team's tasks.
type ListTasksTool struct {
	Tasks store.TaskStore
}

func (t *ListTasksTool) Name() string        { return "list_tasks" }
func (t *ListTasksTool) Description() string { return "List the team's tasks, optionally filtered by status." }
func (t *ListTasksTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"status": prop("string", "Filter: todo, in_progress or done (optional)"),
	})
}
func (t *ListTasksTool) Execute(ctx context.Context, args map[string]any) *Result {
	tasks, err := t.Tasks.List(ctx, TeamIDFromCtx(ctx), argString(args, "status"))
	if err != nil {
		return ErrorResult(fmt.Sprintf("list tasks: %v", err))
	}
	if len(tasks) == 0 {
		return NewResult("no tasks found")
	}
	var b strings.Builder
	for _, task := range tasks {
		fmt.Fprintf(&b, "[%s] %s — %s\n", task.Status, task.Title, task.ID)
	}
	return NewResult(strings.TrimRight(b.String(), "\n"))
}

// SendMessageTool posts a message to a team chat channel.
type SendMessageTool struct {
	Chat store.ChatStore
}

func (t *SendMessageTool) Name() string        { return "send_message" }
func (t *SendMessageTool) Description() string { return "Post a message to a team chat channel." }
func (t *SendMessageTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"channel": prop("string", "Channel name (default: general)"),
		"content": prop("string", "Message text"),
	}, "content")
}
func (t *SendMessageTool) Execute(ctx context.Context, args map[string]any) *Result {
	content := argString(args, "content")
	if content == "" {
		return ErrorResult("send_message requires content")
	}
	channel := argString(args, "channel")
	if channel == "" {
		channel = "general"
	}
	msg := &store.ChatMessageData{
		TeamID:  TeamIDFromCtx(ctx),
		AgentID: AgentIDFromCtx(ctx),
		Channel: channel,
		Content: content,
	}
	if err := t.Chat.Post(ctx, msg); err != nil {
		return ErrorResult(fmt.Sprintf("send message: %v", err))
	}
	return NewResult("message posted to #" + channel)
}
