package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	// InboxProjectID is assigned to tasks and log entries whose project slug
	// matches no project.
	InboxProjectID = "inbox"
	// DefaultProjectSlug is used when a create request names no project.
	DefaultProjectSlug = "inbox"
	// DefaultProjectColor is the color given to projects created over the API.
	DefaultProjectColor = "#83a598"
)

// Task statuses. This package only ever writes TODO and DONE; the others are
// set by the desktop UI and are passed through.
const (
	StatusTodo      = "TODO"
	StatusDoing     = "DOING"
	StatusDone      = "DONE"
	StatusCancelled = "CANCELLED"
	StatusWaiting   = "WAITING"
)

// NowMillis returns the current time in milliseconds since the epoch.
var NowMillis = func() int64 { return time.Now().UnixMilli() }

// NewID generates entity ids.
var NewID = uuid.NewString

// Project groups tasks under a human-facing slug.
type Project struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Slug      string   `json:"slug"`
	Color     string   `json:"color"`
	TaskOrder []string `json:"taskOrder"`
	CreatedAt int64    `json:"createdAt"`
	IsInbox   bool     `json:"isInbox"`

	Extra Extra `json:"-"`
}

// Recurrence describes how a task repeats.
type Recurrence struct {
	Type      string `json:"type"`
	DayOfWeek *int   `json:"dayOfWeek,omitempty"`

	Extra Extra `json:"-"`
}

// Task is a single to-do item.
type Task struct {
	ID          string      `json:"id"`
	Content     string      `json:"content"`
	Completed   bool        `json:"completed"`
	Status      string      `json:"status"`
	Archived    bool        `json:"archived"`
	ProjectID   string      `json:"projectId"`
	ParentID    *string     `json:"parentId"`
	Indent      int         `json:"indent"`
	CreatedAt   int64       `json:"createdAt"`
	CompletedAt *int64      `json:"completedAt"`
	DueAt       *int64      `json:"dueAt"`
	Scheduled   *int64      `json:"scheduled"`
	Notes       *string     `json:"notes"`
	Recurrence  *Recurrence `json:"recurrence"`

	Extra Extra `json:"-"`
}

// LogEntry is a free-form journal line attached to a project.
type LogEntry struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
	ProjectID string `json:"projectId"`

	Extra Extra `json:"-"`
}

// NewProject builds a project with a fresh id and default presentation.
func NewProject(name, slug string) *Project {
	return &Project{
		ID:        NewID(),
		Name:      name,
		Slug:      slug,
		Color:     DefaultProjectColor,
		TaskOrder: []string{},
		CreatedAt: NowMillis(),
		IsInbox:   false,
	}
}

// NewTask builds an open TODO task in the given project.
func NewTask(content, projectID string) *Task {
	return &Task{
		ID:        NewID(),
		Content:   content,
		Status:    StatusTodo,
		ProjectID: projectID,
		CreatedAt: NowMillis(),
	}
}

// NewLogEntry builds a log entry in the given project.
func NewLogEntry(content, projectID string) *LogEntry {
	return &LogEntry{
		ID:        NewID(),
		Content:   content,
		CreatedAt: NowMillis(),
		ProjectID: projectID,
	}
}

// IsPending reports whether the task is neither archived nor completed,
// regardless of its status field.
func (t *Task) IsPending() bool {
	return !t.Archived && !t.Completed
}

// EffectiveStatus returns the task status, treating a missing one as TODO.
func (t *Task) EffectiveStatus() string {
	if t.Status == "" {
		return StatusTodo
	}
	return t.Status
}

// Complete marks the task done at the given time. A task that is already done
// keeps its completion time, so completing twice yields the same task. A stale
// completedAt left on a reopened task is replaced.
func (t *Task) Complete(now int64) {
	if t.Completed && t.Status == StatusDone && t.CompletedAt != nil {
		return
	}
	t.Completed = true
	t.Status = StatusDone
	t.CompletedAt = &now
}

// Archive sets the one-way archived flag.
func (t *Task) Archive() {
	t.Archived = true
}

func (p *Project) hasTask(id string) bool {
	for _, tid := range p.TaskOrder {
		if tid == id {
			return true
		}
	}
	return false
}
