package domain

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	keyProjects   = "projects"
	keyTasks      = "tasks"
	keyLogEntries = "logEntries"
)

var (
	projectKeys  = jsonKeys(projectFields{})
	taskKeys     = jsonKeys(taskFields{})
	logEntryKeys = jsonKeys(logEntryFields{})

	recurrenceKeys     = jsonKeys(recurrenceFields{})
	recurrenceTypeOnly = map[string]struct{}{"type": {}}
)

// Document is the root object persisted to data.json. Projects and tasks keep
// the order in which they appear in the file.
type Document struct {
	Projects   *orderedmap.OrderedMap[string, *Project]
	Tasks      *orderedmap.OrderedMap[string, *Task]
	LogEntries []*LogEntry

	Extra Extra
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		Projects:   orderedmap.New[string, *Project](),
		Tasks:      orderedmap.New[string, *Task](),
		LogEntries: []*LogEntry{},
	}
}

// ParseDocument decodes a serialized document. The literal null decodes to an
// empty document.
func ParseDocument(data []byte) (*Document, error) {
	doc := NewDocument()
	if isNull(data) {
		return doc, nil
	}
	if err := codec.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ProjectList returns the projects in insertion order.
func (d *Document) ProjectList() []*Project {
	out := make([]*Project, 0, d.Projects.Len())
	for pair := d.Projects.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// TaskList returns the tasks in insertion order.
func (d *Document) TaskList() []*Task {
	out := make([]*Task, 0, d.Tasks.Len())
	for pair := d.Tasks.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Project returns the project with the given id.
func (d *Document) Project(id string) (*Project, bool) {
	return d.Projects.Get(id)
}

// Task returns the task with the given id.
func (d *Document) Task(id string) (*Task, bool) {
	return d.Tasks.Get(id)
}

// AddProject stores p under its id.
func (d *Document) AddProject(p *Project) {
	d.Projects.Set(p.ID, p)
}

// AddTask stores t and appends its id to the owning project's task order. The
// order is left alone when the project does not exist, which is the normal
// case for the inbox sentinel.
func (d *Document) AddTask(t *Task) {
	d.Tasks.Set(t.ID, t)
	if p, ok := d.Projects.Get(t.ProjectID); ok && !p.hasTask(t.ID) {
		p.TaskOrder = append(p.TaskOrder, t.ID)
	}
}

// AppendLog adds e to the end of the log.
func (d *Document) AppendLog(e *LogEntry) {
	d.LogEntries = append(d.LogEntries, e)
}

type documentFields struct {
	Projects   *orderedmap.OrderedMap[string, *Project] `json:"projects"`
	Tasks      *orderedmap.OrderedMap[string, *Task]    `json:"tasks"`
	LogEntries []*LogEntry                              `json:"logEntries"`
}

func (d Document) MarshalJSON() ([]byte, error) {
	fields := documentFields{Projects: d.Projects, Tasks: d.Tasks, LogEntries: d.LogEntries}
	if fields.Projects == nil {
		fields.Projects = orderedmap.New[string, *Project]()
	}
	if fields.Tasks == nil {
		fields.Tasks = orderedmap.New[string, *Task]()
	}
	if fields.LogEntries == nil {
		fields.LogEntries = []*LogEntry{}
	}
	data, err := codec.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return mergeExtra(data, d.Extra)
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var members map[string]json.RawMessage
	if err := codec.Unmarshal(data, &members); err != nil {
		return err
	}
	*d = *NewDocument()
	for key, raw := range members {
		switch key {
		case keyProjects:
			if isNull(raw) {
				continue
			}
			if err := d.Projects.UnmarshalJSON(raw); err != nil {
				return err
			}
			for pair := d.Projects.Oldest(); pair != nil; {
				next := pair.Next()
				if pair.Value == nil {
					d.Projects.Delete(pair.Key)
				}
				pair = next
			}
		case keyTasks:
			if isNull(raw) {
				continue
			}
			if err := d.Tasks.UnmarshalJSON(raw); err != nil {
				return err
			}
			for pair := d.Tasks.Oldest(); pair != nil; {
				next := pair.Next()
				if pair.Value == nil {
					d.Tasks.Delete(pair.Key)
				}
				pair = next
			}
		case keyLogEntries:
			if isNull(raw) {
				continue
			}
			var entries []*LogEntry
			if err := codec.Unmarshal(raw, &entries); err != nil {
				return err
			}
			for _, e := range entries {
				if e != nil {
					d.LogEntries = append(d.LogEntries, e)
				}
			}
		default:
			if d.Extra == nil {
				d.Extra = Extra{}
			}
			d.Extra[key] = raw
		}
	}
	return nil
}

type projectFields Project

func (p Project) MarshalJSON() ([]byte, error) {
	fields := projectFields(p)
	if fields.TaskOrder == nil {
		fields.TaskOrder = []string{}
	}
	data, err := codec.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return mergeExtra(data, p.Extra)
}

func (p *Project) UnmarshalJSON(data []byte) error {
	var fields projectFields
	if err := codec.Unmarshal(data, &fields); err != nil {
		return err
	}
	extra, err := splitExtra(data, projectKeys)
	if err != nil {
		return err
	}
	*p = Project(fields)
	p.Extra = extra
	return nil
}

type taskFields Task

func (t Task) MarshalJSON() ([]byte, error) {
	data, err := codec.Marshal(taskFields(t))
	if err != nil {
		return nil, err
	}
	return mergeExtra(data, t.Extra)
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var fields taskFields
	if err := codec.Unmarshal(data, &fields); err != nil {
		return err
	}
	extra, err := splitExtra(data, taskKeys)
	if err != nil {
		return err
	}
	*t = Task(fields)
	t.Extra = extra
	return nil
}

type logEntryFields LogEntry

func (e LogEntry) MarshalJSON() ([]byte, error) {
	data, err := codec.Marshal(logEntryFields(e))
	if err != nil {
		return nil, err
	}
	return mergeExtra(data, e.Extra)
}

func (e *LogEntry) UnmarshalJSON(data []byte) error {
	var fields logEntryFields
	if err := codec.Unmarshal(data, &fields); err != nil {
		return err
	}
	extra, err := splitExtra(data, logEntryKeys)
	if err != nil {
		return err
	}
	*e = LogEntry(fields)
	e.Extra = extra
	return nil
}

type recurrenceFields Recurrence

func (r Recurrence) MarshalJSON() ([]byte, error) {
	data, err := codec.Marshal(recurrenceFields(r))
	if err != nil {
		return nil, err
	}
	return mergeExtra(data, r.Extra)
}

func (r *Recurrence) UnmarshalJSON(data []byte) error {
	var fields recurrenceFields
	if err := codec.Unmarshal(data, &fields); err != nil {
		return err
	}
	// An explicit "dayOfWeek": null stays in Extra; the field itself is
	// omitted when nil.
	known := recurrenceKeys
	if fields.DayOfWeek == nil {
		known = recurrenceTypeOnly
	}
	extra, err := splitExtra(data, known)
	if err != nil {
		return err
	}
	*r = Recurrence(fields)
	r.Extra = extra
	return nil
}
