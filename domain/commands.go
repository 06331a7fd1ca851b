package domain

// NewProjectInput carries the fields of a create-project request.
type NewProjectInput struct {
	Name string
	Slug string
}

// Validate rejects inputs with an empty name or slug.
func (in NewProjectInput) Validate() error {
	if in.Name == "" || in.Slug == "" {
		return ValidationError{Message: "name and slug required"}
	}
	return nil
}

// NewTaskInput carries the fields of a create-task request. Project is a slug.
type NewTaskInput struct {
	Content string
	Project string
}

func (in NewTaskInput) Validate() error {
	if in.Content == "" {
		return ValidationError{Message: "content required"}
	}
	return nil
}

// NewLogEntryInput carries the fields of a create-log-entry request.
type NewLogEntryInput struct {
	Content string
	Project string
}

func (in NewLogEntryInput) Validate() error {
	if in.Content == "" {
		return ValidationError{Message: "content required"}
	}
	return nil
}

// CreateProject adds a project to doc. Slugs must be unique.
func CreateProject(doc *Document, in NewProjectInput) (*Project, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, exists := ProjectBySlug(doc, in.Slug); exists {
		return nil, ErrSlugTaken
	}
	p := NewProject(in.Name, in.Slug)
	doc.AddProject(p)
	return p, nil
}

// CreateTask adds a TODO task to the project named by slug, or to the inbox.
func CreateTask(doc *Document, in NewTaskInput) (*Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	slug := in.Project
	if slug == "" {
		slug = DefaultProjectSlug
	}
	t := NewTask(in.Content, ResolveProjectID(doc, slug))
	doc.AddTask(t)
	return t, nil
}

// CreateLogEntry appends an entry for the project named by slug, or the inbox.
func CreateLogEntry(doc *Document, in NewLogEntryInput) (*LogEntry, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	slug := in.Project
	if slug == "" {
		slug = DefaultProjectSlug
	}
	e := NewLogEntry(in.Content, ResolveProjectID(doc, slug))
	doc.AppendLog(e)
	return e, nil
}

// CompleteTask marks the task with the given id done.
func CompleteTask(doc *Document, id string) (*Task, error) {
	t, ok := doc.Task(id)
	if !ok {
		return nil, ErrTaskNotFound
	}
	t.Complete(NowMillis())
	return t, nil
}

// ArchiveTask sets the archived flag on the task with the given id.
func ArchiveTask(doc *Document, id string) (*Task, error) {
	t, ok := doc.Task(id)
	if !ok {
		return nil, ErrTaskNotFound
	}
	t.Archive()
	return t, nil
}
