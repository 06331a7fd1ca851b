package domain

import "strings"

// StatusPending selects tasks that are neither archived nor completed.
const StatusPending = "pending"

// TaskFilter narrows ListTasks. Empty fields do not filter.
type TaskFilter struct {
	Project string
	Status  string
}

// Summary counts the document contents.
type Summary struct {
	Tasks    int `json:"tasks"`
	Projects int `json:"projects"`
	Pending  int `json:"pending"`
}

// ProjectBySlug returns the first project, in insertion order, whose slug
// matches exactly.
func ProjectBySlug(doc *Document, slug string) (*Project, bool) {
	for pair := doc.Projects.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Slug == slug {
			return pair.Value, true
		}
	}
	return nil, false
}

// ResolveProjectID maps a slug to the key the project is stored under,
// falling back to the inbox sentinel.
func ResolveProjectID(doc *Document, slug string) string {
	for pair := doc.Projects.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Slug == slug {
			return pair.Key
		}
	}
	return InboxProjectID
}

// ListTasks returns the tasks passing both filters, in insertion order.
func ListTasks(doc *Document, f TaskFilter) []*Task {
	var wantStatus string
	if f.Status != "" && f.Status != StatusPending {
		wantStatus = strings.ToUpper(f.Status)
	}

	out := make([]*Task, 0, doc.Tasks.Len())
	for pair := doc.Tasks.Oldest(); pair != nil; pair = pair.Next() {
		t := pair.Value
		if f.Project != "" {
			p, ok := doc.Project(t.ProjectID)
			if !ok || p.Slug != f.Project {
				continue
			}
		}
		switch {
		case f.Status == "":
		case f.Status == StatusPending:
			if !t.IsPending() {
				continue
			}
		default:
			if t.EffectiveStatus() != wantStatus {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// Summarize counts tasks, projects and pending tasks.
func Summarize(doc *Document) Summary {
	s := Summary{Tasks: doc.Tasks.Len(), Projects: doc.Projects.Len()}
	for pair := doc.Tasks.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.IsPending() {
			s.Pending++
		}
	}
	return s
}
