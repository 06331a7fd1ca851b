package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"visor-api/domain"
	"visor-api/notify"
	"visor-api/storage"
)

type testEnv struct {
	e      *echo.Echo
	store  *storage.MemoryStore
	docs   *storage.Documents
	broker *notify.Broker
	hook   *test.Hook
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger, hook := test.NewNullLogger()
	store := storage.NewMemoryStore()
	broker := notify.NewBroker()
	docs := storage.NewDocuments(store, broker, logger)
	e := NewServer(docs, broker, logger, Options{BodyLimit: "64K"})
	return &testEnv{e: e, store: store, docs: docs, broker: broker, hook: hook}
}

func (env *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) document(t *testing.T) *domain.Document {
	t.Helper()
	doc, err := env.docs.Read(context.Background())
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	return doc
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := sonic.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestCreateProjectThenTaskAppendsTaskOrder(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/projects", `{"name":"Work","slug":"work"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	project := decode[domain.Project](t, rec)
	if project.Color != domain.DefaultProjectColor || project.IsInbox || len(project.TaskOrder) != 0 {
		t.Fatalf("unexpected project defaults: %#v", project)
	}

	rec = env.do(http.MethodPost, "/api/tasks", `{"content":"A","project":"work"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	task := decode[domain.Task](t, rec)
	if task.ProjectID != project.ID {
		t.Fatalf("expected project id %q got %q", project.ID, task.ProjectID)
	}
	if task.Status != domain.StatusTodo || task.Completed || task.Archived {
		t.Fatalf("unexpected task defaults: %#v", task)
	}

	doc := env.document(t)
	stored, ok := doc.Project(project.ID)
	if !ok {
		t.Fatalf("project not persisted")
	}
	if len(stored.TaskOrder) != 1 || stored.TaskOrder[0] != task.ID {
		t.Fatalf("unexpected task order: %v", stored.TaskOrder)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{`{"name":"x","slug":""}`, `{"name":"x"}`, `[]`, `not json`, ``} {
		rec := env.do(http.MethodPost, "/api/projects", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400 got %d", body, rec.Code)
		}
		if got := decode[errorResponse](t, rec).Error; got != "name and slug required" {
			t.Fatalf("unexpected error message %q", got)
		}
	}
	if env.store.Saves() != 0 {
		t.Fatalf("expected no saves, got %d", env.store.Saves())
	}
}

func TestCreateProjectDuplicateSlug(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(http.MethodPost, "/api/projects", `{"name":"Work","slug":"work"}`); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
	rec := env.do(http.MethodPost, "/api/projects", `{"name":"Other","slug":"work"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
	if n := env.document(t).Projects.Len(); n != 1 {
		t.Fatalf("expected 1 project got %d", n)
	}
}

func TestCreateTaskUnknownProjectGoesToInbox(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/tasks", `{"content":"loose","project":"nope"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
	task := decode[domain.Task](t, rec)
	if task.ProjectID != domain.InboxProjectID {
		t.Fatalf("expected inbox project id, got %q", task.ProjectID)
	}

	rec = env.do(http.MethodGet, "/api/tasks?project=inbox", "")
	if got := decode[[]domain.Task](t, rec); len(got) != 0 {
		t.Fatalf("expected no tasks for inbox slug without an inbox project, got %d", len(got))
	}
	rec = env.do(http.MethodGet, "/api/tasks", "")
	if got := decode[[]domain.Task](t, rec); len(got) != 1 {
		t.Fatalf("expected 1 task, got %d", len(got))
	}
}

func TestCreateTaskRequiresContent(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/tasks", `{"content":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if got := decode[errorResponse](t, rec).Error; got != "content required" {
		t.Fatalf("unexpected error %q", got)
	}
	if n := env.document(t).Tasks.Len(); n != 0 {
		t.Fatalf("expected no tasks, got %d", n)
	}
}

func TestCompleteAndArchiveTask(t *testing.T) {
	env := newTestEnv(t)
	task := decode[domain.Task](t, env.do(http.MethodPost, "/api/tasks", `{"content":"A"}`))

	rec := env.do(http.MethodPut, "/api/tasks/"+task.ID+"/complete", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	done := decode[domain.Task](t, rec)
	if !done.Completed || done.Status != domain.StatusDone || done.CompletedAt == nil {
		t.Fatalf("task not completed: %#v", done)
	}

	again := decode[domain.Task](t, env.do(http.MethodPut, "/api/tasks/"+task.ID+"/complete", ""))
	if *again.CompletedAt != *done.CompletedAt {
		t.Fatalf("completedAt changed on repeat: %d != %d", *again.CompletedAt, *done.CompletedAt)
	}

	rec = env.do(http.MethodPut, "/api/tasks/"+task.ID+"/archive", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !decode[domain.Task](t, rec).Archived {
		t.Fatalf("expected archived task")
	}

	status := decode[domain.Summary](t, env.do(http.MethodGet, "/api/status", ""))
	if status.Tasks != 1 || status.Pending != 0 {
		t.Fatalf("unexpected summary: %#v", status)
	}
}

func TestCompleteUnknownTask(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/tasks", `{"content":"A"}`)
	before, _, _ := env.store.ReadRaw(context.Background())

	for _, action := range []string{"complete", "archive"} {
		rec := env.do(http.MethodPut, "/api/tasks/missing/"+action, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404 got %d", action, rec.Code)
		}
		if got := decode[errorResponse](t, rec).Error; got != "task not found" {
			t.Fatalf("unexpected error %q", got)
		}
	}

	after, _, _ := env.store.ReadRaw(context.Background())
	if string(before) != string(after) {
		t.Fatalf("document changed by failed update")
	}
}

func TestListTasksFilters(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/projects", `{"name":"Work","slug":"work"}`)
	a := decode[domain.Task](t, env.do(http.MethodPost, "/api/tasks", `{"content":"A","project":"work"}`))
	env.do(http.MethodPost, "/api/tasks", `{"content":"B","project":"work"}`)
	env.do(http.MethodPost, "/api/tasks", `{"content":"C"}`)
	env.do(http.MethodPut, "/api/tasks/"+a.ID+"/complete", "")

	tests := []struct {
		query string
		want  []string
	}{
		{query: "", want: []string{"A", "B", "C"}},
		{query: "?project=work", want: []string{"A", "B"}},
		{query: "?status=pending", want: []string{"B", "C"}},
		{query: "?status=done", want: []string{"A"}},
		{query: "?project=work&status=todo", want: []string{"B"}},
		{query: "?project=", want: []string{"A", "B", "C"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := env.do(http.MethodGet, "/api/tasks"+tt.query, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200 got %d", rec.Code)
			}
			got := decode[[]domain.Task](t, rec)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d tasks got %d", len(tt.want), len(got))
			}
			for i, task := range got {
				if task.Content != tt.want[i] {
					t.Fatalf("position %d: expected %q got %q", i, tt.want[i], task.Content)
				}
			}
		})
	}
}

func TestLogEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/log", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %d %q", rec.Code, rec.Body.String())
	}

	if rec := env.do(http.MethodPost, "/api/log", `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}

	rec = env.do(http.MethodPost, "/api/log", `{"content":"shipped"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
	entry := decode[domain.LogEntry](t, rec)
	if entry.ProjectID != domain.InboxProjectID {
		t.Fatalf("expected inbox project, got %q", entry.ProjectID)
	}

	entries := decode[[]domain.LogEntry](t, env.do(http.MethodGet, "/api/log", ""))
	if len(entries) != 1 || entries[0].ID != entry.ID {
		t.Fatalf("unexpected log entries: %#v", entries)
	}
}

func TestListProjectsEmpty(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/projects", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestSaveFailureReturns500(t *testing.T) {
	env := newTestEnv(t)
	env.store.FailSaves(errors.New("disk full"))

	rec := env.do(http.MethodPost, "/api/tasks", `{"content":"A"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
	if got := decode[errorResponse](t, rec).Error; got != "failed to save document" {
		t.Fatalf("unexpected error %q", got)
	}
	if n := env.document(t).Tasks.Len(); n != 0 {
		t.Fatalf("expected no tasks after failed save, got %d", n)
	}
}

func TestConcurrentCreatesAreAllPersisted(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/projects", `{"name":"Work","slug":"work"}`)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rec := env.do(http.MethodPost, "/api/tasks", `{"content":"x","project":"work"}`); rec.Code != http.StatusCreated {
				t.Errorf("expected 201 got %d", rec.Code)
			}
		}()
	}
	wg.Wait()

	doc := env.document(t)
	if doc.Tasks.Len() != n {
		t.Fatalf("expected %d tasks got %d", n, doc.Tasks.Len())
	}
	p, _ := domain.ProjectBySlug(doc, "work")
	if len(p.TaskOrder) != n {
		t.Fatalf("expected %d task order entries got %d", n, len(p.TaskOrder))
	}
}

func TestMutationNotifiesSubscribers(t *testing.T) {
	env := newTestEnv(t)
	ch := env.broker.Subscribe()
	defer env.broker.Unsubscribe(ch)

	env.do(http.MethodGet, "/api/tasks", "")
	select {
	case <-ch:
		t.Fatalf("read should not notify")
	default:
	}

	env.do(http.MethodPost, "/api/tasks", `{"content":"A"}`)
	select {
	case <-ch:
	default:
		t.Fatalf("expected change notification")
	}

	env.do(http.MethodPut, "/api/tasks/missing/complete", "")
	select {
	case <-ch:
		t.Fatalf("failed update should not notify")
	default:
	}
}

func TestCORSAndPreflight(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodOptions, "/api/anything", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rec.Code)
	}
	if got := rec.Header().Get(echo.HeaderAccessControlAllowMethods); got != "GET, POST, PUT, DELETE, OPTIONS" {
		t.Fatalf("unexpected allow methods %q", got)
	}

	rec = env.do(http.MethodGet, "/api/status", "")
	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
	if got := rec.Header().Get(echo.HeaderAccessControlAllowHeaders); got != echo.HeaderContentType {
		t.Fatalf("unexpected allow headers %q", got)
	}
}

func TestUnknownRoutesAnswerNotFound(t *testing.T) {
	env := newTestEnv(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/nope"},
		{http.MethodDelete, "/api/tasks"},
		{http.MethodGet, "/api/tasks/x/complete"},
	} {
		rec := env.do(tc.method, tc.path, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s %s: expected 404 got %d", tc.method, tc.path, rec.Code)
		}
		if got := decode[errorResponse](t, rec).Error; got != "not found" {
			t.Fatalf("unexpected error %q", got)
		}
		if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "*" {
			t.Fatalf("expected CORS headers on 404")
		}
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	env.do(http.MethodGet, "/api/status", "")

	rec := env.do(http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "visor_api_requests_total") {
		t.Fatalf("expected request counter in metrics output")
	}
}

func TestHandlerDirectInvocation(t *testing.T) {
	e := echo.New()
	docs := storage.NewDocuments(storage.NewMemoryStore(), nil, log.New())
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := getStatus(docs, log.New())(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if got := decode[domain.Summary](t, rec); got != (domain.Summary{}) {
		t.Fatalf("expected zero summary, got %#v", got)
	}
}

func TestMutationRefusesToOverwriteMistypedDocument(t *testing.T) {
	env := newTestEnv(t)
	stored := `{"projects":{"p1":{"id":"p1","name":"Work","slug":"work","color":"#fff","taskOrder":["t1"],"createdAt":1,"isInbox":false}},` +
		`"tasks":{"t1":{"id":"t1","content":"keep me","status":"TODO","projectId":"p1","indent":"1"}},"logEntries":[],"settings":{"theme":"dark"}}`
	env.store.SetRaw([]byte(stored))
	ch := env.broker.Subscribe()
	defer env.broker.Unsubscribe(ch)

	rec := env.do(http.MethodPost, "/api/log", `{"content":"hi"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
	after, _, _ := env.store.ReadRaw(context.Background())
	if string(after) != stored {
		t.Fatalf("stored document was modified: %s", after)
	}
	if env.store.Saves() != 0 {
		t.Fatalf("expected no saves, got %d", env.store.Saves())
	}
	select {
	case <-ch:
		t.Fatalf("failed mutation should not notify")
	default:
	}
}
