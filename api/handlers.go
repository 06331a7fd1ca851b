package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"visor-api/domain"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, docs Documents, events Subscriber, logger *log.Logger) {
	e.GET("/api/status", getStatus(docs, logger))
	e.GET("/api/projects", listProjects(docs, logger))
	e.POST("/api/projects", createProject(docs, logger))
	e.GET("/api/tasks", listTasks(docs, logger))
	e.POST("/api/tasks", createTask(docs, logger))
	e.PUT("/api/tasks/:id/complete", completeTask(docs, logger))
	e.PUT("/api/tasks/:id/archive", archiveTask(docs, logger))
	e.GET("/api/log", listLog(docs, logger))
	e.POST("/api/log", createLogEntry(docs, logger))
	if events != nil {
		e.GET("/api/events", streamEvents(events, logger))
	}
	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func getStatus(docs Documents, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		doc, err := docs.Read(c.Request().Context())
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, domain.Summarize(doc))
	}
}

func listProjects(docs Documents, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		doc, err := docs.Read(c.Request().Context())
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, doc.ProjectList())
	}
}

func createProject(docs Documents, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		body := readBody(c)
		in := domain.NewProjectInput{Name: body.String("name"), Slug: body.String("slug")}
		if err := in.Validate(); err != nil {
			return writeError(c, logger, err)
		}
		var project *domain.Project
		err := docs.Mutate(c.Request().Context(), func(doc *domain.Document) (err error) {
			project, err = domain.CreateProject(doc, in)
			return err
		})
		if err != nil {
			return writeError(c, logger, err)
		}
		logger.WithFields(log.Fields{"project": project.ID, "slug": project.Slug}).Info("project created")
		return c.JSON(http.StatusCreated, project)
	}
}

func listTasks(docs Documents, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		doc, err := docs.Read(c.Request().Context())
		if err != nil {
			return writeError(c, logger, err)
		}
		filter := domain.TaskFilter{
			Project: c.QueryParam("project"),
			Status:  c.QueryParam("status"),
		}
		return c.JSON(http.StatusOK, domain.ListTasks(doc, filter))
	}
}

func createTask(docs Documents, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		body := readBody(c)
		in := domain.NewTaskInput{Content: body.String("content"), Project: body.String("project")}
		if err := in.Validate(); err != nil {
			return writeError(c, logger, err)
		}
		var task *domain.Task
		err := docs.Mutate(c.Request().Context(), func(doc *domain.Document) (err error) {
			task, err = domain.CreateTask(doc, in)
			return err
		})
		if err != nil {
			return writeError(c, logger, err)
		}
		logger.WithFields(log.Fields{"task": task.ID, "project": task.ProjectID}).Info("task created")
		return c.JSON(http.StatusCreated, task)
	}
}

func completeTask(docs Documents, logger *log.Logger) echo.HandlerFunc {
	return updateTask(docs, logger, domain.CompleteTask)
}

func archiveTask(docs Documents, logger *log.Logger) echo.HandlerFunc {
	return updateTask(docs, logger, domain.ArchiveTask)
}

func updateTask(docs Documents, logger *log.Logger, apply func(*domain.Document, string) (*domain.Task, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		var task *domain.Task
		err := docs.Mutate(c.Request().Context(), func(doc *domain.Document) (err error) {
			task, err = apply(doc, id)
			return err
		})
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func listLog(docs Documents, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		doc, err := docs.Read(c.Request().Context())
		if err != nil {
			return writeError(c, logger, err)
		}
		entries := doc.LogEntries
		if entries == nil {
			entries = []*domain.LogEntry{}
		}
		return c.JSON(http.StatusOK, entries)
	}
}

func createLogEntry(docs Documents, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		body := readBody(c)
		in := domain.NewLogEntryInput{Content: body.String("content"), Project: body.String("project")}
		if err := in.Validate(); err != nil {
			return writeError(c, logger, err)
		}
		var entry *domain.LogEntry
		err := docs.Mutate(c.Request().Context(), func(doc *domain.Document) (err error) {
			entry, err = domain.CreateLogEntry(doc, in)
			return err
		})
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusCreated, entry)
	}
}

// writeError maps domain errors to status codes. Anything unrecognised is a
// storage failure.
func writeError(c echo.Context, logger *log.Logger, err error) error {
	var (
		validation domain.ValidationError
		notFound   domain.NotFoundError
		conflict   domain.ConflictError
	)
	switch {
	case errors.As(err, &validation):
		setErrorStage(c, "validation")
		return c.JSON(http.StatusBadRequest, errorResponse{Error: validation.Message})
	case errors.As(err, &notFound):
		setErrorStage(c, "not_found")
		return c.JSON(http.StatusNotFound, errorResponse{Error: notFound.Message})
	case errors.As(err, &conflict):
		setErrorStage(c, "conflict")
		return c.JSON(http.StatusConflict, errorResponse{Error: conflict.Message})
	default:
		setErrorStage(c, "storage")
		logger.WithError(err).WithField("route", c.Path()).Error("request failed")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to save document"})
	}
}
