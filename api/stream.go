package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"visor-api/notify"
)

var heartbeatInterval = 25 * time.Second

var (
	changeFrame    = []byte("event: " + notify.EventDataChanged + "\ndata: {}\n\n")
	heartbeatFrame = []byte(": ping\n\n")
)

// streamEvents keeps an SSE connection open and writes a data-changed frame
// each time the document is saved.
func streamEvents(events Subscriber, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		res := c.Response()
		res.Header().Set(echo.HeaderContentType, "text/event-stream")
		res.Header().Set(echo.HeaderCacheControl, "no-cache")
		res.Header().Set(echo.HeaderConnection, "keep-alive")
		res.Header().Set("X-Accel-Buffering", "no")
		flusher, ok := res.Writer.(http.Flusher)
		if !ok {
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "stream unsupported"})
		}

		ctx := c.Request().Context()
		ch := events.Subscribe()
		defer events.Unsubscribe(ch)

		res.WriteHeader(http.StatusOK)
		flusher.Flush()

		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			var frame []byte
			select {
			case <-ctx.Done():
				return nil
			case <-ch:
				frame = changeFrame
			case <-ticker.C:
				frame = heartbeatFrame
			}
			if _, err := res.Write(frame); err != nil {
				logger.WithError(err).Debug("event stream closed")
				return nil
			}
			flusher.Flush()
		}
	}
}
