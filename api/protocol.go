package api

import (
	"io"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
)

const maxBodySize = 64 * 1024 // 64 KiB

const corsAllowMethods = "GET, POST, PUT, DELETE, OPTIONS"

type errorResponse struct {
	Error string `json:"error"`
}

// requestBody is a decoded JSON object. Anything that is not an object
// decodes to an empty body so field validation reports what is missing.
type requestBody map[string]any

func readBody(c echo.Context) requestBody {
	lr := io.LimitReader(c.Request().Body, maxBodySize)
	var body map[string]any
	if err := sonic.ConfigStd.NewDecoder(lr).Decode(&body); err != nil || body == nil {
		return requestBody{}
	}
	return body
}

// String returns the named member when it is a JSON string, "" otherwise.
func (b requestBody) String(key string) string {
	s, _ := b[key].(string)
	return s
}
