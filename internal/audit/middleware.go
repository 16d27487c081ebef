package audit

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// maxCapturedBodyBytes caps how much of a request body is stored as
// audit details.
const maxCapturedBodyBytes = 16 * 1024

// Middleware records an audit entry for a mutating admin request after
// the handler succeeds. The request body (JSON) or route params are
// captured as details. Audit failure never affects the response.
func Middleware(recorder *Recorder, action, targetModel string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var captured []byte
		if c.Request.Body != nil && isMutating(c.Request.Method) {
			raw, errRead := io.ReadAll(c.Request.Body)
			if errRead == nil {
				// Only the stored audit copy is capped; the handler
				// always sees the full body.
				captured = raw
				if len(captured) > maxCapturedBodyBytes {
					captured = captured[:maxCapturedBodyBytes]
				}
				c.Request.Body = io.NopCloser(bytes.NewReader(raw))
			}
		}

		c.Next()

		status := c.Writer.Status()
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			return
		}

		adminID, ok := adminIDFromContext(c)
		if !ok {
			return
		}

		details := buildDetails(c, captured)
		targetID := strings.TrimSpace(c.Param("id"))
		recorder.Record(c.Request.Context(), adminID, action, targetModel, targetID, details)
	}
}

// buildDetails prefers the captured JSON body, falling back to route
// params.
func buildDetails(c *gin.Context, captured []byte) any {
	if len(captured) > 0 {
		var body map[string]any
		if errUnmarshal := json.Unmarshal(captured, &body); errUnmarshal == nil {
			delete(body, "password")
			delete(body, "old_password")
			delete(body, "new_password")
			return body
		}
	}
	if len(c.Params) == 0 {
		return nil
	}
	params := make(map[string]string, len(c.Params))
	for _, p := range c.Params {
		params[p.Key] = p.Value
	}
	return params
}

// adminIDFromContext extracts the acting admin ID set by auth middleware.
func adminIDFromContext(c *gin.Context) (uint64, bool) {
	value, exists := c.Get("adminID")
	if !exists {
		return 0, false
	}
	adminID, ok := value.(uint64)
	return adminID, ok
}

// isMutating reports whether the method changes state.
func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
