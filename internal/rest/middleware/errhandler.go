package middleware

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	ierr "github.com/warebill/warebill/internal/errors"
)

const jsonDetailPrefix = "__json__:"

// ErrorResponse is the envelope every failed request renders.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail carries the client-facing message and any reportable details.
type ErrorDetail struct {
	Display string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorHandler renders the last error a handler attached to the gin context
// as the standard envelope, with the HTTP status derived from the sentinel
// the error was marked with.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		c.JSON(ierr.HTTPStatusFromErr(err), ErrorResponse{
			Success: false,
			Error: ErrorDetail{
				Display: displayMessage(err),
				Details: reportableDetails(err),
			},
		})
	}
}

func displayMessage(err error) string {
	// GetAllHints is post-order; the first non-empty hint is the innermost
	for _, hint := range errors.GetAllHints(err) {
		if hint = strings.TrimSpace(hint); hint != "" {
			return hint
		}
	}
	return "An unexpected error occurred"
}

// reportableDetails recovers the JSON payloads that
// ierr.WithReportableDetails tucked into the error's safe details.
func reportableDetails(err error) map[string]any {
	details := make(map[string]any)
	for _, sdp := range errors.GetAllSafeDetails(err) {
		for _, payload := range sdp.SafeDetails {
			if !strings.HasPrefix(payload, jsonDetailPrefix) {
				continue
			}
			var decoded map[string]any
			if json.Unmarshal([]byte(payload[len(jsonDetailPrefix):]), &decoded) == nil {
				for k, v := range decoded {
					details[k] = v
				}
			}
		}
	}
	return details
}
