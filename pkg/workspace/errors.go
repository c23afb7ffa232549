package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx response from the workspace, carrying the vendor's
// error code and message unchanged.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if e.ErrorCode != "" {
		msg = e.ErrorCode + ": " + msg
	}
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil || (apiErr.ErrorCode == "" && apiErr.Message == "") {
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
	}
	apiErr.Method = method
	apiErr.Path = path
	apiErr.StatusCode = status
	return apiErr
}

// IsNotFound reports whether err is, or wraps, a 404 from the workspace.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
