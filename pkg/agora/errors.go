package agora

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Error represents a provisioning API failure. The vendor's HTTP status and
// response body are carried verbatim: diagnosing voice-pipeline failures
// requires the original payload, so nothing is swallowed or rewritten.
type Error struct {
	StatusCode int    `json:"status_code,omitempty"`
	Message    string `json:"message"`
	Body       any    `json:"body,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("agora: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("agora: %s", e.Message)
}

// agoraErrorBody matches the error shapes the provisioning API returns.
type agoraErrorBody struct {
	Message string `json:"message"`
	Reason  string `json:"reason"`
	Detail  string `json:"detail"`
}

// parseError turns a non-2xx provisioning response into an *Error.
func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	msg := http.StatusText(resp.StatusCode)
	var decoded agoraErrorBody
	if err := json.Unmarshal(body, &decoded); err == nil {
		switch {
		case decoded.Message != "":
			msg = decoded.Message
		case decoded.Reason != "":
			msg = decoded.Reason
		case decoded.Detail != "":
			msg = decoded.Detail
		}
	}

	var raw any
	if len(body) > 0 {
		var parsed json.RawMessage
		if err := json.Unmarshal(body, &parsed); err == nil {
			raw = parsed
		} else {
			raw = string(body)
		}
	}

	return &Error{
		StatusCode: resp.StatusCode,
		Message:    msg,
		Body:       raw,
	}
}
