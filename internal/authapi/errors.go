package authapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/DukeRupert/authportal/internal/domain"
)

// APIError is a non-2xx response from the auth API.
//
// When the body was JSON, Detail carries its "detail" field and the error
// is returned as is. When the body was unreadable, the APIError is wrapped
// in an EUNAVAILABLE domain error, so callers can still tell that the
// server answered.
type APIError struct {
	Op     string
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: auth API returned status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: auth API returned status %d: %s", e.Op, e.Status, e.Detail)
}

// Code maps the upstream status to a domain error code.
func (e *APIError) Code() string {
	return domain.CodeForStatus(e.Status)
}

// AsAPIError extracts an APIError from err, if any.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsUnavailable reports whether err is a transport-level failure: the API
// could not be reached or its response could not be read.
func IsUnavailable(err error) bool {
	return domain.ErrorCode(err) == domain.EUNAVAILABLE
}

// ServerDetail returns the server-reported message carried by err. The
// second result is false for transport failures and non-API errors.
func ServerDetail(err error) (string, bool) {
	if err == nil || IsUnavailable(err) {
		return "", false
	}
	apiErr, ok := AsAPIError(err)
	if !ok {
		return "", false
	}
	return apiErr.Detail, true
}

// errorBody is the failure shape returned by the auth API.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// validationIssue is one entry of a list-shaped detail (request body
// validation failures).
type validationIssue struct {
	Msg string        `json:"msg"`
	Loc []interface{} `json:"loc"`
}

// parseErrorBody decodes a failure body. ok is false when the body is not
// a JSON object.
func parseErrorBody(status int, body []byte) (detail string, ok bool) {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return "", false
	}
	detail = flattenDetail(eb.Detail)
	if detail == "" {
		detail = http.StatusText(status)
	}
	return detail, true
}

func flattenDetail(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var issues []validationIssue
	if err := json.Unmarshal(raw, &issues); err == nil {
		msgs := make([]string, 0, len(issues))
		for _, issue := range issues {
			if issue.Msg == "" {
				continue
			}
			if field := issueField(issue.Loc); field != "" {
				msgs = append(msgs, field+": "+issue.Msg)
			} else {
				msgs = append(msgs, issue.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err == nil {
		return compact.String()
	}
	return string(raw)
}

// issueField returns the last string element of a location path, which is
// the offending field name ("body", "email" -> "email").
func issueField(loc []interface{}) string {
	for i := len(loc) - 1; i >= 0; i-- {
		if s, ok := loc[i].(string); ok && s != "body" {
			return s
		}
	}
	return ""
}
