package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"storefront/internal/models"
)

// ErrTransport wraps network failures talking to the backend.
var ErrTransport = errors.New("backend unreachable")

// APIError is a backend-reported error: a single message or a list of
// field-level validation messages.
type APIError struct {
	StatusCode int
	Messages   []string
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("backend returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, strings.Join(e.Messages, "; "))
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

type fieldError struct {
	Loc    []interface{} `json:"loc"`
	Msg    string        `json:"msg"`
	Reason string        `json:"reason"`
	Code   string        `json:"code"`
}

func (f fieldError) text() string {
	msg := f.Msg
	if msg == "" {
		msg = f.Reason
	}
	if msg == "" {
		msg = f.Code
	}
	if len(f.Loc) > 0 && msg != "" {
		if field, ok := f.Loc[len(f.Loc)-1].(string); ok && field != "body" {
			return field + ": " + msg
		}
	}
	return msg
}

// decodeError builds an APIError from a non-2xx response body. Bodies it
// cannot interpret produce an error without messages.
func decodeError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return apiErr
	}

	if len(eb.Detail) > 0 {
		var single string
		var list []fieldError
		var obj fieldError
		switch {
		case json.Unmarshal(eb.Detail, &single) == nil:
			if single != "" {
				apiErr.Messages = []string{single}
			}
		case json.Unmarshal(eb.Detail, &list) == nil:
			for _, fe := range list {
				if t := fe.text(); t != "" {
					apiErr.Messages = append(apiErr.Messages, t)
				}
			}
		case json.Unmarshal(eb.Detail, &obj) == nil:
			if t := obj.text(); t != "" {
				apiErr.Messages = []string{t}
			}
		}
	}

	if len(apiErr.Messages) == 0 {
		for _, m := range []string{eb.Error, eb.Message} {
			if m != "" {
				apiErr.Messages = append(apiErr.Messages, m)
			}
		}
	}
	return apiErr
}

// Messages converts err into the message(s) shown to the user. Backend
// messages and client precondition failures pass through verbatim; anything
// else collapses to fallback.
func Messages(err error, fallback string) []string {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && len(apiErr.Messages) > 0 {
		return append([]string(nil), apiErr.Messages...)
	}

	var userErr models.UserError
	if errors.As(err, &userErr) {
		return []string{userErr.Error()}
	}

	return []string{fallback}
}
