package budget

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNoAPIToken      = errors.New("no API token configured")
	ErrInvalidURL      = errors.New("invalid request URL")
	ErrInvalidResponse = errors.New("invalid response from server")
)

// ServerError reports a non-200 HTTP status.
type ServerError struct {
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("server error: status %d: %s", e.StatusCode, e.Body)
}

// DecodeError reports a response body that does not match the expected schema.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// UserMessage turns any fetch failure into text fit for display.
func UserMessage(err error) string {
	var serverErr *ServerError
	var decodeErr *DecodeError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoAPIToken):
		return "No API token configured. Add your Lunch Money access token in settings."
	case errors.Is(err, ErrInvalidURL):
		return "The Lunch Money address is not valid."
	case errors.As(err, &serverErr):
		switch serverErr.StatusCode {
		case 401:
			return "Lunch Money rejected the API token (401). Check the token in settings."
		case 429:
			return "Lunch Money is rate limiting requests (429). Try again in a moment."
		}
		return fmt.Sprintf("Lunch Money returned an error (status %d).", serverErr.StatusCode)
	case errors.As(err, &decodeErr):
		return "Lunch Money sent data in an unexpected format."
	case errors.Is(err, context.DeadlineExceeded):
		return "The request to Lunch Money timed out."
	case errors.Is(err, ErrInvalidResponse):
		return "Could not reach Lunch Money. Check your connection."
	default:
		return err.Error()
	}
}
