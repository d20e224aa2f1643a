package statcrab

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrMissingToken = errors.New("missing github token")
)

// InvalidUsernameError rejects a username before any cache or network work.
type InvalidUsernameError struct {
	Reason string
}

func (e *InvalidUsernameError) Error() string {
	return "invalid username: " + e.Reason
}

// RateLimitError carries the upstream-reported reset time verbatim.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// NetworkError wraps a transport or deadline failure. It is the only error
// kind the retrier is allowed to retry.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Temporary marks the failure as retryable for retrier.IsTemporary.
func (e *NetworkError) Temporary() bool {
	return true
}

// GraphQLError reports a query error or a partial-data-with-errors response.
type GraphQLError struct {
	Message string
}

func (e *GraphQLError) Error() string {
	return "graphql error: " + e.Message
}

// ValidationError rejects an input before any cache or network work.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
