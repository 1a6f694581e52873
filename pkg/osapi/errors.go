package osapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Precondition causes. A PreconditionError always wraps exactly one of these.
// Static errors for err113 compliance.
var (
	ErrMissingIdentity       = errors.New("resource identity is not set")
	ErrUnsupportedCapability = errors.New("operation not supported by resource kind")
	ErrUnresolvedPlaceholder = errors.New("unresolved path placeholder")
	ErrMissingParameter      = errors.New("required parameter missing")
	ErrInvalidMethod         = errors.New("invalid HTTP method")
	ErrNoOperation           = errors.New("no operation defined")
)

// Common static errors that can be wrapped with context.
var (
	ErrNoMoreItems          = errors.New("no more items")
	ErrDuplicateAlias       = errors.New("duplicate alias")
	ErrEndpointNotFound     = errors.New("endpoint not found in catalog")
	ErrEmptyCatalog         = errors.New("catalog contains no services")
	ErrConfigRequired       = errors.New("config is required")
	ErrCatalogSourceMissing = errors.New("no catalog source configured")
	ErrServiceUnavailable   = errors.New("service not present in catalog")
	ErrUnexpectedBody       = errors.New("unexpected response body")
	ErrNilTransport         = errors.New("transport is required")
)

// PreconditionError reports local misuse of the API. It is raised before any
// network call is attempted and is never retried.
type PreconditionError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *PreconditionError) Error() string {
	if e.Op == "" {
		return "precondition failed: " + e.Err.Error()
	}

	return fmt.Sprintf("%s: precondition failed: %v", e.Op, e.Err)
}

// Unwrap returns the precondition cause.
func (e *PreconditionError) Unwrap() error {
	return e.Err
}

func precondition(op string, err error, detail string) *PreconditionError {
	if detail != "" {
		err = fmt.Errorf("%w: %s", err, detail)
	}

	return &PreconditionError{Op: op, Err: err}
}

// RemoteOperationError represents any non-2xx response from the remote API.
type RemoteOperationError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Error implements the error interface.
func (e *RemoteOperationError) Error() string {
	msg := e.Message()
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}

	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, msg)
}

// Message extracts a human readable message from the usual OpenStack fault
// envelopes: {"error":{"message":...}}, {"NeutronError":{"message":...}} and
// {"itemNotFound":{"message":...}} style bodies. Plain text bodies are
// truncated and returned as-is.
func (e *RemoteOperationError) Message() string {
	if len(e.Body) == 0 {
		return ""
	}

	var envelope map[string]json.RawMessage

	err := json.Unmarshal(e.Body, &envelope)
	if err != nil {
		return truncate(strings.TrimSpace(string(e.Body)), maxErrorBodyLength)
	}

	for _, raw := range envelope {
		var fault struct {
			Message string `json:"message"`
			Title   string `json:"title"`
		}

		if json.Unmarshal(raw, &fault) != nil {
			continue
		}

		if fault.Message != "" {
			return fault.Message
		}

		if fault.Title != "" {
			return fault.Title
		}
	}

	return truncate(string(e.Body), maxErrorBodyLength)
}

// TransportError wraps a network or timeout failure raised by the transport
// collaborator. The cause is preserved unchanged.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: transport failure: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the transport failure.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// PaginationLoopError is raised when a listing endpoint hands back a
// continuation locator that was already followed.
type PaginationLoopError struct {
	Locator string
	Page    int
}

// Error implements the error interface.
func (e *PaginationLoopError) Error() string {
	return fmt.Sprintf("pagination loop detected on page %d: locator %q repeated", e.Page, e.Locator)
}

// StatusCode returns the HTTP status carried by a RemoteOperationError.
func StatusCode(err error) (int, bool) {
	remoteErr := &RemoteOperationError{}
	if errors.As(err, &remoteErr) {
		return remoteErr.StatusCode, true
	}

	return 0, false
}

// IsNotFound checks if the error is a remote 404.
func IsNotFound(err error) bool {
	code, ok := StatusCode(err)

	return ok && code == http.StatusNotFound
}

// IsPrecondition checks if the error is a local precondition violation.
func IsPrecondition(err error) bool {
	preErr := &PreconditionError{}

	return errors.As(err, &preErr)
}

// IsPaginationLoop checks if the error is a detected pagination loop.
func IsPaginationLoop(err error) bool {
	loopErr := &PaginationLoopError{}

	return errors.As(err, &loopErr)
}

// Exists turns the outcome of an existence probe into a boolean. A nil error
// means the entity exists, a remote 404 means it does not, and anything else
// is a real failure that is handed back unchanged.
func Exists(err error) (bool, error) {
	if err == nil {
		return true, nil
	}

	if IsNotFound(err) {
		return false, nil
	}

	return false, err
}

const maxErrorBodyLength = 200

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	return s[:maxLen] + "..."
}
