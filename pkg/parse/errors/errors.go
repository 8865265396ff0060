package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

var ErrBackend = fmt.Errorf("backend error")
var ErrBadResponse = fmt.Errorf("bad response")
var ErrConsistency = fmt.Errorf("commit already in progress")
var ErrInternal = fmt.Errorf("internal error")
var ErrInvalidRelationship = fmt.Errorf("invalid relationship operation")
var ErrNotFound = fmt.Errorf("not found")
var ErrTransport = fmt.Errorf("transport error")
var ErrUnknownModel = fmt.Errorf("unknown model")
var ErrUnknownRelationship = fmt.Errorf("unknown relationship")

// Parse error codes that get special treatment by this package
const (
	CodeInternalServerError int = 1
	CodeObjectNotFound      int = 101
	CodeInvalidSessionToken int = 209
)

type myError struct {
	msg    string
	target error
}

func (m myError) Error() string        { return m.msg }
func (m myError) Is(target error) bool { return target == m.target }

func NewConsistencyError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrConsistency,
	}
}

func NewInvalidRelationshipError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrInvalidRelationship,
	}
}

func NewNotFoundError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrNotFound,
	}
}

func NewUnknownModelError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrUnknownModel,
	}
}

func NewUnknownRelationshipError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrUnknownRelationship,
	}
}

// BackendError is the first structured error reported by the backend for a rejected request
type BackendError struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
	Status  int    `json:"-"`
}

func (be BackendError) Error() string {
	return fmt.Sprintf("%s (code: %d)", be.Message, be.Code)
}

func (be BackendError) Is(target error) bool {
	if target == ErrBackend {
		return true
	}

	if target == ErrNotFound {
		return be.Code == CodeObjectNotFound || be.Status == http.StatusNotFound
	}

	return false
}

type errorEntry struct {
	Code    int    `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e errorEntry) toBackendError(status int) *BackendError {
	msg := e.Error
	if msg == "" {
		msg = e.Message
	}

	if msg == "" {
		msg = http.StatusText(status)
	}

	return &BackendError{Code: e.Code, Message: msg, Status: status}
}

// NewErrorFromResponse translates the body of a rejected request into a *BackendError.
// Envelopes of the form {"errors": [...]} are unwrapped to their first entry.
func NewErrorFromResponse(status int, body []byte) error {
	envelope := &struct {
		Errors []errorEntry `json:"errors"`
		errorEntry
	}{}

	if len(body) == 0 {
		return &BackendError{Code: CodeInternalServerError, Message: http.StatusText(status), Status: status}
	}

	err := json.Unmarshal(body, envelope)
	if err != nil {
		return fmt.Errorf("failed to process error response from backend (status %d): %s (%w)", status, err.Error(), ErrBadResponse)
	}

	if len(envelope.Errors) > 0 {
		return envelope.Errors[0].toBackendError(status)
	}

	return envelope.errorEntry.toBackendError(status)
}
