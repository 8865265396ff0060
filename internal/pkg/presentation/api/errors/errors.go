package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/diwise/parse-adapter/internal/pkg/application/relay"
	parseerrors "github.com/diwise/parse-adapter/pkg/parse/errors"
)

// Error codes reported to clients. Where the backend has a matching code it is reused.
const (
	CodeInternalServerError int = 1
	CodeConnectionFailed    int = 100
	CodeObjectNotFound      int = 101
	CodeInvalidJSON         int = 107
	CodeIncorrectType       int = 111
	CodeOperationForbidden  int = 119
	CodeCommitInProgress    int = 409
)

//ErrorReport mirrors the error responses of the backend so that clients only need to
//handle a single error format
type ErrorReport struct {
	Code    int    `json:"code"`
	Message string `json:"error"`

	status int
}

func NewErrorReport(status, code int, msg string) *ErrorReport {
	return &ErrorReport{Code: code, Message: msg, status: status}
}

func (er *ErrorReport) Status() int {
	return er.status
}

func (er *ErrorReport) WriteResponse(w http.ResponseWriter) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(er.status)

	b, _ := json.Marshal(er)
	w.Write(b)
}

func ReportBadRequest(w http.ResponseWriter, detail string) {
	NewErrorReport(http.StatusBadRequest, CodeInvalidJSON, detail).WriteResponse(w)
}

func ReportForbidden(w http.ResponseWriter, detail string) {
	NewErrorReport(http.StatusForbidden, CodeOperationForbidden, detail).WriteResponse(w)
}

func ReportNotFound(w http.ResponseWriter, detail string) {
	NewErrorReport(http.StatusNotFound, CodeObjectNotFound, detail).WriteResponse(w)
}

// ReportError translates err into the matching error report and writes it to w
func ReportError(w http.ResponseWriter, err error) {
	FromError(err).WriteResponse(w)
}

func FromError(err error) *ErrorReport {
	msg := err.Error()

	brd := relay.BadRequestDataError{}
	ute := relay.UnknownTenantError{}
	be := &parseerrors.BackendError{}

	switch {
	case errors.As(err, &brd):
		return NewErrorReport(http.StatusBadRequest, CodeInvalidJSON, msg)
	case errors.Is(err, parseerrors.ErrInvalidRelationship):
		return NewErrorReport(http.StatusBadRequest, CodeIncorrectType, msg)
	case errors.As(err, &ute):
		return NewErrorReport(http.StatusNotFound, CodeObjectNotFound, msg)
	case errors.Is(err, parseerrors.ErrNotFound):
		return NewErrorReport(http.StatusNotFound, CodeObjectNotFound, msg)
	case errors.Is(err, parseerrors.ErrUnknownModel), errors.Is(err, parseerrors.ErrUnknownRelationship):
		return NewErrorReport(http.StatusNotFound, CodeObjectNotFound, msg)
	case errors.Is(err, parseerrors.ErrConsistency):
		return NewErrorReport(http.StatusConflict, CodeCommitInProgress, msg)
	case errors.As(err, &be):
		return NewErrorReport(http.StatusBadGateway, be.Code, be.Message)
	case errors.Is(err, parseerrors.ErrTransport), errors.Is(err, parseerrors.ErrBadResponse):
		return NewErrorReport(http.StatusBadGateway, CodeConnectionFailed, msg)
	default:
		return NewErrorReport(http.StatusInternalServerError, CodeInternalServerError, msg)
	}
}
