package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	herrors "github.com/matzehuels/halftone/pkg/errors"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code     herrors.Code `json:"code"`
	Message  string       `json:"message"`
	Node     string       `json:"node,omitempty"`
	Problems []string     `json:"problems,omitempty"`
}

// statusFor maps an error code to an HTTP status.
func statusFor(code herrors.Code) int {
	switch code {
	case herrors.ErrCodeInvalidInput, herrors.ErrCodeInvalidParameter,
		herrors.ErrCodeInvalidName, herrors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case herrors.ErrCodeInvalidGraph, herrors.ErrCodeExecution, herrors.ErrCodeUnknownAlgorithm:
		return http.StatusUnprocessableEntity
	case herrors.ErrCodeNotFound, herrors.ErrCodeUnknownPalette:
		return http.StatusNotFound
	case herrors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	case herrors.ErrCodeCanceled:
		return http.StatusServiceUnavailable
	case herrors.ErrCodeNetwork:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func detailFor(err error) errorDetail {
	d := errorDetail{Code: herrors.GetCode(err), Message: herrors.UserMessage(err)}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		d.Code = herrors.ErrCodeCanceled
	}
	if d.Code == "" {
		d.Code = herrors.ErrCodeInternal
	}

	var ve *herrors.ValidationError
	if errors.As(err, &ve) {
		d.Problems = ve.Problems
		d.Message = "graph validation failed"
	}
	var ne *herrors.NodeError
	if errors.As(err, &ne) {
		d.Node = ne.NodeID
		d.Message = ne.Error()
	}
	return d
}

func writeError(w http.ResponseWriter, err error) {
	d := detailFor(err)
	writeJSON(w, statusFor(d.Code), errorBody{Error: d})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errNotFoundRoute(r *http.Request) error {
	return herrors.New(herrors.ErrCodeNotFound, "no route for %s %s", r.Method, r.URL.Path)
}

func errMethodNotAllowed(r *http.Request) error {
	return herrors.New(herrors.ErrCodeUnsupported, "method %s not allowed on %s", r.Method, r.URL.Path)
}

func errNoStore() error {
	return herrors.New(herrors.ErrCodeUnsupported, "preset storage is not configured")
}
