package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"jewelry-catalog/internal/content"
	"jewelry-catalog/internal/domain/catalog"
	"jewelry-catalog/internal/domain/ingest"
	"jewelry-catalog/internal/services/implementations"
)

const maxJSONBodySize = 1 << 20

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error    string                       `json:"error"`
	Kind     string                       `json:"kind,omitempty"`
	Field    string                       `json:"field,omitempty"`
	Orphaned *ingest.StoredImageReference `json:"orphaned,omitempty"`
	Session  *SessionResponse             `json:"session,omitempty"`
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // Best effort response
}

// ingestStatus maps a pipeline error kind to its HTTP status
func ingestStatus(kind ingest.ErrorKind) int {
	switch kind {
	case ingest.KindInvalidInput, ingest.KindDecode:
		return http.StatusUnprocessableEntity
	case ingest.KindNotReady, ingest.KindSuperseded:
		return http.StatusConflict
	case ingest.KindUpload, ingest.KindURLResolution:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse classifies err into a status and body
func errorResponse(err error) (int, ErrorResponse) {
	var (
		ie          *ingest.Error
		ve          *catalog.ValidationError
		maxBytesErr *http.MaxBytesError
	)

	switch {
	case errors.As(err, &ie):
		return ingestStatus(ie.Kind), ErrorResponse{
			Error:    ie.UserMessage(),
			Kind:     ie.Kind.String(),
			Orphaned: ie.Orphan,
		}
	case errors.As(err, &ve):
		return http.StatusBadRequest, ErrorResponse{Error: ve.Message, Field: ve.Field}
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: fmt.Sprintf("request body exceeds %d bytes", maxBytesErr.Limit),
		}
	case errors.Is(err, errBadRequest), errors.Is(err, catalog.ErrValidation), errors.Is(err, implementations.ErrUnknownTarget):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error()}
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, content.ErrPageNotFound), errors.Is(err, implementations.ErrSessionNotFound):
		return http.StatusNotFound, ErrorResponse{Error: err.Error()}
	case errors.Is(err, catalog.ErrConflict):
		return http.StatusConflict, ErrorResponse{Error: err.Error()}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal server error"}
	}
}

// respondError writes err and logs server-side failures
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorResponse(err)
	h.logError(r, status, err)
	writeJSON(w, status, body)
}

func (h *Handler) logError(r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context()).Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
		return
	}
	h.logger.Debug(r.Context()).Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request rejected")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return badRequest("request body is empty")
		}
		return badRequest("invalid request body: %v", err)
	}
	return nil
}

func idParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id %q", raw)
	}
	return id, nil
}
