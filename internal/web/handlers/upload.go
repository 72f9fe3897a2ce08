package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"jewelry-catalog/internal/domain/ingest"
	"jewelry-catalog/internal/services/implementations"
)

const (
	defaultMaxUploadSize = 10 << 20 // 10MB per file
	multipartOverhead    = 1 << 20  // room for form fields and part headers
	maxMemoryPerUpload   = 1 << 20  // 1MB in-memory buffer per upload, the rest spills to disk
)

// SessionResponse describes an upload session and its pipeline
type SessionResponse struct {
	ID        string                 `json:"id"`
	Target    implementations.Target `json:"target"`
	CreatedAt time.Time              `json:"created_at"`
	Status    implementations.Status `json:"status"`
	URL       string                 `json:"url,omitempty"`
}

func sessionResponse(s *implementations.Session) *SessionResponse {
	status := s.Pipeline.Snapshot()
	resp := &SessionResponse{
		ID:        s.ID,
		Target:    s.Target,
		CreatedAt: s.CreatedAt,
		Status:    status,
	}
	if status.Stored != nil {
		resp.URL = status.Stored.URL
	}
	return resp
}

// readSource reads the "file" part of a multipart request. A request without
// a file yields an empty source so the pipeline reports the missing selection.
func (h *Handler) readSource(w http.ResponseWriter, r *http.Request) (*ingest.SourceImage, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxMemoryPerUpload); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, err
		}
		return nil, badRequest("failed to parse form: %v", err)
	}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return &ingest.SourceImage{}, nil
	}
	if err != nil {
		return nil, badRequest("failed to read file: %v", err)
	}
	defer file.Close()

	if header.Size > h.MaxUploadSize {
		return nil, &http.MaxBytesError{Limit: h.MaxUploadSize}
	}

	data, err := io.ReadAll(io.LimitReader(file, h.MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	return &ingest.SourceImage{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
		Filename:    header.Filename,
	}, nil
}

func cleanupMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll() //nolint:errcheck // Cleanup operation
	}
}

// createUploadHandler opens a session for the form's target and processes the file
func (h *Handler) createUploadHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateUploadSession", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()
	r = r.WithContext(ctx)

	src, err := h.readSource(w, r)
	defer cleanupMultipart(r)
	if err != nil {
		span.RecordError(err)
		h.respondError(w, r, err)
		return
	}

	target, err := implementations.ParseTarget(r.FormValue("target"))
	if err != nil {
		span.RecordError(err)
		h.respondError(w, r, err)
		return
	}

	session, err := h.Sessions.Create(ctx, target)
	if err != nil {
		span.RecordError(err)
		h.respondError(w, r, err)
		return
	}

	span.SetAttributes(
		attribute.String("upload.session_id", session.ID),
		attribute.String("upload.target", string(target)),
		attribute.String("file.name", src.Filename),
		attribute.Int64("file.size", src.Size()),
	)

	h.logger.Info(ctx).
		Str("session_id", session.ID).
		Str("target", string(target)).
		Str("filename", src.Filename).
		Int64("size", src.Size()).
		Msg("Processing uploaded file")

	if _, err := session.Pipeline.Select(ctx, src); err != nil {
		span.SetStatus(codes.Error, "selection failed")
		h.respondSessionError(w, r, session, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse(session))
}

// reselectUploadHandler replaces the file of an existing session
func (h *Handler) reselectUploadHandler(w http.ResponseWriter, r *http.Request) {
	session, err := h.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	src, err := h.readSource(w, r)
	defer cleanupMultipart(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if _, err := session.Pipeline.Select(r.Context(), src); err != nil {
		h.respondSessionError(w, r, session, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse(session))
}

// confirmUploadHandler uploads the processed image and returns its URL
func (h *Handler) confirmUploadHandler(w http.ResponseWriter, r *http.Request) {
	session, err := h.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if _, err := session.Pipeline.Upload(r.Context()); err != nil {
		h.respondSessionError(w, r, session, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse(session))
}

func (h *Handler) getUploadHandler(w http.ResponseWriter, r *http.Request) {
	session, err := h.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(session))
}

func (h *Handler) listUploadsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": h.Sessions.List(),
	})
}

func (h *Handler) deleteUploadHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Remove(chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondSessionError writes a pipeline error along with the session state
func (h *Handler) respondSessionError(w http.ResponseWriter, r *http.Request, session *implementations.Session, err error) {
	status, body := errorResponse(err)
	body.Session = sessionResponse(session)
	h.logError(r, status, err)
	writeJSON(w, status, body)
}
