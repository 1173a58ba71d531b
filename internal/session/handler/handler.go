package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"certguard/internal/session"
	dErrors "certguard/pkg/domain-errors"
	"certguard/pkg/platform/httputil"
	"certguard/pkg/requestcontext"
)

// multipartOverhead is allowed on top of the file limit for form framing.
const multipartOverhead = 1 << 20

// Submitter starts and resets sessions for a client scope.
type Submitter interface {
	Submit(ctx context.Context, scope string, files ...session.File) (session.Session, error)
	Reset(ctx context.Context, scope string) (session.Session, bool)
}

// Tracker exposes the state of recent sessions.
type Tracker interface {
	Get(token uuid.UUID) (session.View, bool)
	Wait(ctx context.Context, token uuid.UUID) (session.View, error)
}

// Handler wires verification session endpoints.
type Handler struct {
	sessions     Submitter
	tracker      Tracker
	maxFileBytes int64
	logger       *slog.Logger
}

// New constructs a session handler. maxFileBytes bounds the upload body.
func New(sessions Submitter, tracker Tracker, maxFileBytes int64, logger *slog.Logger) *Handler {
	return &Handler{
		sessions:     sessions,
		tracker:      tracker,
		maxFileBytes: maxFileBytes,
		logger:       logger,
	}
}

// Register mounts the session endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/verifications", h.HandleSubmit)
	r.Delete("/v1/verifications/current", h.HandleReset)
	r.Get("/v1/verifications/{token}", h.HandleGet)
}

// HandleSubmit handles POST /v1/verifications.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	scope := requestcontext.ClientScope(ctx)

	files, err := h.readFiles(w, r)
	if err != nil {
		h.logger.InfoContext(ctx, "upload rejected",
			"request_id", requestID,
			"client_scope", scope,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	sess, err := h.sessions.Submit(ctx, scope, files...)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "verification submitted",
		"request_id", requestID,
		"client_scope", scope,
		"client_ip", requestcontext.ClientIP(ctx),
		"session_token", sess.Token,
	)

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if !wait {
		httputil.WriteJSON(w, http.StatusAccepted, toAcceptedResponse(sess))
		return
	}

	view, err := h.tracker.Wait(ctx, sess.Token)
	if err != nil {
		h.logger.ErrorContext(ctx, "waiting for verification failed",
			"request_id", requestID,
			"session_token", sess.Token,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "verification did not finish"))
		return
	}
	if view.Failure != nil {
		httputil.WriteError(w, dErrors.New(view.Failure.Code, view.Failure.Message))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toViewResponse(view))
}

// HandleGet handles GET /v1/verifications/{token}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token, err := uuid.Parse(chi.URLParam(r, "token"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "session token must be a UUID"))
		return
	}

	view, ok := h.tracker.Get(token)
	if !ok || view.Session.Scope != requestcontext.ClientScope(ctx) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "verification session not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toViewResponse(view))
}

// HandleReset handles DELETE /v1/verifications/current.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope := requestcontext.ClientScope(ctx)
	if sess, ok := h.sessions.Reset(ctx, scope); ok {
		h.logger.InfoContext(ctx, "verification reset",
			"request_id", requestcontext.RequestID(ctx),
			"client_scope", scope,
			"session_token", sess.Token,
		)
	}
	w.WriteHeader(http.StatusNoContent)
}

// readFiles parses every "file" part of the multipart body.
func (h *Handler) readFiles(w http.ResponseWriter, r *http.Request) ([]session.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, dErrors.New(dErrors.CodeFileTooLarge, "upload exceeds the size limit")
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "expected a multipart/form-data body")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed multipart body")
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["file"]
	files := make([]session.File, 0, len(headers))
	for _, fh := range headers {
		f, err := readFile(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func readFile(fh *multipart.FileHeader) (session.File, error) {
	src, err := fh.Open()
	if err != nil {
		return session.File{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable file part")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return session.File{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable file part")
	}
	return session.File{
		Name:     fh.Filename,
		Size:     fh.Size,
		MIMEType: detectMIME(fh.Header.Get("Content-Type"), data),
		Bytes:    data,
	}, nil
}

// detectMIME trusts the declared type unless it is missing or generic.
func detectMIME(declared string, data []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return mimetype.Detect(data).String()
}
