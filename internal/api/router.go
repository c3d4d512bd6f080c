// Package api exposes the upload service over HTTP, either behind API Gateway
// or as a plain server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stefando/multipartUploadAWS/internal/logging"
	"github.com/stefando/multipartUploadAWS/internal/storage"
	"github.com/stefando/multipartUploadAWS/internal/upload"
)

// Uploader is the orchestrator the routes delegate to.
type Uploader interface {
	Init(ctx context.Context, req upload.InitRequest) (*upload.InitResponse, error)
	GetURLs(ctx context.Context, req upload.GetURLsRequest) (*upload.GetURLsResponse, error)
	Finalize(ctx context.Context, req upload.FinalizeRequest) (*upload.FinalizeResponse, error)
	Abort(ctx context.Context, req upload.AbortRequest) (*upload.AbortResponse, error)
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewRouter creates the chi router serving the four upload routes.
func NewRouter(svc Uploader, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = logging.Discard()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	// Every unknown route and every non-POST method is a 404
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Route("/upload", func(r chi.Router) {
		r.Post("/mp-init", handle(logger, "initiate upload", svc.Init))
		r.Post("/mp-get-urls", handle(logger, "generate part URLs", svc.GetURLs))
		r.Post("/mp-finalize", handle(logger, "finalize upload", svc.Finalize))
		r.Post("/mp-abort", handle(logger, "abort upload", svc.Abort))
	})

	return r
}

// handle decodes the JSON body into Req, runs op and encodes its result.
func handle[Req, Resp any](log *slog.Logger, action string, op func(context.Context, Req) (*Resp, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		if r.Body == nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		resp, err := op(r.Context(), req)
		if err != nil {
			status := statusFor(err)
			if status >= http.StatusInternalServerError {
				log.ErrorContext(r.Context(), "request failed",
					"action", action, "error", err, "request_id", middleware.GetReqID(r.Context()))
				writeError(w, status, "Failed to "+action)
				return
			}
			log.WarnContext(r.Context(), "request rejected",
				"action", action, "status", status, "error", err)
			writeError(w, status, clientMessage(err, status))
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// statusFor maps orchestrator and backend errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, upload.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrInvalidPart):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrAccessDenied):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage returns the error text safe to show the caller. Validation
// messages only echo the request; backend errors name the bucket and key, so
// they get a fixed message per status.
func clientMessage(err error, status int) string {
	if errors.Is(err, upload.ErrInvalidRequest) {
		return err.Error()
	}
	switch status {
	case http.StatusNotFound:
		return "Upload session not found"
	case http.StatusForbidden:
		return "Access denied"
	case http.StatusBadRequest:
		return "Invalid part list"
	default:
		return http.StatusText(status)
	}
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, fmt.Sprintf("Route %s %s not found", r.Method, r.URL.Path))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
