package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lehigh-university-libraries/alphaocr/internal/apperrors"
	"github.com/lehigh-university-libraries/alphaocr/internal/utils"
	"github.com/lehigh-university-libraries/alphaocr/pkg/pipeline"
	"github.com/lehigh-university-libraries/alphaocr/pkg/screenshot"
)

type Handler struct {
	pipeline     *pipeline.Pipeline
	debug        *screenshot.DebugSink
	maxBodyBytes int64
}

// NewHandler serves p. debug may be nil.
func NewHandler(p *pipeline.Pipeline, maxBodyBytes int64, debug *screenshot.DebugSink) *Handler {
	return &Handler{
		pipeline:     p,
		debug:        debug,
		maxBodyBytes: maxBodyBytes,
	}
}

func (h *Handler) Attach(r chi.Router) {
	r.Post("/ocr-and-translate", h.handleOCRAndTranslate)
	r.Get("/healthz", h.handleHealth)
}

func (h *Handler) handleOCRAndTranslate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetReqID(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Unable to read request body")
		return
	}

	payload, err := parseRequest(body)
	if err != nil {
		h.fail(w, requestID, err)
		return
	}

	slog.Debug("Received request",
		"request_id", requestID,
		"image_data", utils.SummarizeDataURL(payload.ImageData),
		"cursor", payload.Cursor != nil,
		"orientation", payload.Orientation)

	img, err := screenshot.Decode(payload.ImageData)
	if err != nil {
		h.fail(w, requestID, err)
		return
	}
	h.debug.Save(requestID, img)

	resp, err := h.pipeline.Process(r.Context(), pipeline.Request{
		Image:       img,
		Cursor:      payload.Cursor,
		Orientation: payload.Orientation,
	})
	if err != nil {
		h.fail(w, requestID, err)
		return
	}

	slog.Info("Processed request",
		"request_id", requestID,
		"mode", resp.Mode,
		"word", resp.Word,
		"entries", len(resp.Entries))

	writeJson(w, resp)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	rec := h.pipeline.Recognizer()

	writeJson(w, map[string]any{
		"status":  "ok",
		"backend": rec.Name(),
		"boxes":   rec.ProducesBoxes(),
	})
}

func (h *Handler) fail(w http.ResponseWriter, requestID string, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "request_id", requestID, "err", utils.MaskSensitiveError(err))
	} else {
		slog.Warn("Rejected request", "request_id", requestID, "err", utils.MaskSensitiveError(err))
	}
	writeError(w, status, apperrors.PublicMessage(err))
}

func writeJson(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		slog.Error("Unable to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	if message == "" {
		message = http.StatusText(code)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(map[string]string{"error": message})
}
