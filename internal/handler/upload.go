package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"auctionhouse/internal/media"
)

// UploadHandler serves the standalone banner upload.
type UploadHandler struct {
	store  *media.Store
	logger *slog.Logger
}

func NewUploadHandler(store *media.Store, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{store: store, logger: logger}
}

// HandleBanner stores a single image and returns its public URL.
//
// HTTP: POST /api/upload-banner
// File field: file
//
// 400 when no file is attached, 413 when it exceeds the per-file limit.
func (h *UploadHandler) HandleBanner(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, media.MaxFileSize+64*1024)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
				Error:   "payload_too_large",
				Message: "file exceeds the upload limit",
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "no file uploaded",
		})
		return
	}
	defer file.Close()

	name, err := h.store.Save(file, header)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("banner uploaded", slog.String("name", name))

	writeJSON(w, http.StatusOK, map[string]any{
		"url": media.PublicPath(name),
	})
}
