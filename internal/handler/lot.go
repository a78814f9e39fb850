package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"auctionhouse/internal/apperror"
	"auctionhouse/internal/media"
	"auctionhouse/internal/model"
	"auctionhouse/internal/service"
)

// maxLotFormSize bounds a whole lot-creation request: three images at the
// per-file cap plus headroom for the text fields.
const maxLotFormSize = media.MaxLotImages*media.MaxFileSize + 512*1024

// LotHandler serves lot listing, creation, and deletion.
type LotHandler struct {
	lots   *service.LotService
	logger *slog.Logger
}

func NewLotHandler(lots *service.LotService, logger *slog.Logger) *LotHandler {
	return &LotHandler{lots: lots, logger: logger}
}

// lotResponse is the wire shape of a lot. Identical to model.Lot except
// that stored image filenames are rendered into served /uploads/ paths.
type lotResponse struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	StartPrice   int64     `json:"startPrice"`
	ReservePrice int64     `json:"reservePrice"`
	CurrentBid   int64     `json:"currentBid"`
	EndTime      time.Time `json:"endTime"`
	Owner        string    `json:"owner"`
	Images       []string  `json:"images"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toLotResponse(lot *model.Lot) lotResponse {
	images := make([]string, len(lot.Images))
	for i, name := range lot.Images {
		images[i] = media.PublicPath(name)
	}
	return lotResponse{
		ID:           lot.ID,
		Title:        lot.Title,
		Description:  lot.Description,
		StartPrice:   lot.StartPrice,
		ReservePrice: lot.ReservePrice,
		CurrentBid:   lot.CurrentBid,
		EndTime:      lot.EndTime,
		Owner:        lot.Owner,
		Images:       images,
		CreatedAt:    lot.CreatedAt,
	}
}

// HandleList returns lots, newest first.
//
// HTTP: GET /api/lots            → every lot
//
//	GET /api/lots?active=true → only lots still open
//
// Listing everything is the default; active-only filtering is an explicit
// opt-in via the query parameter, as is paging with limit/offset.
func (h *LotHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	limit, err := parsePageParam(r.URL.Query().Get("limit"), "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := parsePageParam(r.URL.Query().Get("offset"), "offset")
	if err != nil {
		writeError(w, err)
		return
	}

	lots, err := h.lots.List(r.Context(), activeOnly, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]lotResponse, len(lots))
	for i := range lots {
		out[i] = toLotResponse(&lots[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGet returns a single lot.
//
// HTTP: GET /api/lots/{id}
func (h *LotHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseLotID(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	lot, err := h.lots.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toLotResponse(lot))
}

// HandleCreate creates a lot from a multipart form.
//
// HTTP: POST /api/lots
// Form fields: title, description, startPrice, reservePrice, endTime
// (RFC 3339), owner. File field: images (0–3 files, ≤2 MB each).
//
// MaxBytesReader caps the whole request body before any of it is parsed, so
// an oversized upload is refused without buffering it.
func (h *LotHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLotFormSize)

	if err := r.ParseMultipartForm(maxLotFormSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
				Error:   "payload_too_large",
				Message: "request body exceeds the upload limit",
			})
			return
		}
		h.logger.Warn("invalid multipart form", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid multipart form",
		})
		return
	}

	input, err := parseCreateLotForm(r)
	if err != nil {
		writeError(w, err)
		return
	}

	lot, err := h.lots.Create(r.Context(), input, r.MultipartForm.File["images"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"lotId":   lot.ID,
	})
}

// HandleDelete removes a lot and its bids. The router gates this behind the
// admin token middleware.
//
// HTTP: DELETE /api/lots/{id}
func (h *LotHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseLotID(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.lots.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// parseCreateLotForm pulls the typed fields out of the parsed form.
// Numeric fields that fail to parse are validation errors, matching the
// "missing or non-numeric" failure mode of the API.
func parseCreateLotForm(r *http.Request) (service.CreateLotInput, error) {
	var input service.CreateLotInput

	input.Title = r.FormValue("title")
	input.Description = r.FormValue("description")
	input.Owner = r.FormValue("owner")

	startPrice, err := parsePrice(r.FormValue("startPrice"), "startPrice")
	if err != nil {
		return input, err
	}
	input.StartPrice = startPrice

	// reservePrice is optional; blank means zero.
	if raw := strings.TrimSpace(r.FormValue("reservePrice")); raw != "" {
		reservePrice, err := parsePrice(raw, "reservePrice")
		if err != nil {
			return input, err
		}
		input.ReservePrice = reservePrice
	}

	endTime, err := time.Parse(time.RFC3339, strings.TrimSpace(r.FormValue("endTime")))
	if err != nil {
		return input, apperror.ValidationFailed("endTime", "endTime must be an RFC 3339 timestamp")
	}
	input.EndTime = endTime

	return input, nil
}

func parsePrice(raw, field string) (int64, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, apperror.ValidationFailed(field, field+" must be a whole number")
	}
	return value, nil
}

// parsePageParam parses an optional limit/offset query parameter. Blank
// means unset (zero — list everything); anything else must be a
// non-negative number rather than being silently ignored.
func parsePageParam(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, apperror.ValidationFailed(field, field+" must be a non-negative number")
	}
	return value, nil
}

func parseLotID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("id", "lot id must be a positive number")
	}
	return id, nil
}
