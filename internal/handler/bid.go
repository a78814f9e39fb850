package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"auctionhouse/internal/service"
)

// BidHandler serves bid placement and bid history.
type BidHandler struct {
	bids   *service.BidService
	logger *slog.Logger
}

func NewBidHandler(bids *service.BidService, logger *slog.Logger) *BidHandler {
	return &BidHandler{bids: bids, logger: logger}
}

type placeBidRequest struct {
	LotID    int64  `json:"lotId"`
	Username string `json:"username"`
	Amount   int64  `json:"amount"`
}

// HandlePlace records a bid.
//
// HTTP: POST /api/bids
// Body: {"lotId": 7, "username": "ann", "amount": 1500}
//
// 400 for missing fields, a bid at or below the current bid, or a closed
// auction (when close enforcement is on); 404 for an unknown lot.
func (h *BidHandler) HandlePlace(w http.ResponseWriter, r *http.Request) {
	var req placeBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid bid body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	bid, err := h.bids.Place(r.Context(), req.LotID, req.Username, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"bidId":      bid.ID,
		"currentBid": bid.Amount,
	})
}

// HandleHistory returns a lot's accepted bids, highest first.
//
// HTTP: GET /api/lots/{id}/bids
func (h *BidHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseLotID(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	bids, err := h.bids.History(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bids)
}
