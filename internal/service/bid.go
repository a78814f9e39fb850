package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"auctionhouse/internal/apperror"
	"auctionhouse/internal/model"
	"auctionhouse/internal/repository"
)

// BidService validates and records bids.
//
// enforceEndTime is the auction-close policy: when true (the default
// configuration), bids on a lot whose end time has passed are refused. The
// original backend accepted bids forever; flipping the flag restores that.
type BidService struct {
	bids           repository.BidRepository
	lots           repository.LotRepository
	enforceEndTime bool
	logger         *slog.Logger
}

func NewBidService(
	bids repository.BidRepository,
	lots repository.LotRepository,
	enforceEndTime bool,
	logger *slog.Logger,
) *BidService {
	return &BidService{
		bids:           bids,
		lots:           lots,
		enforceEndTime: enforceEndTime,
		logger:         logger,
	}
}

// Place validates a bid and records it.
//
// Check order: inputs → lot exists → auction open (policy) → amount above
// current bid. The last check here is only a fast path for a friendly error
// message — the authoritative comparison happens inside the repository's
// transaction, so two bids racing past this point can never both be
// accepted against the same baseline. The reserve price is never consulted.
func (s *BidService) Place(ctx context.Context, lotID int64, bidder string, amount int64) (*model.Bid, error) {
	bidder = strings.TrimSpace(bidder)

	if lotID <= 0 {
		return nil, apperror.ValidationFailed("lotId", "lotId must be a positive number")
	}
	if bidder == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if amount <= 0 {
		return nil, apperror.ValidationFailed("amount", "amount must be a positive number")
	}

	lot, err := s.lots.GetByID(ctx, lotID)
	if err != nil {
		return nil, err
	}

	if s.enforceEndTime && !lot.Active(time.Now().UTC()) {
		return nil, apperror.BidRejected("auction has already closed")
	}

	if amount <= lot.CurrentBid {
		return nil, apperror.BidRejected(
			fmt.Sprintf("bid must be greater than the current bid of %d", lot.CurrentBid))
	}

	bid := &model.Bid{
		LotID:  lotID,
		Bidder: bidder,
		Amount: amount,
	}

	if err := s.bids.Place(ctx, bid); err != nil {
		return nil, err
	}

	s.logger.Info("bid accepted",
		slog.Int64("lotId", lotID),
		slog.String("bidder", bidder),
		slog.Int64("amount", amount),
	)

	return bid, nil
}

// History returns a lot's accepted bids, highest first. Fails with
// NotFound if the lot doesn't exist, so an empty history and a missing lot
// are distinguishable.
func (s *BidService) History(ctx context.Context, lotID int64) ([]model.Bid, error) {
	if lotID <= 0 {
		return nil, apperror.ValidationFailed("lotId", "lotId must be a positive number")
	}

	if _, err := s.lots.GetByID(ctx, lotID); err != nil {
		return nil, err
	}

	bids, err := s.bids.ListByLot(ctx, lotID)
	if err != nil {
		return nil, fmt.Errorf("listing bids for lot %d: %w", lotID, err)
	}
	if bids == nil {
		bids = []model.Bid{}
	}
	return bids, nil
}
