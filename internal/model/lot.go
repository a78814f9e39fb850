package model

import "time"

// Lot represents an item listed for auction.
//
// Prices are integer amounts in the store's minor currency unit.
// CurrentBid starts equal to StartPrice and only ever moves up — the bid
// repository enforces that with a conditional update.
//
// ReservePrice is informational: it is stored and returned to clients but
// never enforced when accepting bids.
//
// Images holds stored filenames (not URLs). Handlers render them into
// served /uploads/ paths on the way out, so the DB stays portable across
// deployments with different public prefixes.
type Lot struct {
	ID           int64     `json:"id"           db:"id"`
	Title        string    `json:"title"        db:"title"`
	Description  string    `json:"description"  db:"description"`
	StartPrice   int64     `json:"startPrice"   db:"start_price"`
	ReservePrice int64     `json:"reservePrice" db:"reserve_price"`
	CurrentBid   int64     `json:"currentBid"   db:"current_bid"`
	EndTime      time.Time `json:"endTime"      db:"end_time"`
	Owner        string    `json:"owner"        db:"owner"`
	Images       []string  `json:"images"       db:"images"`
	CreatedAt    time.Time `json:"createdAt"    db:"created_at"`
}

// Active reports whether the lot's end time is still in the future.
// Read-side filtering only — whether the write path also enforces this is
// a bidding policy decision (see service.BidService).
func (l *Lot) Active(now time.Time) bool {
	return l.EndTime.After(now)
}
