package model

import "time"

// Bid records one accepted bid on a lot.
//
// Rows are append-only: a bid is never mutated or deleted individually, only
// removed transitively when its lot is deleted (ON DELETE CASCADE).
// Amount is strictly greater than the lot's current bid at the moment of
// insertion — the repository guarantees this atomically.
type Bid struct {
	ID        int64     `json:"id"        db:"id"`
	LotID     int64     `json:"lotId"     db:"lot_id"`
	Bidder    string    `json:"bidder"    db:"bidder"`
	Amount    int64     `json:"amount"    db:"amount"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
