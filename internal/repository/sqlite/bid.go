package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"auctionhouse/internal/apperror"
	"auctionhouse/internal/model"
	"auctionhouse/internal/repository"
)

// compile-time check that *DB implements repository.BidRepository
var _ repository.BidRepository = (*DB)(nil)

// Place records a bid and raises the lot's current bid in one transaction.
//
// The whole acceptance rule lives in a single conditional UPDATE:
//
//	UPDATE lots SET current_bid = ? WHERE id = ? AND current_bid < ?
//
// Two bids racing on the same lot both reach this statement, but SQLite
// serializes the writes: the second one re-evaluates current_bid < amount
// against the first one's committed value and affects zero rows if it no
// longer clears the bar. RowsAffected == 0 therefore means either "lot
// missing" or "amount not above current bid" — we tell them apart with a
// lookup inside the same transaction. Either way the transaction rolls
// back and no bid row is left behind.
func (db *DB) Place(ctx context.Context, bid *model.Bid) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning bid transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE lots SET current_bid = ? WHERE id = ? AND current_bid < ?`,
		bid.Amount, bid.LotID, bid.Amount,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating current bid for lot %d: %w", bid.LotID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		var current int64
		err := tx.QueryRowContext(ctx,
			`SELECT current_bid FROM lots WHERE id = ?`, bid.LotID,
		).Scan(&current)
		if err == sql.ErrNoRows {
			return apperror.NotFound("lot", strconv.FormatInt(bid.LotID, 10))
		}
		if err != nil {
			return fmt.Errorf("sqlite: checking lot %d: %w", bid.LotID, err)
		}
		return apperror.BidRejected(
			fmt.Sprintf("bid must be greater than the current bid of %d", current))
	}

	bid.CreatedAt = time.Now().UTC()

	insert, err := tx.ExecContext(ctx,
		`INSERT INTO bids (lot_id, bidder, amount, created_at)
		 VALUES (?, ?, ?, ?)`,
		bid.LotID, bid.Bidder, bid.Amount, bid.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting bid for lot %d: %w", bid.LotID, err)
	}

	bid.ID, err = insert.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new bid id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing bid for lot %d: %w", bid.LotID, err)
	}

	return nil
}

// ListByLot returns a lot's bids, highest first.
func (db *DB) ListByLot(ctx context.Context, lotID int64) ([]model.Bid, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, lot_id, bidder, amount, created_at
		 FROM bids
		 WHERE lot_id = ?
		 ORDER BY amount DESC`,
		lotID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing bids for lot %d: %w", lotID, err)
	}
	defer rows.Close()

	var bids []model.Bid
	for rows.Next() {
		var b model.Bid
		if err := rows.Scan(&b.ID, &b.LotID, &b.Bidder, &b.Amount, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning bid row: %w", err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating bids: %w", err)
	}

	return bids, nil
}
