package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"auctionhouse/internal/apperror"
	"auctionhouse/internal/model"
	"auctionhouse/internal/repository"
)

// compile-time check that *DB implements repository.LotRepository
var _ repository.LotRepository = (*DB)(nil)

// Create inserts a new lot and fills in its generated ID.
//
// CurrentBid is persisted as given by the service (initialized to the start
// price there). The image list is JSON-encoded into a single TEXT column —
// image order matters to the frontend and arrays keep it without a join
// table this schema never needed.
func (db *DB) Create(ctx context.Context, lot *model.Lot) error {
	lot.CreatedAt = time.Now().UTC()

	images, err := encodeImages(lot.Images)
	if err != nil {
		return fmt.Errorf("sqlite: encoding lot images: %w", err)
	}

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO lots (title, description, start_price, reserve_price,
		                   current_bid, end_time, owner, images, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lot.Title,
		lot.Description,
		lot.StartPrice,
		lot.ReservePrice,
		lot.CurrentBid,
		lot.EndTime,
		lot.Owner,
		images,
		lot.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating lot: %w", err)
	}

	lot.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new lot id: %w", err)
	}

	return nil
}

func (db *DB) GetByID(ctx context.Context, id int64) (*model.Lot, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, title, description, start_price, reserve_price,
		        current_bid, end_time, owner, images, created_at
		 FROM lots
		 WHERE id = ?`,
		id,
	)

	lot, err := scanLot(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("lot", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting lot %d: %w", id, err)
	}

	return lot, nil
}

// List returns lots ordered newest-first. With opts.ActiveOnly set, only
// lots whose end time is after opts.Now are returned.
//
// Without a positive Limit every matching lot comes back — the published
// behaviour of the listing endpoint. LIMIT -1 is SQLite's "no limit", which
// keeps OFFSET usable either way.
func (db *DB) List(ctx context.Context, opts repository.LotListOptions) ([]model.Lot, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT id, title, description, start_price, reserve_price,
	                 current_bid, end_time, owner, images, created_at
	          FROM lots`
	args := []any{}
	if opts.ActiveOnly {
		now := opts.Now
		if now.IsZero() {
			now = time.Now().UTC()
		}
		query += ` WHERE end_time > ?`
		args = append(args, now)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing lots: %w", err)
	}
	defer rows.Close()

	lots := make([]model.Lot, 0, 16)
	for rows.Next() {
		lot, err := scanLot(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning lot row: %w", err)
		}
		lots = append(lots, *lot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating lots: %w", err)
	}

	return lots, nil
}

// Delete removes a lot; the FK cascade removes its bids in the same
// statement. RowsAffected distinguishes "deleted" from "no such lot".
func (db *DB) Delete(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM lots WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting lot %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("lot", strconv.FormatInt(id, 10))
	}

	return nil
}

// scanLot reads one lot row. Taking the Scan function directly lets the
// same code serve both sql.Row and sql.Rows.
func scanLot(scan func(dest ...any) error) (*model.Lot, error) {
	var (
		lot    model.Lot
		images string
	)
	err := scan(
		&lot.ID,
		&lot.Title,
		&lot.Description,
		&lot.StartPrice,
		&lot.ReservePrice,
		&lot.CurrentBid,
		&lot.EndTime,
		&lot.Owner,
		&images,
		&lot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(images), &lot.Images); err != nil {
		return nil, fmt.Errorf("decoding images for lot %d: %w", lot.ID, err)
	}
	if lot.Images == nil {
		lot.Images = []string{}
	}

	return &lot, nil
}

func encodeImages(images []string) (string, error) {
	if images == nil {
		images = []string{}
	}
	raw, err := json.Marshal(images)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
