// Package repository declares the storage interfaces the service layer
// depends on. Concrete implementations live in subpackages (sqlite).
// Services receive these interfaces, never a *sql.DB — tests inject
// in-memory fakes, and the storage backend can change without touching
// business logic.
package repository

import (
	"context"
	"time"

	"auctionhouse/internal/model"
)

// LotListOptions controls lot listing.
//
// ActiveOnly filters out lots whose end time is at or before Now.
// The default (false) returns every lot — the published behaviour of the
// API — with ActiveOnly available behind ?active=true. Limit <= 0 means
// no limit: the zero value lists everything.
type LotListOptions struct {
	ActiveOnly bool
	Now        time.Time
	Limit      int
	Offset     int
}

type UserRepository interface {
	// CreateUser inserts a new user. Returns apperror.ErrConflict (wrapped)
	// if the username is already taken.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// SetPaid flips the paid flag. Returns ErrNotFound for unknown usernames.
	SetPaid(ctx context.Context, username string, paid bool) error
	// UpsertAdmin creates or updates the admin account with the given
	// credentials. Used once at startup for provisioning from config.
	UpsertAdmin(ctx context.Context, username, passwordHash string) error
}

type LotRepository interface {
	Create(ctx context.Context, lot *model.Lot) error
	GetByID(ctx context.Context, id int64) (*model.Lot, error)
	List(ctx context.Context, opts LotListOptions) ([]model.Lot, error)
	// Delete removes the lot and, through the FK cascade, its bids.
	Delete(ctx context.Context, id int64) error
}

type BidRepository interface {
	// Place atomically records the bid and raises the lot's current bid.
	// The whole operation is a single conditional transaction: it fails with
	// apperror.ErrBidRejected (nothing persisted) unless
	// bid.Amount > the lot's current bid at commit time, and with
	// apperror.ErrNotFound if the lot does not exist.
	Place(ctx context.Context, bid *model.Bid) error
	ListByLot(ctx context.Context, lotID int64) ([]model.Bid, error)
}
