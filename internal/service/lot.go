package service

import (
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"auctionhouse/internal/apperror"
	"auctionhouse/internal/media"
	"auctionhouse/internal/model"
	"auctionhouse/internal/repository"
)

// MaxTitleLength caps lot titles.
const MaxTitleLength = 200

// ImageStore is the slice of the media store the lot service needs.
// Declared here (at the consumer) so tests can inject a fake without
// touching the filesystem.
type ImageStore interface {
	Save(file multipart.File, header *multipart.FileHeader) (string, error)
	Remove(name string)
}

// CreateLotInput carries the parsed fields of a lot-creation request.
// The handler does the multipart/number parsing; by the time this struct
// exists, types are settled and only the business rules remain.
type CreateLotInput struct {
	Title        string
	Description  string
	StartPrice   int64
	ReservePrice int64
	EndTime      time.Time
	Owner        string
}

// LotService handles lot creation, listing, and deletion.
type LotService struct {
	lots   repository.LotRepository
	images ImageStore
	logger *slog.Logger
}

func NewLotService(lots repository.LotRepository, images ImageStore, logger *slog.Logger) *LotService {
	return &LotService{
		lots:   lots,
		images: images,
		logger: logger,
	}
}

// Create validates the input, stores up to media.MaxLotImages image files,
// and persists the lot with its current bid initialized to the start price.
//
// Deliberately absent checks, preserved from the original behaviour:
// the end time may already be in the past, and the reserve price may be
// below the start price. Both are accepted as given.
//
// If the insert fails after images were written, the stored files are
// removed best-effort so failed requests don't accumulate orphans.
func (s *LotService) Create(ctx context.Context, input CreateLotInput, files []*multipart.FileHeader) (*model.Lot, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Owner = strings.TrimSpace(input.Owner)

	if input.Title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}
	if len(input.Title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if input.Description == "" {
		return nil, apperror.ValidationFailed("description", "description is required")
	}
	if input.StartPrice <= 0 {
		return nil, apperror.ValidationFailed("startPrice", "startPrice must be a positive number")
	}
	if input.ReservePrice < 0 {
		return nil, apperror.ValidationFailed("reservePrice", "reservePrice must not be negative")
	}
	if input.EndTime.IsZero() {
		return nil, apperror.ValidationFailed("endTime", "endTime is required")
	}
	if input.Owner == "" {
		return nil, apperror.ValidationFailed("owner", "owner is required")
	}
	if len(files) > media.MaxLotImages {
		return nil, apperror.ValidationFailed("images",
			fmt.Sprintf("a lot may have at most %d images", media.MaxLotImages))
	}

	// Zero files is fine — the lot is simply created with an empty list.
	stored := make([]string, 0, len(files))
	for _, header := range files {
		name, err := s.saveImage(header)
		if err != nil {
			s.removeAll(stored)
			return nil, err
		}
		stored = append(stored, name)
	}

	lot := &model.Lot{
		Title:        input.Title,
		Description:  input.Description,
		StartPrice:   input.StartPrice,
		ReservePrice: input.ReservePrice,
		CurrentBid:   input.StartPrice,
		EndTime:      input.EndTime,
		Owner:        input.Owner,
		Images:       stored,
	}

	if err := s.lots.Create(ctx, lot); err != nil {
		s.removeAll(stored)
		s.logger.Error("failed to create lot",
			slog.String("title", input.Title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating lot: %w", err)
	}

	s.logger.Info("lot created",
		slog.Int64("id", lot.ID),
		slog.String("title", lot.Title),
		slog.Int64("startPrice", lot.StartPrice),
	)

	return lot, nil
}

// Get returns a single lot by id.
func (s *LotService) Get(ctx context.Context, id int64) (*model.Lot, error) {
	if id <= 0 {
		return nil, apperror.ValidationFailed("id", "lot id must be a positive number")
	}
	return s.lots.GetByID(ctx, id)
}

// List returns lots, newest first. With activeOnly set, lots whose end time
// has passed are filtered out; the default returns everything.
func (s *LotService) List(ctx context.Context, activeOnly bool, limit, offset int) ([]model.Lot, error) {
	lots, err := s.lots.List(ctx, repository.LotListOptions{
		ActiveOnly: activeOnly,
		Now:        time.Now().UTC(),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		s.logger.Error("failed to list lots", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing lots: %w", err)
	}
	return lots, nil
}

// Delete removes a lot; its bids go with it via the cascade. The stored
// image files are removed best-effort afterwards.
func (s *LotService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperror.ValidationFailed("id", "lot id must be a positive number")
	}

	lot, err := s.lots.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.lots.Delete(ctx, id); err != nil {
		return err
	}

	s.removeAll(lot.Images)
	s.logger.Info("lot deleted", slog.Int64("id", id))
	return nil
}

func (s *LotService) saveImage(header *multipart.FileHeader) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", apperror.ValidationFailed("images",
			fmt.Sprintf("could not read uploaded file %s", header.Filename))
	}
	defer file.Close()

	return s.images.Save(file, header)
}

func (s *LotService) removeAll(names []string) {
	for _, name := range names {
		s.images.Remove(name)
	}
}
