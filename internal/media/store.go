// Package media stores uploaded lot images on the local filesystem.
//
// Files are written under a single public directory and served back via
// GET /uploads/<name>. Stored names are generated with xid — time-ordered,
// URL-safe, no collisions — with the original extension preserved so
// browsers and CDNs keep their content-type heuristics.
package media

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/xid"

	"auctionhouse/internal/apperror"
)

const (
	// MaxFileSize caps a single uploaded image at 2 MB.
	MaxFileSize = 2 << 20
	// MaxLotImages caps the number of images attached to one lot.
	MaxLotImages = 3
)

// Store writes uploads to dir and hands back the stored filenames.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates the upload directory if needed and returns a Store.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("media: creating upload directory %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the directory files are stored in. The server mounts it under
// /uploads/.
func (s *Store) Dir() string {
	return s.dir
}

// Save stores one multipart file and returns the generated filename.
//
// The declared header size is checked up front, and the copy itself is
// capped at MaxFileSize+1 bytes so a client lying about Content-Length is
// still cut off. An over-limit file fails with a TooLarge error and the
// partial file is removed.
func (s *Store) Save(file multipart.File, header *multipart.FileHeader) (string, error) {
	if header.Size > MaxFileSize {
		return "", apperror.TooLarge(
			fmt.Sprintf("file %s exceeds the %d byte limit", header.Filename, MaxFileSize))
	}

	name := xid.New().String() + normalizeExt(header.Filename)
	path := filepath.Join(s.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("media: creating %s: %w", path, err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, io.LimitReader(file, MaxFileSize+1))
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("media: writing %s: %w", path, err)
	}
	if written > MaxFileSize {
		os.Remove(path)
		return "", apperror.TooLarge(
			fmt.Sprintf("file %s exceeds the %d byte limit", header.Filename, MaxFileSize))
	}

	s.logger.Info("file stored",
		slog.String("name", name),
		slog.Int64("bytes", written),
	)

	return name, nil
}

// Remove deletes a stored file. Used for best-effort cleanup when a lot
// insert fails after its images were written.
func (s *Store) Remove(name string) {
	if err := os.Remove(filepath.Join(s.dir, filepath.Base(name))); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove stored file",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
	}
}

// PublicPath returns the URL path a stored filename is served under.
func PublicPath(name string) string {
	return "/uploads/" + name
}

// normalizeExt extracts a lowercased extension from the client-supplied
// filename. filepath.Ext on the base name only — the client path never
// touches ours.
func normalizeExt(original string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(original)))
	// A dot alone or an absurdly long "extension" is garbage input; store
	// the file without one.
	if ext == "." || len(ext) > 10 {
		return ""
	}
	return ext
}
