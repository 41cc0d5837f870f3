// Package media stages inbound photos on local disk just long enough for
// the verification pipeline to read them. Staged files are transient:
// callers remove them when done and a sweeper deletes anything that
// outlives the TTL.
package media

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrAssetTooLarge means the payload exceeded the configured limit.
var ErrAssetTooLarge = errors.New("asset exceeds size limit")

// Staged describes a spooled file.
type Staged struct {
	Path      string
	Hash      string
	SizeBytes int64
}

// Service spools and expires transient media files.
type Service struct {
	dir      string
	ttl      time.Duration
	maxBytes int64
	logger   *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

// NewService creates a media store writing under dir.
func NewService(log *slog.Logger, dir string, ttl time.Duration, maxBytes int64) *Service {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Service{
		dir:      dir,
		ttl:      ttl,
		maxBytes: maxBytes,
		logger:   log.With(slog.String("service", "media")),
		now:      time.Now,
	}
}

// Stage copies reader to a content-hashed file under the media dir. The
// read is capped at the configured limit.
func (s *Service) Stage(reader io.Reader, mime string) (Staged, error) {
	if reader == nil {
		return Staged{}, fmt.Errorf("reader is required")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Staged{}, fmt.Errorf("create media dir: %w", err)
	}

	tempFile, err := os.CreateTemp(s.dir, "staging-*")
	if err != nil {
		return Staged{}, fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	keep := false
	defer func() {
		_ = tempFile.Close()
		if !keep {
			_ = os.Remove(tempPath)
		}
	}()

	hasher := sha256.New()
	limited := &io.LimitedReader{R: reader, N: s.maxBytes + 1}
	written, err := io.Copy(io.MultiWriter(tempFile, hasher), limited)
	if err != nil {
		return Staged{}, fmt.Errorf("copy to temp file: %w", err)
	}
	if written > s.maxBytes {
		return Staged{}, fmt.Errorf("%w: max %d bytes", ErrAssetTooLarge, s.maxBytes)
	}
	if written == 0 {
		return Staged{}, fmt.Errorf("asset payload is empty")
	}
	if err := tempFile.Close(); err != nil {
		return Staged{}, fmt.Errorf("close temp file: %w", err)
	}

	hash := hex.EncodeToString(hasher.Sum(nil))
	finalPath := filepath.Join(s.dir, hash+extensionFromMime(mime))
	if err := os.Rename(tempPath, finalPath); err != nil {
		return Staged{}, fmt.Errorf("finalize staged file: %w", err)
	}
	keep = true
	return Staged{Path: finalPath, Hash: hash, SizeBytes: written}, nil
}

// Remove deletes a staged file. Missing files are not an error.
func (s *Service) Remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("remove staged file", slog.String("path", path), slog.String("error", err.Error()))
	}
}

// Cleanup deletes staged files older than the TTL and returns the count.
func (s *Service) Cleanup() int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("read media dir", slog.String("error", err.Error()))
		}
		return 0
	}
	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	if removed > 0 {
		s.logger.Info("cleaned up staged media", slog.Int("count", removed))
	}
	return removed
}

func extensionFromMime(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg", "":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "application/pdf":
		return ".pdf"
	default:
		return ".bin"
	}
}
