// Package ledger records every submitted receipt and blocks replays. A
// receipt's fingerprint is checked against ALL prior records, whatever
// their status, so a rejected or pending submission still burns the
// fingerprint.
package ledger

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ucfagri/sambot/internal/store"
	"github.com/ucfagri/sambot/internal/verify"
)

// Status is the review status of a recorded document.
type Status string

const (
	StatusApproved Status = "approved"
	StatusPending  Status = "pending"
	StatusRejected Status = "rejected"
)

// ErrReceiptUsed means the fingerprint was already submitted.
var ErrReceiptUsed = errors.New("receipt already used")

// Document is one recorded receipt submission.
type Document struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	Status      Status         `json:"status"`
	ImageURL    string         `json:"image_url,omitempty"`
	VerifiedAt  time.Time      `json:"verified_at"`
	Receipt     verify.Receipt `json:"receipt"`
}

// Service is the anti-replay ledger over the document collection.
type Service struct {
	col    *store.Collection[Document]
	logger *slog.Logger
}

// NewService creates a ledger persisting under dataDir.
func NewService(log *slog.Logger, dataDir string) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		col:    store.NewCollection[Document](log, filepath.Join(dataDir, "receipts.json")),
		logger: log.With(slog.String("service", "ledger")),
	}
}

// Fingerprint derives the replay key from the three fields that identify a
// purchase.
func Fingerprint(retailer, date, total string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s-%s-%s", retailer, date, total)))
	return hex.EncodeToString(sum[:])
}

// IsUsed reports whether the fingerprint appears in any prior record.
func (s *Service) IsUsed(fingerprint string) bool {
	if fingerprint == "" {
		return false
	}
	for _, doc := range s.col.Load() {
		if doc.Fingerprint == fingerprint {
			return true
		}
	}
	return false
}

// Record appends a document unconditionally, assigning id and timestamp.
func (s *Service) Record(doc Document) (Document, error) {
	doc.ID = uuid.NewString()
	doc.VerifiedAt = time.Now()
	err := s.col.Update(func(items []Document) ([]Document, error) {
		return append(items, doc), nil
	})
	if err != nil {
		return Document{}, fmt.Errorf("record document: %w", err)
	}
	return doc, nil
}

// CheckAndRecord appends the document only if its fingerprint is unused.
// The check and the append happen under one lock, so two concurrent
// submissions of the same receipt cannot both pass.
func (s *Service) CheckAndRecord(doc Document) (Document, error) {
	doc.ID = uuid.NewString()
	doc.VerifiedAt = time.Now()
	err := s.col.Update(func(items []Document) ([]Document, error) {
		for _, existing := range items {
			if doc.Fingerprint != "" && existing.Fingerprint == doc.Fingerprint {
				return nil, ErrReceiptUsed
			}
		}
		return append(items, doc), nil
	})
	if err != nil {
		if errors.Is(err, ErrReceiptUsed) {
			return Document{}, err
		}
		return Document{}, fmt.Errorf("record document: %w", err)
	}
	return doc, nil
}

// All returns every recorded document.
func (s *Service) All() []Document {
	return s.col.Load()
}

// CountByStatus tallies documents per status.
func (s *Service) CountByStatus() map[Status]int {
	out := make(map[Status]int)
	for _, doc := range s.col.Load() {
		out[doc.Status]++
	}
	return out
}
