// Package entitlement decides and records premium access.
package entitlement

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ucfagri/sambot/internal/users"
)

// Service grants and checks premium entitlements.
type Service struct {
	users          *users.Service
	durationMonths int
	logger         *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

// NewService creates an entitlement service. Grants last durationMonths
// calendar months.
func NewService(log *slog.Logger, userSvc *users.Service, durationMonths int) *Service {
	if log == nil {
		log = slog.Default()
	}
	if durationMonths <= 0 {
		durationMonths = 1
	}
	return &Service{
		users:          userSvc,
		durationMonths: durationMonths,
		logger:         log.With(slog.String("service", "entitlement")),
		now:            time.Now,
	}
}

// IsActive reports whether the user currently holds premium access. The
// flag alone is not enough: the expiry must be set and in the future.
func (s *Service) IsActive(u users.User) bool {
	if !u.IsPremium || u.PremiumExpiry == nil {
		return false
	}
	return u.PremiumExpiry.After(s.now())
}

// Grant marks the user premium until one grant period from now and records
// the receipt reference that earned it.
func (s *Service) Grant(userID, receiptRef string) (users.User, error) {
	expiry := s.now().AddDate(0, s.durationMonths, 0)
	u, err := s.users.Update(userID, func(u *users.User) {
		u.IsPremium = true
		u.PremiumExpiry = &expiry
		u.ReceiptRef = receiptRef
	})
	if err != nil {
		return users.User{}, fmt.Errorf("grant premium: %w", err)
	}
	s.logger.Info("premium granted",
		slog.String("user", userID),
		slog.Time("expiry", expiry),
	)
	return u, nil
}
