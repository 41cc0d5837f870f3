package users

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/ucfagri/sambot/internal/channel"
	"github.com/ucfagri/sambot/internal/store"
)

// User is a farmer profile keyed by channel identity.
type User struct {
	ID              string            `json:"id"`
	Channel         string            `json:"channel"`
	ChannelUserID   string            `json:"channel_user_id"`
	ChatID          string            `json:"chat_id"`
	Name            string            `json:"name,omitempty"`
	Phone           string            `json:"phone,omitempty"`
	Email           string            `json:"email,omitempty"`
	IsPremium       bool              `json:"is_premium"`
	PremiumExpiry   *time.Time        `json:"premium_expiry,omitempty"`
	ReceiptRef      string            `json:"receipt_ref,omitempty"`
	Location        *channel.Location `json:"location,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	LastInteraction time.Time         `json:"last_interaction"`
}

// HasProfile reports whether onboarding captured a name.
func (u User) HasProfile() bool {
	return strings.TrimSpace(u.Name) != ""
}

// Service manages farmer profiles.
type Service struct {
	col    *store.Collection[User]
	logger *slog.Logger
}

// NewService creates a user service persisting under dataDir.
func NewService(log *slog.Logger, dataDir string) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		col:    store.NewCollection[User](log, filepath.Join(dataDir, "users.json")),
		logger: log.With(slog.String("service", "users")),
	}
}

// GetOrCreate returns the profile for identity, creating a blank one on
// first contact.
func (s *Service) GetOrCreate(identity channel.Identity, chatID string) (User, error) {
	var out User
	err := s.col.Update(func(items []User) ([]User, error) {
		for i := range items {
			if items[i].ID == identity.Key() {
				items[i].LastInteraction = time.Now()
				if chatID != "" {
					items[i].ChatID = chatID
				}
				out = items[i]
				return items, nil
			}
		}
		out = User{
			ID:              identity.Key(),
			Channel:         string(identity.Channel),
			ChannelUserID:   identity.UserID,
			ChatID:          chatID,
			CreatedAt:       time.Now(),
			LastInteraction: time.Now(),
		}
		return append(items, out), nil
	})
	if err != nil {
		return User{}, fmt.Errorf("get or create user: %w", err)
	}
	return out, nil
}

// Get returns the profile for an identity key.
func (s *Service) Get(id string) (User, bool) {
	for _, u := range s.col.Load() {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// Update applies fn to the stored profile and returns the result.
func (s *Service) Update(id string, fn func(*User)) (User, error) {
	var out User
	err := s.col.Update(func(items []User) ([]User, error) {
		for i := range items {
			if items[i].ID == id {
				fn(&items[i])
				items[i].LastInteraction = time.Now()
				out = items[i]
				return items, nil
			}
		}
		return nil, fmt.Errorf("user %s not found", id)
	})
	if err != nil {
		return User{}, err
	}
	return out, nil
}

// All returns every stored profile.
func (s *Service) All() []User {
	return s.col.Load()
}

// ActiveSince returns users whose last interaction is at or after cutoff.
func (s *Service) ActiveSince(cutoff time.Time) []User {
	var out []User
	for _, u := range s.col.Load() {
		if !u.LastInteraction.Before(cutoff) {
			out = append(out, u)
		}
	}
	return out
}
