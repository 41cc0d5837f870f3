package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ucfagri/sambot/internal/channel"
	"github.com/ucfagri/sambot/internal/users"
)

func TestIsActive(t *testing.T) {
	svc := NewService(nil, nil, 1)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name string
		user users.User
		want bool
	}{
		{"no flag", users.User{PremiumExpiry: &future}, false},
		{"flag without expiry", users.User{IsPremium: true}, false},
		{"expired", users.User{IsPremium: true, PremiumExpiry: &past}, false},
		{"active", users.User{IsPremium: true, PremiumExpiry: &future}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.IsActive(tt.user))
		})
	}
}

func TestGrantSetsOneMonthExpiry(t *testing.T) {
	userSvc := users.NewService(nil, t.TempDir())
	u, err := userSvc.GetOrCreate(channel.Identity{Channel: channel.ChannelTelegram, UserID: "7"}, "7")
	require.NoError(t, err)

	svc := NewService(nil, userSvc, 1)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	granted, err := svc.Grant(u.ID, "https://cdn.example.com/receipt.jpg")
	require.NoError(t, err)
	assert.True(t, granted.IsPremium)
	require.NotNil(t, granted.PremiumExpiry)
	assert.Equal(t, now.AddDate(0, 1, 0), *granted.PremiumExpiry)
	assert.Equal(t, "https://cdn.example.com/receipt.jpg", granted.ReceiptRef)
	assert.True(t, svc.IsActive(granted))
}
