package telegram

import (
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ucfagri/sambot/internal/channel"
)

func TestToInboundText(t *testing.T) {
	update := tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: 99, FirstName: "Tino", LastName: "M"},
			Chat: &tgbotapi.Chat{ID: 42},
			Text: "hello",
			Date: 1700000000,
		},
	}

	msg, ok := toInbound(update)
	require.True(t, ok)
	assert.Equal(t, channel.ChannelTelegram, msg.Identity.Channel)
	assert.Equal(t, "99", msg.Identity.UserID)
	assert.Equal(t, "Tino M", msg.Identity.DisplayName)
	assert.Equal(t, "42", msg.ChatID)
	assert.Equal(t, "hello", msg.Text)
	assert.False(t, msg.HasMedia())
}

func TestToInboundPhotoKeepsLargestResolution(t *testing.T) {
	update := tgbotapi.Update{
		Message: &tgbotapi.Message{
			From:    &tgbotapi.User{ID: 1},
			Chat:    &tgbotapi.Chat{ID: 1},
			Caption: "my receipt",
			Photo: []tgbotapi.PhotoSize{
				{FileID: "small", Width: 90},
				{FileID: "large", Width: 1280},
			},
		},
	}

	msg, ok := toInbound(update)
	require.True(t, ok)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "large", msg.Attachments[0].Reference)
	assert.Equal(t, "image/jpeg", msg.Attachments[0].Mime)
	assert.Equal(t, "my receipt", msg.Text)
	assert.True(t, msg.HasMedia())
}

func TestToInboundLocation(t *testing.T) {
	update := tgbotapi.Update{
		Message: &tgbotapi.Message{
			From:     &tgbotapi.User{ID: 1},
			Chat:     &tgbotapi.Chat{ID: 1},
			Location: &tgbotapi.Location{Latitude: -17.82, Longitude: 31.05},
		},
	}

	msg, ok := toInbound(update)
	require.True(t, ok)
	require.NotNil(t, msg.Location)
	assert.InDelta(t, -17.82, msg.Location.Latitude, 0.001)
	assert.InDelta(t, 31.05, msg.Location.Longitude, 0.001)
}

func TestToInboundDropsNonMessageUpdates(t *testing.T) {
	_, ok := toInbound(tgbotapi.Update{})
	assert.False(t, ok)
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "abc", truncateText("abc", 10))
	long := strings.Repeat("x", maxTextLen+100)
	assert.Len(t, truncateText(long, maxTextLen), maxTextLen)
}
