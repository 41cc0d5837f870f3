package channel

import (
	"strings"
	"time"
)

// ChannelType identifies a messaging channel implementation.
type ChannelType string

const (
	ChannelTelegram ChannelType = "telegram"
)

// Identity is a channel-scoped user identity.
type Identity struct {
	Channel     ChannelType `json:"channel"`
	UserID      string      `json:"user_id"`
	DisplayName string      `json:"display_name,omitempty"`
}

// Key returns a stable routing key for per-identity serialization.
func (i Identity) Key() string {
	return string(i.Channel) + ":" + i.UserID
}

// Location is a shared geographic position.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Attachment references channel-held media. Reference is resolved lazily
// through the adapter's AttachmentResolver.
type Attachment struct {
	Reference string `json:"reference"`
	Mime      string `json:"mime,omitempty"`
	FileName  string `json:"file_name,omitempty"`
}

// HasReference reports whether the attachment points at fetchable content.
func (a Attachment) HasReference() bool {
	return strings.TrimSpace(a.Reference) != ""
}

// InboundMessage is a normalized message arriving from a channel.
type InboundMessage struct {
	Identity    Identity     `json:"identity"`
	ChatID      string       `json:"chat_id"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Location    *Location    `json:"location,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// PlainText returns the trimmed message text.
func (m InboundMessage) PlainText() string {
	return strings.TrimSpace(m.Text)
}

// HasMedia reports whether the message carries at least one resolvable attachment.
func (m InboundMessage) HasMedia() bool {
	for _, a := range m.Attachments {
		if a.HasReference() {
			return true
		}
	}
	return false
}

// OutboundMessage is a message to deliver to a chat.
type OutboundMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	PhotoPath string `json:"photo_path,omitempty"`
}
