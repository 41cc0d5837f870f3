package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ucfagri/sambot/internal/channel"
)

const (
	// Telegram rejects text messages longer than 4096 characters.
	maxTextLen = 4096

	pollTimeoutSeconds = 30
)

// newBotFunc is swappable in tests.
var newBotFunc = func(token string) (*tgbotapi.BotAPI, error) {
	return tgbotapi.NewBotAPI(token)
}

// Adapter connects the bot to Telegram via long polling.
type Adapter struct {
	token         string
	bot           *tgbotapi.BotAPI
	logger        *slog.Logger
	httpClient    *http.Client
	maxAssetBytes int64
}

// New creates a Telegram adapter. The bot session is established lazily on
// first use so construction never blocks on the network.
func New(log *slog.Logger, token string, maxAssetBytes int64) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{
		token:         token,
		logger:        log.With(slog.String("channel", "telegram")),
		httpClient:    &http.Client{Timeout: 60 * time.Second},
		maxAssetBytes: maxAssetBytes,
	}
}

func (a *Adapter) Type() channel.ChannelType {
	return channel.ChannelTelegram
}

func (a *Adapter) ensureBot() (*tgbotapi.BotAPI, error) {
	if a.bot != nil {
		return a.bot, nil
	}
	if strings.TrimSpace(a.token) == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	bot, err := newBotFunc(a.token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	a.bot = bot
	return bot, nil
}

// Connect starts long polling and dispatches every update to handler until
// the returned stop function is called or ctx is cancelled.
func (a *Adapter) Connect(ctx context.Context, handler channel.InboundHandler) (func(), error) {
	if handler == nil {
		return nil, fmt.Errorf("inbound handler is required")
	}
	bot, err := a.ensureBot()
	if err != nil {
		return nil, err
	}

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = pollTimeoutSeconds
	updates := bot.GetUpdatesChan(updateCfg)

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		for {
			select {
			case <-runCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				msg, ok := toInbound(update)
				if !ok {
					continue
				}
				handler(runCtx, msg)
			}
		}
	}()

	stop := func() {
		cancel()
		bot.StopReceivingUpdates()
		// Drain so the poller goroutine is not left blocked on a full channel.
		for range updates {
		}
	}
	a.logger.Info("telegram connected", slog.String("bot", bot.Self.UserName))
	return stop, nil
}

// Send delivers an outbound message. Long text is truncated to the channel limit.
func (a *Adapter) Send(ctx context.Context, msg channel.OutboundMessage) error {
	bot, err := a.ensureBot()
	if err != nil {
		return err
	}
	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", msg.ChatID, err)
	}

	if msg.PhotoPath != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(msg.PhotoPath))
		photo.Caption = truncateText(msg.Text, 1024)
		if _, err := bot.Send(photo); err != nil {
			return fmt.Errorf("telegram send photo: %w", err)
		}
		return nil
	}

	text := truncateText(msg.Text, maxTextLen)
	if text == "" {
		return nil
	}
	out := tgbotapi.NewMessage(chatID, text)
	if _, err := bot.Send(out); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// ResolveAttachment downloads the file behind a Telegram file id.
func (a *Adapter) ResolveAttachment(ctx context.Context, att channel.Attachment) (io.ReadCloser, string, error) {
	bot, err := a.ensureBot()
	if err != nil {
		return nil, "", err
	}
	if !att.HasReference() {
		return nil, "", fmt.Errorf("attachment reference is required")
	}
	file, err := bot.GetFile(tgbotapi.FileConfig{FileID: att.Reference})
	if err != nil {
		return nil, "", fmt.Errorf("telegram get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(bot.Token), nil)
	if err != nil {
		return nil, "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download attachment: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, "", fmt.Errorf("download attachment: status %d", resp.StatusCode)
	}

	body := resp.Body
	if a.maxAssetBytes > 0 {
		body = limitedCloser(resp.Body, a.maxAssetBytes)
	}
	return body, att.Mime, nil
}

// ProcessingStarted shows the typing indicator in the chat.
func (a *Adapter) ProcessingStarted(ctx context.Context, chatIDStr string) error {
	bot, err := a.ensureBot()
	if err != nil {
		return err
	}
	chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", chatIDStr, err)
	}
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if _, err := bot.Request(action); err != nil {
		return fmt.Errorf("telegram chat action: %w", err)
	}
	return nil
}

// toInbound normalizes a Telegram update. Updates without a message sender
// are dropped.
func toInbound(update tgbotapi.Update) (channel.InboundMessage, bool) {
	m := update.Message
	if m == nil || m.From == nil {
		return channel.InboundMessage{}, false
	}

	msg := channel.InboundMessage{
		Identity: channel.Identity{
			Channel:     channel.ChannelTelegram,
			UserID:      strconv.FormatInt(m.From.ID, 10),
			DisplayName: displayName(m.From),
		},
		ChatID:    strconv.FormatInt(m.Chat.ID, 10),
		Text:      firstNonEmpty(m.Text, m.Caption),
		Timestamp: time.Unix(int64(m.Date), 0),
	}

	if len(m.Photo) > 0 {
		// Telegram sends multiple resolutions; keep the largest.
		best := m.Photo[len(m.Photo)-1]
		msg.Attachments = append(msg.Attachments, channel.Attachment{
			Reference: best.FileID,
			Mime:      "image/jpeg",
		})
	}
	if m.Document != nil {
		msg.Attachments = append(msg.Attachments, channel.Attachment{
			Reference: m.Document.FileID,
			Mime:      m.Document.MimeType,
			FileName:  m.Document.FileName,
		})
	}
	if m.Location != nil {
		msg.Location = &channel.Location{
			Latitude:  m.Location.Latitude,
			Longitude: m.Location.Longitude,
		}
	}
	return msg, true
}

func displayName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return u.UserName
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncateText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

type boundedReadCloser struct {
	io.Reader
	closer io.Closer
}

func (b boundedReadCloser) Close() error { return b.closer.Close() }

func limitedCloser(rc io.ReadCloser, maxBytes int64) io.ReadCloser {
	return boundedReadCloser{Reader: io.LimitReader(rc, maxBytes), closer: rc}
}
