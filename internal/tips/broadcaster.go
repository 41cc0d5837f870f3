// Package tips broadcasts scheduled agronomy tips to recently active farmers.
package tips

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ucfagri/sambot/internal/catalog"
	"github.com/ucfagri/sambot/internal/channel"
	"github.com/ucfagri/sambot/internal/users"
)

// Recipients must have completed onboarding and interacted recently.
const activityWindow = 30 * 24 * time.Hour

// Sender delivers broadcast messages.
type Sender interface {
	Send(ctx context.Context, msg channel.OutboundMessage) error
}

// Broadcaster sends the day's tips on a cron schedule.
type Broadcaster struct {
	users  *users.Service
	sender Sender
	tips   []catalog.Tip
	cron   *cron.Cron
	logger *slog.Logger

	// now and delay are swappable in tests.
	now   func() time.Time
	delay func(time.Duration)
}

// NewBroadcaster creates a tip broadcaster.
func NewBroadcaster(log *slog.Logger, userSvc *users.Service, sender Sender, tips []catalog.Tip) *Broadcaster {
	if log == nil {
		log = slog.Default()
	}
	return &Broadcaster{
		users:  userSvc,
		sender: sender,
		tips:   tips,
		logger: log.With(slog.String("service", "tips")),
		now:    time.Now,
		delay:  time.Sleep,
	}
}

// Start schedules the broadcast. The cron spec runs in the given timezone.
func (b *Broadcaster) Start(spec, timezone string) error {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	b.cron = cron.New(cron.WithLocation(loc))
	_, err = b.cron.AddFunc(spec, func() {
		sent := b.RunOnce(context.Background())
		b.logger.Info("daily tips broadcast", slog.Int("sent", sent))
	})
	if err != nil {
		return fmt.Errorf("schedule tips: %w", err)
	}
	b.cron.Start()
	return nil
}

// Stop halts the schedule.
func (b *Broadcaster) Stop() {
	if b.cron != nil {
		b.cron.Stop()
	}
}

// RunOnce sends today's tips to every eligible recipient and returns the
// number of deliveries. Sends are paced so the channel is not flooded.
func (b *Broadcaster) RunOnce(ctx context.Context) int {
	today := b.now().Format("2006-01-02")
	var due []catalog.Tip
	for _, tip := range b.tips {
		if tip.SendDate == today {
			due = append(due, tip)
		}
	}
	if len(due) == 0 {
		return 0
	}

	sent := 0
	for _, u := range b.users.ActiveSince(b.now().Add(-activityWindow)) {
		if !u.HasProfile() || u.ChatID == "" {
			continue
		}
		for _, tip := range due {
			text := fmt.Sprintf("🌱 *Daily Tip*\n\n%s", tip.Text)
			if err := b.sender.Send(ctx, channel.OutboundMessage{ChatID: u.ChatID, Text: text}); err != nil {
				b.logger.Warn("send tip", slog.String("user", u.ID), slog.String("error", err.Error()))
				continue
			}
			sent++
			b.delay(time.Second)
		}
	}
	return sent
}

// Stats summarizes the broadcast configuration for the admin API.
func (b *Broadcaster) Stats() map[string]int {
	today := b.now().Format("2006-01-02")
	dueToday := 0
	for _, tip := range b.tips {
		if tip.SendDate == today {
			dueToday++
		}
	}
	eligible := 0
	for _, u := range b.users.ActiveSince(b.now().Add(-activityWindow)) {
		if u.HasProfile() && u.ChatID != "" {
			eligible++
		}
	}
	return map[string]int{
		"tips_total":          len(b.tips),
		"tips_due_today":      dueToday,
		"eligible_recipients": eligible,
	}
}
