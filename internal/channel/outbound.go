package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"
)

// SendPolicy controls retry behavior for outbound delivery.
type SendPolicy struct {
	RetryMax    int
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

// NormalizeSendPolicy fills zero fields with the defaults.
func NormalizeSendPolicy(p SendPolicy) SendPolicy {
	if p.RetryMax <= 0 {
		p.RetryMax = 3
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = time.Second
	}
	if p.BackoffCap <= 0 {
		p.BackoffCap = 5 * time.Second
	}
	return p
}

// transientMarkers are substrings of error messages the channel is known to
// emit for recoverable faults.
var transientMarkers = []string{
	"too many requests",
	"timeout",
	"temporarily unavailable",
	"connection reset",
	"bad gateway",
	"gateway timeout",
	"internal server error",
	"retry after",
}

// IsTransientSendError reports whether a send failure is worth retrying.
func IsTransientSendError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// RetrySender wraps a Sender with bounded exponential-backoff retries for
// transient failures. Permanent failures return immediately.
type RetrySender struct {
	sender Sender
	policy SendPolicy
	logger *slog.Logger

	// sleep is swappable in tests.
	sleep func(time.Duration)
}

// NewRetrySender wraps sender with the given policy.
func NewRetrySender(log *slog.Logger, sender Sender, policy SendPolicy) *RetrySender {
	if log == nil {
		log = slog.Default()
	}
	return &RetrySender{
		sender: sender,
		policy: NormalizeSendPolicy(policy),
		logger: log.With(slog.String("service", "outbound")),
		sleep:  time.Sleep,
	}
}

// Type returns the wrapped adapter's channel type.
func (r *RetrySender) Type() ChannelType {
	return r.sender.Type()
}

// Send delivers msg, retrying transient failures up to the policy limit.
// Backoff doubles per attempt and is capped.
func (r *RetrySender) Send(ctx context.Context, msg OutboundMessage) error {
	var lastErr error
	for attempt := 0; attempt < r.policy.RetryMax; attempt++ {
		if attempt > 0 {
			backoff := r.policy.BackoffBase << (attempt - 1)
			if backoff > r.policy.BackoffCap {
				backoff = r.policy.BackoffCap
			}
			r.sleep(backoff)
		}
		err := r.sender.Send(ctx, msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsTransientSendError(err) {
			return fmt.Errorf("send outbound: %w", err)
		}
		r.logger.Warn("send outbound retry",
			slog.String("chat_id", msg.ChatID),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()),
		)
	}
	return fmt.Errorf("send outbound failed after retries: %w", lastErr)
}
