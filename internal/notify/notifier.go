// Package notify sends desktop notifications about sitescript events.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

// AppName is reported as the sending application.
const AppName = "sitescript"

// Level indicates the severity of a notification.
type Level int

const (
	// LevelInfo is for informational messages (low urgency).
	LevelInfo Level = iota
	// LevelWarning is for warning messages (normal urgency).
	LevelWarning
	// LevelError is for error messages (critical urgency).
	LevelError
)

// Urgency returns the freedesktop urgency byte for the level.
func (l Level) Urgency() byte {
	switch l {
	case LevelInfo:
		return 0
	case LevelError:
		return 2
	default:
		return 1
	}
}

// Icon returns the themed icon name for the level.
func (l Level) Icon() string {
	switch l {
	case LevelInfo:
		return "dialog-information"
	case LevelError:
		return "dialog-error"
	default:
		return "dialog-warning"
	}
}

// Notification holds the parameters of an org.freedesktop.Notifications.Notify call.
type Notification struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string
	Hints         map[string]dbus.Variant
	ExpireTimeout int32 // -1 = server default, 0 = never expire
}

// Sender delivers a notification and returns its server-assigned id.
type Sender interface {
	Send(ctx context.Context, n *Notification) (uint32, error)
}

// Notifier builds and rate limits notifications before handing them to a Sender.
type Notifier struct {
	mu     sync.Mutex
	logger *slog.Logger
	sender Sender

	lastNotifyTime map[string]time.Time
	minInterval    time.Duration

	enabled bool
}

// NewNotifier creates a Notifier. A nil sender disables delivery.
func NewNotifier(sender Sender, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		logger:         logger,
		sender:         sender,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    5 * time.Second,
		enabled:        sender != nil,
	}
}

// SetEnabled enables or disables notifications.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled && n.sender != nil
}

// SetMinInterval sets the minimum interval between notifications sharing a key.
func (n *Notifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// Notify sends a notification unless disabled or rate-limited.
// The key is used for rate limiting: the same key won't notify again within minInterval.
func (n *Notifier) Notify(ctx context.Context, key, summary, body string, level Level) error {
	n.mu.Lock()
	if !n.enabled {
		n.mu.Unlock()
		return nil
	}
	if lastTime, ok := n.lastNotifyTime[key]; ok && time.Since(lastTime) < n.minInterval {
		n.mu.Unlock()
		n.logger.Debug("notification rate-limited", "key", key, "summary", summary)
		return nil
	}
	n.lastNotifyTime[key] = time.Now()
	sender := n.sender
	n.mu.Unlock()

	notification := &Notification{
		AppName: AppName,
		AppIcon: level.Icon(),
		Summary: summary,
		Body:    body,
		Hints: map[string]dbus.Variant{
			"urgency":       dbus.MakeVariant(level.Urgency()),
			"transient":     dbus.MakeVariant(level != LevelError),
			"desktop-entry": dbus.MakeVariant(AppName),
		},
		ExpireTimeout: -1,
	}

	n.logger.Debug("sending notification", "key", key, "summary", summary, "level", level)

	if _, err := sender.Send(ctx, notification); err != nil {
		n.logger.Warn("failed to send notification", "summary", summary, "error", err)
		return err
	}
	return nil
}

// PersistFailed reports that edits for host could not be saved.
func (n *Notifier) PersistFailed(ctx context.Context, host string, err error) {
	if err == nil {
		return
	}
	body := "Your script was still sent to the page, but the change was not saved: " + err.Error()
	if host != "" {
		body = "Scripts for " + host + " were not saved. " +
			"The edited script was still sent to the page: " + err.Error()
	}
	_ = n.Notify(ctx, "persist-failure", "Scripts Not Saved", body, LevelError)
}

// LoadFailed reports that the stored scripts could not be read.
func (n *Notifier) LoadFailed(ctx context.Context, err error) {
	if err == nil {
		return
	}
	_ = n.Notify(ctx, "load-failure", "Stored Scripts Unreadable",
		"Continuing with no saved scripts: "+err.Error(), LevelWarning)
}

// ErrEmptyNotification is returned when Send is given no notification.
var ErrEmptyNotification = errors.New("empty notification")
