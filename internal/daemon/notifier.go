package daemon

import (
	"log/slog"
	"sync"
	"time"

	godbus "github.com/godbus/dbus/v5"

	"github.com/jmylchreest/traybadge/internal/dbus"
)

// NotificationLevel indicates the severity of an internal notification.
type NotificationLevel int

const (
	// NotificationLevelInfo is for informational messages (low urgency).
	NotificationLevelInfo NotificationLevel = iota
	// NotificationLevelWarning is for warning messages (normal urgency).
	NotificationLevelWarning
	// NotificationLevelError is for error messages (critical urgency).
	NotificationLevelError
)

// SendFunc delivers an internal notification onto the bus.
type SendFunc func(n *dbus.DBusNotification) error

// InternalNotifier reports traybadged's own events as desktop notifications.
// Repeats of the same key inside minInterval are dropped.
type InternalNotifier struct {
	mu     sync.Mutex
	logger *slog.Logger
	send   SendFunc
	now    func() time.Time

	lastNotifyTime map[string]time.Time
	minInterval    time.Duration

	enabled bool
}

// NewInternalNotifier creates a new InternalNotifier.
func NewInternalNotifier(logger *slog.Logger) *InternalNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalNotifier{
		logger:         logger,
		now:            time.Now,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    5 * time.Second,
		enabled:        true,
	}
}

// SetSender sets the function used to deliver notifications.
func (n *InternalNotifier) SetSender(send SendFunc) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.send = send
}

// SetEnabled enables or disables internal notifications.
func (n *InternalNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between duplicate notifications.
func (n *InternalNotifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// Notify sends an internal notification unless key was sent within minInterval.
// It reports whether a notification was sent.
func (n *InternalNotifier) Notify(key, summary, body string, level NotificationLevel) bool {
	n.mu.Lock()
	if !n.enabled || n.send == nil {
		n.mu.Unlock()
		n.logger.Debug("internal notification skipped", "key", key, "summary", summary)
		return false
	}

	now := n.now()
	if last, ok := n.lastNotifyTime[key]; ok && now.Sub(last) < n.minInterval {
		n.mu.Unlock()
		n.logger.Debug("internal notification rate-limited", "key", key)
		return false
	}
	n.lastNotifyTime[key] = now
	send := n.send
	n.mu.Unlock()

	notification := internalNotification(summary, body, level)
	n.logger.Debug("sending internal notification", "key", key, "summary", summary, "level", level)

	if err := send(notification); err != nil {
		n.logger.Warn("failed to send internal notification", "key", key, "error", err)
		return false
	}
	return true
}

func internalNotification(summary, body string, level NotificationLevel) *dbus.DBusNotification {
	urgency := byte(1)
	icon := "dialog-warning"
	switch level {
	case NotificationLevelInfo:
		urgency = 0
		icon = "dialog-information"
	case NotificationLevelError:
		urgency = 2
		icon = "dialog-error"
	}

	return &dbus.DBusNotification{
		AppName: AppName,
		AppIcon: icon,
		Summary: summary,
		Body:    body,
		Hints: map[string]godbus.Variant{
			"urgency":       godbus.MakeVariant(urgency),
			"category":      godbus.MakeVariant("device"),
			"transient":     godbus.MakeVariant(true),
			"desktop-entry": godbus.MakeVariant(AppName),
		},
		ExpireTimeout: 5000,
	}
}

// NotifyConfigReloaded reports a successful config reload.
func (n *InternalNotifier) NotifyConfigReloaded() bool {
	return n.Notify(
		"config-reload",
		"Configuration Reloaded",
		"traybadge configuration has been reloaded.",
		NotificationLevelInfo,
	)
}

// NotifyConfigError reports a rejected config file.
func (n *InternalNotifier) NotifyConfigError(err error) bool {
	return n.Notify(
		"config-error",
		"Configuration Error",
		"Failed to reload configuration: "+err.Error(),
		NotificationLevelWarning,
	)
}
