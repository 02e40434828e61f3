package daemon

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/traybadge/internal/dbus"
)

type sentLog struct {
	sent []*dbus.DBusNotification
	err  error
}

func (s *sentLog) send(n *dbus.DBusNotification) error {
	s.sent = append(s.sent, n)
	return s.err
}

func TestInternalNotifier_RateLimitsByKey(t *testing.T) {
	log := &sentLog{}
	n := NewInternalNotifier(testLogger())
	n.SetSender(log.send)

	now := time.Unix(1000, 0)
	n.now = func() time.Time { return now }

	assert.True(t, n.NotifyConfigError(errors.New("bad mode")))
	assert.False(t, n.NotifyConfigError(errors.New("bad mode")))
	assert.True(t, n.NotifyConfigReloaded(), "other keys are not limited")

	now = now.Add(6 * time.Second)
	assert.True(t, n.NotifyConfigError(errors.New("bad mode")))
	assert.Len(t, log.sent, 3)
}

func TestInternalNotifier_Notification(t *testing.T) {
	log := &sentLog{}
	n := NewInternalNotifier(testLogger())
	n.SetSender(log.send)

	require.True(t, n.NotifyConfigError(errors.New("bad mode")))
	require.Len(t, log.sent, 1)

	got := log.sent[0]
	assert.Equal(t, AppName, got.AppName)
	assert.Equal(t, "Configuration Error", got.Summary)
	assert.Contains(t, got.Body, "bad mode")
	assert.Equal(t, 1, got.Urgency())
	assert.Equal(t, "device", got.Category())
	assert.Equal(t, AppName, got.DesktopEntry())
	assert.True(t, got.Transient())
	assert.Equal(t, "dialog-warning", got.AppIcon)

	info := internalNotification("s", "b", NotificationLevelInfo)
	assert.Equal(t, 0, info.Urgency())
	crit := internalNotification("s", "b", NotificationLevelError)
	assert.Equal(t, 2, crit.Urgency())
}

func TestInternalNotifier_DisabledOrUnwired(t *testing.T) {
	n := NewInternalNotifier(testLogger())
	assert.False(t, n.NotifyConfigReloaded(), "no sender")

	log := &sentLog{}
	n.SetSender(log.send)
	n.SetEnabled(false)
	assert.False(t, n.NotifyConfigReloaded())
	assert.Empty(t, log.sent)
}

func TestInternalNotifier_SendFailure(t *testing.T) {
	log := &sentLog{err: errors.New("no bus")}
	n := NewInternalNotifier(testLogger())
	n.SetSender(log.send)
	n.SetMinInterval(0)

	assert.False(t, n.NotifyConfigReloaded())
	assert.Len(t, log.sent, 1)
}
