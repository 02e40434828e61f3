package dbus

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func notifyBody(app, summary string) []interface{} {
	return []interface{}{
		app,
		uint32(0),
		"",
		summary,
		"body",
		[]string{"default", "Open"},
		map[string]dbus.Variant{"category": dbus.MakeVariant("im.received")},
		int32(-1),
	}
}

func TestParseNotify(t *testing.T) {
	n, err := parseNotify(notifyBody("Empathy", "Alice"))
	require.NoError(t, err)
	assert.Equal(t, "Empathy", n.AppName)
	assert.Equal(t, "Alice", n.Summary)
	assert.Equal(t, "body", n.Body)
	assert.Equal(t, []string{"default", "Open"}, n.Actions)
	assert.Equal(t, "im.received", n.Category())
	assert.Equal(t, int32(-1), n.ExpireTimeout)
}

func TestParseNotify_Malformed(t *testing.T) {
	_, err := parseNotify([]interface{}{"app"})
	assert.ErrorIs(t, err, errMalformedNotify)

	body := notifyBody("app", "s")
	body[1] = "not a uint"
	_, err = parseNotify(body)
	assert.ErrorIs(t, err, errMalformedNotify)

	body = notifyBody("app", "s")
	body[3] = 42
	_, err = parseNotify(body)
	assert.ErrorIs(t, err, errMalformedNotify)
}

func TestMonitor_PairsCallWithReply(t *testing.T) {
	m := NewMonitor(testLogger())

	var got []uint32
	var apps []string
	m.SetNotifyHandler(func(n *DBusNotification, id uint32) {
		got = append(got, id)
		apps = append(apps, n.AppName)
	})

	m.onCall(":1.10", 5, notifyBody("Empathy", "Alice"))
	m.onCall(":1.11", 5, notifyBody("notify-send", "Reminder"))
	assert.Equal(t, 2, m.pending.size())
	assert.Empty(t, got, "nothing is delivered before the reply")

	m.onReturn(":1.11", 5, []interface{}{uint32(42)})
	m.onReturn(":1.10", 5, []interface{}{uint32(41)})

	assert.Equal(t, []uint32{42, 41}, got)
	assert.Equal(t, []string{"notify-send", "Empathy"}, apps)
	assert.Equal(t, 0, m.pending.size())
}

func TestMonitor_IgnoresUnrelatedReplies(t *testing.T) {
	m := NewMonitor(testLogger())
	calls := 0
	m.SetNotifyHandler(func(*DBusNotification, uint32) { calls++ })

	m.onCall(":1.10", 5, notifyBody("app", "s"))
	m.onReturn(":1.10", 6, []interface{}{uint32(1)})
	m.onReturn(":1.99", 5, []interface{}{uint32(1)})
	assert.Equal(t, 0, calls)

	// A reply with an unusable ID drops the call.
	m.onReturn(":1.10", 5, []interface{}{"nope"})
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, m.pending.size())
}

func TestMonitor_MalformedCallIsDropped(t *testing.T) {
	m := NewMonitor(testLogger())
	m.onCall(":1.10", 1, []interface{}{"short"})
	assert.Equal(t, 0, m.pending.size())
}

func TestMonitor_Closed(t *testing.T) {
	m := NewMonitor(testLogger())

	type closed struct {
		id     uint32
		reason CloseReason
	}
	var got []closed
	m.SetCloseHandler(func(id uint32, reason CloseReason) {
		got = append(got, closed{id, reason})
	})

	m.onClosed([]interface{}{uint32(3), uint32(2)})
	m.onClosed([]interface{}{uint32(4)})
	m.onClosed([]interface{}{"x", uint32(1)})

	assert.Equal(t, []closed{{3, CloseReasonDismissed}}, got)
}

func TestPendingCalls_Expire(t *testing.T) {
	p := newPendingCalls(time.Second)
	now := time.Now()
	p.now = func() time.Time { return now }

	p.add(callKey{sender: "a", serial: 1}, &DBusNotification{})
	now = now.Add(2 * time.Second)
	p.add(callKey{sender: "b", serial: 1}, &DBusNotification{})

	assert.Equal(t, 1, p.size())
	_, ok := p.resolve(callKey{sender: "a", serial: 1})
	assert.False(t, ok)
	_, ok = p.resolve(callKey{sender: "b", serial: 1})
	assert.True(t, ok)
}

func TestServer_NotifyAndClose(t *testing.T) {
	s := NewNotificationServer(testLogger())

	var notified []uint32
	var closedIDs []uint32
	s.SetNotifyHandler(func(_ *DBusNotification, id uint32) { notified = append(notified, id) })
	s.SetCloseHandler(func(id uint32, reason CloseReason) {
		assert.Equal(t, CloseReasonClosed, reason)
		closedIDs = append(closedIDs, id)
	})

	id1, derr := s.Notify("app", 0, "", "one", "", nil, nil, -1)
	require.Nil(t, derr)
	id2, derr := s.Notify("app", 0, "", "two", "", nil, nil, -1)
	require.Nil(t, derr)
	assert.NotEqual(t, id1, id2)

	replaced, derr := s.Notify("app", id1, "", "one again", "", nil, nil, -1)
	require.Nil(t, derr)
	assert.Equal(t, id1, replaced)
	assert.Equal(t, []uint32{id1, id2, id1}, notified)
	assert.True(t, s.IsActive(id1))
	assert.True(t, s.IsActive(id2))

	// Not connected, so the signal fails but the close still lands.
	assert.Nil(t, s.CloseNotification(id1))
	assert.Nil(t, s.CloseNotification(id1))
	assert.Equal(t, []uint32{id1}, closedIDs)
	assert.False(t, s.IsActive(id1))
	assert.True(t, s.IsActive(id2))
}

func TestServer_SignalsRequireConnection(t *testing.T) {
	s := NewNotificationServer(testLogger())
	assert.ErrorIs(t, s.EmitActionInvoked(1, "default"), ErrNotConnected)
	assert.ErrorIs(t, s.InvokeAction(1, "default", false), ErrNotConnected)
	assert.ErrorIs(t, s.Dismiss(1), ErrNotConnected)
}

func notifyCall(sender string) *dbus.Message {
	return &dbus.Message{
		Type: dbus.TypeMethodCall,
		Headers: map[dbus.HeaderField]dbus.Variant{
			dbus.FieldSender:      dbus.MakeVariant(sender),
			dbus.FieldDestination: dbus.MakeVariant(DBusBusName),
			dbus.FieldPath:        dbus.MakeVariant(dbus.ObjectPath(DBusPath)),
			dbus.FieldInterface:   dbus.MakeVariant(DBusInterface),
			dbus.FieldMember:      dbus.MakeVariant("Notify"),
		},
		Body: notifyBody("Empathy", "Alice"),
	}
}

func notifyReply(destination string, replySerial uint32, id interface{}) *dbus.Message {
	return &dbus.Message{
		Type: dbus.TypeMethodReply,
		Headers: map[dbus.HeaderField]dbus.Variant{
			dbus.FieldDestination: dbus.MakeVariant(destination),
			dbus.FieldReplySerial: dbus.MakeVariant(replySerial),
		},
		Body: []interface{}{id},
	}
}

func closedSignal(iface, member string, id, reason uint32) *dbus.Message {
	return &dbus.Message{
		Type: dbus.TypeSignal,
		Headers: map[dbus.HeaderField]dbus.Variant{
			dbus.FieldPath:      dbus.MakeVariant(dbus.ObjectPath(DBusPath)),
			dbus.FieldInterface: dbus.MakeVariant(iface),
			dbus.FieldMember:    dbus.MakeVariant(member),
		},
		Body: []interface{}{id, reason},
	}
}

func TestMonitor_Dispatch(t *testing.T) {
	otherCall := notifyCall(":1.10")
	otherCall.Headers[dbus.FieldMember] = dbus.MakeVariant("GetCapabilities")

	noSerial := notifyReply(":1.10", 0, uint32(9))
	delete(noSerial.Headers, dbus.FieldReplySerial)

	tests := []struct {
		name     string
		messages []*dbus.Message
		notified []uint32
		closed   []uint32
		pending  int
	}{
		{
			name:     "call then reply",
			messages: []*dbus.Message{notifyCall(":1.10"), notifyReply(":1.10", 0, uint32(41))},
			notified: []uint32{41},
		},
		{
			name:     "call without reply stays pending",
			messages: []*dbus.Message{notifyCall(":1.10")},
			pending:  1,
		},
		{
			name:     "reply to another client",
			messages: []*dbus.Message{notifyCall(":1.10"), notifyReply(":1.11", 0, uint32(41))},
			pending:  1,
		},
		{
			name:     "reply to another serial",
			messages: []*dbus.Message{notifyCall(":1.10"), notifyReply(":1.10", 7, uint32(41))},
			pending:  1,
		},
		{
			name:     "reply without reply serial",
			messages: []*dbus.Message{notifyCall(":1.10"), noSerial},
			pending:  1,
		},
		{
			name:     "other method is ignored",
			messages: []*dbus.Message{otherCall, notifyReply(":1.10", 0, uint32(41))},
		},
		{
			name:     "notification closed",
			messages: []*dbus.Message{closedSignal(DBusInterface, "NotificationClosed", 3, 2)},
			closed:   []uint32{3},
		},
		{
			name: "other signals are ignored",
			messages: []*dbus.Message{
				closedSignal(DBusInterface, "ActionInvoked", 3, 2),
				closedSignal("org.example.Other", "NotificationClosed", 3, 2),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(testLogger())
			var notified, closed []uint32
			m.SetNotifyHandler(func(_ *DBusNotification, id uint32) { notified = append(notified, id) })
			m.SetCloseHandler(func(id uint32, _ CloseReason) { closed = append(closed, id) })

			for _, msg := range tt.messages {
				m.dispatch(msg)
			}

			assert.Equal(t, tt.notified, notified)
			assert.Equal(t, tt.closed, closed)
			assert.Equal(t, tt.pending, m.pending.size())
		})
	}
}
