package dbus

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

// pendingTTL bounds how long a Notify call waits for its reply.
const pendingTTL = 30 * time.Second

var errMalformedNotify = errors.New("malformed Notify call")

// Monitor passively observes D-Bus notification traffic without claiming ownership.
// This allows running alongside another notification daemon (like dunst).
//
// A Notify call is held until the owning daemon's reply arrives, so the tray
// is keyed by the real notification ID and NotificationClosed signals can
// remove entries again.
type Monitor struct {
	conn   *dbus.Conn
	logger *slog.Logger

	onNotify NotificationHandler
	onClose  CloseHandler

	pending *pendingCalls
}

// NewMonitor creates a new notification monitor.
func NewMonitor(logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		logger:  logger,
		pending: newPendingCalls(pendingTTL),
	}
}

// SetNotifyHandler sets the callback for received notifications.
func (m *Monitor) SetNotifyHandler(handler NotificationHandler) {
	m.onNotify = handler
}

// SetCloseHandler sets the callback for closed notifications.
func (m *Monitor) SetCloseHandler(handler CloseHandler) {
	m.onClose = handler
}

func monitorRules() []string {
	return []string{
		"type='method_call',interface='" + DBusInterface + "',member='Notify'",
		"type='method_return'",
		"type='signal',interface='" + DBusInterface + "',member='NotificationClosed'",
	}
}

// Start begins monitoring D-Bus for notification traffic. A monitoring
// connection cannot send messages, so a private connection is used.
func (m *Monitor) Start() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	m.conn = conn

	err = conn.BusObject().Call(
		"org.freedesktop.DBus.Monitoring.BecomeMonitor",
		0,
		monitorRules(),
		uint32(0),
	).Err
	if err != nil {
		// Older buses lack BecomeMonitor; fall back to eavesdropping.
		m.logger.Warn("BecomeMonitor not available, trying AddMatch", "error", err)
		return m.startWithAddMatch()
	}

	m.logger.Info("started D-Bus monitor using BecomeMonitor")
	go m.processMessages()
	return nil
}

func (m *Monitor) startWithAddMatch() error {
	for _, rule := range monitorRules() {
		err := m.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule+",eavesdrop='true'").Err
		if err != nil {
			return fmt.Errorf("failed to add match rule (eavesdrop may require permissions): %w", err)
		}
	}

	m.logger.Info("started D-Bus monitor using AddMatch with eavesdrop")
	go m.processMessages()
	return nil
}

func (m *Monitor) processMessages() {
	ch := make(chan *dbus.Message, 100)
	m.conn.Eavesdrop(ch)

	for msg := range ch {
		m.dispatch(msg)
	}
}

func (m *Monitor) dispatch(msg *dbus.Message) {
	switch msg.Type {
	case dbus.TypeMethodCall:
		if headerString(msg, dbus.FieldInterface) != DBusInterface || headerString(msg, dbus.FieldMember) != "Notify" {
			return
		}
		m.onCall(headerString(msg, dbus.FieldSender), msg.Serial(), msg.Body)

	case dbus.TypeMethodReply:
		serial, ok := msg.Headers[dbus.FieldReplySerial].Value().(uint32)
		if !ok {
			return
		}
		m.onReturn(headerString(msg, dbus.FieldDestination), serial, msg.Body)

	case dbus.TypeSignal:
		if headerString(msg, dbus.FieldInterface) != DBusInterface || headerString(msg, dbus.FieldMember) != "NotificationClosed" {
			return
		}
		m.onClosed(msg.Body)
	}
}

func (m *Monitor) onCall(sender string, serial uint32, body []interface{}) {
	notification, err := parseNotify(body)
	if err != nil {
		m.logger.Warn("ignoring Notify call", "sender", sender, "error", err)
		return
	}
	m.pending.add(callKey{sender: sender, serial: serial}, notification)
}

func (m *Monitor) onReturn(destination string, replySerial uint32, body []interface{}) {
	notification, ok := m.pending.resolve(callKey{sender: destination, serial: replySerial})
	if !ok {
		return
	}
	if len(body) < 1 {
		m.logger.Warn("Notify reply without an ID", "app", notification.AppName)
		return
	}
	id, ok := body[0].(uint32)
	if !ok || id == 0 {
		m.logger.Warn("Notify reply with invalid ID", "app", notification.AppName)
		return
	}

	m.logger.Debug("captured notification",
		"app", notification.AppName,
		"summary", notification.Summary,
		"id", id)

	if m.onNotify != nil {
		m.onNotify(notification, id)
	}
}

func (m *Monitor) onClosed(body []interface{}) {
	if len(body) < 2 {
		return
	}
	id, ok := body[0].(uint32)
	if !ok {
		return
	}
	reason, _ := body[1].(uint32)

	m.logger.Debug("notification closed", "id", id, "reason", CloseReason(reason).String())
	if m.onClose != nil {
		m.onClose(id, CloseReason(reason))
	}
}

// Stop stops the monitor.
func (m *Monitor) Stop() error {
	if m.conn != nil {
		return m.conn.Close()
	}
	return nil
}

// parseNotify decodes Notify(app_name, replaces_id, app_icon, summary, body,
// actions, hints, expire_timeout).
func parseNotify(body []interface{}) (*DBusNotification, error) {
	if len(body) < 8 {
		return nil, fmt.Errorf("%w: %d arguments", errMalformedNotify, len(body))
	}

	n := &DBusNotification{}
	var ok bool
	if n.AppName, ok = body[0].(string); !ok {
		return nil, fmt.Errorf("%w: app_name", errMalformedNotify)
	}
	if n.ReplacesID, ok = body[1].(uint32); !ok {
		return nil, fmt.Errorf("%w: replaces_id", errMalformedNotify)
	}
	if n.AppIcon, ok = body[2].(string); !ok {
		return nil, fmt.Errorf("%w: app_icon", errMalformedNotify)
	}
	if n.Summary, ok = body[3].(string); !ok {
		return nil, fmt.Errorf("%w: summary", errMalformedNotify)
	}
	if n.Body, ok = body[4].(string); !ok {
		return nil, fmt.Errorf("%w: body", errMalformedNotify)
	}

	if actions, ok := body[5].([]string); ok {
		n.Actions = actions
	}
	if hints, ok := body[6].(map[string]dbus.Variant); ok {
		n.Hints = hints
	}
	if timeout, ok := body[7].(int32); ok {
		n.ExpireTimeout = timeout
	}
	return n, nil
}

func headerString(msg *dbus.Message, field dbus.HeaderField) string {
	v, ok := msg.Headers[field]
	if !ok {
		return ""
	}
	s, _ := v.Value().(string)
	return s
}

type callKey struct {
	sender string
	serial uint32
}

type pendingCall struct {
	notification *DBusNotification
	at           time.Time
}

// pendingCalls holds observed Notify calls until their reply is seen.
type pendingCalls struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	calls map[callKey]pendingCall
}

func newPendingCalls(ttl time.Duration) *pendingCalls {
	return &pendingCalls{
		ttl:   ttl,
		now:   time.Now,
		calls: make(map[callKey]pendingCall),
	}
}

func (p *pendingCalls) add(key callKey, n *DBusNotification) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for k, c := range p.calls {
		if now.Sub(c.at) > p.ttl {
			delete(p.calls, k)
		}
	}
	p.calls[key] = pendingCall{notification: n, at: now}
}

func (p *pendingCalls) resolve(key callKey) (*DBusNotification, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.calls[key]
	if !ok {
		return nil, false
	}
	delete(p.calls, key)
	return c.notification, true
}

func (p *pendingCalls) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}
