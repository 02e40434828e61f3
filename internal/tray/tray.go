// Package tray holds the active notifications and turns them into the tray
// sources consumed by the aggregation engine. It also owns the activation
// context that recomputes the badge whenever a source's count changes.
package tray

import (
	"log/slog"
	"strconv"
	"sync"

	"github.com/jmylchreest/traybadge/internal/core"
	"github.com/jmylchreest/traybadge/internal/model"
)

// DefaultActionKey is the freedesktop action invoked when a notification is opened.
const DefaultActionKey = "default"

// Acknowledger reports user acknowledgements back to the notification bus.
type Acknowledger interface {
	// InvokeAction signals that the user invoked actionKey on a notification.
	InvokeAction(id uint32, actionKey string, resident bool) error
	// Dismiss signals that the user dismissed a notification.
	Dismiss(id uint32) error
}

// NopAcknowledger acknowledges locally only. Used in monitor mode where
// another daemon owns the notifications.
type NopAcknowledger struct{}

// InvokeAction does nothing.
func (NopAcknowledger) InvokeAction(uint32, string, bool) error { return nil }

// Dismiss does nothing.
func (NopAcknowledger) Dismiss(uint32) error { return nil }

// Tray tracks active notifications in arrival order and notifies listeners
// whenever the set changes.
type Tray struct {
	mu     sync.Mutex
	logger *slog.Logger
	ack    Acknowledger

	notifications map[uint32]model.Notification
	order         []uint32

	listeners map[int]func()
	nextID    int
}

// New creates an empty Tray.
func New(ack Acknowledger, logger *slog.Logger) *Tray {
	if ack == nil {
		ack = NopAcknowledger{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tray{
		logger:        logger,
		ack:           ack,
		notifications: make(map[uint32]model.Notification),
		listeners:     make(map[int]func()),
	}
}

// OnChange registers fn to be called after every change. The returned
// function removes the listener.
func (t *Tray) OnChange(fn func()) func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextID
	t.nextID++
	t.listeners[id] = fn

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.listeners, id)
	}
}

// Add stores a notification. A notification with an existing ID replaces
// the previous one and keeps its position.
func (t *Tray) Add(n model.Notification) {
	t.mu.Lock()
	if _, exists := t.notifications[n.ID]; !exists {
		t.order = append(t.order, n.ID)
	}
	t.notifications[n.ID] = n
	t.mu.Unlock()

	t.logger.Debug("tray notification added", "id", n.ID, "app", n.AppName, "summary", n.Summary)
	t.changed()
}

// Remove drops a notification. Returns false if it was not present.
func (t *Tray) Remove(id uint32) bool {
	t.mu.Lock()
	removed := t.removeLocked(id)
	t.mu.Unlock()

	if removed {
		t.changed()
	}
	return removed
}

// Clear drops every notification.
func (t *Tray) Clear() {
	t.mu.Lock()
	count := len(t.order)
	t.notifications = make(map[uint32]model.Notification)
	t.order = nil
	t.mu.Unlock()

	if count > 0 {
		t.changed()
	}
}

// Len returns the number of active notifications.
func (t *Tray) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.order)
}

// Get returns the notification with the given ID.
func (t *Tray) Get(id uint32) (model.Notification, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.notifications[id]
	return n, ok
}

// Open acknowledges a single notification: its default action is invoked
// and it leaves the tray.
func (t *Tray) Open(id uint32) {
	t.mu.Lock()
	n, ok := t.notifications[id]
	if ok {
		t.removeLocked(id)
	}
	t.mu.Unlock()

	if !ok {
		return
	}

	if err := t.ack.InvokeAction(n.ID, DefaultActionKey, n.Resident); err != nil {
		t.logger.Warn("failed to invoke default action", "id", n.ID, "error", err)
	}
	t.changed()
}

// OpenSource activates a whole source: the newest notification's default
// action is invoked, the others are dismissed, and all leave the tray.
func (t *Tray) OpenSource(ids []uint32) {
	t.mu.Lock()
	var opened []model.Notification
	for _, id := range ids {
		if n, ok := t.notifications[id]; ok {
			opened = append(opened, n)
			t.removeLocked(id)
		}
	}
	t.mu.Unlock()

	if len(opened) == 0 {
		return
	}

	newest := opened[len(opened)-1]
	if err := t.ack.InvokeAction(newest.ID, DefaultActionKey, newest.Resident); err != nil {
		t.logger.Warn("failed to invoke default action", "id", newest.ID, "error", err)
	}
	for _, n := range opened[:len(opened)-1] {
		if err := t.ack.Dismiss(n.ID); err != nil {
			t.logger.Warn("failed to dismiss notification", "id", n.ID, "error", err)
		}
	}
	t.changed()
}

// Sources builds the tray sources for one aggregation pass.
//
// notify-send notifications each become their own one-entry source titled
// with the burst sentinel. Chat notifications form one chat-capable source
// per application and conversation (summary). Everything else forms one
// source per application identity. Sources are ordered by first arrival.
func (t *Tray) Sources() []model.TraySource {
	t.mu.Lock()
	defer t.mu.Unlock()

	type group struct {
		source model.TraySource
		ids    []uint32
	}
	groups := make(map[string]*group)
	var keys []string

	for _, id := range t.order {
		n := t.notifications[id]
		identity, known := n.Identity()

		var key string
		var src model.TraySource
		switch {
		case n.AppName == core.BurstKey:
			key = "burst:" + strconv.FormatUint(uint64(n.ID), 10)
			src = model.TraySource{Identifier: core.BurstKey, Title: core.BurstKey, HasAppIdentity: true}
		case n.IsChat():
			key = "chat:" + identity + "\x00" + n.Summary
			src = model.TraySource{Identifier: identity, Title: n.Summary, ChatCapable: true, HasAppIdentity: known}
		default:
			key = "app:" + identity
			title := n.AppName
			if title == "" {
				title = identity
			}
			src = model.TraySource{Identifier: identity, Title: title, HasAppIdentity: known}
		}

		g, ok := groups[key]
		if !ok {
			g = &group{source: src}
			groups[key] = g
			keys = append(keys, key)
		}
		g.ids = append(g.ids, id)
		g.source.Entries = append(g.source.Entries, model.NotificationEntry{
			Title: n.Summary,
			Open:  t.openFunc(id),
		})
	}

	sources := make([]model.TraySource, 0, len(keys))
	for _, key := range keys {
		g := groups[key]
		g.source.RawCount = strconv.Itoa(len(g.ids))
		g.source.Open = t.openSourceFunc(g.ids)
		sources = append(sources, g.source)
	}
	return sources
}

func (t *Tray) openFunc(id uint32) model.Action {
	return func() { t.Open(id) }
}

func (t *Tray) openSourceFunc(ids []uint32) model.Action {
	return func() { t.OpenSource(ids) }
}

func (t *Tray) removeLocked(id uint32) bool {
	if _, exists := t.notifications[id]; !exists {
		return false
	}
	delete(t.notifications, id)
	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// changed calls the listeners outside the lock so they may read the tray.
func (t *Tray) changed() {
	t.mu.Lock()
	listeners := make([]func(), 0, len(t.listeners))
	for _, fn := range t.listeners {
		listeners = append(listeners, fn)
	}
	t.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}
