package dbus

import (
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/traybadge/internal/model"
)

// CloseReason represents the reason for closing a notification.
// These values are defined by the freedesktop.org notification specification.
type CloseReason uint32

const (
	// CloseReasonExpired indicates the notification expired (timeout reached).
	CloseReasonExpired CloseReason = 1
	// CloseReasonDismissed indicates the user dismissed the notification.
	CloseReasonDismissed CloseReason = 2
	// CloseReasonClosed indicates the notification was closed via CloseNotification.
	CloseReasonClosed CloseReason = 3
	// CloseReasonUndefined is reserved by the notification protocol.
	CloseReasonUndefined CloseReason = 4
)

// String returns the string representation of the close reason.
func (r CloseReason) String() string {
	switch r {
	case CloseReasonExpired:
		return "expired"
	case CloseReasonDismissed:
		return "dismissed"
	case CloseReasonClosed:
		return "closed"
	case CloseReasonUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// DBusNotification represents an incoming D-Bus Notify call.
// It contains the raw parameters from the org.freedesktop.Notifications.Notify method.
type DBusNotification struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string // Alternating key, label pairs
	Hints         map[string]dbus.Variant
	ExpireTimeout int32 // -1 = server default, 0 = never expire
}

// ToModel converts the call into the tray's notification record.
func (n *DBusNotification) ToModel(id uint32) model.Notification {
	m := model.Notification{
		ID:           id,
		AppName:      n.AppName,
		Summary:      n.Summary,
		Body:         n.Body,
		DesktopEntry: n.DesktopEntry(),
		Category:     n.Category(),
		Resident:     n.Resident(),
		ReceivedAt:   time.Now(),
	}
	m.SetUrgency(n.Urgency())
	return m
}

// Urgency extracts the urgency hint from the notification.
// Returns model.UrgencyNormal if not specified.
func (n *DBusNotification) Urgency() int {
	if v, ok := n.Hints["urgency"]; ok {
		if b, ok := v.Value().(byte); ok {
			return int(b)
		}
	}
	return model.UrgencyNormal
}

// Category extracts the category hint from the notification.
func (n *DBusNotification) Category() string {
	return n.stringHint("category")
}

// DesktopEntry extracts the desktop-entry hint.
func (n *DBusNotification) DesktopEntry() string {
	return n.stringHint("desktop-entry")
}

// Transient returns true if the transient hint is set.
func (n *DBusNotification) Transient() bool {
	return n.boolHint("transient")
}

// Resident returns true if the resident hint is set.
// Resident notifications should not be auto-removed after an action is invoked.
func (n *DBusNotification) Resident() bool {
	return n.boolHint("resident")
}

func (n *DBusNotification) stringHint(name string) string {
	if v, ok := n.Hints[name]; ok {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	return ""
}

func (n *DBusNotification) boolHint(name string) bool {
	if v, ok := n.Hints[name]; ok {
		if b, ok := v.Value().(bool); ok {
			return b
		}
	}
	return false
}

// ServerCapabilities lists the capabilities advertised by traybadged.
var ServerCapabilities = []string{
	"actions", // Support notification actions
	"body",    // Support body text
}

// ServerInfo contains information about the notification server.
type ServerInfo struct {
	Name        string // "traybadged"
	Vendor      string // "traybadge"
	Version     string // Build version
	SpecVersion string // "1.2"
}

// DefaultServerInfo returns the default server information.
func DefaultServerInfo() ServerInfo {
	return ServerInfo{
		Name:        "traybadged",
		Vendor:      "traybadge",
		Version:     "0.0.1",
		SpecVersion: "1.2",
	}
}
