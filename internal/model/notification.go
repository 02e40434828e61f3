// Package model defines the core data structures for traybadge.
package model

import (
	"errors"
	"time"
)

// Urgency levels matching freedesktop spec.
const (
	UrgencyLow      = 0
	UrgencyNormal   = 1
	UrgencyCritical = 2
)

// UrgencyNames maps urgency levels to human-readable names.
var UrgencyNames = map[int]string{
	UrgencyLow:      "low",
	UrgencyNormal:   "normal",
	UrgencyCritical: "critical",
}

// Notification categories that mark a conversation-style (chat) notification.
const (
	CategoryIM         = "im"
	CategoryIMReceived = "im.received"
)

// Notification is one active (unacknowledged) notification held by the tray.
type Notification struct {
	ID           uint32    `json:"id"`
	AppName      string    `json:"app_name"`
	Summary      string    `json:"summary"`
	Body         string    `json:"body,omitempty"`
	DesktopEntry string    `json:"desktop_entry,omitempty"`
	Category     string    `json:"category,omitempty"`
	Urgency      int       `json:"urgency"`
	Resident     bool      `json:"resident,omitempty"`
	ReceivedAt   time.Time `json:"received_at"`
}

// Validation errors.
var (
	ErrZeroID         = errors.New("notification id cannot be zero")
	ErrEmptySummary   = errors.New("summary cannot be empty")
	ErrInvalidUrgency = errors.New("urgency must be 0, 1, or 2")
)

// Validate checks that the notification has all required fields.
func (n *Notification) Validate() error {
	if n.ID == 0 {
		return ErrZeroID
	}
	if n.Summary == "" {
		return ErrEmptySummary
	}
	if n.Urgency < UrgencyLow || n.Urgency > UrgencyCritical {
		return ErrInvalidUrgency
	}
	return nil
}

// SetUrgency sets the urgency level, clamping unknown values to normal.
func (n *Notification) SetUrgency(level int) {
	if level < UrgencyLow || level > UrgencyCritical {
		level = UrgencyNormal
	}
	n.Urgency = level
}

// UrgencyName returns the human-readable urgency name.
func (n *Notification) UrgencyName() string {
	return UrgencyNames[n.Urgency]
}

// IsChat reports whether the notification belongs to a conversation.
func (n *Notification) IsChat() bool {
	return n.Category == CategoryIM || n.Category == CategoryIMReceived
}

// Identity returns the application identity used to classify the
// notification's source, and whether that identity is known.
// The desktop entry wins over the free-form application name.
func (n *Notification) Identity() (string, bool) {
	if n.DesktopEntry != "" {
		return n.DesktopEntry, true
	}
	return n.AppName, n.AppName != ""
}
