package dbus

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned when a signal is emitted before Start.
var ErrNotConnected = errors.New("not connected to D-Bus")

// EmitNotificationClosed emits the NotificationClosed signal.
func (s *NotificationServer) EmitNotificationClosed(id uint32, reason CloseReason) error {
	if s.conn == nil {
		return ErrNotConnected
	}

	if err := s.conn.Emit(DBusPath, DBusInterface+".NotificationClosed", id, uint32(reason)); err != nil {
		return fmt.Errorf("failed to emit NotificationClosed signal: %w", err)
	}

	s.logger.Debug("emitted NotificationClosed signal", "id", id, "reason", reason.String())
	return nil
}

// EmitActionInvoked emits the ActionInvoked signal. The sending application
// is expected to raise the relevant window.
func (s *NotificationServer) EmitActionInvoked(id uint32, actionKey string) error {
	if s.conn == nil {
		return ErrNotConnected
	}

	if err := s.conn.Emit(DBusPath, DBusInterface+".ActionInvoked", id, actionKey); err != nil {
		return fmt.Errorf("failed to emit ActionInvoked signal: %w", err)
	}

	s.logger.Debug("emitted ActionInvoked signal", "id", id, "action_key", actionKey)
	return nil
}

// CloseWithReason closes a notification and emits the appropriate signal.
func (s *NotificationServer) CloseWithReason(id uint32, reason CloseReason) error {
	s.markClosed(id)
	return s.EmitNotificationClosed(id, reason)
}

// InvokeAction invokes an action on a notification and emits the signal.
// Non-resident notifications are closed afterwards.
func (s *NotificationServer) InvokeAction(id uint32, actionKey string, resident bool) error {
	if err := s.EmitActionInvoked(id, actionKey); err != nil {
		return err
	}
	if !resident {
		return s.CloseWithReason(id, CloseReasonDismissed)
	}
	return nil
}

// Dismiss closes a notification as dismissed by the user.
func (s *NotificationServer) Dismiss(id uint32) error {
	return s.CloseWithReason(id, CloseReasonDismissed)
}
