package dbus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"
)

const remoteCallTimeout = 2 * time.Second

// RemoteAcknowledger acknowledges activations when another daemon owns the
// notifications (monitor mode). Only the owner may emit ActionInvoked, so an
// activation closes the notification through CloseNotification instead.
type RemoteAcknowledger struct {
	conn   *dbus.Conn
	logger *slog.Logger
}

// NewRemoteAcknowledger connects to the shared session bus.
func NewRemoteAcknowledger(logger *slog.Logger) (*RemoteAcknowledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &RemoteAcknowledger{conn: conn, logger: logger}, nil
}

// InvokeAction closes the notification unless it is resident.
func (r *RemoteAcknowledger) InvokeAction(id uint32, actionKey string, resident bool) error {
	r.logger.Debug("remote action requested", "id", id, "action_key", actionKey, "resident", resident)
	if resident {
		return nil
	}
	return r.close(id)
}

// Dismiss closes the notification.
func (r *RemoteAcknowledger) Dismiss(id uint32) error {
	return r.close(id)
}

func (r *RemoteAcknowledger) close(id uint32) error {
	ctx, cancel := context.WithTimeout(context.Background(), remoteCallTimeout)
	defer cancel()

	obj := r.conn.Object(DBusBusName, DBusPath)
	if err := obj.CallWithContext(ctx, DBusInterface+".CloseNotification", 0, id).Err; err != nil {
		return fmt.Errorf("failed to close notification %d: %w", id, err)
	}
	return nil
}

// Send posts n to the owning notification daemon and returns its ID.
func (r *RemoteAcknowledger) Send(n *DBusNotification) (uint32, error) {
	ctx, cancel := context.WithTimeout(context.Background(), remoteCallTimeout)
	defer cancel()

	actions := n.Actions
	if actions == nil {
		actions = []string{}
	}
	hints := n.Hints
	if hints == nil {
		hints = map[string]dbus.Variant{}
	}

	var id uint32
	obj := r.conn.Object(DBusBusName, DBusPath)
	err := obj.CallWithContext(ctx, DBusInterface+".Notify", 0,
		n.AppName, n.ReplacesID, n.AppIcon, n.Summary, n.Body, actions, hints, n.ExpireTimeout,
	).Store(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to send notification: %w", err)
	}
	return id, nil
}
