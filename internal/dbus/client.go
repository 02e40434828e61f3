package dbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/traybadge/internal/model"
	"github.com/jmylchreest/traybadge/internal/tray"
)

// ErrDaemonNotRunning is returned when no daemon owns ControlBusName.
var ErrDaemonNotRunning = errors.New("traybadged is not running")

const errNameServiceUnknown = "org.freedesktop.DBus.Error.ServiceUnknown"

// ControlClient calls the control interface of a running daemon.
type ControlClient struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// NewControlClient connects to the shared session bus.
func NewControlClient() (*ControlClient, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &ControlClient{
		conn: conn,
		obj:  conn.Object(ControlBusName, ControlPath),
	}, nil
}

// Snapshot fetches the daemon's current snapshot.
func (c *ControlClient) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	var data string
	if err := c.obj.CallWithContext(ctx, ControlInterface+".GetSnapshot", 0).Store(&data); err != nil {
		return nil, fromDBusError(err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// Activate activates the item at a 1-based index of snapshotID.
func (c *ControlClient) Activate(ctx context.Context, snapshotID string, index int) error {
	if index < 1 {
		return fmt.Errorf("%w: index %d", tray.ErrItemNotFound, index)
	}
	return fromDBusError(c.obj.CallWithContext(ctx, ControlInterface+".Activate", 0, snapshotID, uint32(index)).Err)
}

// Rescan asks the daemon for a fresh aggregation pass.
func (c *ControlClient) Rescan(ctx context.Context) error {
	return fromDBusError(c.obj.CallWithContext(ctx, ControlInterface+".Rescan", 0).Err)
}

// Subscribe delivers every Changed signal to ch until ctx is done.
func (c *ControlClient) Subscribe(ctx context.Context, ch chan<- Changed) error {
	opts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(ControlPath),
		dbus.WithMatchInterface(ControlInterface),
		dbus.WithMatchMember("Changed"),
	}
	if err := c.conn.AddMatchSignal(opts...); err != nil {
		return fmt.Errorf("failed to subscribe to Changed: %w", err)
	}

	signals := make(chan *dbus.Signal, 16)
	c.conn.Signal(signals)

	go func() {
		defer func() {
			c.conn.RemoveSignal(signals)
			_ = c.conn.RemoveMatchSignal(opts...)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-signals:
				changed, ok := parseChanged(sig)
				if !ok {
					continue
				}
				select {
				case ch <- changed:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return nil
}

// Changed is the payload of the Changed signal.
type Changed struct {
	Total      int
	SnapshotID string
}

func parseChanged(sig *dbus.Signal) (Changed, bool) {
	if sig == nil || sig.Name != ControlInterface+".Changed" || len(sig.Body) < 2 {
		return Changed{}, false
	}
	total, ok := sig.Body[0].(uint32)
	if !ok {
		return Changed{}, false
	}
	id, ok := sig.Body[1].(string)
	if !ok {
		return Changed{}, false
	}
	return Changed{Total: int(total), SnapshotID: id}, true
}

// fromDBusError maps control interface errors back to the tray sentinels.
func fromDBusError(err error) error {
	if err == nil {
		return nil
	}

	var name string
	var de dbus.Error
	var dp *dbus.Error
	switch {
	case errors.As(err, &de):
		name = de.Name
	case errors.As(err, &dp):
		name = dp.Name
	default:
		return err
	}

	switch name {
	case ErrNameStaleSnapshot:
		return fmt.Errorf("%w: %v", tray.ErrStaleSnapshot, err)
	case ErrNameItemNotFound:
		return fmt.Errorf("%w: %v", tray.ErrItemNotFound, err)
	case ErrNameNotRunning, errNameServiceUnknown:
		return fmt.Errorf("%w: %v", ErrDaemonNotRunning, err)
	}
	return err
}
