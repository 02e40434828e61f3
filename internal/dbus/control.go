package dbus

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/traybadge/internal/model"
	"github.com/jmylchreest/traybadge/internal/tray"
)

const (
	// ControlInterface is the traybadge control interface name.
	ControlInterface = "io.github.jmylchreest.TrayBadge"
	// ControlPath is the control object path.
	ControlPath = "/io/github/jmylchreest/TrayBadge"
	// ControlBusName is the bus name claimed by the daemon.
	ControlBusName = "io.github.jmylchreest.TrayBadge"
)

// D-Bus error names returned by the control interface.
const (
	ErrNameStaleSnapshot = ControlInterface + ".Error.StaleSnapshot"
	ErrNameItemNotFound  = ControlInterface + ".Error.ItemNotFound"
	ErrNameNotRunning    = ControlInterface + ".Error.NotRunning"
	ErrNameFailed        = ControlInterface + ".Error.Failed"
)

// ControlBackend is the live aggregation state the control interface serves.
// *tray.Context satisfies it.
type ControlBackend interface {
	Snapshot() *model.Snapshot
	ActivateItem(snapshotID string, index int) error
	Recompute() (*model.Snapshot, error)
}

// ControlServer exports the traybadge control interface and emits Changed
// whenever a new snapshot is published.
type ControlServer struct {
	conn   *dbus.Conn
	logger *slog.Logger

	mu      sync.RWMutex
	backend ControlBackend
	running bool
}

// NewControlServer creates a control server. The backend may be set later.
func NewControlServer(backend ControlBackend, logger *slog.Logger) *ControlServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ControlServer{backend: backend, logger: logger}
}

// SetBackend swaps the backend, e.g. after a configuration reload.
func (s *ControlServer) SetBackend(backend ControlBackend) {
	s.mu.Lock()
	s.backend = backend
	s.mu.Unlock()
}

func (s *ControlServer) currentBackend() ControlBackend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend
}

// Start exports the control object and claims ControlBusName.
func (s *ControlServer) Start() error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	s.conn = conn

	if err := conn.Export(&controlObject{server: s}, ControlPath, ControlInterface); err != nil {
		return fmt.Errorf("failed to export control object: %w", err)
	}

	node := &introspect.Node{
		Name: ControlPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    ControlInterface,
				Methods: controlMethods(),
				Signals: controlSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), ControlPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(ControlBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", ControlBusName)
	}

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.Info("control interface started", "interface", ControlInterface, "path", ControlPath)
	return nil
}

// Stop releases the control bus name.
func (s *ControlServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(ControlBusName); err != nil {
			s.logger.Warn("failed to release control bus name", "error", err)
		}
	}
	return nil
}

// Publish emits Changed(total, id). It implements tray.Publisher.
func (s *ControlServer) Publish(snap *model.Snapshot) error {
	if s.conn == nil {
		return ErrNotConnected
	}
	if err := s.conn.Emit(ControlPath, ControlInterface+".Changed", uint32(snap.Total), snap.ID); err != nil {
		return fmt.Errorf("failed to emit Changed signal: %w", err)
	}
	return nil
}

func (s *ControlServer) getSnapshot() (string, *dbus.Error) {
	backend := s.currentBackend()
	if backend == nil {
		return "", dbus.NewError(ErrNameNotRunning, []interface{}{"no active tray"})
	}
	data, err := json.Marshal(backend.Snapshot())
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	return string(data), nil
}

func (s *ControlServer) activate(snapshotID string, index uint32) *dbus.Error {
	backend := s.currentBackend()
	if backend == nil {
		return dbus.NewError(ErrNameNotRunning, []interface{}{"no active tray"})
	}
	s.logger.Debug("Activate called", "snapshot", snapshotID, "index", index)
	return toDBusError(backend.ActivateItem(snapshotID, int(index)))
}

func (s *ControlServer) rescan() *dbus.Error {
	backend := s.currentBackend()
	if backend == nil {
		return dbus.NewError(ErrNameNotRunning, []interface{}{"no active tray"})
	}
	_, err := backend.Recompute()
	return toDBusError(err)
}

// controlObject carries only the methods exported on the bus.
type controlObject struct {
	server *ControlServer
}

// GetSnapshot returns the current snapshot as JSON.
// D-Bus method: GetSnapshot() -> s
func (o *controlObject) GetSnapshot() (string, *dbus.Error) {
	return o.server.getSnapshot()
}

// Activate runs the action of the item at a 1-based index.
// D-Bus method: Activate(su) -> nothing
func (o *controlObject) Activate(snapshotID string, index uint32) *dbus.Error {
	return o.server.activate(snapshotID, index)
}

// Rescan forces an aggregation pass.
// D-Bus method: Rescan() -> nothing
func (o *controlObject) Rescan() *dbus.Error {
	return o.server.rescan()
}

func toDBusError(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	name := ErrNameFailed
	switch {
	case errors.Is(err, tray.ErrStaleSnapshot):
		name = ErrNameStaleSnapshot
	case errors.Is(err, tray.ErrItemNotFound):
		name = ErrNameItemNotFound
	case errors.Is(err, tray.ErrClosed):
		name = ErrNameNotRunning
	}
	return dbus.NewError(name, []interface{}{err.Error()})
}

func controlMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "GetSnapshot",
			Args: []introspect.Arg{
				{Name: "snapshot", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "Activate",
			Args: []introspect.Arg{
				{Name: "snapshot_id", Type: "s", Direction: "in"},
				{Name: "index", Type: "u", Direction: "in"},
			},
		},
		{
			Name: "Rescan",
		},
	}
}

func controlSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "Changed",
			Args: []introspect.Arg{
				{Name: "total", Type: "u"},
				{Name: "snapshot_id", Type: "s"},
			},
		},
	}
}
