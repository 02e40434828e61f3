// Package dbus connects traybadge to the session bus. It implements the
// org.freedesktop.Notifications interface (or passively monitors another
// daemon's traffic) to feed the tray, and exports the traybadge control
// interface used by the CLI to read snapshots and activate items.
package dbus
