// Package daemon runs traybadged. It feeds notifications from the bus into
// the tray, keeps one activation context alive for the tray, publishes every
// snapshot to the snapshot file and the control interface, and reapplies
// the configuration when the file changes.
package daemon
