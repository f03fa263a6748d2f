//go:build linux

package notify

import (
	"github.com/godbus/dbus/v5"
)

const (
	notifyService   = "org.freedesktop.Notifications"
	notifyPath      = "/org/freedesktop/Notifications"
	notifyMethod    = notifyService + ".Notify"
	closeMethod     = notifyService + ".CloseNotification"
	appName         = "Chorus"
	desktopEntryKey = "chorus"
)

type dbusNotifier struct {
	obj dbus.BusObject
}

// New connects to the session bus. When no bus is reachable (TTY-only
// sessions, containers) it degrades to a notifier that drops
// everything rather than failing startup.
func New() (Notifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return noopNotifier{}, nil
	}
	return &dbusNotifier{obj: conn.Object(notifyService, notifyPath)}, nil
}

func (d *dbusNotifier) Notify(n Notification) (uint32, error) {
	hints := map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(byte(n.Urgency)),
		"desktop-entry": dbus.MakeVariant(desktopEntryKey),
	}
	call := d.obj.Call(notifyMethod, 0,
		appName, n.ReplacesID, n.Icon, n.Title, n.Body,
		[]string{}, hints, n.Timeout)
	if call.Err != nil {
		return 0, call.Err
	}
	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (d *dbusNotifier) Close(id uint32) error {
	return d.obj.Call(closeMethod, 0, id).Err
}

// noopNotifier swallows popups when the session bus is unreachable.
type noopNotifier struct{}

func (noopNotifier) Notify(Notification) (uint32, error) { return 0, nil }
func (noopNotifier) Close(uint32) error                  { return nil }
