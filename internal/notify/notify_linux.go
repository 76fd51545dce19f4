//go:build linux

package notify

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsService   = "org.freedesktop.Notifications"
	notificationsPath      = "/org/freedesktop/Notifications"
	notificationsInterface = "org.freedesktop.Notifications"

	// expireDefault lets the notification server choose the timeout.
	expireDefault = int32(-1)
)

// desktop sends notices over the session bus.
type desktop struct {
	appName string
	logger  *slog.Logger

	mu   sync.Mutex
	conn *dbus.Conn
}

func newPlatform(appName string, logger *slog.Logger) Notifier {
	return &desktop{appName: appName, logger: logger}
}

func (d *desktop) connect() (*dbus.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil && d.conn.Connected() {
		return d.conn, nil
	}
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	d.conn = conn
	return conn, nil
}

func (d *desktop) Notify(level Level, title, body string) error {
	conn, err := d.connect()
	if err != nil {
		return err
	}

	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(level.urgency()),
	}
	obj := conn.Object(notificationsService, dbus.ObjectPath(notificationsPath))
	// app_name, replaces_id, app_icon, summary, body, actions, hints, expire_timeout
	call := obj.Call(notificationsInterface+".Notify", 0,
		d.appName, uint32(0), "", title, body, []string{}, hints, expireDefault)
	if call.Err != nil {
		return fmt.Errorf("send notification: %w", call.Err)
	}

	var id uint32
	if err := call.Store(&id); err == nil {
		d.logger.Debug("notification sent", "id", id)
	}
	return nil
}
