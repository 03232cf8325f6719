//go:build linux

package notify

import (
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	notifyDest  = "org.freedesktop.Notifications"
	notifyPath  = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyIface = "org.freedesktop.Notifications"
)

var actionMatch = []dbus.MatchOption{
	dbus.WithMatchInterface(notifyIface),
	dbus.WithMatchMember("ActionInvoked"),
}

type dbusNotifier struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	appName string

	signals  chan *dbus.Signal
	actions  chan Invocation
	done     chan struct{}
	stopOnce sync.Once
}

// New connects to the session bus. Without one it returns a notifier that
// drops everything.
func New(appName string) (Notifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nopNotifier{}, nil //nolint:nilerr // headless sessions have no notification server
	}
	if err := conn.AddMatchSignal(actionMatch...); err != nil {
		return nil, err
	}
	n := &dbusNotifier{
		conn:    conn,
		obj:     conn.Object(notifyDest, notifyPath),
		appName: appName,
		signals: make(chan *dbus.Signal, 16),
		actions: make(chan Invocation, 16),
		done:    make(chan struct{}),
	}
	conn.Signal(n.signals)
	go n.listen()
	return n, nil
}

func (n *dbusNotifier) listen() {
	for {
		select {
		case <-n.done:
			return
		case sig := <-n.signals:
			inv, ok := parseActionInvoked(sig)
			if !ok {
				continue
			}
			select {
			case n.actions <- inv:
			default:
			}
		}
	}
}

func parseActionInvoked(sig *dbus.Signal) (Invocation, bool) {
	if sig == nil || sig.Name != notifyIface+".ActionInvoked" || len(sig.Body) < 2 {
		return Invocation{}, false
	}
	id, ok := sig.Body[0].(uint32)
	if !ok {
		return Invocation{}, false
	}
	key, ok := sig.Body[1].(string)
	return Invocation{ID: id, Key: key}, ok
}

// notifyArgs returns the actions, hints and expire_timeout arguments of
// the Notify call.
func notifyArgs(appName string, n Notification) ([]string, map[string]dbus.Variant, int32) {
	actions := make([]string, 0, 2*len(n.Actions))
	for _, a := range n.Actions {
		actions = append(actions, a.Key, a.Label)
	}
	hints := map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(byte(n.Urgency)),
		"desktop-entry": dbus.MakeVariant(appName),
	}
	if n.Resident {
		hints["resident"] = dbus.MakeVariant(true)
	}
	expire := int32(-1)
	if n.Expire >= 0 {
		expire = int32(min(n.Expire/time.Millisecond, 1<<31-1)) //nolint:gosec // clamped
	}
	return actions, hints, expire
}

func (n *dbusNotifier) Notify(notif Notification) (uint32, error) {
	actions, hints, expire := notifyArgs(n.appName, notif)
	var id uint32
	err := n.obj.Call(notifyIface+".Notify", 0,
		n.appName, notif.Replaces, notif.Icon, notif.Title, notif.Body,
		actions, hints, expire,
	).Store(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (n *dbusNotifier) Close(id uint32) error {
	return n.obj.Call(notifyIface+".CloseNotification", 0, id).Err
}

func (n *dbusNotifier) Actions() <-chan Invocation {
	return n.actions
}

// Stop detaches from the shared session bus without closing it.
func (n *dbusNotifier) Stop() error {
	var err error
	n.stopOnce.Do(func() {
		n.conn.RemoveSignal(n.signals)
		err = n.conn.RemoveMatchSignal(actionMatch...)
		close(n.done)
	})
	return err
}
