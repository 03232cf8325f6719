// Package notify shows the playback notification and one-shot messages
// through the freedesktop notification service.
package notify

import "time"

// Urgency is the freedesktop urgency hint.
type Urgency byte

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyCritical
)

// ExpireDefault lets the notification server pick the timeout.
const ExpireDefault time.Duration = -1

// Action is a notification button.
type Action struct {
	Key   string
	Label string
}

// Notification is what gets sent to the server. A zero Expire never
// expires; a non-zero Replaces updates that notification in place.
type Notification struct {
	Title    string
	Body     string
	Icon     string
	Expire   time.Duration
	Replaces uint32
	Urgency  Urgency
	Actions  []Action
	Resident bool
}

// Invocation is a click on one of a notification's actions.
type Invocation struct {
	ID  uint32
	Key string
}

// Notifier sends desktop notifications.
type Notifier interface {
	// Notify returns the notification's server ID, 0 when notifications
	// are unavailable.
	Notify(n Notification) (uint32, error)
	Close(id uint32) error
	// Actions delivers clicks until Stop.
	Actions() <-chan Invocation
	Stop() error
}

// nopNotifier is used without a notification server.
type nopNotifier struct{}

func (nopNotifier) Notify(Notification) (uint32, error) { return 0, nil }
func (nopNotifier) Close(uint32) error                  { return nil }
func (nopNotifier) Actions() <-chan Invocation          { return nil }
func (nopNotifier) Stop() error                         { return nil }
