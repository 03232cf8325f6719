package metered

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
)

// DefaultPollInterval is the default NetworkManager polling interval.
const DefaultPollInterval = 5 * time.Second

const (
	nmDest     = "org.freedesktop.NetworkManager"
	nmPath     = "/org/freedesktop/NetworkManager"
	nmProperty = "org.freedesktop.NetworkManager.Metered"
)

// NMMetered values, see NMMetered in the NetworkManager API.
const (
	nmMeteredUnknown  uint32 = 0
	nmMeteredYes      uint32 = 1
	nmMeteredNo       uint32 = 2
	nmMeteredGuessYes uint32 = 3
	nmMeteredGuessNo  uint32 = 4
)

// Source reports whether the active connection is metered.
type Source interface {
	Metered() (bool, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() (bool, error)

func (f SourceFunc) Metered() (bool, error) { return f() }

// NetworkManager reads the global Metered property of NetworkManager.
type NetworkManager struct {
	obj dbus.BusObject
}

// NewNetworkManager connects to the system bus.
func NewNetworkManager() (*NetworkManager, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}
	return &NetworkManager{obj: conn.Object(nmDest, nmPath)}, nil
}

// Metered implements Source.
func (n *NetworkManager) Metered() (bool, error) {
	v, err := n.obj.GetProperty(nmProperty)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", nmProperty, err)
	}
	state, ok := v.Value().(uint32)
	if !ok {
		return false, fmt.Errorf("unexpected %s type %T", nmProperty, v.Value())
	}
	return IsMetered(state), nil
}

// IsMetered maps an NMMetered value to a boolean.
func IsMetered(state uint32) bool {
	return state == nmMeteredYes || state == nmMeteredGuessYes
}

// Monitor polls a Source and feeds the Coordinator.
type Monitor struct {
	src      Source
	coord    *Coordinator
	interval time.Duration
	log      *logrus.Entry
}

// NewMonitor creates a Monitor.
func NewMonitor(src Source, coord *Coordinator, interval time.Duration, log *logrus.Entry) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Monitor{
		src:      src,
		coord:    coord,
		interval: interval,
		log:      log.WithField("component", "metered"),
	}
}

// Run polls until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	m.poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll()
		}
	}
}

func (m *Monitor) poll() {
	metered, err := m.src.Metered()
	if err != nil {
		m.log.WithError(err).Debug("metered poll failed")
		return
	}
	m.coord.Check(metered)
}
