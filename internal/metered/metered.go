// Package metered reacts to the network becoming metered while a remote
// stream is playing.
package metered

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/llehouerou/wavesd/internal/errmsg"
	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/player"
)

// Policy is the reaction to a metered connection.
type Policy int

const (
	PolicyIgnore Policy = iota
	PolicyStop
	PolicyWarn
)

func (p Policy) String() string {
	switch p {
	case PolicyStop:
		return "stop"
	case PolicyWarn:
		return "warn"
	default:
		return "ignore"
	}
}

// ParsePolicy parses "ignore", "stop" or "warn".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ignore":
		return PolicyIgnore, nil
	case "stop":
		return PolicyStop, nil
	case "warn":
		return PolicyWarn, nil
	}
	return PolicyIgnore, fmt.Errorf("unknown metered policy %q", s)
}

// Controller is the part of the playback service the coordinator drives.
type Controller interface {
	Snapshot() playback.Snapshot
	Stop()
}

// Coordinator applies the policy on the rising edge of the metered state,
// and again whenever a stream starts playing on a metered network.
type Coordinator struct {
	policy Policy
	ctrl   Controller
	msg    playback.Messenger
	log    *logrus.Entry

	mu      sync.Mutex
	metered bool
}

var _ playback.Listener = (*Coordinator)(nil)

// New creates a Coordinator.
func New(policy Policy, ctrl Controller, msg playback.Messenger, log *logrus.Entry) *Coordinator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Coordinator{
		policy: policy,
		ctrl:   ctrl,
		msg:    msg,
		log:    log.WithField("component", "metered"),
	}
}

// Check records the current metered state. The policy runs only when the
// state turns from unmetered to metered while a stream is active.
func (c *Coordinator) Check(metered bool) {
	c.mu.Lock()
	rising := metered && !c.metered
	c.metered = metered
	c.mu.Unlock()

	if !rising {
		return
	}
	c.log.Debug("connection became metered")
	if c.ctrl.Snapshot().IsStreaming() {
		c.apply()
	}
}

// Metered reports the last recorded state.
func (c *Coordinator) Metered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metered
}

// OnPlayerEvent applies the policy when a stream starts on a metered
// connection.
func (c *Coordinator) OnPlayerEvent(ev player.Event) {
	if ev.Type != player.EventPlaying || !c.Metered() {
		return
	}
	s := c.ctrl.Snapshot()
	if s.HasCurrent && s.Current.IsStream() {
		c.apply()
	}
}

func (c *Coordinator) apply() {
	switch c.policy {
	case PolicyStop:
		c.log.Info("metered connection, stopping stream")
		c.ctrl.Stop()
		c.msg.ShowMessage(playback.Message{Text: errmsg.MeteredStopped, Action: playback.ActionOpenSettings})
	case PolicyWarn:
		c.log.Info("metered connection, warning")
		c.msg.ShowMessage(playback.Message{Text: errmsg.MeteredWarning, Action: playback.ActionOpenSettings})
	}
}

func (c *Coordinator) Update(playback.Snapshot)         {}
func (c *Coordinator) OnMediaEvent(playback.MediaEvent) {}
