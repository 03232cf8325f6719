package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/wavesd/internal/playback"
)

type fakeSurface struct {
	meta    []Metadata
	states  []State
	queues  []Queue
	actives []bool
	err     error
}

func (f *fakeSurface) SetMetadata(m Metadata) error {
	f.meta = append(f.meta, m)
	return f.err
}

func (f *fakeSurface) SetState(s State) error {
	f.states = append(f.states, s)
	return f.err
}

func (f *fakeSurface) SetQueue(q Queue) error {
	f.queues = append(f.queues, q)
	return f.err
}

func (f *fakeSurface) SetActive(active bool) error {
	f.actives = append(f.actives, active)
	return f.err
}

func TestPublisher_ActiveOnlyOnTransitions(t *testing.T) {
	var changes []bool
	s := &fakeSurface{}
	p := New(Options{OnActiveChange: func(a bool) { changes = append(changes, a) }}, s)

	modes := []playback.Mode{
		playback.ModePlaying,
		playback.ModePaused,
		playback.ModePlaying,
		playback.ModeStopped,
		playback.ModeStopped,
		playback.ModePlaying,
	}
	for _, m := range modes {
		require.NoError(t, p.PublishState(snapshot(m)))
	}

	assert.Equal(t, []bool{true, false, true}, changes)
	assert.Equal(t, []bool{true, false, true}, s.actives)
	assert.Len(t, s.states, len(modes))
	assert.True(t, p.Active())
}

func TestPublisher_FansOutAndJoinsErrors(t *testing.T) {
	good := &fakeSurface{}
	bad := &fakeSurface{err: errors.New("bus gone")}
	p := New(Options{CoverOnLockScreen: true}, good)
	p.AddSurface(bad)

	err := p.PublishMetadata(snapshot(playback.ModePlaying))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bus gone")
	assert.Len(t, good.meta, 1)
	assert.Len(t, bad.meta, 1)
	assert.Equal(t, "file:///music/cover.jpg", good.meta[0].ArtURL)
}

func TestPublisher_PublishQueue(t *testing.T) {
	s := &fakeSurface{}
	p := New(Options{}, s)

	require.NoError(t, p.PublishQueue(queueSnapshot(3, 0, 1, false)))
	require.NoError(t, p.PublishQueue(queueSnapshot(3, 1, 1, false)))
	require.NoError(t, p.PublishQueue(queueSnapshot(0, -1, 2, false)))

	require.Len(t, s.queues, 2)
	assert.Empty(t, s.queues[1].Items)
}
