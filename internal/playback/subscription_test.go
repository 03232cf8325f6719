// internal/playback/subscription_test.go
package playback

import (
	"testing"
	"testing/synctest"

	"github.com/llehouerou/wavesd/internal/player"
)

func TestNewSubscription_ChannelsReadable(t *testing.T) {
	sub := newSubscription()

	sub.Update(Snapshot{Index: 3})
	sub.OnMediaEvent(MediaEvent{Type: MetaChanged})
	sub.OnPlayerEvent(player.Event{Type: player.EventEndReached})

	if s := <-sub.Updates; s.Index != 3 {
		t.Errorf("Update.Index = %d, want 3", s.Index)
	}
	if ev := <-sub.MediaEvents; ev.Type != MetaChanged {
		t.Errorf("MediaEvent.Type = %v, want MetaChanged", ev.Type)
	}
	if ev := <-sub.PlayerEvents; ev.Type != player.EventEndReached {
		t.Errorf("PlayerEvent.Type = %v, want EndReached", ev.Type)
	}
}

func TestSubscription_Close_SignalsDone(t *testing.T) {
	synctest.Test(t, func(_ *testing.T) {
		sub := newSubscription()
		sub.close()
		sub.close()
		<-sub.Done
	})
}

func TestSubscription_NonBlocking_DropsWhenFull(t *testing.T) {
	sub := newSubscription()

	// Fill buffer
	for range eventBufferSize + 5 {
		sub.Update(Snapshot{})
	}

	// Should not block or panic - count what we got
	count := 0
	for {
		select {
		case <-sub.Updates:
			count++
		default:
			goto done
		}
	}
done:
	if count != eventBufferSize {
		t.Errorf("received %d events, want %d (buffer size)", count, eventBufferSize)
	}
}
