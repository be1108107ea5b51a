package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	b := NewBus(nil)
	ch1, cancel1 := b.Subscribe(0)
	defer cancel1()
	ch2, cancel2 := b.Subscribe(0)
	defer cancel2()

	b.Publish(LoggedIn{LoginName: "a@b.c"})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case evt := <-ch:
			li, ok := evt.(LoggedIn)
			require.True(t, ok)
			assert.Equal(t, "a@b.c", li.LoginName)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestBusCancelStopsDelivery(t *testing.T) {
	b := NewBus(nil)
	ch, cancel := b.Subscribe(0)
	cancel()

	b.Publish(LoggedOut{})

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after cancel")
}

func TestBusDropsOnFullQueue(t *testing.T) {
	b := NewBus(nil)
	ch, cancel := b.Subscribe(1)
	defer cancel()

	b.Publish(LoggedIn{LoginName: "first"})
	b.Publish(LoggedIn{LoginName: "second"}) // dropped, queue full

	select {
	case evt := <-ch:
		assert.Equal(t, LoggedIn{LoginName: "first"}, evt)
	default:
		t.Fatal("expected first event to be buffered")
	}

	select {
	case <-ch:
		t.Fatal("second event should have been dropped")
	default:
	}
}

func TestBusDistinctEventTypes(t *testing.T) {
	b := NewBus(nil)
	ch, cancel := b.Subscribe(4)
	defer cancel()

	b.Publish(MessageReceived{SessionID: "1", Sender: "a@b.c", Payload: []byte("hi")})
	b.Publish(ParticipantJoined{SessionID: "1", LoginName: "a@b.c"})
	b.Publish(SessionClosed{SessionID: "1"})

	var got []Event
	for i := 0; i < 3; i++ {
		select {
		case evt := <-ch:
			got = append(got, evt)
		case <-time.After(time.Second):
			t.Fatal("timed out collecting events")
		}
	}

	require.Len(t, got, 3)
	_, ok := got[0].(MessageReceived)
	assert.True(t, ok)
	_, ok = got[1].(ParticipantJoined)
	assert.True(t, ok)
	_, ok = got[2].(SessionClosed)
	assert.True(t, ok)
}
