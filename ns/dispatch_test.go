package ns

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mk6i/go-msnp12/auth"
	"github.com/mk6i/go-msnp12/events"
	"github.com/mk6i/go-msnp12/state"
	"github.com/mk6i/go-msnp12/wire"
)

func newDispatchTestClient(t *testing.T) (*Client, *events.Bus) {
	t.Helper()
	cfg := testConfig()
	bus := events.NewBus(nil)
	client := New(cfg, newPipeDialer(), &auth.Fake{}, bus, nil)
	client.roster = state.NewRoster()
	client.localUser = state.NewLocalUser("user@example.com")
	return client, bus
}

func TestHandleUnsolicitedNLNUpdatesRosterAndPublishes(t *testing.T) {
	client, bus := newDispatchTestClient(t)
	evts, cancel := bus.Subscribe(8)
	defer cancel()

	client.handleUnsolicited(&wire.NLN{Status: "BSY", LoginName: "friend@example.com", Nickname: "Friend"})

	contact, err := client.Roster().Contact("friend@example.com")
	require.NoError(t, err)
	assert.Equal(t, "BSY", contact.Status())
	assert.Equal(t, "Friend", contact.FriendlyName())

	select {
	case evt := <-evts:
		cs, ok := evt.(events.ContactStatusChanged)
		require.True(t, ok)
		assert.Equal(t, "friend@example.com", cs.LoginName)
		assert.Equal(t, "BSY", cs.Status)
	case <-time.After(time.Second):
		t.Fatal("expected ContactStatusChanged event")
	}
}

func TestHandleUnsolicitedFLNMarksOffline(t *testing.T) {
	client, bus := newDispatchTestClient(t)
	evts, cancel := bus.Subscribe(8)
	defer cancel()

	contact := state.NewContact("friend@example.com", "guid-1")
	contact.SetStatus("NLN")
	client.Roster().PutContact(contact)

	client.handleUnsolicited(&wire.FLN{LoginName: "friend@example.com"})

	assert.Equal(t, "FLN", contact.Status())
	select {
	case evt := <-evts:
		cs, ok := evt.(events.ContactStatusChanged)
		require.True(t, ok)
		assert.Equal(t, "FLN", cs.Status)
	case <-time.After(time.Second):
		t.Fatal("expected ContactStatusChanged event")
	}
}

func TestHandleUnsolicitedRNGStoresInvitation(t *testing.T) {
	client, bus := newDispatchTestClient(t)
	evts, cancel := bus.Subscribe(8)
	defer cancel()

	client.handleUnsolicited(&wire.RNG{
		SessionID: "sess-1", Addr: "sb.example.com:1863", AuthString: "cookie",
		LoginName: "friend@example.com", Nickname: "Friend",
	})

	inv, ok := client.Invitations().Take("sess-1")
	require.True(t, ok)
	assert.Equal(t, "friend@example.com", inv.InvitingUser)
	assert.Equal(t, "sb.example.com:1863", inv.Addr)

	select {
	case evt := <-evts:
		assert.Equal(t, events.InvitedToIMSession{
			SessionID: "sess-1", InvitingUser: "friend@example.com", Nickname: "Friend",
		}, evt)
	case <-time.After(time.Second):
		t.Fatal("expected InvitedToIMSession event")
	}
}

func TestHandleUnsolicitedQNGUpdatesPingState(t *testing.T) {
	client, _ := newDispatchTestClient(t)
	client.handleUnsolicited(&wire.QNG{UntilNext: 30})
	assert.Equal(t, int64(30*time.Second), client.pingIntervalNs.Load())
}

func TestPingLoopSendsOnInterval(t *testing.T) {
	client, _ := newDispatchTestClient(t)
	client.cfg.PingInterval = 20 * time.Millisecond

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()
	client.writer = wire.NewCommandWriter(wire.NewLineFramer(clientConn, clientConn))
	client.pingIntervalNs.Store(int64(client.cfg.PingInterval))
	client.lastPongNs.Store(time.Now().UnixNano())

	serverReader := wire.NewCommandReader(wire.NewLineFramer(serverConn, serverConn), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.pingLoop(ctx)

	cmd, err := serverReader.Next()
	require.NoError(t, err)
	assert.Equal(t, "PNG", cmd.ID())
}

func TestPingLoopFailsOnTimeout(t *testing.T) {
	client, _ := newDispatchTestClient(t)
	client.cfg.PingInterval = 10 * time.Millisecond

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()
	client.writer = wire.NewCommandWriter(wire.NewLineFramer(clientConn, clientConn))
	client.pingIntervalNs.Store(int64(client.cfg.PingInterval))
	// lastPong far in the past: the first tick should already exceed 2x interval.
	client.lastPongNs.Store(time.Now().Add(-time.Hour).UnixNano())

	go func() {
		// Drain server-side reads so the pipe write in pingLoop (if it gets
		// that far) never blocks forever.
		reader := wire.NewCommandReader(wire.NewLineFramer(serverConn, serverConn), nil)
		for {
			if _, err := reader.Next(); err != nil {
				return
			}
		}
	}()

	err := client.pingLoop(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, wire.ErrTimeout)
}
