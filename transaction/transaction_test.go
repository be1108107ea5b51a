package transaction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mk6i/go-msnp12/wire"
)

// testConn simulates one end of a duplex connection: inboundW is where a
// test script writes scripted server replies, which the broadcaster's
// reader observes on inboundR; outbound writes (from a CommandWriter under
// test) are discarded, since nothing in these tests needs to inspect them.
type testConn struct {
	inboundR *io.PipeReader
	inboundW *io.PipeWriter
}

func newTestConn(t *testing.T) (*testConn, *Broadcaster, *wire.CommandWriter) {
	t.Helper()
	pr, pw := io.Pipe()
	t.Cleanup(func() {
		pr.Close()
		pw.Close()
	})

	readerFramer := wire.NewLineFramer(pr, io.Discard)
	reader := wire.NewCommandReader(readerFramer, nil)
	broadcaster := NewBroadcaster(reader, nil)

	outboundFramer := wire.NewLineFramer(bytes.NewReader(nil), io.Discard)
	outboundWriter := wire.NewCommandWriter(outboundFramer)

	return &testConn{inboundR: pr, inboundW: pw}, broadcaster, outboundWriter
}

// scriptReply writes a scripted server command into the connection's
// inbound side, where the broadcaster's reader will pick it up.
func (c *testConn) scriptReply(t *testing.T, cmd wire.Encodable) {
	t.Helper()
	scriptFramer := wire.NewLineFramer(bytes.NewReader(nil), c.inboundW)
	scriptWriter := wire.NewCommandWriter(scriptFramer)
	require.NoError(t, scriptWriter.Write(cmd))
}

func TestBroadcasterDispatchesToAllSubscribers(t *testing.T) {
	conn, b, _ := newTestConn(t)

	ch1, cancel1 := b.Subscribe(false, 4)
	defer cancel1()
	ch2, cancel2 := b.Subscribe(false, 4)
	defer cancel2()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	conn.scriptReply(t, &wire.PNG{})

	for _, ch := range []<-chan wire.Command{ch1, ch2} {
		select {
		case cmd := <-ch:
			assert.Equal(t, "PNG", cmd.ID())
		case <-time.After(time.Second):
			t.Fatal("subscriber never received broadcast command")
		}
	}
}

func TestBroadcasterDropsOnFullNonCriticalQueue(t *testing.T) {
	conn, b, _ := newTestConn(t)

	ch, cancel := b.Subscribe(false, 1)
	defer cancel()

	ctx, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	go b.Run(ctx)

	conn.scriptReply(t, &wire.PNG{})
	conn.scriptReply(t, &wire.PNG{})
	conn.scriptReply(t, &wire.PNG{})

	// Only one slot: the subscriber should see at least one delivered
	// command, and the broadcaster loop must never block on the overflow.
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected at least one delivered command")
	}
}

func TestTrackerSendAndAwaitMatchesReply(t *testing.T) {
	conn, b, writer := newTestConn(t)
	tracker := NewTracker(b, writer, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	go func() {
		time.Sleep(20 * time.Millisecond)
		conn.scriptReply(t, &wire.CHG{TrID: 7, Status: "NLN"})
	}()

	reply, err := tracker.SendAndAwait(ctx, &wire.CHG{TrID: 7, Status: "NLN"})
	require.NoError(t, err)
	chg, ok := reply.(*wire.CHG)
	require.True(t, ok)
	assert.Equal(t, uint32(7), chg.TrID)
}

func TestTrackerSendAndAwaitServerError(t *testing.T) {
	conn, b, writer := newTestConn(t)
	tracker := NewTracker(b, writer, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	go func() {
		time.Sleep(20 * time.Millisecond)
		conn.scriptReply(t, errServerEncodable{trid: 9, code: 911})
	}()

	_, err := tracker.SendAndAwait(ctx, &wire.CHG{TrID: 9, Status: "NLN"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, wire.ErrServer))
	assert.True(t, errors.Is(err, wire.ErrBadCredentials))
}

func TestTrackerSendAndAwaitTimeout(t *testing.T) {
	_, b, writer := newTestConn(t)
	tracker := NewTracker(b, writer, 30*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	_, err := tracker.SendAndAwait(ctx, &wire.CHG{TrID: 11, Status: "NLN"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, wire.ErrTimeout))
}

func TestTrackerNextTrIDIncrements(t *testing.T) {
	_, b, writer := newTestConn(t)
	tracker := NewTracker(b, writer, time.Second)

	first := tracker.NextTrID()
	second := tracker.NextTrID()
	assert.Equal(t, first+1, second)
}

// errServerEncodable writes a raw numeric server-error line, standing in
// for a scripted server reply.
type errServerEncodable struct {
	trid uint32
	code int
}

func (e errServerEncodable) ID() string                    { return "" }
func (e errServerEncodable) TransactionID() (uint32, bool) { return e.trid, true }
func (e errServerEncodable) Encode() (string, []byte) {
	return fmt.Sprintf("%d %d", e.code, e.trid), nil
}
