package transaction

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mk6i/go-msnp12/wire"
)

// Tracker assigns transaction ids and correlates an outbound command with
// its reply, subscribing to the broadcaster before the command is written
// so a fast reply can never arrive before the subscription exists.
type Tracker struct {
	broadcaster *Broadcaster
	writer      *wire.CommandWriter
	timeout     time.Duration
	next        atomic.Uint32
}

// NewTracker builds a tracker that writes through writer and watches
// broadcaster for replies, waiting up to timeout for each one.
func NewTracker(broadcaster *Broadcaster, writer *wire.CommandWriter, timeout time.Duration) *Tracker {
	return &Tracker{broadcaster: broadcaster, writer: writer, timeout: timeout}
}

// NextTrID returns the next transaction id in sequence, starting at 1.
func (t *Tracker) NextTrID() uint32 {
	return t.next.Add(1)
}

// SendAndAwait writes cmd and waits for the first subsequent command
// bearing the same transaction id, translating a matching ServerError into
// a returned error. cmd must already carry the transaction id to match on.
func (t *Tracker) SendAndAwait(ctx context.Context, cmd wire.Encodable) (wire.Command, error) {
	trid, ok := cmd.TransactionID()
	if !ok {
		return nil, fmt.Errorf("%w: command %s has no transaction id to track", wire.ErrProtocol, cmd.ID())
	}

	ch, cancel := t.broadcaster.Subscribe(true, 0)
	defer cancel()

	if err := t.writer.Write(cmd); err != nil {
		return nil, err
	}

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()

	for {
		select {
		case reply, ok := <-ch:
			if !ok {
				return nil, fmt.Errorf("%w: connection closed while awaiting trid %d", wire.ErrTransport, trid)
			}
			replyTrID, hasTrID := reply.TransactionID()
			if !hasTrID || replyTrID != trid {
				continue
			}
			if serverErr, isServerErr := reply.(*wire.ServerError); isServerErr {
				return nil, serverErr
			}
			return reply, nil
		case <-timer.C:
			return nil, fmt.Errorf("%w: trid %d", wire.ErrTimeout, trid)
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", wire.ErrCancelled, ctx.Err())
		}
	}
}
