// Package transaction fans out decoded commands from a single connection
// to any number of consumers, and correlates an outbound command with its
// reply by transaction id.
package transaction

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mk6i/go-msnp12/wire"
)

// Broadcaster runs the single reader loop for a connection and distributes
// every decoded command to each current subscriber. Regular subscribers
// have a bounded queue and are dropped-from (with a logged warning) on
// overflow; critical subscribers (used by Tracker) are never dropped, since
// missing a reply would strand a caller on a timeout instead of a fast
// failure.
type Broadcaster struct {
	reader *wire.CommandReader
	logger *slog.Logger

	mu   sync.Mutex
	subs map[string]*subscription
}

type subscription struct {
	ch       chan wire.Command
	critical bool
}

// NewBroadcaster builds a broadcaster reading commands off reader. A nil
// logger disables overflow-drop logging.
func NewBroadcaster(reader *wire.CommandReader, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Broadcaster{
		reader: reader,
		logger: logger,
		subs:   make(map[string]*subscription),
	}
}

// Subscribe registers a new consumer and returns its channel and a cancel
// function that unregisters it. backlog bounds the channel depth for a
// non-critical subscriber; it is ignored for critical ones.
func (b *Broadcaster) Subscribe(critical bool, backlog int) (<-chan wire.Command, func()) {
	if critical {
		backlog = 1 // delivery blocks the broadcaster rather than dropping
	} else if backlog <= 0 {
		backlog = 64
	}

	id := uuid.NewString()
	sub := &subscription{ch: make(chan wire.Command, backlog), critical: critical}

	b.mu.Lock()
	b.subs[id] = sub
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		close(sub.ch)
	}
	return sub.ch, cancel
}

// Run reads commands until the connection fails, dispatching each to every
// current subscriber. It returns the terminal error: the reader's error
// (wrapping wire.ErrTransport or wire.ErrProtocol) when the connection
// fails, or one wrapping wire.ErrCancelled once ctx is done.
func (b *Broadcaster) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", wire.ErrCancelled, err)
		}

		cmd, err := b.reader.Next()
		if err != nil {
			return err
		}
		b.dispatch(cmd)
	}
}

// dispatch holds the broadcaster's lock for the whole delivery pass, so a
// concurrent cancel (which also takes the lock to delete and close a
// subscription's channel) can never race a send on that same channel.
func (b *Broadcaster) dispatch(cmd wire.Command) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.subs {
		if s.critical {
			s.ch <- cmd
			continue
		}
		select {
		case s.ch <- cmd:
		default:
			b.logger.Warn("dropping command for slow subscriber", "command", cmd.ID())
		}
	}
}
