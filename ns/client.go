// Package ns implements the notification-server client: the login state
// machine, ping supervision, and dispatch of unsolicited presence, roster,
// and invitation commands into the shared object model and event bus.
package ns

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mk6i/go-msnp12/auth"
	"github.com/mk6i/go-msnp12/config"
	"github.com/mk6i/go-msnp12/events"
	"github.com/mk6i/go-msnp12/state"
	"github.com/mk6i/go-msnp12/transaction"
	"github.com/mk6i/go-msnp12/transport"
	"github.com/mk6i/go-msnp12/wire"
)

// maxRedirects bounds how many times the login sequence follows an XFR NS
// hop before giving up, guarding against a misbehaving server looping the
// client between two dispatchers forever.
const maxRedirects = 5

// Client owns a single notification-server connection across its entire
// lifecycle: dial, login handshake, background ping/dispatch loops, and
// the object-model operations that round-trip to the server.
type Client struct {
	cfg    config.Config
	dialer transport.Dialer
	authn  auth.Authenticator
	logger *slog.Logger
	bus    *events.Bus

	invitations *state.InvitationStore

	mu          sync.RWMutex
	conn        net.Conn
	framer      *wire.LineFramer
	reader      *wire.CommandReader
	writer      *wire.CommandWriter
	broadcaster *transaction.Broadcaster
	tracker     *transaction.Tracker
	localUser   *state.LocalUser
	roster      *state.Roster

	group          *errgroup.Group
	connCtx        context.Context
	connCancel     context.CancelFunc
	connErr        chan error
	pingIntervalNs atomic.Int64
	lastPongNs     atomic.Int64
}

// New builds a client for the given config, dialer, authenticator, and
// event bus. logger may be nil.
func New(cfg config.Config, dialer transport.Dialer, authn auth.Authenticator, bus *events.Bus, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		cfg:         cfg,
		dialer:      dialer,
		authn:       authn,
		logger:      logger,
		bus:         bus,
		invitations: state.NewInvitationStore(cfg.InviteTTL),
	}
}

// LocalUser returns the authenticated account, valid only after a
// successful Login.
func (c *Client) LocalUser() *state.LocalUser {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.localUser
}

// Roster returns the contact/group tables, valid only after a successful
// Login.
func (c *Client) Roster() *state.Roster {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roster
}

// Invitations returns the pending-invitation store shared with the
// RNG dispatch handler.
func (c *Client) Invitations() *state.InvitationStore {
	return c.invitations
}

// connect dials addr and wires a fresh framer/reader/writer/broadcaster/
// tracker around the connection, tearing down any previous connection
// first. The broadcaster's read loop starts immediately (under a context
// scoped to this connection) so both the login handshake and any later
// tracker.SendAndAwait call have something feeding their subscriptions.
func (c *Client) connect(ctx context.Context, addr string) error {
	c.teardown()

	conn, err := c.dialer.Dial(ctx, addr)
	if err != nil {
		return err
	}

	framer := wire.NewLineFramer(conn, conn)
	reader := wire.NewCommandReader(framer, c.logger)
	writer := wire.NewCommandWriter(framer)
	broadcaster := transaction.NewBroadcaster(reader, c.logger)
	tracker := transaction.NewTracker(broadcaster, writer, c.cfg.ReplyTimeout)

	connCtx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- broadcaster.Run(connCtx) }()

	c.mu.Lock()
	c.conn = conn
	c.framer = framer
	c.reader = reader
	c.writer = writer
	c.broadcaster = broadcaster
	c.tracker = tracker
	c.connCtx = connCtx
	c.connCancel = cancel
	c.connErr = errCh
	c.mu.Unlock()

	c.logger.Info("dialed notification server", "addr", addr)
	return nil
}

// teardown closes the current connection, if any, and stops its
// broadcaster and background loops. Safe to call when there is no current
// connection.
func (c *Client) teardown() {
	c.mu.Lock()
	conn := c.conn
	cancel := c.connCancel
	c.conn = nil
	c.connCtx = nil
	c.connCancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
}

// Login runs the full state machine (dial, VER/CVR negotiation, SSO
// handshake, challenge-response, roster sync, initial status) against the
// configured dispatch host, following any XFR NS redirects along the way.
// On success the background ping and dispatch loops are running and
// events.LoggedIn has been published.
func (c *Client) Login(ctx context.Context, loginName, password string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.LoginTimeout)
	defer cancel()

	host := c.cfg.DispatchHost
	for attempt := 0; attempt < maxRedirects; attempt++ {
		if err := c.connect(ctx, host); err != nil {
			return err
		}

		sub, unsub := c.broadcaster.Subscribe(false, c.cfg.BacklogPerSub)

		redirect, err := c.handshake(ctx, sub, loginName, password)
		unsub()
		if err != nil {
			c.teardown()
			return err
		}
		if redirect == "" {
			c.mu.Lock()
			c.localUser = state.NewLocalUser(loginName)
			c.localUser.SetStatus("NLN")
			c.mu.Unlock()
			c.startBackgroundLoops()
			if c.bus != nil {
				c.bus.Publish(events.LoggedIn{LoginName: loginName})
			}
			return nil
		}
		host = redirect
	}
	return fmt.Errorf("%w: exceeded %d notification server redirects", wire.ErrProtocol, maxRedirects)
}

// startBackgroundLoops launches the persistent dispatch and ping loops,
// supervised together (along with the connection's already-running
// broadcaster) so any one's fatal error tears down the others.
func (c *Client) startBackgroundLoops() {
	c.mu.RLock()
	connCtx := c.connCtx
	connErr := c.connErr
	c.mu.RUnlock()

	c.pingIntervalNs.Store(int64(c.cfg.PingInterval))
	c.lastPongNs.Store(time.Now().UnixNano())

	group, groupCtx := errgroup.WithContext(connCtx)
	c.group = group

	sub, unsub := c.broadcaster.Subscribe(false, c.cfg.BacklogPerSub)
	group.Go(func() error {
		defer unsub()
		return c.dispatchLoop(groupCtx, sub)
	})
	group.Go(func() error {
		select {
		case err := <-connErr:
			return err
		case <-groupCtx.Done():
			return nil
		}
	})
	group.Go(func() error {
		return c.pingLoop(groupCtx)
	})

	go func() {
		err := group.Wait()
		reason := err
		if c.bus != nil {
			c.bus.Publish(events.LoggedOut{Reason: reason})
		}
	}()
}

// Logout tears down the connection and its background loops. The caller
// still observes a LoggedOut event once the background goroutines notice
// the closed connection.
func (c *Client) Logout() {
	c.teardown()
}
