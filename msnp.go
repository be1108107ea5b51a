// Package msnp is the library's top-level facade: it composes the
// notification client and the switchboard client behind the object model
// described in the design (a local user, contacts, groups, and IM
// sessions), so a caller drives one Client instead of wiring ns and sb
// together itself.
package msnp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mk6i/go-msnp12/auth"
	"github.com/mk6i/go-msnp12/config"
	"github.com/mk6i/go-msnp12/events"
	"github.com/mk6i/go-msnp12/ns"
	"github.com/mk6i/go-msnp12/sb"
	"github.com/mk6i/go-msnp12/state"
	"github.com/mk6i/go-msnp12/transport"
	"github.com/mk6i/go-msnp12/wire"
)

// Client is the library's entry point: one notification-server connection
// plus every switchboard session it has opened or answered.
type Client struct {
	cfg    config.Config
	dialer transport.Dialer
	bus    *events.Bus
	logger *slog.Logger

	ns *ns.Client

	mu       sync.Mutex
	sessions map[string]*sb.Session
}

// New builds a Client. dialer and logger may be nil, falling back to a
// direct TCP dialer and a discarding logger respectively.
func New(cfg config.Config, dialer transport.Dialer, authn auth.Authenticator, logger *slog.Logger) *Client {
	if dialer == nil {
		dialer = &transport.TCPDialer{}
	}
	bus := events.NewBus(logger)
	c := &Client{
		cfg:      cfg,
		dialer:   dialer,
		bus:      bus,
		logger:   logger,
		ns:       ns.New(cfg, dialer, authn, bus, logger),
		sessions: make(map[string]*sb.Session),
	}
	go c.reapClosedSessions()
	return c
}

// reapClosedSessions removes a switchboard session from the tracked set
// once it reports itself closed, so Session/Logout never hand back a dead
// connection.
func (c *Client) reapClosedSessions() {
	evts, cancel := c.bus.Subscribe(32)
	defer cancel()
	for evt := range evts {
		if closed, ok := evt.(events.SessionClosed); ok {
			c.mu.Lock()
			delete(c.sessions, closed.SessionID)
			c.mu.Unlock()
		}
	}
}

// Subscribe registers a new observer of every event this client (and its
// switchboard sessions) publishes.
func (c *Client) Subscribe(backlog int) (<-chan events.Event, func()) {
	return c.bus.Subscribe(backlog)
}

// Login authenticates to the notification server and runs the roster sync.
func (c *Client) Login(ctx context.Context, loginName, password string) error {
	return c.ns.Login(ctx, loginName, password)
}

// Logout closes the notification connection and every open switchboard
// session.
func (c *Client) Logout() {
	c.mu.Lock()
	sessions := make([]*sb.Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	c.sessions = make(map[string]*sb.Session)
	c.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	c.ns.Logout()
}

// LocalUser returns the authenticated account, valid only after Login.
func (c *Client) LocalUser() *state.LocalUser { return c.ns.LocalUser() }

// Roster returns the contact/group tables, valid only after Login.
func (c *Client) Roster() *state.Roster { return c.ns.Roster() }

// ChangeStatus, ChangeNickname, contact/group CRUD, and Block/Unblock are
// forwarded directly to the underlying notification client; see ns.Client
// for their documentation.
func (c *Client) ChangeStatus(ctx context.Context, status string) error {
	return c.ns.ChangeStatus(ctx, status)
}

func (c *Client) ChangeNickname(ctx context.Context, nickname string) error {
	return c.ns.ChangeNickname(ctx, nickname)
}

func (c *Client) ChangePersonalMessage(ctx context.Context, msg string) error {
	return c.ns.ChangePersonalMessage(ctx, msg)
}

func (c *Client) AddContact(ctx context.Context, loginName, groupGUID string) (string, error) {
	return c.ns.AddContact(ctx, loginName, groupGUID)
}

func (c *Client) RemoveContact(ctx context.Context, contact *state.Contact) error {
	return c.ns.RemoveContact(ctx, contact)
}

func (c *Client) Block(ctx context.Context, contact *state.Contact) error {
	return c.ns.Block(ctx, contact)
}

func (c *Client) Unblock(ctx context.Context, contact *state.Contact) error {
	return c.ns.Unblock(ctx, contact)
}

func (c *Client) AddGroup(ctx context.Context, name string) (*state.Group, error) {
	return c.ns.AddGroup(ctx, name)
}

func (c *Client) RemoveGroup(ctx context.Context, group *state.Group) error {
	return c.ns.RemoveGroup(ctx, group)
}

func (c *Client) RenameGroup(ctx context.Context, group *state.Group, name string) error {
	return c.ns.RenameGroup(ctx, group, name)
}

// StartIMSession requests a fresh switchboard from the notification server
// and calls remoteLoginName into it.
func (c *Client) StartIMSession(ctx context.Context, remoteLoginName string) (*sb.Session, error) {
	addr, ticket, err := c.ns.RequestSwitchboard(ctx)
	if err != nil {
		return nil, err
	}
	localUser := c.ns.LocalUser()
	if localUser == nil {
		return nil, fmt.Errorf("%w: StartIMSession called before a successful Login", wire.ErrProtocol)
	}
	session, err := sb.Dial(ctx, c.cfg, c.dialer, addr, localUser.LoginName(), ticket, remoteLoginName, c.bus, c.logger)
	if err != nil {
		return nil, err
	}
	c.trackSession(session)
	return session, nil
}

// AcceptInvitation answers a pending RNG invitation previously surfaced as
// events.InvitedToIMSession and held in the notification client's
// invitation store, joining its
// switchboard.
func (c *Client) AcceptInvitation(ctx context.Context, sessionID string) (*sb.Session, error) {
	inv, ok := c.ns.Invitations().Take(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: no pending invitation for session %s", wire.ErrProtocol, sessionID)
	}
	localUser := c.ns.LocalUser()
	if localUser == nil {
		return nil, fmt.Errorf("%w: AcceptInvitation called before a successful Login", wire.ErrProtocol)
	}
	session, err := sb.Answer(ctx, c.cfg, c.dialer, inv, localUser.LoginName(), c.bus, c.logger)
	if err != nil {
		return nil, err
	}
	c.trackSession(session)
	return session, nil
}

// RejectInvitation discards a pending RNG invitation without joining its
// switchboard.
func (c *Client) RejectInvitation(sessionID string) {
	c.ns.Invitations().Take(sessionID)
}

func (c *Client) trackSession(s *sb.Session) {
	c.mu.Lock()
	c.sessions[s.SessionID()] = s
	c.mu.Unlock()
}

// Session returns a previously started or accepted switchboard session by
// id, if still open.
func (c *Client) Session(sessionID string) (*sb.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[sessionID]
	return s, ok
}
