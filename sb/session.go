// Package sb implements the switchboard client: the per-session TCP
// connection an instant-message conversation runs over, created either by
// an outbound call or by answering an inbound invitation.
package sb

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mk6i/go-msnp12/config"
	"github.com/mk6i/go-msnp12/events"
	"github.com/mk6i/go-msnp12/state"
	"github.com/mk6i/go-msnp12/transaction"
	"github.com/mk6i/go-msnp12/transport"
	"github.com/mk6i/go-msnp12/wire"
)

// Session owns one switchboard connection: its member roster, the send-rate
// limiter guarding outbound MSG traffic, and the background loop that
// applies JOI/BYE/MSG/UUX to the object model and the event bus.
type Session struct {
	cfg     config.Config
	logger  *slog.Logger
	bus     *events.Bus
	limiter *rate.Limiter

	conn        net.Conn
	writer      *wire.CommandWriter
	broadcaster *transaction.Broadcaster
	tracker     *transaction.Tracker

	sessionID string
	localUser string

	mu            sync.RWMutex
	members       map[string]string // login name -> nickname
	closed        bool
	cancelRun     context.CancelFunc
	dispatchUnsub func()

	memberChanged chan struct{}
}

func newSession(cfg config.Config, conn net.Conn, sessionID, localUser string, bus *events.Bus, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	framer := wire.NewLineFramer(conn, conn)
	reader := wire.NewCommandReader(framer, logger)
	writer := wire.NewCommandWriter(framer)
	broadcaster := transaction.NewBroadcaster(reader, logger)
	tracker := transaction.NewTracker(broadcaster, writer, cfg.ReplyTimeout)

	return &Session{
		cfg:           cfg,
		logger:        logger,
		bus:           bus,
		limiter:       rate.NewLimiter(rate.Limit(cfg.SendRatePerSecond), cfg.SendBurst),
		conn:          conn,
		writer:        writer,
		broadcaster:   broadcaster,
		tracker:       tracker,
		sessionID:     sessionID,
		localUser:     localUser,
		members:       make(map[string]string),
		memberChanged: make(chan struct{}, 1),
	}
}

// notifyMemberChanged wakes any goroutine waiting in Invite for the member
// table to change, without blocking if nobody is listening yet.
func (s *Session) notifyMemberChanged() {
	select {
	case s.memberChanged <- struct{}{}:
	default:
	}
}

// Dial opens an outbound switchboard call: USR to present the session
// ticket, then CAL to invite remoteLoginName. The session is not usable
// (cannot send) until at least one JOI arrives; callers should wait for a
// ParticipantJoined event or use Members() to poll.
func Dial(ctx context.Context, cfg config.Config, dialer transport.Dialer, addr, localLoginName, ticket, remoteLoginName string, bus *events.Bus, logger *slog.Logger) (*Session, error) {
	conn, err := dialer.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	sessionID := fmt.Sprintf("%s|%s", localLoginName, remoteLoginName)
	s := newSession(cfg, conn, sessionID, localLoginName, bus, logger)
	s.run()

	// Subscribe before issuing CAL: the server can send JOI the instant it
	// answers CAL with RINGING, and dispatchLoop must already be consuming
	// so that first join is never dropped.
	dispatchSub, dispatchUnsub := s.broadcaster.Subscribe(false, cfg.BacklogPerSub)
	s.dispatchUnsub = dispatchUnsub
	go s.dispatchLoop(dispatchSub)

	usrTrID := s.tracker.NextTrID()
	if _, err := s.tracker.SendAndAwait(ctx, &wire.USRSBRequest{TrID: usrTrID, LoginName: localLoginName, Ticket: ticket}); err != nil {
		s.Close()
		return nil, err
	}

	calTrID := s.tracker.NextTrID()
	reply, err := s.tracker.SendAndAwait(ctx, &wire.CALRequest{TrID: calTrID, LoginName: remoteLoginName})
	if err != nil {
		s.Close()
		return nil, err
	}
	cal, ok := reply.(*wire.CALReply)
	if !ok {
		s.Close()
		return nil, fmt.Errorf("%w: unexpected reply to CAL: %T", wire.ErrProtocol, reply)
	}
	s.sessionID = cal.SessionID

	return s, nil
}

// Answer opens an inbound switchboard session from an RNG invitation: ANS
// presents the auth string and session id, then the IRO burst enumerates
// already-present participants before ANS is acknowledged.
func Answer(ctx context.Context, cfg config.Config, dialer transport.Dialer, inv *state.Invitation, localLoginName string, bus *events.Bus, logger *slog.Logger) (*Session, error) {
	conn, err := dialer.Dial(ctx, inv.Addr)
	if err != nil {
		return nil, err
	}
	s := newSession(cfg, conn, inv.SessionID, localLoginName, bus, logger)
	s.run()

	sub, unsub := s.broadcaster.Subscribe(true, cfg.BacklogPerSub)

	ansTrID := s.tracker.NextTrID()
	if err := s.writer.Write(&wire.ANSRequest{TrID: ansTrID, LoginName: localLoginName, AuthString: inv.AuthString, SessionID: inv.SessionID}); err != nil {
		unsub()
		s.Close()
		return nil, err
	}

	for {
		cmd, err := awaitOne(ctx, sub, cfg.ReplyTimeout)
		if err != nil {
			unsub()
			s.Close()
			return nil, err
		}
		switch v := cmd.(type) {
		case *wire.IRO:
			s.mu.Lock()
			s.members[v.LoginName] = v.Nickname
			s.mu.Unlock()
			s.publish(events.ParticipantJoined{SessionID: s.sessionID, LoginName: v.LoginName, Nickname: v.Nickname})
		case *wire.ANSReply:
			unsub()
			dispatchSub, dispatchUnsub := s.broadcaster.Subscribe(false, cfg.BacklogPerSub)
			s.dispatchUnsub = dispatchUnsub
			go s.dispatchLoop(dispatchSub)
			return s, nil
		case *wire.ServerError:
			unsub()
			s.Close()
			return nil, v
		default:
			s.logger.Debug("ignoring unexpected command while answering invitation", "id", cmd.ID())
		}
	}
}

func (s *Session) run() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelRun = cancel
	go func() {
		err := s.broadcaster.Run(ctx)
		s.mu.RLock()
		closed := s.closed
		s.mu.RUnlock()
		if !closed {
			s.publish(events.SessionClosed{SessionID: s.sessionID, Err: err})
			s.Close()
		}
	}()
}

// SessionID returns the switchboard's session identifier.
func (s *Session) SessionID() string { return s.sessionID }

// LocalUser returns the login name this session authenticated as.
func (s *Session) LocalUser() string { return s.localUser }

// Members returns a snapshot of the currently joined non-local participants
// (login name to nickname).
func (s *Session) Members() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.members))
	for k, v := range s.members {
		out[k] = v
	}
	return out
}

// Close shuts down the session's connection and background loop. Safe to
// call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	dispatchUnsub := s.dispatchUnsub
	s.mu.Unlock()

	if dispatchUnsub != nil {
		dispatchUnsub()
	}
	if s.cancelRun != nil {
		s.cancelRun()
	}
	_ = s.conn.Close()
}

func awaitOne(ctx context.Context, sub <-chan wire.Command, timeout time.Duration) (wire.Command, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case cmd, ok := <-sub:
		if !ok {
			return nil, fmt.Errorf("%w: switchboard connection closed", wire.ErrTransport)
		}
		return cmd, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: waiting for switchboard reply", wire.ErrTimeout)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", wire.ErrCancelled, ctx.Err())
	}
}
