package sb

import (
	"context"
	"errors"
	"fmt"

	"github.com/mk6i/go-msnp12/events"
	"github.com/mk6i/go-msnp12/wire"
)

// SendMessage encodes contentType/extraHeaders/body as a MIME-ish MSG
// payload and writes it with the given delivery class ("A" acknowledged,
// "U" unacknowledged, "N" notification). It blocks on the session's
// send-rate limiter before acquiring the connection's single-writer lock,
// so a caller-side burst throttles instead of corrupting framing.
//
// Class "A" waits for the matching ACK/NAK; on NAK or timeout it publishes
// events.DeliveryFailed and returns the error. Other classes return once
// the write succeeds.
func (s *Session) SendMessage(ctx context.Context, class, contentType string, extraHeaders map[string]string, body []byte) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	payload := encodeMessage(contentType, extraHeaders, body)
	trid := s.tracker.NextTrID()
	msg := &wire.MSGOut{TrID: trid, Class: class, Payload: payload}

	if class != "A" {
		return s.writer.Write(msg)
	}

	reply, err := s.tracker.SendAndAwait(ctx, msg)
	if err != nil {
		if errors.Is(err, wire.ErrTimeout) {
			s.publish(events.DeliveryFailed{SessionID: s.sessionID, TrID: trid, Err: err})
		}
		return err
	}
	if _, ok := reply.(*wire.NAK); ok {
		err := fmt.Errorf("%w: switchboard rejected message %d", wire.ErrProtocol, trid)
		s.publish(events.DeliveryFailed{SessionID: s.sessionID, TrID: trid, Err: err})
		return err
	}
	return nil
}

// SendText is a convenience wrapper for the common acknowledged plain-text
// case.
func (s *Session) SendText(ctx context.Context, body string) error {
	headers := map[string]string{"X-MMS-IM-Format": "FN=Segoe%20UI; EF=; CO=0; CS=0; PF=0"}
	return s.SendMessage(ctx, "A", "text/plain; charset=UTF-8", headers, []byte(body))
}

// SendTypingNotification sends the fire-and-forget control message a
// conversation partner's client renders as "is typing...".
func (s *Session) SendTypingNotification(ctx context.Context) error {
	headers := map[string]string{"TypingUser": s.localUser}
	return s.SendMessage(ctx, "U", "text/x-msmsgscontrol", headers, []byte{0})
}

// Invite asks the switchboard to pull another user into this session and
// waits for the resulting JOI, bounded by cfg.JoinTimeout.
func (s *Session) Invite(ctx context.Context, loginName string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.JoinTimeout)
	defer cancel()

	trid := s.tracker.NextTrID()
	reply, err := s.tracker.SendAndAwait(ctx, &wire.CALRequest{TrID: trid, LoginName: loginName})
	if err != nil {
		return err
	}
	if _, ok := reply.(*wire.CALReply); !ok {
		return fmt.Errorf("%w: unexpected reply to CAL: %T", wire.ErrProtocol, reply)
	}

	for {
		s.mu.RLock()
		_, joined := s.members[loginName]
		s.mu.RUnlock()
		if joined {
			return nil
		}
		select {
		case <-s.memberChanged:
		case <-ctx.Done():
			return fmt.Errorf("%w: waiting for %s to join", wire.ErrTimeout, loginName)
		}
	}
}
