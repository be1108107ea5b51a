package sb

import (
	"github.com/mk6i/go-msnp12/events"
	"github.com/mk6i/go-msnp12/wire"
)

// dispatchLoop applies every command the session's dispatch subscription
// yields to the member roster and the event bus, until the channel closes
// (connection gone) or carries a ServerError. Like every subscriber it also
// receives the replies SendAndAwait correlates on its own subscription
// (ACK/NAK and handshake replies); handleUnsolicited ignores those.
func (s *Session) dispatchLoop(sub <-chan wire.Command) {
	for cmd := range sub {
		s.handleUnsolicited(cmd)
	}
}

func (s *Session) handleUnsolicited(cmd wire.Command) {
	switch v := cmd.(type) {
	case *wire.JOI:
		s.mu.Lock()
		s.members[v.LoginName] = v.Nickname
		s.mu.Unlock()
		s.notifyMemberChanged()
		s.publish(events.ParticipantJoined{SessionID: s.sessionID, LoginName: v.LoginName, Nickname: v.Nickname})

	case *wire.BYE:
		s.mu.Lock()
		delete(s.members, v.LoginName)
		empty := len(s.members) == 0
		s.mu.Unlock()
		s.notifyMemberChanged()
		s.publish(events.ParticipantLeft{SessionID: s.sessionID, LoginName: v.LoginName})
		if empty {
			s.publish(events.SessionClosed{SessionID: s.sessionID})
			s.Close()
		}

	case *wire.MSGIn:
		msg := decodeMessage(v.Payload)
		s.publish(events.MessageReceived{
			SessionID:   s.sessionID,
			Sender:      v.Sender,
			Nickname:    v.Nickname,
			ContentType: msg.ContentType,
			Payload:     msg.Body,
		})

	case *wire.UUX:
		s.logger.Debug("received out-of-band switchboard payload", "bytes", len(v.Payload))

	case *wire.ACK, *wire.NAK:
		// Correlated directly by SendMessage's own tracker.SendAndAwait call;
		// nothing to do here.

	case *wire.ServerError:
		s.publish(events.SessionClosed{SessionID: s.sessionID, Err: v})
		s.Close()

	default:
		s.logger.Debug("unhandled switchboard command", "id", cmd.ID())
	}
}

func (s *Session) publish(evt events.Event) {
	if s.bus != nil {
		s.bus.Publish(evt)
	}
}
