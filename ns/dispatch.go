package ns

import (
	"context"
	"fmt"
	"time"

	"github.com/mk6i/go-msnp12/events"
	"github.com/mk6i/go-msnp12/state"
	"github.com/mk6i/go-msnp12/wire"
)

// dispatchLoop consumes sub forever, applying every command to the roster/
// local-user object model and publishing the corresponding event. It
// returns when sub closes or ctx is cancelled.
func (c *Client) dispatchLoop(ctx context.Context, sub <-chan wire.Command) error {
	for {
		select {
		case cmd, ok := <-sub:
			if !ok {
				return fmt.Errorf("%w: dispatch subscription closed", wire.ErrTransport)
			}
			c.handleUnsolicited(cmd)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handleUnsolicited applies one command arriving outside of a tracked
// request/reply exchange. It is also called during the login handshake for
// every command awaitType rejects, so stray chatter is never dropped.
func (c *Client) handleUnsolicited(cmd wire.Command) {
	switch v := cmd.(type) {
	case *wire.NLN:
		c.applyPresence(v.LoginName, v.Status, v.Nickname, v.ClientID, v.DisplayPicture)
	case *wire.ILN:
		c.applyPresence(v.LoginName, v.Status, v.Nickname, v.ClientID, v.DisplayPicture)
	case *wire.FLN:
		roster := c.Roster()
		if roster == nil {
			return
		}
		contact, err := roster.Contact(v.LoginName)
		if err != nil {
			return
		}
		contact.SetStatus("FLN")
		c.publish(events.ContactStatusChanged{
			LoginName: v.LoginName,
			Status:    "FLN",
			Nickname:  contact.FriendlyName(),
		})
	case *wire.UBX:
		c.logger.Debug("received extended status blob", "loginName", v.LoginName, "bytes", len(v.Payload))
	case *wire.RNG:
		inv := &state.Invitation{
			SessionID:    v.SessionID,
			Addr:         v.Addr,
			AuthString:   v.AuthString,
			InvitingUser: v.LoginName,
			Nickname:     v.Nickname,
		}
		c.invitations.Put(inv)
		c.publish(events.InvitedToIMSession{
			SessionID:    v.SessionID,
			InvitingUser: v.LoginName,
			Nickname:     v.Nickname,
		})
	case *wire.NOT:
		c.publish(events.NotificationReceived{Payload: v.Payload})
	case *wire.OUT:
		reason := fmt.Errorf("%w: server closed connection", wire.ErrTransport)
		if v.Code == "OTH" {
			reason = fmt.Errorf("%w: signed in from another location", wire.ErrTransport)
		} else if v.Code == "SSD" {
			reason = fmt.Errorf("%w: server shutting down for maintenance", wire.ErrTransport)
		}
		c.publish(events.LoggedOut{Reason: reason})
		go c.teardown()
	case *wire.QNG:
		c.pingIntervalNs.Store(int64(time.Duration(v.UntilNext) * time.Second))
		c.lastPongNs.Store(time.Now().UnixNano())
	case *wire.PRP:
		localUser := c.LocalUser()
		if localUser == nil {
			return
		}
		switch v.Type {
		case "MFN":
			localUser.SetNickname(v.Value)
		}
	case *wire.BPR, *wire.LSG, *wire.LST:
		c.logger.Debug("ignoring roster-sync-only command outside handshake", "id", cmd.ID())
	case *wire.Opaque:
		c.logger.Debug("ignoring opaque command", "id", v.Cmd, "fields", v.Fields)
	case *wire.CHG:
		c.logger.Debug("ignoring unsolicited CHG reply", "status", v.Status)
	default:
		c.logger.Debug("unhandled command", "id", cmd.ID())
	}
}

func (c *Client) applyPresence(loginName, status, nickname, clientID, displayPicture string) {
	roster := c.Roster()
	if roster == nil {
		return
	}
	contact, err := roster.Contact(loginName)
	if err != nil {
		contact = state.NewContact(loginName, "")
		roster.PutContact(contact)
	}
	contact.SetStatus(status)
	contact.SetFriendlyName(nickname)
	if clientID != "" {
		contact.SetClientID(clientID)
	}
	if displayPicture != "" {
		contact.SetDisplayPicture(displayPicture)
	}
	c.publish(events.ContactStatusChanged{
		LoginName: loginName,
		Status:    status,
		Nickname:  nickname,
	})
}

func (c *Client) publish(evt events.Event) {
	if c.bus != nil {
		c.bus.Publish(evt)
	}
}

// pingLoop sends a PNG on the interval QNG last reported (defaulting to the
// configured PingInterval) and fails once the server has gone twice that
// interval without answering.
func (c *Client) pingLoop(ctx context.Context) error {
	writer, _ := c.writerAndTracker()

	timer := time.NewTimer(c.cfg.PingInterval)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			interval := time.Duration(c.pingIntervalNs.Load())
			if interval <= 0 {
				interval = c.cfg.PingInterval
			}
			lastPong := time.Unix(0, c.lastPongNs.Load())
			if time.Since(lastPong) > 2*interval {
				return fmt.Errorf("%w: no PNG/QNG reply within %s", wire.ErrTimeout, 2*interval)
			}
			if err := writer.Write(&wire.PNG{}); err != nil {
				return err
			}
			timer.Reset(interval)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
