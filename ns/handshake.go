package ns

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/mk6i/go-msnp12/state"
	"github.com/mk6i/go-msnp12/transaction"
	"github.com/mk6i/go-msnp12/wire"
)

// handshake runs the full login sequence over the current connection,
// reading only from sub (a dedicated, not-yet-shared subscription). It
// returns a non-empty redirect address if the server handed back an XFR NS
// hop, in which case the caller reconnects and calls handshake again from
// scratch.
func (c *Client) handshake(ctx context.Context, sub <-chan wire.Command, loginName, password string) (string, error) {
	writer, tracker := c.writerAndTracker()

	if err := writer.Write(&wire.VER{TrID: tracker.NextTrID(), Versions: []string{"MSNP12"}}); err != nil {
		return "", err
	}
	if _, err := c.awaitID(ctx, sub, "VER"); err != nil {
		return "", err
	}

	cvrTrID := tracker.NextTrID()
	cvr := &wire.CVRRequest{
		TrID:          cvrTrID,
		Locale:        "0x0409",
		OSType:        "winnt",
		OSVersion:     "5.1",
		Arch:          "i386",
		LibName:       "MSNP12",
		ClientName:    "msnmsgr",
		ClientVersion: "7.0.0425",
		LoginName:     loginName,
	}
	if err := writer.Write(cvr); err != nil {
		return "", err
	}
	if _, err := c.awaitID(ctx, sub, "CVR"); err != nil {
		return "", err
	}

	usrTrID := tracker.NextTrID()
	if err := writer.Write(&wire.USRTWNI{TrID: usrTrID, LoginName: loginName}); err != nil {
		return "", err
	}
	reply, err := c.awaitAny(ctx, sub, "USR", "XFR")
	if err != nil {
		return "", err
	}
	var policy string
	switch v := reply.(type) {
	case *wire.XFRReply:
		if v.Service != "NS" {
			return "", fmt.Errorf("%w: unexpected XFR service %q during login", wire.ErrProtocol, v.Service)
		}
		return v.Addr, nil
	case *wire.USRTWNS:
		policy = v.Value
	default:
		return "", fmt.Errorf("%w: unexpected reply to USR TWN I: %T", wire.ErrProtocol, reply)
	}

	ticket, err := c.authn.Authenticate(ctx, loginName, password, policy)
	if err != nil {
		return "", err
	}

	ticketTrID := tracker.NextTrID()
	if err := writer.Write(&wire.USRTWNS{TrID: ticketTrID, Value: ticket}); err != nil {
		return "", err
	}
	okReply, err := c.awaitID(ctx, sub, "USR")
	if err != nil {
		return "", err
	}
	if _, ok := okReply.(*wire.USRNSOK); !ok {
		return "", fmt.Errorf("%w: unexpected reply to USR TWN S: %T", wire.ErrProtocol, okReply)
	}

	chl, err := awaitType(c, ctx, sub, func(cmd wire.Command) (*wire.CHL, bool) {
		v, ok := cmd.(*wire.CHL)
		return v, ok
	})
	if err != nil {
		return "", err
	}
	if err := c.answerChallenge(writer, tracker, chl); err != nil {
		return "", err
	}

	synTrID := tracker.NextTrID()
	if err := writer.Write(&wire.SYNRequest{TrID: synTrID, ListVersion: "0", GroupVersion: "0"}); err != nil {
		return "", err
	}
	synAny, err := c.awaitID(ctx, sub, "SYN")
	if err != nil {
		return "", err
	}
	synReply, ok := synAny.(*wire.SYNReply)
	if !ok {
		return "", fmt.Errorf("%w: unexpected reply to SYN: %T", wire.ErrProtocol, synAny)
	}

	roster, err := c.readSyncBurst(ctx, sub, synReply.ContactCount+synReply.GroupCount)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.roster = roster
	c.mu.Unlock()

	chgTrID := tracker.NextTrID()
	if err := writer.Write(&wire.CHG{TrID: chgTrID, Status: "NLN"}); err != nil {
		return "", err
	}
	if _, err := c.awaitID(ctx, sub, "CHG"); err != nil {
		return "", err
	}

	return "", nil
}

func (c *Client) writerAndTracker() (*wire.CommandWriter, *transaction.Tracker) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.writer, c.tracker
}

// answerChallenge computes the MD5 hash of the challenge string and the
// product key and replies with QRY. No distinct acknowledgment is expected
// for QRY itself; the next command in the handshake proves it worked.
func (c *Client) answerChallenge(writer *wire.CommandWriter, tracker *transaction.Tracker, chl *wire.CHL) error {
	sum := md5.Sum([]byte(chl.Challenge + c.cfg.ProductKey))
	hexHash := hex.EncodeToString(sum[:])
	return writer.Write(&wire.QRY{
		TrID:     tracker.NextTrID(),
		ClientID: c.cfg.ClientID,
		Hash:     []byte(hexHash),
	})
}

// readSyncBurst consumes exactly `expected` LST/LSG lines following a SYN
// reply, building a fresh roster from them.
func (c *Client) readSyncBurst(ctx context.Context, sub <-chan wire.Command, expected int) (*state.Roster, error) {
	roster := state.NewRoster()
	received := 0
	for received < expected {
		cmd, err := awaitType(c, ctx, sub, func(cmd wire.Command) (wire.Command, bool) {
			switch cmd.(type) {
			case *wire.LST, *wire.LSG:
				return cmd, true
			default:
				return nil, false
			}
		})
		if err != nil {
			return nil, err
		}
		switch v := cmd.(type) {
		case *wire.LST:
			contact := state.NewContact(v.LoginName, v.GUID)
			contact.SetFriendlyName(v.FriendlyName)
			contact.SetListBitmask(v.ListBitmask)
			for _, g := range v.GroupGUIDs {
				contact.AddGroup(g)
			}
			roster.PutContact(contact)
		case *wire.LSG:
			roster.PutGroup(state.NewGroup(v.GUID, v.Name))
		}
		received++
	}
	return roster, nil
}

// awaitID blocks for the next command whose ID matches id, forwarding any
// other command to handleUnsolicited so stray chatter (SBS, PRP, BPR) does
// not get lost during the handshake.
func (c *Client) awaitID(ctx context.Context, sub <-chan wire.Command, id string) (wire.Command, error) {
	return awaitType(c, ctx, sub, func(cmd wire.Command) (wire.Command, bool) {
		if cmd.ID() == id {
			return cmd, true
		}
		return nil, false
	})
}

// awaitAny is awaitID generalized to a set of acceptable identifiers.
func (c *Client) awaitAny(ctx context.Context, sub <-chan wire.Command, ids ...string) (wire.Command, error) {
	return awaitType(c, ctx, sub, func(cmd wire.Command) (wire.Command, bool) {
		for _, id := range ids {
			if cmd.ID() == id {
				return cmd, true
			}
		}
		return nil, false
	})
}

// awaitType is the generic matcher underlying awaitID/awaitAny: it reads
// from sub until accept reports a match, a ServerError arrives, the
// configured reply timeout elapses, or ctx is done. Every rejected command
// is handed to handleUnsolicited. Go methods cannot declare their own type
// parameters, so this is a free function taking the client explicitly.
func awaitType[T any](c *Client, ctx context.Context, sub <-chan wire.Command, accept func(wire.Command) (T, bool)) (T, error) {
	var zero T
	timer := time.NewTimer(c.cfg.ReplyTimeout)
	defer timer.Stop()
	for {
		select {
		case cmd, ok := <-sub:
			if !ok {
				return zero, fmt.Errorf("%w: connection closed during login", wire.ErrTransport)
			}
			if serverErr, isServerErr := cmd.(*wire.ServerError); isServerErr {
				return zero, serverErr
			}
			if v, matched := accept(cmd); matched {
				return v, nil
			}
			c.handleUnsolicited(cmd)
		case <-timer.C:
			return zero, fmt.Errorf("%w: waiting for reply during login", wire.ErrTimeout)
		case <-ctx.Done():
			return zero, fmt.Errorf("%w: %v", wire.ErrCancelled, ctx.Err())
		}
	}
}
