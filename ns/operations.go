package ns

import (
	"context"
	"fmt"
	"strings"

	"github.com/mk6i/go-msnp12/state"
	"github.com/mk6i/go-msnp12/wire"
)

// ChangeStatus sets the local user's presence status (NLN, BSY, IDL, BRB,
// AWY, PHN, LUN, or HDN to appear offline while remaining connected).
func (c *Client) ChangeStatus(ctx context.Context, status string) error {
	_, tracker := c.writerAndTracker()
	_, err := tracker.SendAndAwait(ctx, &wire.CHG{TrID: tracker.NextTrID(), Status: status})
	if err != nil {
		return err
	}
	c.LocalUser().SetStatus(status)
	return nil
}

// ChangeNickname updates the local user's display name via PRP MFN.
func (c *Client) ChangeNickname(ctx context.Context, nickname string) error {
	_, tracker := c.writerAndTracker()
	_, err := tracker.SendAndAwait(ctx, &wire.PRP{TrID: tracker.NextTrID(), HasTrID: true, Type: "MFN", Value: nickname})
	if err != nil {
		return err
	}
	c.LocalUser().SetNickname(nickname)
	return nil
}

// ChangePersonalMessage updates the personal status message shown beside
// the local user's nickname, via a UUX carrying the PSM XML blob.
func (c *Client) ChangePersonalMessage(ctx context.Context, msg string) error {
	_, tracker := c.writerAndTracker()
	payload := []byte(fmt.Sprintf("<Data><PSM>%s</PSM><CurrentMedia></CurrentMedia></Data>", escapePSM(msg)))
	_, err := tracker.SendAndAwait(ctx, &wire.UUX{TrID: tracker.NextTrID(), Payload: payload})
	if err != nil {
		return err
	}
	c.LocalUser().SetPersonalMessage(msg)
	return nil
}

func escapePSM(msg string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return replacer.Replace(msg)
}

// AddContact adds loginName to the forward list, optionally into group.
// It returns the server-assigned contact guid.
func (c *Client) AddContact(ctx context.Context, loginName, groupGUID string) (string, error) {
	_, tracker := c.writerAndTracker()
	cmd := &wire.ADC{TrID: tracker.NextTrID(), List: "FL", LoginName: loginName, GroupGUID: groupGUID}
	reply, err := tracker.SendAndAwait(ctx, cmd)
	if err != nil {
		return "", err
	}
	adc, ok := reply.(*wire.ADC)
	if !ok {
		return "", fmt.Errorf("%w: unexpected reply to ADC: %T", wire.ErrProtocol, reply)
	}

	contact := state.NewContact(loginName, adc.ContactGUID)
	contact.AddList(state.ListForward)
	if groupGUID != "" {
		contact.AddGroup(groupGUID)
	}
	c.Roster().PutContact(contact)
	return adc.ContactGUID, nil
}

// RemoveContact removes contact from the forward list entirely.
func (c *Client) RemoveContact(ctx context.Context, contact *state.Contact) error {
	_, tracker := c.writerAndTracker()
	cmd := &wire.REM{TrID: tracker.NextTrID(), List: "FL", ContactGUID: contact.GUID}
	if _, err := tracker.SendAndAwait(ctx, cmd); err != nil {
		return err
	}
	c.Roster().RemoveContact(contact.LoginName)
	return nil
}

// Block moves contact onto the block list and off the allow list.
func (c *Client) Block(ctx context.Context, contact *state.Contact) error {
	if err := c.addToList(ctx, contact, "BL"); err != nil {
		return err
	}
	if contact.HasList(state.ListAllow) {
		if err := c.removeFromList(ctx, contact, "AL"); err != nil {
			return err
		}
	}
	return nil
}

// Unblock moves contact onto the allow list and off the block list.
func (c *Client) Unblock(ctx context.Context, contact *state.Contact) error {
	if err := c.addToList(ctx, contact, "AL"); err != nil {
		return err
	}
	if contact.HasList(state.ListBlock) {
		if err := c.removeFromList(ctx, contact, "BL"); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) addToList(ctx context.Context, contact *state.Contact, list string) error {
	_, tracker := c.writerAndTracker()
	cmd := &wire.ADC{TrID: tracker.NextTrID(), List: list, ContactGUID: contact.GUID}
	if _, err := tracker.SendAndAwait(ctx, cmd); err != nil {
		return err
	}
	contact.AddList(listBit(list))
	return nil
}

func (c *Client) removeFromList(ctx context.Context, contact *state.Contact, list string) error {
	_, tracker := c.writerAndTracker()
	cmd := &wire.REM{TrID: tracker.NextTrID(), List: list, ContactGUID: contact.GUID}
	if _, err := tracker.SendAndAwait(ctx, cmd); err != nil {
		return err
	}
	contact.RemoveList(listBit(list))
	return nil
}

func listBit(list string) int {
	switch list {
	case "FL":
		return state.ListForward
	case "AL":
		return state.ListAllow
	case "BL":
		return state.ListBlock
	case "RL":
		return state.ListReverse
	case "PL":
		return state.ListPending
	default:
		return 0
	}
}

// AddGroup creates a new roster group.
func (c *Client) AddGroup(ctx context.Context, name string) (*state.Group, error) {
	_, tracker := c.writerAndTracker()
	reply, err := tracker.SendAndAwait(ctx, &wire.ADGRequest{TrID: tracker.NextTrID(), Name: name})
	if err != nil {
		return nil, err
	}
	adg, ok := reply.(*wire.ADGReply)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected reply to ADG: %T", wire.ErrProtocol, reply)
	}
	group := state.NewGroup(adg.GUID, adg.Name)
	c.Roster().PutGroup(group)
	return group, nil
}

// RemoveGroup deletes group and every contact's membership in it.
func (c *Client) RemoveGroup(ctx context.Context, group *state.Group) error {
	_, tracker := c.writerAndTracker()
	if _, err := tracker.SendAndAwait(ctx, &wire.RMG{TrID: tracker.NextTrID(), GUID: group.GUID}); err != nil {
		return err
	}
	roster := c.Roster()
	roster.RemoveGroup(group.GUID)
	for _, contact := range roster.Contacts() {
		contact.RemoveGroup(group.GUID)
	}
	return nil
}

// RenameGroup changes group's display name.
func (c *Client) RenameGroup(ctx context.Context, group *state.Group, name string) error {
	_, tracker := c.writerAndTracker()
	cmd := &wire.REG{TrID: tracker.NextTrID(), GUID: group.GUID, Name: name}
	if _, err := tracker.SendAndAwait(ctx, cmd); err != nil {
		return err
	}
	group.SetName(name)
	return nil
}

// RequestSwitchboard asks the notification server for a fresh switchboard
// to open a new IM session, returning its address and the session ticket
// the sb package presents in its own USR.
func (c *Client) RequestSwitchboard(ctx context.Context) (addr, ticket string, err error) {
	_, tracker := c.writerAndTracker()
	reply, err := tracker.SendAndAwait(ctx, &wire.XFRRequest{TrID: tracker.NextTrID(), Service: "SB"})
	if err != nil {
		return "", "", err
	}
	xfr, ok := reply.(*wire.XFRReply)
	if !ok || xfr.Service != "SB" {
		return "", "", fmt.Errorf("%w: unexpected reply to XFR SB: %T", wire.ErrProtocol, reply)
	}
	return xfr.Addr, xfr.Extra, nil
}
