package wire

import (
	"fmt"
	"strings"
)

func init() {
	register("CHG", decodeCHG)
	register("NLN", decodeNLN)
	register("ILN", decodeILN)
	register("FLN", decodeFLN)
	register("UBX", decodeUBX)
	register("PRP", decodePRP)
	register("SBP", decodeOpaque("SBP"))
	register("BPR", decodeBPR)
}

// CHG sets (outbound) or acknowledges (inbound reply) the local user's
// presence status. Capabilities is the client's capability bitmask encoded
// as a decimal string; it is omitted on the wire when empty.
type CHG struct {
	TrID         uint32
	Status       string
	Capabilities string
}

func (c *CHG) ID() string                    { return "CHG" }
func (c *CHG) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *CHG) Encode() (string, []byte) {
	if c.Capabilities == "" {
		return fmt.Sprintf("CHG %d %s", c.TrID, c.Status), nil
	}
	return fmt.Sprintf("CHG %d %s %s", c.TrID, c.Status, c.Capabilities), nil
}

func decodeCHG(fields []string, _ []byte) (Command, error) {
	if len(fields) < 2 {
		return nil, fmt.Errorf("CHG: expected transaction id and status")
	}
	trid, err := parseTrID(fields[0])
	if err != nil {
		return nil, err
	}
	c := &CHG{TrID: trid, Status: fields[1]}
	if len(fields) > 2 {
		c.Capabilities = fields[2]
	}
	return c, nil
}

// NLN announces that a contact has come online (or changed status while
// online). ClientID and DisplayPicture are optional trailing tokens.
type NLN struct {
	Status         string
	LoginName      string
	Nickname       string
	ClientID       string
	DisplayPicture string
}

func (c *NLN) ID() string                    { return "NLN" }
func (c *NLN) TransactionID() (uint32, bool) { return 0, false }
func (c *NLN) Encode() (string, []byte) {
	return encodeNLNLike("NLN", "", c.Status, c.LoginName, c.Nickname, c.ClientID, c.DisplayPicture), nil
}

func decodeNLN(fields []string, _ []byte) (Command, error) {
	if len(fields) < 3 {
		return nil, fmt.Errorf("NLN: expected status, login name, nickname")
	}
	c := &NLN{Status: fields[0], LoginName: fields[1], Nickname: unescapeArg(fields[2])}
	if len(fields) > 3 {
		c.ClientID = fields[3]
	}
	if len(fields) > 4 {
		c.DisplayPicture = fields[4]
	}
	return c, nil
}

// ILN is NLN's counterpart during roster synchronization: it carries the
// trid of the CHG that triggered the sync burst.
type ILN struct {
	TrID           uint32
	Status         string
	LoginName      string
	Nickname       string
	ClientID       string
	DisplayPicture string
}

func (c *ILN) ID() string                    { return "ILN" }
func (c *ILN) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *ILN) Encode() (string, []byte) {
	return encodeNLNLike("ILN", fmt.Sprintf("%d", c.TrID), c.Status, c.LoginName, c.Nickname, c.ClientID, c.DisplayPicture), nil
}

func decodeILN(fields []string, _ []byte) (Command, error) {
	if len(fields) < 4 {
		return nil, fmt.Errorf("ILN: expected transaction id, status, login name, nickname")
	}
	trid, err := parseTrID(fields[0])
	if err != nil {
		return nil, err
	}
	c := &ILN{TrID: trid, Status: fields[1], LoginName: fields[2], Nickname: unescapeArg(fields[3])}
	if len(fields) > 4 {
		c.ClientID = fields[4]
	}
	if len(fields) > 5 {
		c.DisplayPicture = fields[5]
	}
	return c, nil
}

func encodeNLNLike(id, trid, status, loginName, nickname, clientID, displayPicture string) string {
	parts := []string{id}
	if trid != "" {
		parts = append(parts, trid)
	}
	parts = append(parts, status, loginName, escapeArg(nickname))
	if clientID != "" {
		parts = append(parts, clientID)
		if displayPicture != "" {
			parts = append(parts, displayPicture)
		}
	}
	return strings.Join(parts, " ")
}

// FLN announces that a contact has gone offline.
type FLN struct {
	LoginName string
}

func (c *FLN) ID() string                    { return "FLN" }
func (c *FLN) TransactionID() (uint32, bool) { return 0, false }
func (c *FLN) Encode() (string, []byte) {
	return "FLN " + c.LoginName, nil
}

func decodeFLN(fields []string, _ []byte) (Command, error) {
	if len(fields) != 1 {
		return nil, fmt.Errorf("FLN: expected exactly one field, got %d", len(fields))
	}
	return &FLN{LoginName: fields[0]}, nil
}

// UBX carries a contact's extended status XML blob (current media,
// personal message) as an inline payload.
type UBX struct {
	LoginName string
	Payload   []byte
}

func (c *UBX) ID() string                    { return "UBX" }
func (c *UBX) TransactionID() (uint32, bool) { return 0, false }
func (c *UBX) Encode() (string, []byte) {
	return fmt.Sprintf("UBX %s %d", c.LoginName, len(c.Payload)), c.Payload
}

func decodeUBX(fields []string, payload []byte) (Command, error) {
	if len(fields) != 1 {
		return nil, fmt.Errorf("UBX: expected exactly one field, got %d", len(fields))
	}
	return &UBX{LoginName: fields[0], Payload: payload}, nil
}

// PRP sets or acknowledges a personal property, most commonly MFN (the
// local user's friendly display name). The server also sends an
// unsolicited MFN during login to announce the account's stored display
// name; that form carries no transaction id, reflected in HasTrID.
type PRP struct {
	TrID    uint32
	HasTrID bool
	Type    string
	Value   string
}

func (c *PRP) ID() string                    { return "PRP" }
func (c *PRP) TransactionID() (uint32, bool) { return c.TrID, c.HasTrID }
func (c *PRP) Encode() (string, []byte) {
	return fmt.Sprintf("PRP %d %s %s", c.TrID, c.Type, escapeArg(c.Value)), nil
}

func decodePRP(fields []string, _ []byte) (Command, error) {
	switch len(fields) {
	case 2:
		// Unsolicited form: "PRP MFN <name>", no transaction id.
		return &PRP{Type: fields[0], Value: unescapeArg(fields[1])}, nil
	case 3:
		trid, err := parseTrID(fields[0])
		if err != nil {
			return nil, err
		}
		return &PRP{TrID: trid, HasTrID: true, Type: fields[1], Value: unescapeArg(fields[2])}, nil
	default:
		return nil, fmt.Errorf("PRP: expected 2 or 3 fields, got %d", len(fields))
	}
}

// BPR carries a per-contact property line as part of the roster
// synchronization burst, immediately following a LST entry.
type BPR struct {
	Type  string
	Value string
}

func (c *BPR) ID() string                    { return "BPR" }
func (c *BPR) TransactionID() (uint32, bool) { return 0, false }
func (c *BPR) Encode() (string, []byte) {
	return fmt.Sprintf("BPR %s %s", c.Type, escapeArg(c.Value)), nil
}

func decodeBPR(fields []string, _ []byte) (Command, error) {
	if len(fields) != 2 {
		return nil, fmt.Errorf("BPR: expected type and value, got %d fields", len(fields))
	}
	return &BPR{Type: fields[0], Value: unescapeArg(fields[1])}, nil
}
