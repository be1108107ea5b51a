package wire

import (
	"fmt"
	"strconv"
	"strings"
)

func init() {
	register("MSG", decodeMSG)
	register("RNG", decodeRNG)
	register("CAL", decodeCAL)
	register("ANS", decodeANS)
	register("JOI", decodeJOI)
	register("IRO", decodeIRO)
	register("BYE", decodeBYE)
	register("UUX", decodeUUX)
}

// MSGOut is a message this client sends on a switchboard. Class selects the
// delivery semantics: "U" fire-and-forget, "A" acknowledged, "N"
// notification.
type MSGOut struct {
	TrID    uint32
	Class   string
	Payload []byte
}

func (c *MSGOut) ID() string                    { return "MSG" }
func (c *MSGOut) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *MSGOut) Encode() (string, []byte) {
	return fmt.Sprintf("MSG %d %s %d", c.TrID, c.Class, len(c.Payload)), c.Payload
}

// MSGIn is a message relayed from another switchboard participant.
type MSGIn struct {
	Sender   string
	Nickname string
	Payload  []byte
}

func (c *MSGIn) ID() string                    { return "MSG" }
func (c *MSGIn) TransactionID() (uint32, bool) { return 0, false }
func (c *MSGIn) Encode() (string, []byte) {
	return fmt.Sprintf("MSG %s %s %d", c.Sender, escapeArg(c.Nickname), len(c.Payload)), c.Payload
}

func decodeMSG(fields []string, payload []byte) (Command, error) {
	if len(fields) != 2 {
		return nil, fmt.Errorf("MSG: expected 2 header fields, got %d", len(fields))
	}
	if isAllDigits(fields[0]) {
		trid, err := parseTrID(fields[0])
		if err != nil {
			return nil, err
		}
		return &MSGOut{TrID: trid, Class: fields[1], Payload: payload}, nil
	}
	return &MSGIn{Sender: fields[0], Nickname: unescapeArg(fields[1]), Payload: payload}, nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// RNG is an unsolicited invitation to join a switchboard session.
type RNG struct {
	SessionID  string
	Addr       string
	AuthString string
	LoginName  string
	Nickname   string
}

func (c *RNG) ID() string                    { return "RNG" }
func (c *RNG) TransactionID() (uint32, bool) { return 0, false }
func (c *RNG) Encode() (string, []byte) {
	return fmt.Sprintf("RNG %s %s CKI %s %s %s",
		c.SessionID, c.Addr, c.AuthString, c.LoginName, escapeArg(c.Nickname)), nil
}

func decodeRNG(fields []string, _ []byte) (Command, error) {
	if len(fields) != 6 || fields[2] != "CKI" {
		return nil, fmt.Errorf("RNG: unexpected shape")
	}
	return &RNG{
		SessionID:  fields[0],
		Addr:       fields[1],
		AuthString: fields[3],
		LoginName:  fields[4],
		Nickname:   unescapeArg(fields[5]),
	}, nil
}

// CALRequest asks the switchboard to invite another user into the session.
type CALRequest struct {
	TrID      uint32
	LoginName string
}

func (c *CALRequest) ID() string                    { return "CAL" }
func (c *CALRequest) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *CALRequest) Encode() (string, []byte) {
	return fmt.Sprintf("CAL %d %s", c.TrID, c.LoginName), nil
}

// CALReply acknowledges CALRequest with the switchboard's session id.
type CALReply struct {
	TrID      uint32
	SessionID string
}

func (c *CALReply) ID() string                    { return "CAL" }
func (c *CALReply) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *CALReply) Encode() (string, []byte) {
	return fmt.Sprintf("CAL %d RINGING %s", c.TrID, c.SessionID), nil
}

func decodeCAL(fields []string, _ []byte) (Command, error) {
	if len(fields) < 2 {
		return nil, fmt.Errorf("CAL: too few fields")
	}
	trid, err := parseTrID(fields[0])
	if err != nil {
		return nil, err
	}
	if fields[1] == "RINGING" {
		if len(fields) != 3 {
			return nil, fmt.Errorf("CAL RINGING: expected session id")
		}
		return &CALReply{TrID: trid, SessionID: fields[2]}, nil
	}
	if len(fields) != 2 {
		return nil, fmt.Errorf("CAL: expected single login name field")
	}
	return &CALRequest{TrID: trid, LoginName: fields[1]}, nil
}

// ANSRequest answers an RNG invitation, joining the named switchboard
// session.
type ANSRequest struct {
	TrID       uint32
	LoginName  string
	AuthString string
	SessionID  string
}

func (c *ANSRequest) ID() string                    { return "ANS" }
func (c *ANSRequest) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *ANSRequest) Encode() (string, []byte) {
	return fmt.Sprintf("ANS %d %s %s %s", c.TrID, c.LoginName, c.AuthString, c.SessionID), nil
}

// ANSReply acknowledges ANSRequest once the IRO burst is complete.
type ANSReply struct {
	TrID uint32
}

func (c *ANSReply) ID() string                    { return "ANS" }
func (c *ANSReply) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *ANSReply) Encode() (string, []byte) {
	return fmt.Sprintf("ANS %d OK", c.TrID), nil
}

func decodeANS(fields []string, _ []byte) (Command, error) {
	if len(fields) < 1 {
		return nil, fmt.Errorf("ANS: missing transaction id")
	}
	trid, err := parseTrID(fields[0])
	if err != nil {
		return nil, err
	}
	rest := fields[1:]
	if len(rest) == 1 && rest[0] == "OK" {
		return &ANSReply{TrID: trid}, nil
	}
	if len(rest) != 3 {
		return nil, fmt.Errorf("ANS: expected login name, auth string, session id")
	}
	return &ANSRequest{TrID: trid, LoginName: rest[0], AuthString: rest[1], SessionID: rest[2]}, nil
}

// JOI announces that another user joined the switchboard session.
type JOI struct {
	LoginName string
	Nickname  string
	ClientID  string
}

func (c *JOI) ID() string                    { return "JOI" }
func (c *JOI) TransactionID() (uint32, bool) { return 0, false }
func (c *JOI) Encode() (string, []byte) {
	if c.ClientID == "" {
		return fmt.Sprintf("JOI %s %s", c.LoginName, escapeArg(c.Nickname)), nil
	}
	return fmt.Sprintf("JOI %s %s %s", c.LoginName, escapeArg(c.Nickname), c.ClientID), nil
}

func decodeJOI(fields []string, _ []byte) (Command, error) {
	if len(fields) < 2 {
		return nil, fmt.Errorf("JOI: expected login name and nickname")
	}
	c := &JOI{LoginName: fields[0], Nickname: unescapeArg(fields[1])}
	if len(fields) > 2 {
		c.ClientID = fields[2]
	}
	return c, nil
}

// IRO is one line of the existing-participant burst sent after ANS, before
// ANSReply.
type IRO struct {
	Index     int
	Total     int
	LoginName string
	Nickname  string
	ClientID  string
}

func (c *IRO) ID() string                    { return "IRO" }
func (c *IRO) TransactionID() (uint32, bool) { return 0, false }
func (c *IRO) Encode() (string, []byte) {
	parts := []string{
		"IRO", strconv.Itoa(c.Index), strconv.Itoa(c.Total),
		c.LoginName, escapeArg(c.Nickname),
	}
	if c.ClientID != "" {
		parts = append(parts, c.ClientID)
	}
	return strings.Join(parts, " "), nil
}

func decodeIRO(fields []string, _ []byte) (Command, error) {
	if len(fields) < 4 {
		return nil, fmt.Errorf("IRO: too few fields")
	}
	index, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("IRO: invalid index %q", fields[0])
	}
	total, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("IRO: invalid total %q", fields[1])
	}
	c := &IRO{Index: index, Total: total, LoginName: fields[2], Nickname: unescapeArg(fields[3])}
	if len(fields) > 4 {
		c.ClientID = fields[4]
	}
	return c, nil
}

// BYE announces that a participant left the switchboard session. Reason
// "1" indicates the parting was triggered by inactivity rather than the
// user's own action.
type BYE struct {
	LoginName string
	Reason    string
}

func (c *BYE) ID() string                    { return "BYE" }
func (c *BYE) TransactionID() (uint32, bool) { return 0, false }
func (c *BYE) Encode() (string, []byte) {
	if c.Reason == "" {
		return "BYE " + c.LoginName, nil
	}
	return fmt.Sprintf("BYE %s %s", c.LoginName, c.Reason), nil
}

func decodeBYE(fields []string, _ []byte) (Command, error) {
	if len(fields) < 1 || len(fields) > 2 {
		return nil, fmt.Errorf("BYE: expected login name and optional reason")
	}
	c := &BYE{LoginName: fields[0]}
	if len(fields) == 2 {
		c.Reason = fields[1]
	}
	return c, nil
}

// UUX carries an out-of-band data blob (e.g. typing location, P2P
// signaling) on a switchboard. The same shape serves both the client's
// request and the server's zero-length acknowledgment.
type UUX struct {
	TrID    uint32
	Payload []byte
}

func (c *UUX) ID() string                    { return "UUX" }
func (c *UUX) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *UUX) Encode() (string, []byte) {
	return fmt.Sprintf("UUX %d %d", c.TrID, len(c.Payload)), c.Payload
}

func decodeUUX(fields []string, payload []byte) (Command, error) {
	if len(fields) != 1 {
		return nil, fmt.Errorf("UUX: expected transaction id only, got %d fields", len(fields))
	}
	trid, err := parseTrID(fields[0])
	if err != nil {
		return nil, err
	}
	return &UUX{TrID: trid, Payload: payload}, nil
}
