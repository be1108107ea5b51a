package wire

import (
	"fmt"
	"strconv"
	"strings"
)

func init() {
	register("VER", decodeVER)
	register("CVR", decodeCVR)
	register("USR", decodeUSR)
	register("XFR", decodeXFR)
	register("QRY", decodeQRY)
	register("CHL", decodeCHL)
}

// VER negotiates the protocol version list. The client sends its supported
// versions in preference order; the server echoes back the one it picked.
type VER struct {
	TrID     uint32
	Versions []string
}

func (c *VER) ID() string                    { return "VER" }
func (c *VER) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *VER) Encode() (string, []byte) {
	return fmt.Sprintf("VER %d %s", c.TrID, strings.Join(c.Versions, " ")), nil
}

func decodeVER(fields []string, _ []byte) (Command, error) {
	if len(fields) < 2 {
		return nil, fmt.Errorf("VER: expected transaction id and at least one version")
	}
	trid, err := parseTrID(fields[0])
	if err != nil {
		return nil, err
	}
	return &VER{TrID: trid, Versions: fields[1:]}, nil
}

// CVRRequest is the client's initial client-version announcement.
type CVRRequest struct {
	TrID          uint32
	Locale        string
	OSType        string
	OSVersion     string
	Arch          string
	LibName       string
	ClientName    string
	ClientVersion string
	LoginName     string
}

func (c *CVRRequest) ID() string                    { return "CVR" }
func (c *CVRRequest) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *CVRRequest) Encode() (string, []byte) {
	return fmt.Sprintf("CVR %d %s %s %s %s %s %s %s %s",
		c.TrID, c.Locale, c.OSType, c.OSVersion, c.Arch, c.LibName,
		c.ClientName, c.ClientVersion, escapeArg(c.LoginName)), nil
}

// CVRReply carries the server's recommended and minimum client versions and
// download URLs. This client does not act on them beyond logging.
type CVRReply struct {
	TrID              uint32
	RecommendedVer    string
	RecommendedVer2   string
	MinVersion        string
	DownloadURL       string
	InfoURL           string
}

func (c *CVRReply) ID() string                    { return "CVR" }
func (c *CVRReply) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *CVRReply) Encode() (string, []byte) {
	return fmt.Sprintf("CVR %d %s %s %s %s %s",
		c.TrID, c.RecommendedVer, c.RecommendedVer2, c.MinVersion, c.DownloadURL, c.InfoURL), nil
}

func decodeCVR(fields []string, _ []byte) (Command, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("CVR: missing transaction id")
	}
	trid, err := parseTrID(fields[0])
	if err != nil {
		return nil, err
	}
	rest := fields[1:]
	switch len(rest) {
	case 8:
		return &CVRRequest{
			TrID: trid, Locale: rest[0], OSType: rest[1], OSVersion: rest[2],
			Arch: rest[3], LibName: rest[4], ClientName: rest[5],
			ClientVersion: rest[6], LoginName: unescapeArg(rest[7]),
		}, nil
	default:
		// Reply: empty trailing fields are absent from the encoded line.
		if len(rest) > 5 {
			return nil, fmt.Errorf("CVR: unexpected field count %d", len(rest))
		}
		r := &CVRReply{TrID: trid}
		dst := []*string{&r.RecommendedVer, &r.RecommendedVer2, &r.MinVersion, &r.DownloadURL, &r.InfoURL}
		for i, v := range rest {
			*dst[i] = v
		}
		return r, nil
	}
}

// USRTWNI is the client's first login handshake command, naming the login
// name for the TWN (Passport SSO) authentication scheme.
type USRTWNI struct {
	TrID      uint32
	LoginName string
}

func (c *USRTWNI) ID() string                    { return "USR" }
func (c *USRTWNI) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *USRTWNI) Encode() (string, []byte) {
	return fmt.Sprintf("USR %d TWN I %s", c.TrID, escapeArg(c.LoginName)), nil
}

// USRTWNS carries an opaque TWN-stage value: the server's policy string in
// its first reply, or the client's SSO ticket in the matching follow-up
// request. Both directions use the identical wire shape.
type USRTWNS struct {
	TrID  uint32
	Value string
}

func (c *USRTWNS) ID() string                    { return "USR" }
func (c *USRTWNS) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *USRTWNS) Encode() (string, []byte) {
	return fmt.Sprintf("USR %d TWN S %s", c.TrID, c.Value), nil
}

// USRNSOK is the notification server's final login acknowledgment.
type USRNSOK struct {
	TrID      uint32
	LoginName string
	Verified  int
	Unused    int
}

func (c *USRNSOK) ID() string                    { return "USR" }
func (c *USRNSOK) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *USRNSOK) Encode() (string, []byte) {
	return fmt.Sprintf("USR %d OK %s %d %d", c.TrID, escapeArg(c.LoginName), c.Verified, c.Unused), nil
}

// USRSBRequest is the USR a client sends immediately after dialing a
// switchboard, presenting the session ticket obtained from XFR.
type USRSBRequest struct {
	TrID      uint32
	LoginName string
	Ticket    string
}

func (c *USRSBRequest) ID() string                    { return "USR" }
func (c *USRSBRequest) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *USRSBRequest) Encode() (string, []byte) {
	return fmt.Sprintf("USR %d %s %s", c.TrID, escapeArg(c.LoginName), c.Ticket), nil
}

// USRSBReply is the switchboard's acknowledgment of USRSBRequest, carrying
// the caller's friendly (display) name.
type USRSBReply struct {
	TrID         uint32
	LoginName    string
	FriendlyName string
}

func (c *USRSBReply) ID() string                    { return "USR" }
func (c *USRSBReply) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *USRSBReply) Encode() (string, []byte) {
	return fmt.Sprintf("USR %d OK %s %s", c.TrID, escapeArg(c.LoginName), escapeArg(c.FriendlyName)), nil
}

func decodeUSR(fields []string, _ []byte) (Command, error) {
	if len(fields) < 2 {
		return nil, fmt.Errorf("USR: too few fields")
	}
	trid, err := parseTrID(fields[0])
	if err != nil {
		return nil, err
	}
	rest := fields[1:]

	switch rest[0] {
	case "TWN":
		if len(rest) != 3 {
			return nil, fmt.Errorf("USR TWN: expected 3 fields, got %d", len(rest))
		}
		switch rest[1] {
		case "I":
			return &USRTWNI{TrID: trid, LoginName: unescapeArg(rest[2])}, nil
		case "S":
			return &USRTWNS{TrID: trid, Value: rest[2]}, nil
		default:
			return nil, fmt.Errorf("USR TWN: unknown sub-command %q", rest[1])
		}
	case "OK":
		switch len(rest) {
		case 4:
			verified, _ := strconv.Atoi(rest[2])
			unused, _ := strconv.Atoi(rest[3])
			return &USRNSOK{TrID: trid, LoginName: unescapeArg(rest[1]), Verified: verified, Unused: unused}, nil
		case 3:
			return &USRSBReply{TrID: trid, LoginName: unescapeArg(rest[1]), FriendlyName: unescapeArg(rest[2])}, nil
		default:
			return nil, fmt.Errorf("USR OK: unexpected field count %d", len(rest))
		}
	default:
		if len(rest) != 2 {
			return nil, fmt.Errorf("USR: unexpected shape with %d fields", len(rest))
		}
		return &USRSBRequest{TrID: trid, LoginName: unescapeArg(rest[0]), Ticket: rest[1]}, nil
	}
}

// XFRRequest asks the notification server for a resource of the named
// service type (only "SB", switchboard, is used by this client).
type XFRRequest struct {
	TrID    uint32
	Service string
}

func (c *XFRRequest) ID() string                    { return "XFR" }
func (c *XFRRequest) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *XFRRequest) Encode() (string, []byte) {
	return fmt.Sprintf("XFR %d %s", c.TrID, c.Service), nil
}

// XFRReply redirects the client to another server. For Service "SB", Param
// is the literal "CKI" and Extra is the switchboard session ticket; for
// Service "NS", Param is "0" and Extra is a fallback dispatcher address.
type XFRReply struct {
	TrID    uint32
	Service string
	Addr    string
	Param   string
	Extra   string
}

func (c *XFRReply) ID() string                    { return "XFR" }
func (c *XFRReply) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *XFRReply) Encode() (string, []byte) {
	return fmt.Sprintf("XFR %d %s %s %s %s", c.TrID, c.Service, c.Addr, c.Param, c.Extra), nil
}

func decodeXFR(fields []string, _ []byte) (Command, error) {
	if len(fields) < 2 {
		return nil, fmt.Errorf("XFR: too few fields")
	}
	trid, err := parseTrID(fields[0])
	if err != nil {
		return nil, err
	}
	rest := fields[1:]
	switch len(rest) {
	case 1:
		return &XFRRequest{TrID: trid, Service: rest[0]}, nil
	case 4:
		return &XFRReply{TrID: trid, Service: rest[0], Addr: rest[1], Param: rest[2], Extra: rest[3]}, nil
	default:
		return nil, fmt.Errorf("XFR: unexpected field count %d", len(rest))
	}
}

// QRY answers a CHL challenge with an MD5 hash computed over the challenge
// string and the product key, carried as the inline payload.
type QRY struct {
	TrID     uint32
	ClientID string
	Hash     []byte
}

func (c *QRY) ID() string                    { return "QRY" }
func (c *QRY) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *QRY) Encode() (string, []byte) {
	return fmt.Sprintf("QRY %d %s %d", c.TrID, c.ClientID, len(c.Hash)), c.Hash
}

func decodeQRY(fields []string, payload []byte) (Command, error) {
	if len(fields) != 2 {
		return nil, fmt.Errorf("QRY: expected transaction id and client id, got %d fields", len(fields))
	}
	trid, err := parseTrID(fields[0])
	if err != nil {
		return nil, err
	}
	return &QRY{TrID: trid, ClientID: fields[1], Hash: payload}, nil
}

// CHL is the server's challenge string, answered with QRY.
type CHL struct {
	TrID      uint32
	Challenge string
}

func (c *CHL) ID() string                    { return "CHL" }
func (c *CHL) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *CHL) Encode() (string, []byte) {
	return fmt.Sprintf("CHL %d %s", c.TrID, c.Challenge), nil
}

func decodeCHL(fields []string, _ []byte) (Command, error) {
	if len(fields) != 2 {
		return nil, fmt.Errorf("CHL: expected transaction id and challenge string, got %d fields", len(fields))
	}
	trid, err := parseTrID(fields[0])
	if err != nil {
		return nil, err
	}
	return &CHL{TrID: trid, Challenge: fields[1]}, nil
}
