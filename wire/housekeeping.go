package wire

import "fmt"

func init() {
	register("PNG", decodePNG)
	register("QNG", decodeQNG)
	register("NOT", decodeNOT)
	register("OUT", decodeOUT)
	register("ACK", decodeACK)
	register("NAK", decodeNAK)
	register("SBS", decodeOpaque("SBS"))
}

// PNG is the client's keep-alive ping. It carries no arguments or
// transaction id.
type PNG struct{}

func (c *PNG) ID() string                    { return "PNG" }
func (c *PNG) TransactionID() (uint32, bool) { return 0, false }
func (c *PNG) Encode() (string, []byte)      { return "PNG", nil }

func decodePNG(fields []string, _ []byte) (Command, error) {
	if len(fields) != 0 {
		return nil, fmt.Errorf("PNG: expected no fields, got %d", len(fields))
	}
	return &PNG{}, nil
}

// QNG answers PNG with the number of seconds until the client should ping
// again.
type QNG struct {
	UntilNext int
}

func (c *QNG) ID() string                    { return "QNG" }
func (c *QNG) TransactionID() (uint32, bool) { return 0, false }
func (c *QNG) Encode() (string, []byte) {
	return fmt.Sprintf("QNG %d", c.UntilNext), nil
}

func decodeQNG(fields []string, _ []byte) (Command, error) {
	if len(fields) != 1 {
		return nil, fmt.Errorf("QNG: expected a single field, got %d", len(fields))
	}
	var n int
	if _, err := fmt.Sscanf(fields[0], "%d", &n); err != nil {
		return nil, fmt.Errorf("QNG: invalid interval %q", fields[0])
	}
	return &QNG{UntilNext: n}, nil
}

// NOT carries a server notification XML blob as an inline payload. It has
// no transaction id.
type NOT struct {
	Payload []byte
}

func (c *NOT) ID() string                    { return "NOT" }
func (c *NOT) TransactionID() (uint32, bool) { return 0, false }
func (c *NOT) Encode() (string, []byte) {
	return fmt.Sprintf("NOT %d", len(c.Payload)), c.Payload
}

func decodeNOT(fields []string, payload []byte) (Command, error) {
	if len(fields) != 0 {
		return nil, fmt.Errorf("NOT: expected no header fields beyond length, got %d", len(fields))
	}
	return &NOT{Payload: payload}, nil
}

// OUT tells the client to disconnect. Code is empty for a plain
// server-initiated close, "OTH" when the account logged in elsewhere, or
// "SSD" when the server is shutting down.
type OUT struct {
	Code string
}

func (c *OUT) ID() string                    { return "OUT" }
func (c *OUT) TransactionID() (uint32, bool) { return 0, false }
func (c *OUT) Encode() (string, []byte) {
	if c.Code == "" {
		return "OUT", nil
	}
	return "OUT " + c.Code, nil
}

func decodeOUT(fields []string, _ []byte) (Command, error) {
	switch len(fields) {
	case 0:
		return &OUT{}, nil
	case 1:
		return &OUT{Code: fields[0]}, nil
	default:
		return nil, fmt.Errorf("OUT: expected at most one field, got %d", len(fields))
	}
}

// ACK confirms delivery of a class-A MSG by transaction id.
type ACK struct {
	TrID uint32
}

func (c *ACK) ID() string                    { return "ACK" }
func (c *ACK) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *ACK) Encode() (string, []byte) {
	return fmt.Sprintf("ACK %d", c.TrID), nil
}

func decodeACK(fields []string, _ []byte) (Command, error) {
	if len(fields) != 1 {
		return nil, fmt.Errorf("ACK: expected transaction id only, got %d fields", len(fields))
	}
	trid, err := parseTrID(fields[0])
	if err != nil {
		return nil, err
	}
	return &ACK{TrID: trid}, nil
}

// NAK reports failed delivery of a class-A MSG by transaction id.
type NAK struct {
	TrID uint32
}

func (c *NAK) ID() string                    { return "NAK" }
func (c *NAK) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *NAK) Encode() (string, []byte) {
	return fmt.Sprintf("NAK %d", c.TrID), nil
}

func decodeNAK(fields []string, _ []byte) (Command, error) {
	if len(fields) != 1 {
		return nil, fmt.Errorf("NAK: expected transaction id only, got %d fields", len(fields))
	}
	trid, err := parseTrID(fields[0])
	if err != nil {
		return nil, err
	}
	return &NAK{TrID: trid}, nil
}
