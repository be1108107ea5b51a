package wire

import (
	"fmt"
	"strconv"
	"strings"
)

func init() {
	register("SYN", decodeSYN)
	register("LSG", decodeLSG)
	register("LST", decodeLST)
	register("ADC", decodeADC)
	register("REM", decodeREM)
	register("ADG", decodeADG)
	register("RMG", decodeRMG)
	register("REG", decodeREG)
	register("BLP", decodeBLP)
	register("GTC", decodeGTC)
}

// SYNRequest starts roster synchronization, passing the client's cached
// roster/group revision stamps (0, 0 for a full resync).
type SYNRequest struct {
	TrID        uint32
	ListVersion string
	GroupVersion string
}

func (c *SYNRequest) ID() string                    { return "SYN" }
func (c *SYNRequest) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *SYNRequest) Encode() (string, []byte) {
	return fmt.Sprintf("SYN %d %s %s", c.TrID, c.ListVersion, c.GroupVersion), nil
}

// SYNReply opens the synchronization burst, declaring how many LST and LSG
// lines follow.
type SYNReply struct {
	TrID          uint32
	ListVersion   string
	GroupVersion  string
	ContactCount  int
	GroupCount    int
}

func (c *SYNReply) ID() string                    { return "SYN" }
func (c *SYNReply) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *SYNReply) Encode() (string, []byte) {
	return fmt.Sprintf("SYN %d %s %s %d %d", c.TrID, c.ListVersion, c.GroupVersion, c.ContactCount, c.GroupCount), nil
}

func decodeSYN(fields []string, _ []byte) (Command, error) {
	if len(fields) < 3 {
		return nil, fmt.Errorf("SYN: too few fields")
	}
	trid, err := parseTrID(fields[0])
	if err != nil {
		return nil, err
	}
	rest := fields[1:]
	switch len(rest) {
	case 2:
		return &SYNRequest{TrID: trid, ListVersion: rest[0], GroupVersion: rest[1]}, nil
	case 4:
		contactCount, _ := strconv.Atoi(rest[2])
		groupCount, _ := strconv.Atoi(rest[3])
		return &SYNReply{
			TrID: trid, ListVersion: rest[0], GroupVersion: rest[1],
			ContactCount: contactCount, GroupCount: groupCount,
		}, nil
	default:
		return nil, fmt.Errorf("SYN: unexpected field count %d", len(rest))
	}
}

// LSG is one group entry in the synchronization burst.
type LSG struct {
	Name string
	GUID string
}

func (c *LSG) ID() string                    { return "LSG" }
func (c *LSG) TransactionID() (uint32, bool) { return 0, false }
func (c *LSG) Encode() (string, []byte) {
	return fmt.Sprintf("LSG %s %s", escapeArg(c.Name), c.GUID), nil
}

func decodeLSG(fields []string, _ []byte) (Command, error) {
	if len(fields) != 2 {
		return nil, fmt.Errorf("LSG: expected name and guid, got %d fields", len(fields))
	}
	return &LSG{Name: unescapeArg(fields[0]), GUID: fields[1]}, nil
}

// LST is one contact entry in the synchronization burst: N= is the login
// name, F= the escaped friendly name, C= the contact's guid, followed by a
// decimal list-membership bitmask and a comma-separated list of the group
// guids this contact belongs to.
type LST struct {
	LoginName    string
	FriendlyName string
	GUID         string
	ListBitmask  int
	GroupGUIDs   []string
}

func (c *LST) ID() string                    { return "LST" }
func (c *LST) TransactionID() (uint32, bool) { return 0, false }
func (c *LST) Encode() (string, []byte) {
	parts := []string{
		"LST",
		"N=" + c.LoginName,
		"F=" + escapeArg(c.FriendlyName),
		"C=" + c.GUID,
		strconv.Itoa(c.ListBitmask),
	}
	if len(c.GroupGUIDs) > 0 {
		parts = append(parts, strings.Join(c.GroupGUIDs, ","))
	}
	return strings.Join(parts, " "), nil
}

func decodeLST(fields []string, _ []byte) (Command, error) {
	if len(fields) < 4 {
		return nil, fmt.Errorf("LST: too few fields")
	}
	c := &LST{}
	for _, f := range fields[:3] {
		switch {
		case strings.HasPrefix(f, "N="):
			c.LoginName = strings.TrimPrefix(f, "N=")
		case strings.HasPrefix(f, "F="):
			c.FriendlyName = unescapeArg(strings.TrimPrefix(f, "F="))
		case strings.HasPrefix(f, "C="):
			c.GUID = strings.TrimPrefix(f, "C=")
		default:
			return nil, fmt.Errorf("LST: unrecognized field %q", f)
		}
	}
	bitmask, err := strconv.Atoi(fields[3])
	if err != nil {
		return nil, fmt.Errorf("LST: invalid list bitmask %q", fields[3])
	}
	c.ListBitmask = bitmask
	if len(fields) > 4 {
		c.GroupGUIDs = strings.Split(fields[4], ",")
	}
	return c, nil
}

// ADC adds a contact (N=<loginName>) to a list, or an existing contact
// (C=<contactGUID>) to a group. GroupGUID is set only for the latter form;
// ContactGUID is populated by the server's reply once a new contact is
// assigned one.
type ADC struct {
	TrID        uint32
	List        string
	LoginName   string
	ContactGUID string
	GroupGUID   string
}

func (c *ADC) ID() string                    { return "ADC" }
func (c *ADC) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *ADC) Encode() (string, []byte) {
	parts := []string{"ADC", fmt.Sprintf("%d", c.TrID), c.List}
	if c.LoginName != "" {
		parts = append(parts, "N="+c.LoginName)
	}
	if c.ContactGUID != "" {
		parts = append(parts, "C="+c.ContactGUID)
	}
	if c.GroupGUID != "" {
		parts = append(parts, c.GroupGUID)
	}
	return strings.Join(parts, " "), nil
}

func decodeADC(fields []string, _ []byte) (Command, error) {
	if len(fields) < 2 {
		return nil, fmt.Errorf("ADC: too few fields")
	}
	trid, err := parseTrID(fields[0])
	if err != nil {
		return nil, err
	}
	c := &ADC{TrID: trid, List: fields[1]}
	for _, f := range fields[2:] {
		switch {
		case strings.HasPrefix(f, "N="):
			c.LoginName = strings.TrimPrefix(f, "N=")
		case strings.HasPrefix(f, "C="):
			c.ContactGUID = strings.TrimPrefix(f, "C=")
		default:
			c.GroupGUID = f
		}
	}
	return c, nil
}

// REM removes a contact (by guid) from a list, or from a single group when
// GroupGUID is set.
type REM struct {
	TrID        uint32
	List        string
	ContactGUID string
	GroupGUID   string
}

func (c *REM) ID() string                    { return "REM" }
func (c *REM) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *REM) Encode() (string, []byte) {
	parts := []string{"REM", fmt.Sprintf("%d", c.TrID), c.List, c.ContactGUID}
	if c.GroupGUID != "" {
		parts = append(parts, c.GroupGUID)
	}
	return strings.Join(parts, " "), nil
}

func decodeREM(fields []string, _ []byte) (Command, error) {
	if len(fields) < 3 {
		return nil, fmt.Errorf("REM: too few fields")
	}
	trid, err := parseTrID(fields[0])
	if err != nil {
		return nil, err
	}
	c := &REM{TrID: trid, List: fields[1], ContactGUID: fields[2]}
	if len(fields) > 3 {
		c.GroupGUID = fields[3]
	}
	return c, nil
}

// ADGRequest creates a new group by name; ADGReply echoes the name with the
// server-assigned guid.
type ADGRequest struct {
	TrID uint32
	Name string
}

func (c *ADGRequest) ID() string                    { return "ADG" }
func (c *ADGRequest) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *ADGRequest) Encode() (string, []byte) {
	return fmt.Sprintf("ADG %d %s", c.TrID, escapeArg(c.Name)), nil
}

type ADGReply struct {
	TrID uint32
	Name string
	GUID string
}

func (c *ADGReply) ID() string                    { return "ADG" }
func (c *ADGReply) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *ADGReply) Encode() (string, []byte) {
	return fmt.Sprintf("ADG %d %s %s", c.TrID, escapeArg(c.Name), c.GUID), nil
}

func decodeADG(fields []string, _ []byte) (Command, error) {
	if len(fields) < 2 {
		return nil, fmt.Errorf("ADG: too few fields")
	}
	trid, err := parseTrID(fields[0])
	if err != nil {
		return nil, err
	}
	switch len(fields) {
	case 2:
		return &ADGRequest{TrID: trid, Name: unescapeArg(fields[1])}, nil
	case 3:
		return &ADGReply{TrID: trid, Name: unescapeArg(fields[1]), GUID: fields[2]}, nil
	default:
		return nil, fmt.Errorf("ADG: unexpected field count %d", len(fields)-1)
	}
}

// RMG removes a group by guid; the reply echoes the same shape.
type RMG struct {
	TrID uint32
	GUID string
}

func (c *RMG) ID() string                    { return "RMG" }
func (c *RMG) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *RMG) Encode() (string, []byte) {
	return fmt.Sprintf("RMG %d %s", c.TrID, c.GUID), nil
}

func decodeRMG(fields []string, _ []byte) (Command, error) {
	if len(fields) != 2 {
		return nil, fmt.Errorf("RMG: expected transaction id and guid, got %d fields", len(fields))
	}
	trid, err := parseTrID(fields[0])
	if err != nil {
		return nil, err
	}
	return &RMG{TrID: trid, GUID: fields[1]}, nil
}

// REG renames a group; the reply echoes the same shape once applied.
type REG struct {
	TrID uint32
	GUID string
	Name string
}

func (c *REG) ID() string                    { return "REG" }
func (c *REG) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *REG) Encode() (string, []byte) {
	return fmt.Sprintf("REG %d %s %s", c.TrID, c.GUID, escapeArg(c.Name)), nil
}

func decodeREG(fields []string, _ []byte) (Command, error) {
	if len(fields) != 3 {
		return nil, fmt.Errorf("REG: expected transaction id, guid, name, got %d fields", len(fields))
	}
	trid, err := parseTrID(fields[0])
	if err != nil {
		return nil, err
	}
	return &REG{TrID: trid, GUID: fields[1], Name: unescapeArg(fields[2])}, nil
}

// BLP sets or acknowledges the privacy mode: AL (allow list governs) or BL
// (block list governs).
type BLP struct {
	TrID uint32
	Mode string
}

func (c *BLP) ID() string                    { return "BLP" }
func (c *BLP) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *BLP) Encode() (string, []byte) {
	return fmt.Sprintf("BLP %d %s", c.TrID, c.Mode), nil
}

func decodeBLP(fields []string, _ []byte) (Command, error) {
	if len(fields) != 2 {
		return nil, fmt.Errorf("BLP: expected transaction id and mode, got %d fields", len(fields))
	}
	trid, err := parseTrID(fields[0])
	if err != nil {
		return nil, err
	}
	return &BLP{TrID: trid, Mode: fields[1]}, nil
}

// GTC sets or acknowledges the contact-request notification mode: A
// (prompt) or N (silently add without prompting).
type GTC struct {
	TrID uint32
	Mode string
}

func (c *GTC) ID() string                    { return "GTC" }
func (c *GTC) TransactionID() (uint32, bool) { return c.TrID, true }
func (c *GTC) Encode() (string, []byte) {
	return fmt.Sprintf("GTC %d %s", c.TrID, c.Mode), nil
}

func decodeGTC(fields []string, _ []byte) (Command, error) {
	if len(fields) != 2 {
		return nil, fmt.Errorf("GTC: expected transaction id and mode, got %d fields", len(fields))
	}
	trid, err := parseTrID(fields[0])
	if err != nil {
		return nil, err
	}
	return &GTC{TrID: trid, Mode: fields[1]}, nil
}
