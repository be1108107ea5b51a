package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTrip encodes cmd, decodes it back through a CommandReader, and
// returns the result for comparison.
func roundTrip(t *testing.T, cmd Encodable) Command {
	t.Helper()

	var buf bytes.Buffer
	framer := NewLineFramer(&buf, &buf)
	writer := NewCommandWriter(framer)
	require.NoError(t, writer.Write(cmd))

	reader := NewCommandReader(framer, nil)
	got, err := reader.Next()
	require.NoError(t, err)
	return got
}

func TestRoundTripSessionCommands(t *testing.T) {
	cases := []Encodable{
		&VER{TrID: 1, Versions: []string{"MSNP12", "MSNP11"}},
		&CVRRequest{
			TrID: 2, Locale: "0x0409", OSType: "winnt", OSVersion: "5.1", Arch: "i386",
			LibName: "MSNMSGR", ClientName: "MSNMSGR", ClientVersion: "7.0.0777",
			LoginName: "a@b.c",
		},
		&CVRReply{TrID: 2, RecommendedVer: "7.0.0813", RecommendedVer2: "7.0.0813", MinVersion: "7.0.0777", DownloadURL: "http://x", InfoURL: "http://y"},
		&USRTWNI{TrID: 3, LoginName: "a@b.c"},
		&USRTWNS{TrID: 3, Value: "policy-string"},
		&USRNSOK{TrID: 4, LoginName: "a@b.c", Verified: 1, Unused: 0},
		&USRSBRequest{TrID: 1, LoginName: "a@b.c", Ticket: "849102291.520491113"},
		&USRSBReply{TrID: 1, LoginName: "a@b.c", FriendlyName: "Example Name"},
		&XFRRequest{TrID: 5, Service: "SB"},
		&XFRReply{TrID: 5, Service: "SB", Addr: "207.46.108.38:1863", Param: "CKI", Extra: "849102291.520491113"},
		&XFRReply{TrID: 3, Service: "NS", Addr: "64.4.61.38:1863", Param: "0", Extra: "64.4.45.62:1863"},
		&QRY{TrID: 1049, ClientID: "msmsgs@msnmsgr.com", Hash: []byte("d41d8cd98f00b204e9800998ecf8427e")},
		&CHL{TrID: 0, Challenge: "15570131571988941333"},
	}

	for _, c := range cases {
		got := roundTrip(t, c)
		assert.Equal(t, c, got)
	}
}

func TestRoundTripPresenceCommands(t *testing.T) {
	cases := []Encodable{
		&CHG{TrID: 6, Status: "NLN", Capabilities: "0"},
		&CHG{TrID: 6, Status: "NLN"},
		&NLN{Status: "NLN", LoginName: "r@x.y", Nickname: "Example Name"},
		&NLN{Status: "BSY", LoginName: "r@x.y", Nickname: "Has Space", ClientID: "2863311530"},
		&ILN{TrID: 6, Status: "NLN", LoginName: "r@x.y", Nickname: "Example Name"},
		&FLN{LoginName: "r@x.y"},
		&UBX{LoginName: "r@x.y", Payload: []byte("<Data><PSM>hi</PSM></Data>")},
		&UBX{LoginName: "r@x.y", Payload: nil},
		&PRP{TrID: 7, HasTrID: true, Type: "MFN", Value: "My Nickname"},
		&Opaque{Cmd: "SBP", Fields: []string{"1", "1234", "MFN", "N"}},
		&BPR{Type: "PHH", Value: "555-1234"},
	}

	for _, c := range cases {
		got := roundTrip(t, c)
		assert.Equal(t, c, got)
	}
}

func TestRoundTripRosterCommands(t *testing.T) {
	cases := []Encodable{
		&SYNRequest{TrID: 5, ListVersion: "0", GroupVersion: "0"},
		&SYNReply{TrID: 5, ListVersion: "0", GroupVersion: "0", ContactCount: 14, GroupCount: 3},
		&LSG{Name: "Friends", GUID: "aaaaaaaa-1111-2222-3333-444444444444"},
		&LST{
			LoginName: "r@x.y", FriendlyName: "Example Name",
			GUID: "bbbbbbbb-1111-2222-3333-444444444444", ListBitmask: 11,
			GroupGUIDs: []string{"aaaaaaaa-1111-2222-3333-444444444444"},
		},
		&LST{LoginName: "s@x.y", FriendlyName: "No Groups", GUID: "cccccccc-0000-0000-0000-000000000000", ListBitmask: 1},
		&ADC{TrID: 8, List: "FL", LoginName: "t@x.y"},
		&ADC{TrID: 8, List: "FL", ContactGUID: "dddddddd-0000-0000-0000-000000000000", GroupGUID: "aaaaaaaa-1111-2222-3333-444444444444"},
		&REM{TrID: 9, List: "FL", ContactGUID: "dddddddd-0000-0000-0000-000000000000"},
		&REM{TrID: 9, List: "FL", ContactGUID: "dddddddd-0000-0000-0000-000000000000", GroupGUID: "aaaaaaaa-1111-2222-3333-444444444444"},
		&ADGRequest{TrID: 10, Name: "New Group"},
		&ADGReply{TrID: 10, Name: "New Group", GUID: "eeeeeeee-0000-0000-0000-000000000000"},
		&RMG{TrID: 11, GUID: "eeeeeeee-0000-0000-0000-000000000000"},
		&REG{TrID: 12, GUID: "eeeeeeee-0000-0000-0000-000000000000", Name: "smama"},
		&BLP{TrID: 13, Mode: "AL"},
		&GTC{TrID: 14, Mode: "A"},
	}

	for _, c := range cases {
		got := roundTrip(t, c)
		assert.Equal(t, c, got)
	}
}

func TestRoundTripMessagingCommands(t *testing.T) {
	payload := []byte("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\nHi!")
	cases := []Encodable{
		&MSGOut{TrID: 15, Class: "A", Payload: payload},
		&MSGIn{Sender: "r@x.y", Nickname: "Example Name", Payload: payload},
		&RNG{
			SessionID: "11752013", Addr: "207.46.108.38:1863", AuthString: "849102291.520491113",
			LoginName: "example@passport.com", Nickname: "Example Name",
		},
		&CALRequest{TrID: 16, LoginName: "r@x.y"},
		&CALReply{TrID: 16, SessionID: "11752013"},
		&ANSRequest{TrID: 1, LoginName: "a@b.c", AuthString: "849102291.520491113", SessionID: "11752013"},
		&ANSReply{TrID: 1},
		&JOI{LoginName: "r@x.y", Nickname: "Example Name"},
		&JOI{LoginName: "r@x.y", Nickname: "Example Name", ClientID: "2863311530"},
		&IRO{Index: 1, Total: 1, LoginName: "r@x.y", Nickname: "Example Name"},
		&BYE{LoginName: "r@x.y"},
		&BYE{LoginName: "r@x.y", Reason: "1"},
		&UUX{TrID: 17, Payload: []byte("<uux/>")},
		&UUX{TrID: 17, Payload: nil},
	}

	for _, c := range cases {
		got := roundTrip(t, c)
		assert.Equal(t, c, got)
	}
}

func TestRoundTripHousekeepingCommands(t *testing.T) {
	cases := []Encodable{
		&PNG{},
		&QNG{UntilNext: 50},
		&NOT{Payload: []byte("<NOTIFICATION ID=\"1\"/>")},
		&NOT{Payload: nil},
		&OUT{},
		&OUT{Code: "OTH"},
		&ACK{TrID: 18},
		&NAK{TrID: 18},
		&Opaque{Cmd: "SBS", Fields: []string{"0", "18", "http://x"}},
	}

	for _, c := range cases {
		got := roundTrip(t, c)
		assert.Equal(t, c, got)
	}
}

func TestDecodeServerError(t *testing.T) {
	var buf bytes.Buffer
	framer := NewLineFramer(&buf, &buf)
	require.NoError(t, framer.WriteLine("911 1049"))

	reader := NewCommandReader(framer, nil)
	got, err := reader.Next()
	require.NoError(t, err)

	serverErr, ok := got.(*ServerError)
	require.True(t, ok)
	assert.Equal(t, uint16(911), serverErr.Code)
	assert.Equal(t, uint32(1049), serverErr.TrID)
	assert.ErrorIs(t, serverErr, ErrServer)
	assert.ErrorIs(t, serverErr, ErrBadCredentials)
}

func TestDecodeSkipsUnknownCommand(t *testing.T) {
	var buf bytes.Buffer
	framer := NewLineFramer(&buf, &buf)
	require.NoError(t, framer.WriteLine("ZZZ 1 2 3"))
	require.NoError(t, framer.WriteLine("PNG"))

	reader := NewCommandReader(framer, nil)
	got, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, &PNG{}, got)
}
