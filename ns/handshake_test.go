package ns

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mk6i/go-msnp12/auth"
	"github.com/mk6i/go-msnp12/config"
	"github.com/mk6i/go-msnp12/events"
	"github.com/mk6i/go-msnp12/transaction"
	"github.com/mk6i/go-msnp12/wire"
)

// pipeDialer hands out in-memory net.Pipe connections, pushing the server
// side of each one onto conns so a test script can drive it. It lets Login
// reconnect across an XFR NS redirect without touching a real socket.
type pipeDialer struct {
	conns chan net.Conn
}

func newPipeDialer() *pipeDialer {
	return &pipeDialer{conns: make(chan net.Conn, 4)}
}

func (d *pipeDialer) Dial(_ context.Context, _ string) (net.Conn, error) {
	client, server := net.Pipe()
	d.conns <- server
	return client, nil
}

// scriptedServer wraps one server-side connection with a reader/writer
// pair so a test can expect a command and reply to it.
type scriptedServer struct {
	t      *testing.T
	reader *wire.CommandReader
	writer *wire.CommandWriter
}

func newScriptedServer(t *testing.T, conn net.Conn) *scriptedServer {
	t.Helper()
	framer := wire.NewLineFramer(conn, conn)
	return &scriptedServer{
		t:      t,
		reader: wire.NewCommandReader(framer, nil),
		writer: wire.NewCommandWriter(framer),
	}
}

func (s *scriptedServer) expect(id string) wire.Command {
	s.t.Helper()
	cmd, err := s.reader.Next()
	require.NoError(s.t, err)
	require.Equal(s.t, id, cmd.ID())
	return cmd
}

func (s *scriptedServer) reply(cmd wire.Encodable) {
	s.t.Helper()
	require.NoError(s.t, s.writer.Write(cmd))
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.DispatchHost = "dispatch.example.com:1863"
	cfg.LoginTimeout = 5 * time.Second
	cfg.ReplyTimeout = 2 * time.Second
	cfg.ProductKey = "testproductkey12"
	cfg.BacklogPerSub = 8
	return cfg
}

// runHappyPathServer drives one connection through the entire MSNP12 login
// sequence, asserting that the client's QRY carries the challenge hash for
// productKey.
func runHappyPathServer(t *testing.T, conn net.Conn, productKey string) {
	t.Helper()
	srv := newScriptedServer(t, conn)

	ver := srv.expect("VER").(*wire.VER)
	srv.reply(&wire.VER{TrID: ver.TrID, Versions: []string{"MSNP12"}})

	cvr := srv.expect("CVR").(*wire.CVRRequest)
	srv.reply(&wire.CVRReply{TrID: cvr.TrID, RecommendedVer: "7.0.0425", RecommendedVer2: "7.0.0425", MinVersion: "7.0.0425"})

	usr := srv.expect("USR").(*wire.USRTWNI)
	srv.reply(&wire.USRTWNS{TrID: usr.TrID, Value: "ct=1,rver=1,wp=FS_40SEC_0_COMPACT,lc=1,id=1"})

	ticket := srv.expect("USR").(*wire.USRTWNS)
	srv.reply(&wire.USRNSOK{TrID: ticket.TrID, LoginName: "user@example.com", Verified: 1})

	chlTrID := uint32(1000)
	srv.reply(&wire.CHL{TrID: chlTrID, Challenge: "15570131571988941333"})

	qry := srv.expect("QRY").(*wire.QRY)
	sum := md5.Sum([]byte("15570131571988941333" + productKey))
	assert.Equal(t, hex.EncodeToString(sum[:]), string(qry.Hash))

	syn := srv.expect("SYN").(*wire.SYNRequest)
	srv.reply(&wire.SYNReply{TrID: syn.TrID, ListVersion: "1", GroupVersion: "1", ContactCount: 1, GroupCount: 1})
	srv.reply(&wire.LSG{Name: "Friends", GUID: "group-1"})
	srv.reply(&wire.LST{LoginName: "friend@example.com", FriendlyName: "Friend", GUID: "contact-1", ListBitmask: 1, GroupGUIDs: []string{"group-1"}})

	chg := srv.expect("CHG").(*wire.CHG)
	srv.reply(&wire.CHG{TrID: chg.TrID, Status: "NLN"})
}

func TestLoginHappyPath(t *testing.T) {
	dialer := newPipeDialer()
	bus := events.NewBus(nil)
	evts, cancel := bus.Subscribe(8)
	defer cancel()

	fake := &auth.Fake{Ticket: "t=ticketvalue&p=proofvalue"}
	cfg := testConfig()
	client := New(cfg, dialer, fake, bus, nil)

	done := make(chan error, 1)
	go func() {
		done <- client.Login(context.Background(), "user@example.com", "hunter2")
	}()

	serverConn := <-dialer.conns
	runHappyPathServer(t, serverConn, cfg.ProductKey)

	require.NoError(t, <-done)
	assert.Equal(t, "user@example.com", client.LocalUser().LoginName())
	assert.Equal(t, "NLN", client.LocalUser().Status())

	contact, err := client.Roster().Contact("friend@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Friend", contact.FriendlyName())
	assert.True(t, contact.InGroup("group-1"))

	group, err := client.Roster().Group("group-1")
	require.NoError(t, err)
	assert.Equal(t, "Friends", group.Name())

	require.Len(t, fake.Calls, 1)
	assert.Equal(t, "user@example.com", fake.Calls[0].LoginName)
	assert.Equal(t, "hunter2", fake.Calls[0].Password)

	select {
	case evt := <-evts:
		assert.Equal(t, events.LoggedIn{LoginName: "user@example.com"}, evt)
	case <-time.After(time.Second):
		t.Fatal("expected LoggedIn event")
	}

	client.Logout()
}

func TestLoginFollowsNSRedirect(t *testing.T) {
	dialer := newPipeDialer()
	bus := events.NewBus(nil)
	fake := &auth.Fake{Ticket: "t=ticketvalue&p=proofvalue"}
	cfg := testConfig()
	client := New(cfg, dialer, fake, bus, nil)

	done := make(chan error, 1)
	go func() {
		done <- client.Login(context.Background(), "user@example.com", "hunter2")
	}()

	// First connection: redirect to a different dispatcher.
	firstConn := <-dialer.conns
	srv := newScriptedServer(t, firstConn)
	ver := srv.expect("VER").(*wire.VER)
	srv.reply(&wire.VER{TrID: ver.TrID, Versions: []string{"MSNP12"}})
	cvr := srv.expect("CVR").(*wire.CVRRequest)
	srv.reply(&wire.CVRReply{TrID: cvr.TrID})
	usr := srv.expect("USR").(*wire.USRTWNI)
	srv.reply(&wire.XFRReply{TrID: usr.TrID, Service: "NS", Addr: "dispatch2.example.com:1863", Param: "0", Extra: "0"})

	// Second connection: full login proceeds normally.
	secondConn := <-dialer.conns
	runHappyPathServer(t, secondConn, cfg.ProductKey)

	require.NoError(t, <-done)
	client.Logout()
}

func TestAnswerChallengeHash(t *testing.T) {
	cfg := testConfig()
	client := New(cfg, newPipeDialer(), &auth.Fake{}, nil, nil)

	chl := &wire.CHL{TrID: 1, Challenge: "abc123"}
	sum := md5.Sum([]byte("abc123" + cfg.ProductKey))
	want := hex.EncodeToString(sum[:])

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	writer := wire.NewCommandWriter(wire.NewLineFramer(clientConn, clientConn))
	serverReader := wire.NewCommandReader(wire.NewLineFramer(serverConn, serverConn), nil)

	tracker := transaction.NewTracker(nil, writer, cfg.ReplyTimeout)
	errCh := make(chan error, 1)
	go func() {
		errCh <- client.answerChallenge(writer, tracker, chl)
	}()

	cmd, err := serverReader.Next()
	require.NoError(t, err)
	qry, ok := cmd.(*wire.QRY)
	require.True(t, ok)
	assert.Equal(t, want, string(qry.Hash))
	require.NoError(t, <-errCh)
}
