package wire

import (
	"errors"
	"fmt"
)

// Sentinel errors for the taxonomy described in the error handling design.
// Callers compare against these with errors.Is; ServerError additionally
// carries the numeric code it wraps.
var (
	// ErrTransport indicates a TCP connect/read/write fault.
	ErrTransport = errors.New("transport fault")
	// ErrProtocol indicates a malformed header, a length mismatch, or an
	// unknown-but-required command.
	ErrProtocol = errors.New("protocol error")
	// ErrServer is the sentinel wrapped by every ServerError so callers can
	// test for "some server error" without checking the code.
	ErrServer = errors.New("server error")
	// ErrTimeout indicates no reply arrived within the deadline.
	ErrTimeout = errors.New("timed out waiting for reply")
	// ErrBadCredentials indicates the SSO exchange or the USR handshake
	// rejected the supplied login name/password.
	ErrBadCredentials = errors.New("bad credentials")
	// ErrCancelled indicates the caller or a shutdown path cancelled a
	// pending wait.
	ErrCancelled = errors.New("cancelled")
)

// knownServerErrors maps well-documented MSNP error codes to a short name.
// Codes absent from this table are still reported, just without a name.
var knownServerErrors = map[uint16]string{
	200: "syntax error",
	201: "invalid parameter",
	205: "invalid user",
	206: "domain name missing",
	207: "already logged in",
	208: "invalid username",
	209: "invalid friendly name",
	216: "already in list",
	218: "already in the mode",
	219: "already in opposite list",
	223: "list limit reached",
	225: "user does not exist",
	500: "internal server error",
	501: "database server error",
	502: "command disabled",
	510: "file operation failed",
	600: "server too busy",
	601: "server unavailable",
	910: "server too busy (auth)",
	911: "authentication failed",
	913: "account locked",
	920: "not allowed when HDN",
}

// ServerError represents a 3-digit server-originated error reply, correlated
// to the request that produced it by transaction id.
type ServerError struct {
	Code uint16
	TrID uint32
}

// Name returns the well-known name for the error code, or "" if unrecognized.
func (e *ServerError) Name() string {
	return knownServerErrors[e.Code]
}

func (e *ServerError) Error() string {
	if name := e.Name(); name != "" {
		return fmt.Sprintf("server error %d (%s) for trid %d", e.Code, name, e.TrID)
	}
	return fmt.Sprintf("server error %d for trid %d", e.Code, e.TrID)
}

// Unwrap lets errors.Is(err, ErrServer) succeed, and additionally makes
// ErrBadCredentials match for the auth-failure codes 911 and 913.
func (e *ServerError) Unwrap() error {
	if e.Code == 911 || e.Code == 913 {
		return errors.Join(ErrServer, ErrBadCredentials)
	}
	return ErrServer
}

// ID satisfies Command for a numeric server error.
func (e *ServerError) ID() string { return "" }

// TransactionID satisfies Command for a numeric server error.
func (e *ServerError) TransactionID() (uint32, bool) { return e.TrID, true }
