// Package transport supplies the TCP connections the notification and
// switchboard clients read and write through, with optional SOCKS5 proxying
// for environments that require it.
package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/net/proxy"

	"github.com/mk6i/go-msnp12/wire"
)

// Dialer opens a connection to a host:port address. It abstracts over a
// direct TCP dial and an optional SOCKS5 proxy dial so the rest of the
// client never branches on how the socket got there.
type Dialer interface {
	Dial(ctx context.Context, addr string) (net.Conn, error)
}

// TCPDialer dials directly, honoring ctx's deadline.
type TCPDialer struct {
	// Timeout bounds a dial with no context deadline. Zero means no bound
	// beyond the operating system's default.
	Timeout time.Duration
}

// Dial opens addr, wrapping any failure in wire.ErrTransport.
func (d *TCPDialer) Dial(ctx context.Context, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: d.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dialing %s: %v", wire.ErrTransport, addr, err)
	}
	return conn, nil
}

// ProxyDialer routes connections through a SOCKS5 proxy, for deployments
// behind a corporate or privacy proxy that the notification server's
// dispatcher redirects would otherwise bypass.
type ProxyDialer struct {
	// ProxyAddr is the SOCKS5 proxy's host:port.
	ProxyAddr string
	// Username and Password authenticate to the proxy; both empty means no
	// authentication.
	Username string
	Password string
}

// Dial opens addr via the configured SOCKS5 proxy.
func (d *ProxyDialer) Dial(ctx context.Context, addr string) (net.Conn, error) {
	var auth *proxy.Auth
	if d.Username != "" {
		auth = &proxy.Auth{User: d.Username, Password: d.Password}
	}

	base, err := proxy.SOCKS5("tcp", d.ProxyAddr, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("%w: building SOCKS5 dialer for %s: %v", wire.ErrTransport, d.ProxyAddr, err)
	}

	if ctxDialer, ok := base.(proxy.ContextDialer); ok {
		conn, err := ctxDialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("%w: dialing %s via proxy %s: %v", wire.ErrTransport, addr, d.ProxyAddr, err)
		}
		return conn, nil
	}

	// proxy.SOCKS5 over proxy.Direct always implements ContextDialer, but
	// fall back to the blocking Dial for any other base dialer.
	conn, err := base.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dialing %s via proxy %s: %v", wire.ErrTransport, addr, d.ProxyAddr, err)
	}
	return conn, nil
}
