package main

import (
	"fmt"
	"log/slog"

	"github.com/kelseyhightower/envconfig"

	msnp "github.com/mk6i/go-msnp12"
	"github.com/mk6i/go-msnp12/auth"
	"github.com/mk6i/go-msnp12/config"
	"github.com/mk6i/go-msnp12/transport"
)

// Container groups together the dependencies the demo command wires into a
// msnp.Client.
type Container struct {
	cfg    config.Config
	logger *slog.Logger
	client *msnp.Client
}

// MakeCommonDeps processes the environment into a config.Config and builds
// the client it describes: a direct or SOCKS5-proxied dialer, the Passport
// HTTP authenticator, and the msnp.Client facade itself.
func MakeCommonDeps() (Container, error) {
	c := Container{}

	if err := envconfig.Process("", &c.cfg); err != nil {
		return c, fmt.Errorf("unable to process app config: %w", err)
	}

	c.logger = config.NewLogger(c.cfg)

	var dialer transport.Dialer
	if c.cfg.ProxyAddr != "" {
		dialer = &transport.ProxyDialer{
			ProxyAddr: c.cfg.ProxyAddr,
			Username:  c.cfg.ProxyUsername,
			Password:  c.cfg.ProxyPassword,
		}
	} else {
		dialer = &transport.TCPDialer{}
	}

	authn := auth.NewHTTPAuthenticator(c.cfg.PassportEndpoint, nil, c.logger)

	c.client = msnp.New(c.cfg, dialer, authn, c.logger)
	return c, nil
}
