// Package config defines the runtime configuration for the MSNP12 client
// library's bundled demo command and the defaults applied by the library
// itself when a caller does not override them.
package config

import "time"

// Config holds environment-driven settings. It is populated with
// github.com/kelseyhightower/envconfig, typically after an optional dotenv
// file has been loaded into the process environment.
type Config struct {
	DispatchHost string `envconfig:"DISPATCH_HOST" required:"true" val:"messenger.hotmail.com:1863" description:"Host:port of the initial notification server (dispatcher) to connect to."`
	LoginName    string `envconfig:"LOGIN_NAME" required:"false" description:"Login name (email address) used by the bundled demo command."`
	Password     string `envconfig:"PASSWORD" required:"false" description:"Password used by the bundled demo command."`

	ClientID   string `envconfig:"CLIENT_ID" required:"true" val:"msmsgs@msnmsgr.com" description:"Client identifier sent in the QRY challenge response."`
	ProductKey string `envconfig:"PRODUCT_KEY" required:"true" val:"Q1P7W2E4J9R8U3S5" description:"Product key used to salt the CHL/QRY challenge hash."`

	PassportEndpoint string `envconfig:"PASSPORT_ENDPOINT" required:"true" val:"https://login.live.com/RST.srf" description:"Passport/Live SSO endpoint the HTTP authenticator posts the RequestSecurityToken envelope to."`

	ProxyAddr     string `envconfig:"PROXY_ADDR" required:"false" description:"SOCKS5 proxy host:port. Empty dials the dispatcher and switchboards directly."`
	ProxyUsername string `envconfig:"PROXY_USERNAME" required:"false" description:"SOCKS5 proxy username, if the proxy requires authentication."`
	ProxyPassword string `envconfig:"PROXY_PASSWORD" required:"false" description:"SOCKS5 proxy password, if the proxy requires authentication."`

	ReplyTimeout  time.Duration `envconfig:"REPLY_TIMEOUT" required:"true" val:"60s" description:"Default timeout for a single transaction awaiting a correlated reply."`
	LoginTimeout  time.Duration `envconfig:"LOGIN_TIMEOUT" required:"true" val:"120s" description:"Overall deadline for the login state machine to reach Ready."`
	PingInterval  time.Duration `envconfig:"PING_INTERVAL" required:"true" val:"50s" description:"Initial PNG interval before the server sends a QNG with an updated interval."`
	InviteTTL     time.Duration `envconfig:"INVITE_TTL" required:"true" val:"2m" description:"How long a pending inbound invitation (RNG) is retained before it expires unaccepted."`
	BacklogPerSub int           `envconfig:"BACKLOG_PER_SUB" required:"true" val:"64" description:"Bounded queue depth for each non-critical consumer of the broadcast command stream."`

	SendRatePerSecond float64 `envconfig:"SEND_RATE_PER_SECOND" required:"true" val:"5" description:"Sustained outbound MSG sends allowed per second on a single switchboard session."`
	SendBurst         int     `envconfig:"SEND_BURST" required:"true" val:"10" description:"Token-bucket burst size for the per-session outbound MSG rate limiter."`
	JoinTimeout       time.Duration `envconfig:"JOIN_TIMEOUT" required:"true" val:"30s" description:"How long inviting another user into a switchboard session waits for the resulting JOI."`

	LogLevel string `envconfig:"LOG_LEVEL" required:"true" val:"info" description:"Set logging granularity. Possible values: 'debug', 'info', 'warn', 'error'."`
}

// Default returns a Config populated with the default values recorded in
// the `val` struct tags, for callers that construct a client
// without reading the environment at all (e.g. library embedders, tests).
func Default() Config {
	return Config{
		DispatchHost:  "messenger.hotmail.com:1863",
		ClientID:      "msmsgs@msnmsgr.com",
		ProductKey:    "Q1P7W2E4J9R8U3S5",

		PassportEndpoint: "https://login.live.com/RST.srf",

		ReplyTimeout:  60 * time.Second,
		LoginTimeout:  120 * time.Second,
		PingInterval:  50 * time.Second,
		InviteTTL:     2 * time.Minute,
		BacklogPerSub: 64,

		SendRatePerSecond: 5,
		SendBurst:         10,
		JoinTimeout:       30 * time.Second,

		LogLevel: "info",
	}
}
