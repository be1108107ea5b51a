package auth

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/mk6i/go-msnp12/wire"
)

const defaultTicketTTL = 2 * time.Minute

// requestEnvelope is the WS-Security RequestSecurityToken body posted to the
// Passport/Live authentication endpoint. Only the three fields this client
// sets are modeled, and the posted envelope carries nothing else.
type requestEnvelope struct {
	XMLName  xml.Name `xml:"Envelope"`
	PolicyID string   `xml:"Body>RequestSecurityTokenResponse>AppliesTo>PolicyID"`
	Username string   `xml:"Body>RequestSecurityTokenResponse>UsernameToken>Username"`
	Password string   `xml:"Body>RequestSecurityTokenResponse>UsernameToken>Password"`
}

type responseEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Fault *struct {
			FaultCode   string `xml:"faultcode"`
			FaultString string `xml:"faultstring"`
		} `xml:"Fault"`
		RequestSecurityTokenResponse struct {
			RequestedSecurityToken struct {
				BinarySecurityToken string `xml:"BinarySecurityToken"`
			} `xml:"RequestedSecurityToken"`
		} `xml:"RequestSecurityTokenResponseCollection>RequestSecurityTokenResponse"`
	} `xml:"Body"`
}

// HTTPAuthenticator performs the real SSO exchange over HTTPS. Tickets are
// cached for defaultTicketTTL so a retried second USR within the same login
// attempt does not repeat the POST.
type HTTPAuthenticator struct {
	Endpoint   string
	HTTPClient *http.Client
	Logger     *slog.Logger

	tickets *cache.Cache
}

// NewHTTPAuthenticator builds an authenticator posting to endpoint (the
// Passport/Live RST endpoint). A nil httpClient uses http.DefaultClient.
func NewHTTPAuthenticator(endpoint string, httpClient *http.Client, logger *slog.Logger) *HTTPAuthenticator {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &HTTPAuthenticator{
		Endpoint:   endpoint,
		HTTPClient: httpClient,
		Logger:     logger,
		tickets:    cache.New(defaultTicketTTL, defaultTicketTTL),
	}
}

func (a *HTTPAuthenticator) cacheKey(loginName, policy string) string {
	return loginName + "\x00" + policy
}

// Authenticate exchanges credentials and policy for a ticket.
func (a *HTTPAuthenticator) Authenticate(ctx context.Context, loginName, password, policy string) (string, error) {
	key := a.cacheKey(loginName, policy)
	if v, ok := a.tickets.Get(key); ok {
		return v.(string), nil
	}

	env := requestEnvelope{
		PolicyID: policy,
		Username: loginName,
		Password: password,
	}
	body, err := xml.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("%w: marshal RST envelope: %v", wire.ErrProtocol, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", wire.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: RST POST: %v", wire.ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading RST response: %v", wire.ErrTransport, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return "", fmt.Errorf("%w: passport rejected credentials", wire.ErrBadCredentials)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: RST POST returned %s", wire.ErrTransport, resp.Status)
	}

	var parsed responseEnvelope
	if err := xml.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: parsing RST response: %v", wire.ErrProtocol, err)
	}
	if parsed.Body.Fault != nil {
		a.Logger.Warn("passport returned a SOAP fault", "code", parsed.Body.Fault.FaultCode, "string", parsed.Body.Fault.FaultString)
		return "", fmt.Errorf("%w: %s", wire.ErrBadCredentials, parsed.Body.Fault.FaultString)
	}

	ticket := parsed.Body.RequestSecurityTokenResponse.RequestedSecurityToken.BinarySecurityToken
	if ticket == "" {
		return "", fmt.Errorf("%w: RST response carried no ticket", wire.ErrProtocol)
	}

	a.tickets.SetDefault(key, ticket)
	return ticket, nil
}
