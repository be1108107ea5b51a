// Package auth implements the SSO exchange the notification client performs
// after the server challenges it with a policy string: an HTTPS POST to the
// Passport/Live authentication endpoint named in the policy, producing an
// opaque ticket that is submitted back in a second USR command.
package auth

import "context"

// Authenticator exchanges a login name, password, and server-supplied
// policy string for an SSO ticket. Implementations must report bad
// credentials as a distinct, non-retryable failure (an error wrapping
// wire.ErrBadCredentials) rather than as a transient transport failure.
type Authenticator interface {
	Authenticate(ctx context.Context, loginName, password, policy string) (ticket string, err error)
}
