package events

// LoggedIn is published once the notification server reports SettingStatus
// complete and the client has moved to Ready.
type LoggedIn struct {
	LoginName string
}

func (LoggedIn) eventMarker() {}

// LoggedOut is published when the notification connection ends, whether by
// caller request, server OUT, or a transport failure.
type LoggedOut struct {
	Reason error
}

func (LoggedOut) eventMarker() {}

// ContactStatusChanged is published, once the roster has been updated, for
// every NLN/ILN the notification reader decodes and for every FLN naming a
// contact already in the roster. Nothing is published while no roster has
// been loaded.
type ContactStatusChanged struct {
	LoginName string
	Status    string // "FLN" for offline
	Nickname  string
}

func (ContactStatusChanged) eventMarker() {}

// InvitedToIMSession is published when an RNG invites the local user into a
// switchboard session. The invitation is also held in the client's
// state.InvitationStore under the same SessionID for AcceptInvitation /
// RejectInvitation to consume.
type InvitedToIMSession struct {
	SessionID    string
	InvitingUser string
	Nickname     string
}

func (InvitedToIMSession) eventMarker() {}

// MessageReceived is published for every MSG a switchboard session decodes.
// ContentType lets observers distinguish an ordinary text/plain message from
// a text/x-msmsgscontrol typing notification or another payload kind
// without re-parsing the MIME headers themselves.
type MessageReceived struct {
	SessionID   string
	Sender      string
	Nickname    string
	ContentType string
	Payload     []byte
}

func (MessageReceived) eventMarker() {}

// DeliveryFailed is published when a sent message's ACK wait times out or a
// NAK arrives instead.
type DeliveryFailed struct {
	SessionID string
	TrID      uint32
	Err       error
}

func (DeliveryFailed) eventMarker() {}

// ParticipantJoined is published when JOI or a sync-burst IRO adds a
// participant to a switchboard session.
type ParticipantJoined struct {
	SessionID string
	LoginName string
	Nickname  string
}

func (ParticipantJoined) eventMarker() {}

// ParticipantLeft is published on BYE.
type ParticipantLeft struct {
	SessionID string
	LoginName string
}

func (ParticipantLeft) eventMarker() {}

// SessionClosed is published when a switchboard session ends on its own: the
// last participant leaves, a server error arrives, or the connection drops.
// Closing a session with Close publishes nothing.
type SessionClosed struct {
	SessionID string
	Err       error
}

func (SessionClosed) eventMarker() {}

// NotificationReceived is published for server NOT payloads (e.g. profile
// or OIM notifications) the client does not otherwise interpret.
type NotificationReceived struct {
	Payload []byte
}

func (NotificationReceived) eventMarker() {}
