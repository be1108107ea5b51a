// Package state holds the in-memory object model mutated by the
// notification and switchboard clients: the local user, the contact
// roster and its groups, and pending inbound invitations. Every type here
// follows the same discipline: short, independently-locked getters and
// setters, so no caller ever holds a lock across I/O.
package state

import "sync"

// LocalUser is the authenticated account: its login name never changes for
// the lifetime of a session, but its nickname (from PRP on the reader task,
// or ChangeNickname), status (at login, or ChangeStatus) and personal
// message (ChangePersonalMessage) change during it and are read by callers.
type LocalUser struct {
	mu sync.RWMutex

	loginName      string
	nickname       string
	status         string
	capabilities   string
	displayPicture string
	personalMsg    string
}

// NewLocalUser builds a LocalUser for loginName with status FLN until the
// login sequence sets it.
func NewLocalUser(loginName string) *LocalUser {
	return &LocalUser{loginName: loginName, status: "FLN"}
}

// LoginName returns the account's login name (email address).
func (u *LocalUser) LoginName() string {
	return u.loginName
}

// SetNickname updates the display nickname.
func (u *LocalUser) SetNickname(nickname string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.nickname = nickname
}

// Nickname returns the current display nickname.
func (u *LocalUser) Nickname() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.nickname
}

// SetStatus updates the presence status code (NLN, BSY, IDL, BRB, AWY, PHN,
// LUN, HDN, FLN).
func (u *LocalUser) SetStatus(status string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status = status
}

// Status returns the current presence status code.
func (u *LocalUser) Status() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.status
}

// SetCapabilities updates the capability bitmask, encoded as a decimal
// string per the wire format.
func (u *LocalUser) SetCapabilities(capabilities string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.capabilities = capabilities
}

// Capabilities returns the current capability bitmask string.
func (u *LocalUser) Capabilities() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.capabilities
}

// SetDisplayPicture updates the display-picture object reference string.
func (u *LocalUser) SetDisplayPicture(ref string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.displayPicture = ref
}

// DisplayPicture returns the current display-picture object reference.
func (u *LocalUser) DisplayPicture() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.displayPicture
}

// SetPersonalMessage updates the personal status message (the "PSM" shown
// next to the user's nickname in a contact's list).
func (u *LocalUser) SetPersonalMessage(msg string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.personalMsg = msg
}

// PersonalMessage returns the current personal status message.
func (u *LocalUser) PersonalMessage() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.personalMsg
}
