package state

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Invitation is a pending inbound IM request created by an RNG command: it
// names the switchboard to dial and the inviting contact, and is consumed
// by either accepting or rejecting it.
type Invitation struct {
	SessionID    string
	Addr         string
	AuthString   string
	InvitingUser string
	Nickname     string
}

// InvitationStore holds pending invitations keyed by session id, expiring
// any that are neither accepted nor rejected within ttl. Without this, a
// long-lived process that never restarts leaks an Invitation forever for
// every RNG the caller ignores.
type InvitationStore struct {
	cache *cache.Cache
}

// NewInvitationStore builds a store whose entries expire after ttl.
func NewInvitationStore(ttl time.Duration) *InvitationStore {
	return &InvitationStore{cache: cache.New(ttl, ttl/2)}
}

// Put stores inv under its session id, starting its TTL countdown.
func (s *InvitationStore) Put(inv *Invitation) {
	s.cache.SetDefault(inv.SessionID, inv)
}

// Take removes and returns the invitation for sessionID, if it has not
// already expired or been consumed.
func (s *InvitationStore) Take(sessionID string) (*Invitation, bool) {
	v, ok := s.cache.Get(sessionID)
	if !ok {
		return nil, false
	}
	s.cache.Delete(sessionID)
	return v.(*Invitation), true
}
