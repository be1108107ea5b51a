package state

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned when a contact or group lookup misses.
var ErrNotFound = errors.New("not found")

// Roster holds the local user's contact and group tables, shared between
// the reader task (which applies LST/SYN/NLN/FLN mutations) and caller
// operations (which read snapshots and issue mutations of their own).
type Roster struct {
	mu       sync.RWMutex
	contacts map[string]*Contact // keyed by login name
	groups   map[string]*Group   // keyed by guid
}

// NewRoster builds an empty roster.
func NewRoster() *Roster {
	return &Roster{
		contacts: make(map[string]*Contact),
		groups:   make(map[string]*Group),
	}
}

// PutContact inserts or replaces a contact entry.
func (r *Roster) PutContact(c *Contact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts[c.LoginName] = c
}

// Contact returns the contact for loginName, if present.
func (r *Roster) Contact(loginName string) (*Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contacts[loginName]
	if !ok {
		return nil, fmt.Errorf("%w: contact %s", ErrNotFound, loginName)
	}
	return c, nil
}

// RemoveContact deletes a contact entry entirely (as opposed to clearing
// one of its list bits).
func (r *Roster) RemoveContact(loginName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.contacts, loginName)
}

// Contacts returns a snapshot slice of every known contact.
func (r *Roster) Contacts() []*Contact {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Contact, 0, len(r.contacts))
	for _, c := range r.contacts {
		out = append(out, c)
	}
	return out
}

// PutGroup inserts or replaces a group entry.
func (r *Roster) PutGroup(g *Group) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[g.GUID] = g
}

// Group returns the group for guid, if present.
func (r *Roster) Group(guid string) (*Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.groups[guid]
	if !ok {
		return nil, fmt.Errorf("%w: group %s", ErrNotFound, guid)
	}
	return g, nil
}

// RemoveGroup deletes a group entry.
func (r *Roster) RemoveGroup(guid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups, guid)
}

// Groups returns a snapshot slice of every known group.
func (r *Roster) Groups() []*Group {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Group, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, g)
	}
	return out
}
