package state

import "sync"

// Group is a named folder in the local user's roster (e.g. "Friends",
// "Coworkers"), identified by its server-assigned guid. A contact in no
// group simply carries no group guids; no Group value stands for them.
type Group struct {
	mu sync.RWMutex

	GUID string
	name string
}

// NewGroup builds a group with the given server-assigned guid and name.
func NewGroup(guid, name string) *Group {
	return &Group{GUID: guid, name: name}
}

// SetName renames the group, as applied by REG.
func (g *Group) SetName(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.name = name
}

// Name returns the group's current display name.
func (g *Group) Name() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.name
}
