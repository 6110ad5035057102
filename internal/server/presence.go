package server

import (
	"sync"
)

// ModeState is the process-wide presence mode flag: whether the occupant
// is expected to be in the monitored room. It is the only bare shared
// mutable value in the service, so all access goes through one RWMutex;
// reads never observe a torn write. Writes are unconditional overwrites
// with no transition guard: when writers race, the last write to acquire
// the lock wins. The value is not persisted across restarts.
type ModeState struct {
	mu     sync.RWMutex
	inRoom bool
}

// NewModeState creates the mode cell with the startup default: occupant
// expected in the room.
func NewModeState() *ModeState {
	return &ModeState{inRoom: true}
}

// Set overwrites the current mode and reports the previous value so the
// caller can observe whether this write was a transition.
func (m *ModeState) Set(inRoom bool) (previous bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	previous = m.inRoom
	m.inRoom = inRoom
	return previous
}

// Get returns the most recently completed write.
func (m *ModeState) Get() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inRoom
}
