package session

import (
	"sync"
)

// PresenceManager tracks who is in a room and where their cursor is.
type PresenceManager struct {
	mu        sync.RWMutex
	presences map[string]PresencePayload // clientID -> presence
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		presences: make(map[string]PresencePayload),
	}
}

// Join records a client with no cursor yet, so late joiners see its name.
func (pm *PresenceManager) Join(clientID, displayName string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.presences[clientID] = PresencePayload{DisplayName: displayName}
}

// Update moves a client's cursor. It reports false when nothing changed so
// callers can skip the broadcast.
func (pm *PresenceManager) Update(clientID string, cursor *CursorPos) (PresencePayload, bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	p, ok := pm.presences[clientID]
	if ok && sameCursor(p.Cursor, cursor) {
		return p, false
	}
	if cursor != nil {
		c := *cursor
		cursor = &c
	}
	p.Cursor = cursor
	pm.presences[clientID] = p
	return p, true
}

func (pm *PresenceManager) Remove(clientID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.presences, clientID)
}

func (pm *PresenceManager) GetAll() map[string]PresencePayload {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	result := make(map[string]PresencePayload, len(pm.presences))
	for k, v := range pm.presences {
		result[k] = v
	}
	return result
}

func (pm *PresenceManager) StateMessage(sessionID string) *Message {
	return newMessage(TypePresenceState, sessionID, PresenceStatePayload{Presences: pm.GetAll()})
}

func sameCursor(a, b *CursorPos) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
