package whatsapp

import (
	"slices"
	"sync"
)

// recentPerSender bounds how many handled message ids are kept per sender.
const recentPerSender = 32

// SessionManager remembers the recent messages handled per sender. Meta retries
// webhook deliveries, sometimes out of order, and a redelivered list must not
// be recorded twice.
type SessionManager struct {
	recent map[string][]string
	mu     sync.Mutex
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{recent: make(map[string][]string)}
}

// Claim records messageID as handled for sender. It returns false when that
// message is among the sender's recent ones.
func (sm *SessionManager) Claim(sender, messageID string) bool {
	if messageID == "" {
		return true
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ids := sm.recent[sender]
	if slices.Contains(ids, messageID) {
		return false
	}
	if len(ids) == recentPerSender {
		ids = slices.Delete(ids, 0, 1)
	}
	sm.recent[sender] = append(ids, messageID)
	return true
}
