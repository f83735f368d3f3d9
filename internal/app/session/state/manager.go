package state

import (
	"sync"
	"time"
)

// Manager manages session state with thread-safe access.
type Manager struct {
	mu sync.RWMutex

	// Session identity
	sessionID string
	channelID string

	// Session lifecycle
	phase     Phase
	reason    Reason
	createdAt time.Time
	endedAt   *time.Time
}

// Snapshot is a point-in-time copy of the session state.
type Snapshot struct {
	SessionID string
	ChannelID string
	Phase     Phase
	Reason    Reason
	CreatedAt time.Time
	EndedAt   *time.Time
}

// New creates a new state manager in the active phase.
func New(sessionID, channelID string) *Manager {
	return &Manager{
		sessionID: sessionID,
		channelID: channelID,
		phase:     PhaseActive,
		createdAt: time.Now(),
	}
}

// GetPhase returns the current session phase.
func (m *Manager) GetPhase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

// IsActive returns true if the session has not started tearing down.
func (m *Manager) IsActive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase == PhaseActive
}

// BeginTeardown moves an active session to PhaseTearingDown and records the
// reason. It returns false if teardown had already begun.
func (m *Manager) BeginTeardown(reason Reason) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhaseActive {
		return false
	}
	m.phase = PhaseTearingDown
	m.reason = reason
	return true
}

// Terminate marks the session as ended.
func (m *Manager) Terminate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.phase = PhaseTerminated
	m.endedAt = &now
}

// GetReason returns the teardown reason.
func (m *Manager) GetReason() Reason {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reason
}

// GetSessionID returns the session ID.
func (m *Manager) GetSessionID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionID
}

// Snapshot returns a copy of the state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		SessionID: m.sessionID,
		ChannelID: m.channelID,
		Phase:     m.phase,
		Reason:    m.reason,
		CreatedAt: m.createdAt,
		EndedAt:   m.endedAt,
	}
}
