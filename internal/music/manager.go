package music

import (
	"sync"
	"time"
)

// DefaultManager is the process-wide manager the command layer talks to. It
// is configured once at startup via Configure.
var DefaultManager = NewManager(Deps{})

// Deps are the collaborators every session is built from.
type Deps struct {
	Backend  Backend
	History  History
	Filler   FillerSource
	Expander Expander
	Presence Presence
	Settings *SettingsStore

	BotIdentity   Requester
	DefaultVolume int
	IdleTimeout   time.Duration
}

// Manager hands out one Session per guild and fans the backend's playback
// events back into the owning session.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	deps     Deps
}

func NewManager(deps Deps) *Manager {
	if deps.IdleTimeout <= 0 {
		deps.IdleTimeout = 10 * time.Second
	}
	if deps.DefaultVolume <= 0 {
		deps.DefaultVolume = 15
	}
	return &Manager{
		sessions: make(map[string]*Session),
		deps:     deps,
	}
}

// Configure replaces the manager's collaborators. It must run before any
// session is created, which in practice means during startup wiring.
func (m *Manager) Configure(deps Deps) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if deps.IdleTimeout <= 0 {
		deps.IdleTimeout = 10 * time.Second
	}
	if deps.DefaultVolume <= 0 {
		deps.DefaultVolume = 15
	}
	m.deps = deps
}

// SetBotIdentity updates the requester credited for endless-shuffle refills,
// on the manager and on every session already handed out. The bot's own user
// is only known once the gateway reports ready, after sessions may already
// exist.
func (m *Manager) SetBotIdentity(identity Requester) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deps.BotIdentity = identity
	for _, s := range m.sessions {
		s.setBotIdentity(identity)
	}
}

// Get returns the guild's session, creating it on first use.
func (m *Manager) Get(guildID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[guildID]; ok {
		return s
	}

	s := newSession(guildID, m.deps)
	m.sessions[guildID] = s
	return s
}

// OnPlaybackStarted routes a backend started event to its session.
func (m *Manager) OnPlaybackStarted(guildID string, item QueuedItem) {
	m.Get(guildID).OnPlaybackStarted(item)
}

// OnPlaybackFinished routes a backend finished event to its session.
func (m *Manager) OnPlaybackFinished(guildID string, _ QueuedItem, reason TrackEndReason) {
	m.Get(guildID).OnPlaybackFinished(reason)
}
