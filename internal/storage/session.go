package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"giftmatch/pkg"
)

// Session defaults
const (
	// SessionTTL is the default session TTL (40 minutes)
	SessionTTL = 40 * time.Minute

	// DefaultMaxMessages is how many messages a session keeps before dropping the oldest
	DefaultMaxMessages = 50
)

// ErrSessionNotFound is returned for unknown or expired sessions
var ErrSessionNotFound = errors.New("session not found")

// SessionManager stores the chat history of server-side sessions
type SessionManager interface {
	GetSession(ctx context.Context, sessionID string) (*pkg.Session, error)
	SaveSession(ctx context.Context, session *pkg.Session) error
	// AppendTurn adds messages and replaces the accumulated gift context in one update
	AppendTurn(ctx context.Context, sessionID string, giftCtx pkg.GiftContext, messages ...pkg.ConversationMessage) (*pkg.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// MemorySessionManager is an in-memory implementation for development and single-instance deployments
type MemorySessionManager struct {
	mu          sync.Mutex
	sessions    map[string]*pkg.Session
	ttl         time.Duration
	maxMessages int
	now         func() time.Time
}

// NewMemorySessionManager creates a new in-memory session manager
func NewMemorySessionManager(ttl time.Duration, maxMessages int) *MemorySessionManager {
	if ttl <= 0 {
		ttl = SessionTTL
	}
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &MemorySessionManager{
		sessions:    make(map[string]*pkg.Session),
		ttl:         ttl,
		maxMessages: maxMessages,
		now:         time.Now,
	}
}

// GetSession retrieves a copy of the session
func (m *MemorySessionManager) GetSession(_ context.Context, sessionID string) (*pkg.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return cloneSession(session), nil
}

// lookup must be called with mu held. Expired sessions are evicted.
func (m *MemorySessionManager) lookup(sessionID string) (*pkg.Session, error) {
	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if m.now().Sub(session.UpdatedAt) > m.ttl {
		delete(m.sessions, sessionID)
		return nil, fmt.Errorf("%w: %s expired", ErrSessionNotFound, sessionID)
	}
	return session, nil
}

// SaveSession saves or updates a session
func (m *MemorySessionManager) SaveSession(_ context.Context, session *pkg.Session) error {
	if err := ValidateSession(session); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := cloneSession(session)
	touch(stored, m.now(), m.maxMessages)
	m.sessions[stored.ID] = stored
	return nil
}

// AppendTurn adds messages to the session, creating it when it does not exist
func (m *MemorySessionManager) AppendTurn(_ context.Context, sessionID string, giftCtx pkg.GiftContext, messages ...pkg.ConversationMessage) (*pkg.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.lookup(sessionID)
	if err != nil {
		session = &pkg.Session{ID: sessionID}
		m.sessions[sessionID] = session
	}
	session.Messages = append(session.Messages, messages...)
	session.Context = giftCtx.Clone()
	touch(session, m.now(), m.maxMessages)
	return cloneSession(session), nil
}

// DeleteSession removes a session
func (m *MemorySessionManager) DeleteSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// touch stamps the session and keeps only the newest maxMessages messages. Context is untouched.
func touch(session *pkg.Session, now time.Time, maxMessages int) {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	if maxMessages > 0 && len(session.Messages) > maxMessages {
		session.Messages = append([]pkg.ConversationMessage(nil), session.Messages[len(session.Messages)-maxMessages:]...)
	}
}

func cloneSession(session *pkg.Session) *pkg.Session {
	out := *session
	out.Messages = append([]pkg.ConversationMessage(nil), session.Messages...)
	out.Context = session.Context.Clone()
	return &out
}

// ValidateSession checks if a session is valid
func ValidateSession(session *pkg.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}

	if session.ID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}

	for i, msg := range session.Messages {
		switch msg.Role {
		case pkg.RoleUser, pkg.RoleAssistant, pkg.RoleSystem:
		default:
			return fmt.Errorf("message %d has invalid role: %s", i, msg.Role)
		}
	}

	return nil
}
