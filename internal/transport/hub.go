package transport

import (
	"fmt"
	"sync"

	"github.com/openduel/sync-server-go/internal/adapter"
	"github.com/openduel/sync-server-go/internal/session"
	"github.com/openduel/sync-server-go/internal/state"
	"go.uber.org/zap"
)

// Hub owns the live session managers. Each manager serializes its own
// mutation, so the hub only guards the session table.
type Hub struct {
	mu              sync.RWMutex
	sessions        map[string]*session.Manager
	registry        *adapter.Registry
	logger          *zap.Logger
	historyCapacity int
}

// NewHub creates a hub backed by the given adapter registry.
func NewHub(registry *adapter.Registry, historyCapacity int, logger *zap.Logger) *Hub {
	if historyCapacity < 1 {
		historyCapacity = session.DefaultHistoryCapacity
	}
	return &Hub{
		sessions:        make(map[string]*session.Manager),
		registry:        registry,
		logger:          logger,
		historyCapacity: historyCapacity,
	}
}

// CreateSession builds an adapter for the game type and starts a manager.
// Unknown game types fail with *state.UnsupportedGameError.
func (h *Hub) CreateSession(gameType string, cfg adapter.Config) (*session.Manager, error) {
	ad, err := h.registry.Create(gameType)
	if err != nil {
		return nil, err
	}

	mgr, err := session.NewManager(ad, cfg,
		session.WithHistoryCapacity(h.historyCapacity),
		session.WithLogger(h.logger),
	)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.sessions[mgr.SessionID()]; exists {
		return nil, &state.ConfigError{Reason: fmt.Sprintf("session %s already exists", mgr.SessionID())}
	}
	h.sessions[mgr.SessionID()] = mgr

	if h.logger != nil {
		h.logger.Info("session created",
			zap.String("session_id", mgr.SessionID()),
			zap.String("game_type", gameType),
		)
	}
	return mgr, nil
}

// Session returns the manager for a session ID.
func (h *Hub) Session(id string) (*session.Manager, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	mgr, ok := h.sessions[id]
	return mgr, ok
}

// RemoveSession drops a finished session from the table.
func (h *Hub) RemoveSession(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, id)
}

// SessionCount returns the number of live sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
