package transport

import (
	"github.com/openduel/sync-server-go/internal/delta"
	"github.com/openduel/sync-server-go/internal/state"
)

// Message types exchanged with clients.
const (
	MessageTypeGameAction       = "game_action"
	MessageTypeGameStateSync    = "game_state_sync"
	MessageTypeRequestFullState = "request_full_state"
	MessageTypeError            = "error"
)

// Sync payload kinds.
const (
	SyncTypeDelta = "delta"
	SyncTypeFull  = "full"
)

// InboundMessage is a client-to-server frame. The transport layer is
// responsible for auth/session validation before a frame reaches the
// engine.
type InboundMessage struct {
	Type      string                 `json:"type"`
	SessionID string                 `json:"sessionId"`
	Action    *state.GameStateAction `json:"action,omitempty"`
	// BaseVersion is the client's last known version, used to offer a
	// delta instead of a full state.
	BaseVersion *int64 `json:"baseVersion,omitempty"`
}

// SyncMessage is the server-to-client state synchronization frame.
type SyncMessage struct {
	Type      string              `json:"type"`
	SessionID string              `json:"sessionId"`
	SyncType  string              `json:"syncType"`
	Version   int64               `json:"version"`
	Delta     delta.Delta         `json:"delta,omitempty"`
	FullState *state.TCGGameState `json:"fullState,omitempty"`
	Outcome   string              `json:"outcome,omitempty"`
}

// ErrorMessage reports a rejected action or a failed request.
type ErrorMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Reason    string `json:"reason"`
}
