// Package transport is the wire boundary of the synchronization engine:
// a WebSocket endpoint carrying game_action / game_state_sync /
// request_full_state frames, plus HTTP routes for session creation and
// full-state fetches. The transport decides delta-vs-full transmission
// using the compression ratio the engine reports; the engine itself makes
// no transport decisions.
package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/openduel/sync-server-go/internal/adapter"
	"github.com/openduel/sync-server-go/internal/delta"
	"github.com/openduel/sync-server-go/internal/session"
	"github.com/openduel/sync-server-go/internal/state"
	"go.uber.org/zap"
)

// Server exposes the hub over HTTP and WebSocket.
type Server struct {
	hub            *Hub
	logger         *zap.Logger
	upgrader       websocket.Upgrader
	ratioThreshold float64
}

// NewServer creates the transport server. ratioThreshold is the minimum
// compression ratio at which a delta is sent instead of a full state.
func NewServer(hub *Hub, ratioThreshold float64, logger *zap.Logger) *Server {
	return &Server{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		ratioThreshold: ratioThreshold,
	}
}

// Router builds the HTTP route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions/{id}/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/sessions/{id}/actions", s.handleGetAvailableActions).Methods("GET")
	r.HandleFunc("/ws/{id}", s.handleWebSocket).Methods("GET")
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createSessionRequest struct {
	GameType     string   `json:"gameType"`
	PlayerIDs    []string `json:"playerIds"`
	StartingLife int      `json:"startingLife,omitempty"`
}

type createSessionResponse struct {
	SessionID string              `json:"sessionId"`
	State     *state.TCGGameState `json:"state"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mgr, err := s.hub.CreateSession(req.GameType, adapter.Config{
		PlayerIDs:    req.PlayerIDs,
		StartingLife: req.StartingLife,
	})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{
		SessionID: mgr.SessionID(),
		State:     mgr.FullState(),
	})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	mgr, ok := s.hub.Session(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	full := mgr.FullState()
	if viewer := r.URL.Query().Get("playerId"); viewer != "" {
		full = mgr.ViewFor(viewer)
	}
	writeJSON(w, http.StatusOK, SyncMessage{
		Type:      MessageTypeGameStateSync,
		SessionID: mgr.SessionID(),
		SyncType:  SyncTypeFull,
		Version:   full.Version,
		FullState: full,
	})
}

func (s *Server) handleGetAvailableActions(w http.ResponseWriter, r *http.Request) {
	mgr, ok := s.hub.Session(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	playerID := r.URL.Query().Get("playerId")
	if playerID == "" {
		writeError(w, http.StatusBadRequest, "playerId is required")
		return
	}
	writeJSON(w, http.StatusOK, mgr.AvailableActions(playerID))
}

// handleWebSocket runs the per-connection read loop. Each frame is
// answered synchronously: actions either commit or are rejected
// atomically, so there is no in-flight state to cancel.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	mgr, ok := s.hub.Session(sessionID)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("websocket upgrade failed",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
		return
	}
	defer conn.Close()

	for {
		var msg InboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				if s.logger != nil {
					s.logger.Warn("websocket read failed",
						zap.String("session_id", sessionID),
						zap.Error(err),
					)
				}
			}
			return
		}

		reply := s.handleMessage(mgr, msg)
		if err := conn.WriteJSON(reply); err != nil {
			if s.logger != nil {
				s.logger.Warn("websocket write failed",
					zap.String("session_id", sessionID),
					zap.Error(err),
				)
			}
			return
		}
	}
}

// handleMessage dispatches one inbound frame and builds the reply.
func (s *Server) handleMessage(mgr *session.Manager, msg InboundMessage) any {
	switch msg.Type {
	case MessageTypeGameAction:
		if msg.Action == nil {
			return ErrorMessage{Type: MessageTypeError, SessionID: mgr.SessionID(), Reason: "missing action"}
		}
		result, err := mgr.ApplyAction(*msg.Action)
		if err != nil {
			return ErrorMessage{Type: MessageTypeError, SessionID: mgr.SessionID(), Reason: err.Error()}
		}
		return s.buildSync(mgr, result, msg.BaseVersion)

	case MessageTypeRequestFullState:
		full := mgr.FullState()
		return SyncMessage{
			Type:      MessageTypeGameStateSync,
			SessionID: mgr.SessionID(),
			SyncType:  SyncTypeFull,
			Version:   full.Version,
			FullState: full,
		}

	default:
		return ErrorMessage{Type: MessageTypeError, SessionID: mgr.SessionID(), Reason: "unknown message type " + msg.Type}
	}
}

// buildSync chooses between delta and full-state sync. A delta is sent
// only when the client's base version is still in the retained window and
// the delta compresses well enough against the full snapshot.
func (s *Server) buildSync(mgr *session.Manager, result *session.Result, baseVersion *int64) SyncMessage {
	full := SyncMessage{
		Type:      MessageTypeGameStateSync,
		SessionID: mgr.SessionID(),
		SyncType:  SyncTypeFull,
		Version:   result.State.Version,
		FullState: result.State,
		Outcome:   string(result.Outcome),
	}
	if baseVersion == nil {
		return full
	}

	d, err := mgr.DeltaSince(*baseVersion)
	if err != nil {
		// Pruned or otherwise unservable base version: resync with the
		// full snapshot.
		return full
	}
	ratio, err := delta.CompressionRatio(result.State, d)
	if err != nil || ratio < s.ratioThreshold {
		return full
	}

	return SyncMessage{
		Type:      MessageTypeGameStateSync,
		SessionID: mgr.SessionID(),
		SyncType:  SyncTypeDelta,
		Version:   result.State.Version,
		Delta:     d,
		Outcome:   string(result.Outcome),
	}
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	var cfgErr *state.ConfigError
	var unsupported *state.UnsupportedGameError
	var validation *state.ValidationError
	switch {
	case errors.As(err, &unsupported):
		return http.StatusNotFound
	case errors.As(err, &cfgErr), errors.As(err, &validation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, ErrorMessage{Type: MessageTypeError, Reason: reason})
}
