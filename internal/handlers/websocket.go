package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jwebster45206/tavern-engine/internal/logger"
	"github.com/jwebster45206/tavern-engine/internal/tavern"
	"github.com/jwebster45206/tavern-engine/pkg/dialogue"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Websocket command types
const (
	CommandAdvance = "advance"
	CommandSelect  = "select"
)

// Command is one input sent by a websocket client
type Command struct {
	Type   string            `json:"type"`
	Option dialogue.OptionID `json:"option,omitempty"`
}

// Reply is sent after every command, and once on connect
type Reply struct {
	Interaction *InteractionResponse `json:"interaction,omitempty"`
	Error       string               `json:"error,omitempty"`
	Status      int                  `json:"status,omitempty"`
}

// WebSocketHandler drives an interaction over a websocket
// GET /v1/ws/interaction/{interactionID}
type WebSocketHandler struct {
	service *tavern.Service
	logger  *slog.Logger
}

func NewWebSocketHandler(service *tavern.Service, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		service: service,
		logger:  logger,
	}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	idStr := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/ws/interaction"), "/")
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid interaction ID format")
		return
	}

	it, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		h.logger.Warn("WebSocket upgrade failed", "error", err, "interaction_id", id)
		return
	}
	log := logger.WithInteraction(h.logger, id)
	log.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	s := &wsSession{conn: conn, log: log}
	defer s.close()

	resp := newInteractionResponse(it)
	if err := s.send(Reply{Interaction: &resp}); err != nil {
		return
	}
	// Blocked interactions are closed before the first command
	if resp.Closed {
		s.closeNormal()
		return
	}

	done := make(chan struct{})
	defer close(done)
	go s.pingLoop(done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("WebSocket read error", "error", err)
			} else {
				log.Info("WebSocket connection closed")
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			if s.send(Reply{Error: "invalid command", Status: http.StatusBadRequest}) != nil {
				return
			}
			continue
		}

		reply := h.handleCommand(r, id, cmd)
		if err := s.send(reply); err != nil {
			return
		}
		if reply.Interaction != nil && reply.Interaction.Closed {
			s.closeNormal()
			return
		}
	}
}

func (h *WebSocketHandler) handleCommand(r *http.Request, id uuid.UUID, cmd Command) Reply {
	var (
		resp InteractionResponse
		err  error
	)
	switch cmd.Type {
	case CommandAdvance:
		it, e := h.service.Advance(r.Context(), id)
		if err = e; err == nil {
			resp = newInteractionResponse(it)
		}
	case CommandSelect:
		it, e := h.service.Select(r.Context(), id, cmd.Option)
		if err = e; err == nil {
			resp = newInteractionResponse(it)
		}
	default:
		return Reply{Error: "unknown command type " + cmd.Type, Status: http.StatusBadRequest}
	}
	if err != nil {
		status := statusForError(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			h.logger.Error("WebSocket command failed", "error", err, "interaction_id", id)
			msg = "internal server error"
		}
		return Reply{Error: msg, Status: status}
	}
	return Reply{Interaction: &resp}
}

// wsSession serializes writes; gorilla connections allow one writer at a time
type wsSession struct {
	mu   sync.Mutex
	conn *websocket.Conn
	log  *slog.Logger
}

func (s *wsSession) send(reply Reply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(reply); err != nil {
		s.log.Warn("Failed to write websocket message", "error", err)
		return err
	}
	return nil
}

func (s *wsSession) pingLoop(done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.mu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			s.mu.Unlock()
			if err != nil {
				s.log.Debug("Failed to send ping", "error", err)
				return
			}
		}
	}
}

func (s *wsSession) closeNormal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "interaction closed")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

func (s *wsSession) close() {
	if err := s.conn.Close(); err != nil {
		s.log.Debug("Failed to close websocket", "error", err)
	}
}
