package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"chess-coach/internal/models"
	"chess-coach/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced on the HTTP API; tokens guard the socket
	},
}

// WebSocketHandler pushes game updates to the player's open connections. It
// implements session.Notifier.
type WebSocketHandler struct {
	sessions  *session.Service
	hub       *Hub
	publisher Publisher
}

// Publisher relays updates to other server instances. eventbus.EventBus
// implements it.
type Publisher interface {
	Publish(sessionID string, message []byte)
}

var _ session.Notifier = (*WebSocketHandler)(nil)

func NewWebSocketHandler(sessions *session.Service) *WebSocketHandler {
	hub := NewHub()
	go hub.Run()
	return &WebSocketHandler{sessions: sessions, hub: hub}
}

// Hub maintains active connections and broadcasts messages
type Hub struct {
	// Map of sessionId -> set of connections
	sessions map[string]map[*Client]bool
	mu       sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}
}

type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	sessionId string
	playerId  string
	send      chan []byte
}

type BroadcastMessage struct {
	SessionId string
	Message   []byte
}

type WSMessage struct {
	Type  string        `json:"type"`
	Game  *models.Game  `json:"game,omitempty"`
	Moves []models.Move `json:"moves,omitempty"`
}

func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 64),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.sessions[client.sessionId] == nil {
				h.sessions[client.sessionId] = make(map[*Client]bool)
			}
			h.sessions[client.sessionId][client] = true
			h.mu.Unlock()
			log.Printf("Client registered: session=%s player=%s", client.sessionId, client.playerId)

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			log.Printf("Client unregistered: session=%s player=%s", client.sessionId, client.playerId)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.sessions[msg.SessionId] {
				select {
				case client.send <- msg.Message:
				default:
					// Slow reader; drop it.
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove drops client. Callers hold h.mu.
func (h *Hub) remove(client *Client) {
	session, ok := h.sessions[client.sessionId]
	if !ok || !session[client] {
		return
	}
	delete(session, client)
	close(client.send)
	if len(session) == 0 {
		delete(h.sessions, client.sessionId)
	}
}

// Stop ends Run.
func (h *Hub) Stop() {
	close(h.done)
}

// Connections returns how many clients watch sessionId.
func (h *Hub) Connections(sessionId string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionId])
}

func (h *Hub) BroadcastToSession(sessionId string, message []byte) {
	select {
	case h.broadcast <- &BroadcastMessage{SessionId: sessionId, Message: message}:
	case <-h.done:
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleWebSocket subscribes the player to their game. The first message is
// the current state.
// GET /ws/games/{sessionId}
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	playerId, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	sessionId := mux.Vars(r)["sessionId"]

	game, moves, err := h.sessions.Get(r.Context(), sessionId)
	if err != nil {
		respondWithSessionError(w, err)
		return
	}
	if game.PlayerID != playerId {
		respondWithSessionError(w, session.ErrNotYourGame)
		return
	}
	state, err := json.Marshal(WSMessage{Type: "game_state", Game: game, Moves: moves})
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to encode game")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:       h.hub,
		conn:      conn,
		sessionId: sessionId,
		playerId:  playerId,
		send:      make(chan []byte, 256),
	}
	client.send <- state

	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// GameUpdated sends the game and the moves just made to every connection on
// the game.
func (h *WebSocketHandler) GameUpdated(game *models.Game, moves []models.Move) {
	msgType := "game_update"
	if game.Status == models.GameStatusComplete {
		msgType = "game_over"
	}
	data, err := json.Marshal(WSMessage{Type: msgType, Game: game, Moves: moves})
	if err != nil {
		log.Printf("Failed to marshal game update: %v", err)
		return
	}
	h.hub.BroadcastToSession(game.SessionID, data)
	if h.publisher != nil {
		h.publisher.Publish(game.SessionID, data)
	}
}

// SetPublisher makes every update also go to p.
func (h *WebSocketHandler) SetPublisher(p Publisher) {
	h.publisher = p
}

// GetHub returns the hub for use by other handlers
func (h *WebSocketHandler) GetHub() *Hub {
	return h.hub
}
