package services

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

// Типы событий проекции, рассылаемые клиентам
const (
	EventMissingUpserted       = "missing.upserted"
	EventMissingDeleted        = "missing.deleted"
	EventMissingRebuilt        = "missing.rebuilt"
	EventDuplicatesInvalidated = "duplicates.invalidated"
)

// WSMessage представляет сообщение WebSocket
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ProjectionNotifier получает события об изменении производных представлений
type ProjectionNotifier interface {
	Publish(tenantID uint, message WSMessage)
}

type tenantMessage struct {
	tenantID uint
	message  WSMessage
}

// Client представляет подключенного клиента
type Client struct {
	TenantID uint
	UserID   uint
	Conn     *websocket.Conn
	Send     chan WSMessage
	Hub      *Hub
}

// Hub управляет подключениями и рассылает события клиентам одного тенанта
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan tenantMessage
	done       chan struct{}
	mutex      sync.RWMutex
	log        *logrus.Logger
}

// NewHub создает новый хаб
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan tenantMessage, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run запускает хаб до отмены контекста
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mutex.Lock()
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.WithFields(logrus.Fields{"tenant_id": client.TenantID, "clients": total}).Debug("websocket client connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mutex.Unlock()

		case msg := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				if client.TenantID != msg.tenantID {
					continue
				}
				select {
				case client.Send <- msg.message:
				default:
					// Медленный клиент отключается
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Publish ставит событие в очередь рассылки, не блокируя запрос
func (h *Hub) Publish(tenantID uint, message WSMessage) {
	select {
	case h.broadcast <- tenantMessage{tenantID: tenantID, message: message}:
	default:
		h.log.WithFields(logrus.Fields{"tenant_id": tenantID, "type": message.Type}).Warn("hub broadcast queue full; event dropped")
	}
}

// ClientCount возвращает количество подключенных клиентов тенанта
func (h *Hub) ClientCount(tenantID uint) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	count := 0
	for client := range h.clients {
		if client.TenantID == tenantID {
			count++
		}
	}
	return count
}

// HandleWebSocket обрабатывает WebSocket соединение. Тенант уже проверен AuthMiddleware
func (h *Hub) HandleWebSocket(c *websocket.Conn) {
	tenantID, _ := c.Locals("tenant_id").(uint)
	userID, _ := c.Locals("user_id").(uint)
	if tenantID == 0 {
		c.Close()
		return
	}

	client := &Client{
		TenantID: tenantID,
		UserID:   userID,
		Conn:     c,
		Send:     make(chan WSMessage, 64),
		Hub:      h,
	}
	select {
	case h.register <- client:
	case <-h.done:
		c.Close()
		return
	}

	// Хендлер fiber websocket должен блокироваться, пока соединение живо
	go client.writePump()
	client.readPump()
}

// readPump читает входящие кадры только для обработки закрытия и pong
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.WithError(err).Warn("websocket read error")
			}
			return
		}
	}
}

// writePump записывает сообщения в WebSocket
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
