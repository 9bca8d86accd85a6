package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/fieldcrew-backend/internal/goroutine"
	"github.com/ignatzorin/fieldcrew-backend/internal/logger"
)

// Hub управляет WebSocket клиентами администраторов.
// Клиенты сгруппированы по клиенту-арендатору; администраторы платформы
// подключаются с uuid.Nil и получают события всех арендаторов.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
}

type message struct {
	tenantID uuid.UUID
	payload  []byte
}

// Envelope - формат сообщения для клиента: "type" содержит имя события, "data" - полезную нагрузку.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// NewHub создаёт новый хаб.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 32),
		done:       make(chan struct{}),
	}
}

// Run запускает главный цикл хаба до отмены контекста.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg.tenantID, msg.payload)
		}
	}
}

// Register добавляет клиента. После остановки хаба возвращает false.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastToTenant отправляет событие администраторам арендатора и администраторам платформы.
func (h *Hub) BroadcastToTenant(tenantID uuid.UUID, event string, data interface{}) error {
	raw, err := json.Marshal(Envelope{Type: event, Data: data})
	if err != nil {
		return fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}

	select {
	case h.broadcast <- message{tenantID: tenantID, payload: raw}:
		return nil
	default:
		return fmt.Errorf("ws: очередь рассылки переполнена")
	}
}

// ConnectedCount возвращает число подключений арендатора.
func (h *Hub) ConnectedCount(tenantID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[tenantID])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.tenantID]; !ok {
		h.clients[client.tenantID] = make(map[*Client]struct{})
	}
	h.clients[client.tenantID][client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.tenantID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			close(client.send)
		}
		if len(clients) == 0 {
			delete(h.clients, client.tenantID)
		}
	}
}

func (h *Hub) send(tenantID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := []uuid.UUID{uuid.Nil}
	if tenantID != uuid.Nil {
		targets = append(targets, tenantID)
	}

	for _, target := range targets {
		for client := range h.clients[target] {
			select {
			case client.send <- payload:
			default:
				// Медленный клиент: закрываем вне цикла хаба
				c := client
				goroutine.SafeGo("ws-close", c.Close)
				logger.Log.WithField("user_id", c.userID).Warn("ws: буфер клиента переполнен, соединение закрыто")
			}
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for tenantID, clients := range h.clients {
		for client := range clients {
			close(client.send)
		}
		delete(h.clients, tenantID)
	}
}
