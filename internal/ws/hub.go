package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/servicehub-backend/internal/goroutine"
	"github.com/ignatzorin/servicehub-backend/internal/logger"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
	"github.com/ignatzorin/servicehub-backend/internal/usecase/completion"
)

var errHubStopped = apperror.New(apperror.ErrCodeInternal, "ws: хаб остановлен")

// NotificationSaver интерфейс для сохранения уведомлений в БД.
type NotificationSaver interface {
	CreateNotification(ctx context.Context, userID uuid.UUID, event string, data interface{}) error
}

// Hub управляет всеми WebSocket клиентами.
type Hub struct {
	mu                sync.RWMutex
	clients           map[uuid.UUID]map[*Client]struct{}
	register          chan *Client
	unregister        chan *Client
	broadcast         chan message
	done              chan struct{}
	notificationSaver NotificationSaver
	onConnect         func(userID uuid.UUID)
	logger            *logrus.Entry
}

type message struct {
	userID  uuid.UUID
	payload []byte
}

// envelope задаёт формат сообщения для клиента: "type" содержит имя события, "data" полезную нагрузку.
type envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// NewHub создаёт новый хаб.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 64),
		done:       make(chan struct{}),
		logger:     logger.Component("ws_hub"),
	}
}

// SetNotificationSaver устанавливает сервис для сохранения уведомлений.
func (h *Hub) SetNotificationSaver(saver NotificationSaver) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notificationSaver = saver
}

// OnConnect задаёт обработчик, вызываемый в отдельной горутине при подключении клиента.
func (h *Hub) OnConnect(fn func(userID uuid.UUID)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onConnect = fn
}

// Run запускает главный цикл хаба. При отмене ctx закрывает все соединения.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg.userID, msg.payload)
		}
	}
}

// Register добавляет клиента.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Notify сохраняет уведомление и отправляет его пользователю, если тот в сети.
// Ошибка сохранения возвращается, сообщение при этом не отправляется.
func (h *Hub) Notify(ctx context.Context, userID uuid.UUID, event string, data interface{}) error {
	h.mu.RLock()
	saver := h.notificationSaver
	h.mu.RUnlock()

	if saver != nil {
		if err := saver.CreateNotification(ctx, userID, event, data); err != nil {
			return err
		}
	}

	return h.Push(ctx, userID, event, data)
}

// Push отправляет событие пользователю без сохранения в БД.
func (h *Hub) Push(ctx context.Context, userID uuid.UUID, event string, data interface{}) error {
	raw, err := json.Marshal(envelope{Type: event, Data: data})
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "ws: не удалось сериализовать сообщение")
	}

	select {
	case <-h.done:
		return errHubStopped
	default:
	}

	select {
	case h.broadcast <- message{userID: userID, payload: raw}:
		return nil
	case <-h.done:
		return errHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PresentConfirmation показывает заказчику запрос на подтверждение выполнения.
func (h *Hub) PresentConfirmation(ctx context.Context, consumerID uuid.UUID, prompt completion.Prompt) error {
	return h.Push(ctx, consumerID, completion.EventConfirmationRequired, prompt)
}

// ConnectedUsers возвращает пользователей, у которых есть хотя бы одно соединение.
func (h *Hub) ConnectedUsers() []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]uuid.UUID, 0, len(h.clients))
	for userID := range h.clients {
		users = append(users, userID)
	}
	return users
}

// IsOnline сообщает, подключён ли пользователь.
func (h *Hub) IsOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]struct{})
	}
	h.clients[client.userID][client] = struct{}{}
	onConnect := h.onConnect
	h.mu.Unlock()

	h.logger.WithField("user_id", client.userID).Debug("client connected")

	if onConnect != nil {
		userID := client.userID
		goroutine.SafeGo("ws_on_connect", func() { onConnect(userID) })
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.userID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clients := range h.clients {
		for client := range clients {
			close(client.send)
		}
		delete(h.clients, userID)
	}
}

func (h *Hub) send(userID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
			// Медленный клиент: буфер переполнен, соединение закрывается.
			h.logger.WithField("user_id", userID).Warn("client send buffer full, closing")
			c := client
			goroutine.SafeGo("ws_client_close", c.Close)
		}
	}
}
