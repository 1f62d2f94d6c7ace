package websocket

import (
	"log"
	"sync"
)

// roomMessage - сообщение, адресованное всем клиентам одной комнаты
type roomMessage struct {
	roomID  string
	payload []byte
}

// HubConfig содержит настройки буферов хаба
type HubConfig struct {
	BroadcastBuffer  int
	RegisterBuffer   int
	UnregisterBuffer int
}

// DefaultHubConfig возвращает конфигурацию хаба по умолчанию
func DefaultHubConfig() HubConfig {
	return HubConfig{
		BroadcastBuffer:  256,
		RegisterBuffer:   64,
		UnregisterBuffer: 64,
	}
}

// Hub ведет реестр живых клиентов по комнатам и рассылает им сообщения.
// Регистрация, отмена регистрации и рассылка сериализуются через цикл Run,
// поэтому подключение/отключение клиентов безопасно чередуется с идущей
// рассылкой: незатронутые клиенты не теряют сообщений и не получают дублей.
//
// Хаб ничего не знает о семантике викторины - полезная нагрузка для него
// непрозрачна.
type Hub struct {
	// mu защищает карту rooms для читающих методов (ClientCount);
	// мутации выполняет только цикл Run
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}

	broadcast  chan roomMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	closeOnce  sync.Once
}

// NewHub создает новый хаб
func NewHub(cfg HubConfig) *Hub {
	if cfg.BroadcastBuffer <= 0 {
		cfg.BroadcastBuffer = 256
	}
	if cfg.RegisterBuffer <= 0 {
		cfg.RegisterBuffer = 64
	}
	if cfg.UnregisterBuffer <= 0 {
		cfg.UnregisterBuffer = 64
	}
	return &Hub{
		rooms:      make(map[string]map[*Client]struct{}),
		broadcast:  make(chan roomMessage, cfg.BroadcastBuffer),
		register:   make(chan *Client, cfg.RegisterBuffer),
		unregister: make(chan *Client, cfg.UnregisterBuffer),
		done:       make(chan struct{}),
	}
}

// Run запускает цикл обработки событий хаба
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case message := <-h.broadcast:
			h.handleBroadcast(message)
		case <-h.done:
			log.Printf("[Hub] Получен сигнал завершения, отключаем всех клиентов")
			h.cleanupAllClients()
			return
		}
	}
}

// Register ставит клиента в очередь на регистрацию
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister ставит клиента в очередь на отключение
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastToRoom отправляет сообщение всем клиентам комнаты.
// Доставка best-effort: при переполненной очереди хаба сообщение
// отбрасывается с записью в лог, но вызывающий не блокируется.
func (h *Hub) BroadcastToRoom(roomID string, payload []byte) {
	select {
	case h.broadcast <- roomMessage{roomID: roomID, payload: payload}:
	default:
		log.Printf("[Hub] Очередь рассылки переполнена, сообщение для комнаты %s отброшено", roomID)
	}
}

// ClientCount возвращает общее количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, clients := range h.rooms {
		total += len(clients)
	}
	return total
}

// RoomClientCount возвращает количество клиентов в комнате
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Shutdown останавливает цикл хаба и отключает всех клиентов
func (h *Hub) Shutdown() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

// handleRegister добавляет клиента в реестр его комнаты
func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	clients, ok := h.rooms[client.RoomID]
	if !ok {
		clients = make(map[*Client]struct{})
		h.rooms[client.RoomID] = clients
	}
	clients[client] = struct{}{}
	h.mu.Unlock()

	log.Printf("[Hub] Клиент %s зарегистрирован в комнате %s", client.ConnectionID, client.RoomID)
}

// handleUnregister удаляет клиента из реестра и закрывает его ресурсы
func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	clients, ok := h.rooms[client.RoomID]
	if ok {
		if _, registered := clients[client]; registered {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.rooms, client.RoomID)
			}
		} else {
			ok = false
		}
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	if client.conn != nil {
		client.conn.Close()
	}
	client.CloseSend()
	log.Printf("[Hub] Клиент %s отключен от комнаты %s", client.ConnectionID, client.RoomID)
}

// handleBroadcast рассылает сообщение клиентам комнаты.
// Сбой доставки одному клиенту не прерывает доставку остальным:
// переполнившийся клиент получает предупреждение и после maxBufferWarnings
// отключается, остальные продолжают получать сообщения.
func (h *Hub) handleBroadcast(message roomMessage) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[message.roomID]))
	for client := range h.rooms[message.roomID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if client.IsSendClosed() {
			h.handleUnregister(client)
			continue
		}

		select {
		case client.send <- message.payload:
			// Доставлено в очередь клиента
		default:
			// Буфер клиента переполнен: сообщение для него теряется,
			// медленный клиент не должен задерживать остальных
			warnings := client.incrementBufferWarningCount()
			log.Printf("[Hub] Буфер клиента %s переполнен (предупреждение %d/%d)",
				client.ConnectionID, warnings, maxBufferWarnings)
			if warnings >= maxBufferWarnings {
				log.Printf("[Hub] Клиент %s отключен из-за переполнения буфера", client.ConnectionID)
				h.handleUnregister(client)
			}
		}
	}
}

// cleanupAllClients отключает всех клиентов при остановке хаба
func (h *Hub) cleanupAllClients() {
	h.mu.Lock()
	var all []*Client
	for _, clients := range h.rooms {
		for client := range clients {
			all = append(all, client)
		}
	}
	h.rooms = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	for _, client := range all {
		if client.conn != nil {
			client.conn.Close()
		}
		client.CloseSend()
	}
}
