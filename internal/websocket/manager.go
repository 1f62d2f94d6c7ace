package websocket

import (
	"encoding/json"
	"fmt"
	"log"
)

// Manager инкапсулирует формирование конвертов событий комнаты.
// Конверт плоский: поле "type" добавляется к полям полезной нагрузки
// на одном уровне, без вложенного объекта data.
type Manager struct {
	hub *Hub
}

// NewManager создает менеджер поверх хаба
func NewManager(hub *Hub) *Manager {
	return &Manager{hub: hub}
}

// BroadcastEventToRoom сериализует событие и рассылает его всем клиентам комнаты.
// Поле "type" из payload перезаписывается типом события.
func (m *Manager) BroadcastEventToRoom(roomID string, eventType string, payload map[string]interface{}) error {
	envelope := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		envelope[k] = v
	}
	envelope["type"] = eventType

	data, err := json.Marshal(envelope)
	if err != nil {
		log.Printf("[WebSocket] Ошибка сериализации события %s для комнаты %s: %v", eventType, roomID, err)
		return fmt.Errorf("marshal event %s: %w", eventType, err)
	}

	m.hub.BroadcastToRoom(roomID, data)
	return nil
}

// RoomClientCount возвращает количество подключений в комнате
func (m *Manager) RoomClientCount(roomID string) int {
	return m.hub.RoomClientCount(roomID)
}
