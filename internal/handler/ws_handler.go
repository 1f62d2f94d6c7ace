package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	apperrors "github.com/yourusername/quizroom-api/internal/pkg/errors"
	"github.com/yourusername/quizroom-api/internal/service"
	"github.com/yourusername/quizroom-api/internal/websocket"
)

// WSHandler обрабатывает WebSocket соединения комнат
type WSHandler struct {
	hub         *websocket.Hub
	roomService *service.RoomService
	upgrader    gorillaws.Upgrader
}

// NewWSHandler создает новый обработчик WebSocket.
// allowedOrigins - список разрешенных Origin; пустой Origin (небраузерные
// клиенты) пропускается всегда.
func NewWSHandler(hub *websocket.Hub, roomService *service.RoomService, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub:         hub,
		roomService: roomService,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:    4096,
			WriteBufferSize:   4096,
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if origin == allowed {
						return true
					}
				}
				log.Printf("[WSHandler] Отклонен неразрешенный origin: %s", origin)
				return false
			},
		},
	}
}

// HandleConnection подключает клиента к потоку событий комнаты.
// Соединение привязывается к комнате на все время жизни; входящие
// сообщения игнорируются - состояние комнаты меняется только через REST API.
func (h *WSHandler) HandleConnection(c *gin.Context) {
	roomID := c.Param("roomID")

	// Комната должна существовать до апгрейда соединения
	if _, err := h.roomService.GetRoom(roomID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}
		log.Printf("[WSHandler] Ошибка проверки комнаты %s: %v", roomID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WSHandler] Ошибка апгрейда соединения для комнаты %s: %v", roomID, err)
		return
	}

	client := websocket.NewClient(h.hub, conn, roomID)
	client.StartPumps()

	log.Printf("[WSHandler] Клиент %s подключен к комнате %s", client.ConnectionID, roomID)
}
