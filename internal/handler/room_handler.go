package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/quizroom-api/internal/handler/dto"
	apperrors "github.com/yourusername/quizroom-api/internal/pkg/errors"
	"github.com/yourusername/quizroom-api/internal/service"
)

// RoomHandler обрабатывает запросы, связанные с комнатами викторины
type RoomHandler struct {
	roomService *service.RoomService
}

// NewRoomHandler создает новый обработчик комнат
func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

// CreateRoomRequest представляет запрос на создание комнаты
type CreateRoomRequest struct {
	QuizID         string `json:"quiz_id" binding:"required"`
	TotalQuestions int    `json:"total_questions" binding:"required,min=1,max=200"`
}

// CreateRoom обрабатывает запрос на создание комнаты
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.roomService.CreateRoom(req.QuizID, req.TotalQuestions)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewCreateRoomResponse(room))
}

// GetRoom возвращает текущее состояние комнаты
func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, err := h.roomService.GetRoom(c.Param("roomID"))
	if err != nil {
		h.handleRoomError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewRoomResponse(room))
}

// JoinRoomRequest представляет запрос на присоединение к комнате
type JoinRoomRequest struct {
	Nickname string `json:"nickname" binding:"required,min=1,max=50"`
}

// JoinRoom обрабатывает присоединение участника к комнате
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	participant, err := h.roomService.JoinRoom(c.Param("roomID"), req.Nickname)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewParticipantResponse(participant))
}

// StartQuestionRequest представляет запрос ведущего на запуск вопроса
type StartQuestionRequest struct {
	HostSecret     string   `json:"host_secret" binding:"required"`
	QuestionIndex  int      `json:"question_index" binding:"min=0"`
	TimeLimitSec   int      `json:"time_limit" binding:"omitempty,min=1,max=600"`
	CorrectAnswers []string `json:"correct_answers" binding:"required,min=1"`
}

// StartQuestion запускает таймер вопроса
func (h *RoomHandler) StartQuestion(c *gin.Context) {
	var req StartQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	endsAt, err := h.roomService.StartQuestion(c.Request.Context(), c.Param("roomID"),
		req.HostSecret, req.TimeLimitSec, req.CorrectAnswers, req.QuestionIndex)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"question_index": req.QuestionIndex,
		"ends_at":        endsAt.Format(time.RFC3339Nano),
	})
}

// AdvanceQuestionRequest представляет запрос ведущего на смену вопроса
type AdvanceQuestionRequest struct {
	HostSecret string `json:"host_secret" binding:"required"`
}

// AdvanceQuestion переводит комнату к следующему вопросу
func (h *RoomHandler) AdvanceQuestion(c *gin.Context) {
	var req AdvanceQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	currentQuestion, finished, err := h.roomService.AdvanceQuestion(c.Param("roomID"), req.HostSecret)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"current_question": currentQuestion,
		"quiz_finished":    finished,
	})
}

// SubmitAnswerRequest представляет ответ участника на вопрос
type SubmitAnswerRequest struct {
	ParticipantID     string   `json:"participant_id" binding:"required"`
	AnswerText        string   `json:"answer" binding:"required"`
	ResponseTimeMs    int64    `json:"response_time" binding:"min=0"`
	QuestionIndex     int      `json:"question_index" binding:"min=0"`
	CorrectAnswers    []string `json:"correct_answers" binding:"required,min=1"`
	QuestionType      string   `json:"question_type" binding:"required,oneof=multiple-choice short-answer"`
	MaxPoints         int      `json:"max_points" binding:"required,min=1"`
	ValidationMethod  string   `json:"validation_method" binding:"omitempty"`
	SemanticThreshold float64  `json:"semantic_threshold" binding:"omitempty,gt=0,lte=1"`
}

// SubmitAnswer принимает ответ участника
func (h *RoomHandler) SubmitAnswer(c *gin.Context) {
	var req SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.roomService.SubmitAnswer(c.Request.Context(), service.SubmitAnswerParams{
		RoomID:            c.Param("roomID"),
		ParticipantID:     req.ParticipantID,
		AnswerText:        req.AnswerText,
		ResponseTimeMs:    req.ResponseTimeMs,
		QuestionIndex:     req.QuestionIndex,
		CorrectAnswers:    req.CorrectAnswers,
		QuestionType:      req.QuestionType,
		MaxPoints:         req.MaxPoints,
		ValidationMethod:  req.ValidationMethod,
		SemanticThreshold: req.SemanticThreshold,
	})
	if err != nil {
		h.handleRoomError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetLeaderboard возвращает турнирную таблицу комнаты
func (h *RoomHandler) GetLeaderboard(c *gin.Context) {
	roomID := c.Param("roomID")
	leaderboard, err := h.roomService.GetLeaderboard(roomID)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewLeaderboardResponse(roomID, leaderboard))
}

// handleRoomError преобразует ошибку доменного слоя в HTTP-ответ
func (h *RoomHandler) handleRoomError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Room or participant not found"})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid host secret"})
	case errors.Is(err, apperrors.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": "Operation not allowed in current room state"})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("[RoomHandler] Внутренняя ошибка: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
