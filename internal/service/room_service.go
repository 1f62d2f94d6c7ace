package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/quizroom-api/internal/domain/entity"
	"github.com/yourusername/quizroom-api/internal/domain/repository"
	apperrors "github.com/yourusername/quizroom-api/internal/pkg/errors"
	"github.com/yourusername/quizroom-api/internal/service/roommanager"
	"github.com/yourusername/quizroom-api/internal/websocket"
)

const (
	// Длина кода комнаты в символах (hex в верхнем регистре)
	roomCodeLength = 8

	// Количество попыток сгенерировать уникальный код комнаты
	roomCodeAttempts = 5
)

// RoomService реализует граничные операции сессии викторины: создание
// комнаты, присоединение, запуск и смену вопросов, прием ответов
// и турнирную таблицу. Каждая операция мутирует Session Store под
// блокировкой комнаты и затем рассылает событие подключенным клиентам.
type RoomService struct {
	store       repository.SessionRepository
	validator   *roommanager.Validator
	scheduler   *roommanager.TimeoutScheduler
	broadcaster roommanager.Broadcaster
	config      *roommanager.Config
}

// NewRoomService создает сервис комнат
func NewRoomService(
	store repository.SessionRepository,
	validator *roommanager.Validator,
	scheduler *roommanager.TimeoutScheduler,
	broadcaster roommanager.Broadcaster,
	config *roommanager.Config,
) *RoomService {
	if config == nil {
		config = roommanager.DefaultConfig()
	}
	return &RoomService{
		store:       store,
		validator:   validator,
		scheduler:   scheduler,
		broadcaster: broadcaster,
		config:      config,
	}
}

// CreateRoom создает комнату и возвращает ее вместе с токеном ведущего.
// Перестановка вопросов фиксируется сразу, чтобы все участники видели
// одинаковую последовательность.
func (s *RoomService) CreateRoom(quizID string, totalQuestions int) (*entity.Room, error) {
	if totalQuestions < 0 {
		return nil, fmt.Errorf("%w: total_questions must be non-negative", apperrors.ErrValidation)
	}

	hostSecret, err := generateToken(16)
	if err != nil {
		return nil, fmt.Errorf("generate host secret: %w", err)
	}

	for attempt := 0; attempt < roomCodeAttempts; attempt++ {
		code, err := generateRoomCode()
		if err != nil {
			return nil, fmt.Errorf("generate room code: %w", err)
		}

		room := entity.NewRoom(code, quizID, hostSecret, totalQuestions)
		room.AssignQuestionOrder()

		if err := s.store.CreateRoom(room); err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				continue
			}
			return nil, err
		}

		log.Printf("[RoomService] Комната %s создана (викторина %s, вопросов %d)", code, quizID, totalQuestions)
		return room, nil
	}
	return nil, fmt.Errorf("%w: could not allocate unique room code", apperrors.ErrConflict)
}

// JoinRoom регистрирует участника и уведомляет комнату о присоединении
func (s *RoomService) JoinRoom(roomID, nickname string) (*entity.Participant, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, fmt.Errorf("%w: nickname is required", apperrors.ErrValidation)
	}

	participant := entity.NewParticipant(uuid.New().String(), roomID, nickname)
	if err := s.store.CreateParticipant(roomID, participant); err != nil {
		return nil, err
	}

	room, err := s.store.GetRoom(roomID)
	if err != nil {
		return nil, err
	}

	s.broadcast(roomID, websocket.PARTICIPANT_JOINED, map[string]interface{}{
		"participant":        participant,
		"total_participants": len(room.ParticipantIDs),
	})

	log.Printf("[RoomService] Участник %s (%s) присоединился к комнате %s", participant.ID, nickname, roomID)
	return participant, nil
}

// StartQuestion запускает таймер вопроса и планирует раскрытие ответа
// по таймауту. Только ведущий (по токену) может запускать вопросы.
func (s *RoomService) StartQuestion(ctx context.Context, roomID, hostSecret string, timeLimitSec int, correctAnswers []string, questionIndex int) (time.Time, error) {
	if timeLimitSec <= 0 {
		timeLimitSec = s.config.DefaultTimeLimitSec
	}
	timeLimit := time.Duration(timeLimitSec) * time.Second

	var endsAt time.Time
	var generation uint64
	err := s.store.WithRoom(roomID, func(room *entity.Room) error {
		if room.HostSecret != hostSecret {
			return apperrors.ErrUnauthorized
		}
		var startErr error
		endsAt, startErr = room.StartTimer(timeLimit)
		if startErr != nil {
			return startErr
		}
		generation = room.Generation
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}

	// Задача раскрытия живет в планировщике, а не в контексте запроса:
	// ответ обязан раскрыться, даже если ведущий больше не обращается к API
	s.scheduler.Schedule(roomID, questionIndex, generation, endsAt, correctAnswers)

	s.broadcast(roomID, websocket.QUESTION_STARTED, map[string]interface{}{
		"question_index": questionIndex,
		"time_limit":     timeLimitSec,
		"ends_at":        endsAt,
	})

	log.Printf("[RoomService] Комната %s: вопрос %d запущен до %v", roomID, questionIndex, endsAt)
	return endsAt, nil
}

// AdvanceQuestion переводит комнату к следующему вопросу, снимая отложенную
// задачу таймаута вытесненного вопроса. Возвращает новый индекс вопроса
// и признак завершения викторины.
func (s *RoomService) AdvanceQuestion(roomID, hostSecret string) (int, bool, error) {
	var currentQuestion int
	var finished bool
	err := s.store.WithRoom(roomID, func(room *entity.Room) error {
		if room.HostSecret != hostSecret {
			return apperrors.ErrUnauthorized
		}
		var advErr error
		finished, advErr = room.Advance()
		if advErr != nil {
			return advErr
		}
		currentQuestion = room.CurrentQuestion
		return nil
	})
	if err != nil {
		return 0, false, err
	}

	// Поколение уже сменилось под блокировкой: даже если отмена опоздает,
	// сработавшая задача увидит устаревшее поколение и промолчит
	s.scheduler.CancelPending(roomID)

	s.broadcast(roomID, websocket.QUESTION_CHANGED, map[string]interface{}{
		"question_index": currentQuestion,
		"quiz_finished":  finished,
	})

	log.Printf("[RoomService] Комната %s: переход к вопросу %d (завершено: %v)", roomID, currentQuestion, finished)
	return currentQuestion, finished, nil
}

// SubmitAnswerParams - параметры приема ответа участника
type SubmitAnswerParams struct {
	RoomID            string
	ParticipantID     string
	AnswerText        string
	ResponseTimeMs    int64
	QuestionIndex     int
	CorrectAnswers    []string
	QuestionType      string
	MaxPoints         int
	ValidationMethod  string  // Пусто = hybrid
	SemanticThreshold float64 // <=0 = порог из конфигурации
}

// SubmitAnswerResult - итог приема ответа
type SubmitAnswerResult struct {
	IsCorrect     bool   `json:"is_correct"`
	PointsEarned  int    `json:"points_earned"`
	CurrentScore  int    `json:"current_score"`
	CurrentStreak int    `json:"current_streak"`
	MethodUsed    string `json:"method_used"`
}

// SubmitAnswer валидирует ответ, начисляет очки и дописывает запись
// в лог ответов комнаты. Валидация (включая обращение к оракулу) выполняется
// до захвата блокировки комнаты; мутация счета, серии и лога - одним
// атомарным шагом под ней.
func (s *RoomService) SubmitAnswer(ctx context.Context, params SubmitAnswerParams) (*SubmitAnswerResult, error) {
	// Существование комнаты и участника проверяется до валидации:
	// она может стоить обращения к внешнему оракулу
	if _, err := s.store.GetRoom(params.RoomID); err != nil {
		return nil, err
	}
	participant, err := s.store.GetParticipant(params.ParticipantID)
	if err != nil {
		return nil, err
	}
	if participant.RoomID != params.RoomID {
		return nil, apperrors.ErrNotFound
	}

	method := params.ValidationMethod
	if method == "" {
		method = entity.ValidationMethodHybrid
	}

	verdict := s.validator.Validate(ctx, params.AnswerText, params.CorrectAnswers,
		params.QuestionType, method, s.config.FuzzyThreshold, params.SemanticThreshold)

	result := &SubmitAnswerResult{
		IsCorrect:  verdict.IsCorrect,
		MethodUsed: verdict.MethodUsed,
	}

	err = s.store.RecordAnswer(params.RoomID, params.ParticipantID, func(room *entity.Room, p *entity.Participant) (*entity.Answer, error) {
		points := 0
		if verdict.IsCorrect {
			// Серия на момент отправки: бонус отражает уже накопленные
			// подряд правильные ответы, текущий ответ увеличит ее следом
			points = roommanager.CalculateScore(params.MaxPoints, params.ResponseTimeMs, s.questionTimeLimitSec(room), p.CurrentStreak)
		}
		p.ApplyAnswerResult(verdict.IsCorrect, points)

		result.PointsEarned = points
		result.CurrentScore = p.Score
		result.CurrentStreak = p.CurrentStreak

		return &entity.Answer{
			ParticipantID:  p.ID,
			QuestionIndex:  params.QuestionIndex,
			Answer:         params.AnswerText,
			IsCorrect:      verdict.IsCorrect,
			PointsEarned:   points,
			ResponseTimeMs: params.ResponseTimeMs,
			SubmittedAt:    time.Now(),
			MethodUsed:     verdict.MethodUsed,
			Confidence:     verdict.Confidence,
			MatchedAnswer:  verdict.MatchedAnswer,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcastLeaderboard(params.RoomID)
	return result, nil
}

// GetLeaderboard пересчитывает турнирную таблицу комнаты
func (s *RoomService) GetLeaderboard(roomID string) ([]entity.LeaderboardEntry, error) {
	room, err := s.store.GetRoom(roomID)
	if err != nil {
		return nil, err
	}
	participants, err := s.store.ParticipantsOf(roomID)
	if err != nil {
		return nil, err
	}
	return entity.BuildLeaderboard(room, participants), nil
}

// GetRoom возвращает снимок комнаты
func (s *RoomService) GetRoom(roomID string) (*entity.Room, error) {
	return s.store.GetRoom(roomID)
}

// questionTimeLimitSec выводит лимит времени текущего вопроса из полей
// таймера комнаты; если таймер не запускался, берется лимит по умолчанию
func (s *RoomService) questionTimeLimitSec(room *entity.Room) int {
	if room.QuestionStartedAt != nil && room.QuestionEndsAt != nil {
		limit := int(room.QuestionEndsAt.Sub(*room.QuestionStartedAt).Seconds())
		if limit > 0 {
			return limit
		}
	}
	return s.config.DefaultTimeLimitSec
}

// broadcastLeaderboard рассылает обновленную турнирную таблицу комнаты
func (s *RoomService) broadcastLeaderboard(roomID string) {
	leaderboard, err := s.GetLeaderboard(roomID)
	if err != nil {
		log.Printf("[RoomService] Не удалось пересчитать таблицу комнаты %s: %v", roomID, err)
		return
	}
	s.broadcast(roomID, websocket.LEADERBOARD_UPDATED, map[string]interface{}{
		"leaderboard": leaderboard,
	})
}

// broadcast отправляет событие комнаты; сбой рассылки не влияет на запрос
func (s *RoomService) broadcast(roomID, eventType string, payload map[string]interface{}) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.BroadcastEventToRoom(roomID, eventType, payload); err != nil {
		log.Printf("[RoomService] Ошибка рассылки события %s в комнату %s: %v", eventType, roomID, err)
	}
}

// generateRoomCode возвращает случайный код комнаты (hex в верхнем регистре)
func generateRoomCode() (string, error) {
	buf := make([]byte, roomCodeLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

// generateToken возвращает случайный hex-токен заданной длины в байтах
func generateToken(bytes int) (string, error) {
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
