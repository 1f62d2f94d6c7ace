package entity

import (
	"math/rand"
	"time"

	apperrors "github.com/yourusername/quizroom-api/internal/pkg/errors"
)

// Статусы комнаты
const (
	// RoomStatusWaiting - комната ожидает запуска следующего вопроса
	RoomStatusWaiting = "waiting"

	// RoomStatusActive - таймер вопроса запущен, идет прием ответов
	RoomStatusActive = "active"

	// RoomStatusPaused - комната приостановлена ведущим (зарезервировано, текущий поток не использует)
	RoomStatusPaused = "paused"

	// RoomStatusFinished - викторина завершена, дальнейшие переходы запрещены
	RoomStatusFinished = "finished"
)

// Room представляет одну сессию викторины: код комнаты, токен ведущего
// и состояние прохождения вопросов.
//
// Методы Room не потокобезопасны сами по себе: все мутации должны выполняться
// под блокировкой комнаты в Session Store (repository.SessionRepository.WithRoom).
type Room struct {
	ID                string     `json:"id"`
	QuizID            string     `json:"quiz_id"`
	HostSecret        string     `json:"-"` // Токен ведущего, никогда не отдается участникам
	TotalQuestions    int        `json:"total_questions"`
	CurrentQuestion   int        `json:"current_question"`
	QuestionOrder     []int      `json:"question_order,omitempty"`
	Status            string     `json:"status"`
	QuestionStartedAt *time.Time `json:"question_started_at,omitempty"`
	QuestionEndsAt    *time.Time `json:"question_ends_at,omitempty"`
	ParticipantIDs    []string   `json:"participant_ids"`
	CreatedAt         time.Time  `json:"created_at"`

	// Generation увеличивается при каждом StartTimer/Advance.
	// Отложенная задача таймаута сравнивает свое поколение с текущим
	// перед срабатыванием: устаревшая задача становится no-op.
	Generation uint64 `json:"-"`
}

// NewRoom создает комнату в состоянии ожидания
func NewRoom(id, quizID, hostSecret string, totalQuestions int) *Room {
	return &Room{
		ID:             id,
		QuizID:         quizID,
		HostSecret:     hostSecret,
		TotalQuestions: totalQuestions,
		Status:         RoomStatusWaiting,
		ParticipantIDs: []string{},
		CreatedAt:      time.Now(),
	}
}

// StartTimer запускает таймер текущего вопроса.
// Допустим только из состояния waiting: повторный вызов при активном таймере
// возвращает ErrInvalidState, а не молча продлевает таймер.
func (r *Room) StartTimer(timeLimit time.Duration) (time.Time, error) {
	if r.Status != RoomStatusWaiting {
		return time.Time{}, apperrors.ErrInvalidState
	}

	now := time.Now()
	endsAt := now.Add(timeLimit)
	r.QuestionStartedAt = &now
	r.QuestionEndsAt = &endsAt
	r.Status = RoomStatusActive
	r.Generation++
	return endsAt, nil
}

// Advance переводит комнату к следующему вопросу.
// Возвращает true, если достигнут конец викторины (комната переходит в finished).
// Может вызываться и при активном таймере - это штатный путь прерывания вопроса
// ведущим, обесценивающий отложенную задачу таймаута через Generation.
func (r *Room) Advance() (bool, error) {
	if r.Status == RoomStatusFinished {
		return false, apperrors.ErrInvalidState
	}

	r.CurrentQuestion++
	r.QuestionStartedAt = nil
	r.QuestionEndsAt = nil
	r.Generation++

	if r.CurrentQuestion >= r.TotalQuestions {
		// Инвариант current_question <= total_questions
		r.CurrentQuestion = r.TotalQuestions
		r.Status = RoomStatusFinished
		return true, nil
	}

	r.Status = RoomStatusWaiting
	return false, nil
}

// TimeRemaining возвращает оставшееся время текущего вопроса.
// Второе значение false означает, что таймер не запущен.
// Никогда не возвращает отрицательную длительность.
func (r *Room) TimeRemaining() (time.Duration, bool) {
	if r.QuestionEndsAt == nil {
		return 0, false
	}
	remaining := time.Until(*r.QuestionEndsAt)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// AssignQuestionOrder генерирует случайную перестановку индексов вопросов.
// Идемпотентен: перестановка фиксируется один раз на все время жизни комнаты,
// чтобы все участники видели одинаковую последовательность.
func (r *Room) AssignQuestionOrder() {
	if len(r.QuestionOrder) > 0 || r.TotalQuestions <= 0 {
		return
	}
	r.QuestionOrder = rand.Perm(r.TotalQuestions)
}

// QuestionAt переводит логический индекс вопроса в индекс содержимого викторины
// согласно зафиксированной перестановке.
func (r *Room) QuestionAt(logical int) int {
	if logical >= 0 && logical < len(r.QuestionOrder) {
		return r.QuestionOrder[logical]
	}
	return logical
}

// IsFinished проверяет, завершена ли викторина
func (r *Room) IsFinished() bool {
	return r.Status == RoomStatusFinished
}

// Clone возвращает глубокую копию комнаты для чтения вне блокировки
func (r *Room) Clone() *Room {
	clone := *r
	clone.QuestionOrder = append([]int(nil), r.QuestionOrder...)
	clone.ParticipantIDs = append([]string(nil), r.ParticipantIDs...)
	if r.QuestionStartedAt != nil {
		startedAt := *r.QuestionStartedAt
		clone.QuestionStartedAt = &startedAt
	}
	if r.QuestionEndsAt != nil {
		endsAt := *r.QuestionEndsAt
		clone.QuestionEndsAt = &endsAt
	}
	return &clone
}
