package roommanager

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/yourusername/quizroom-api/internal/domain/entity"
	"github.com/yourusername/quizroom-api/internal/websocket"
)

// TimeoutScheduler гарантирует, что каждый запущенный вопрос ровно один раз
// раскроет правильный ответ всем клиентам, даже если ведущий так и не вызвал
// переход к следующему вопросу.
//
// Защита от гонки срабатывания и отмены двухуровневая: context.CancelFunc
// снимает задачу заранее, а проверка поколения комнаты под ее блокировкой
// превращает опоздавшую задачу в no-op. Сбои задач глушатся - доставка
// таймаута best-effort и никогда не роняет процесс.
type TimeoutScheduler struct {
	config *Config
	deps   *Dependencies

	// Базовый контекст всех задач. Живет столько же, сколько сам планировщик:
	// задачи не наследуют контекст HTTP-запроса, иначе завершение запроса
	// ведущего снимало бы отложенное раскрытие ответа.
	baseCtx    context.Context
	baseCancel context.CancelFunc

	// map[string]context.CancelFunc по коду комнаты
	roomCancels sync.Map
}

// NewTimeoutScheduler создает планировщик таймаутов вопросов
func NewTimeoutScheduler(config *Config, deps *Dependencies) *TimeoutScheduler {
	baseCtx, baseCancel := context.WithCancel(context.Background())
	return &TimeoutScheduler{
		config:     config,
		deps:       deps,
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
	}
}

// Schedule регистрирует отложенную задачу раскрытия ответа.
// generation - поколение комнаты, зафиксированное в момент запуска таймера;
// задача срабатывает только если поколение не изменилось к моменту срабатывания.
func (s *TimeoutScheduler) Schedule(roomID string, questionIndex int, generation uint64, fireAt time.Time, correctAnswers []string) {
	// Новый таймер обесценивает предыдущую задачу комнаты
	s.CancelPending(roomID)

	taskCtx, cancel := context.WithCancel(s.baseCtx)
	s.roomCancels.Store(roomID, cancel)

	go s.runTimeoutTask(taskCtx, roomID, questionIndex, generation, fireAt, correctAnswers)

	log.Printf("[TimeoutScheduler] Комната %s: таймаут вопроса %d запланирован на %v (поколение %d)",
		roomID, questionIndex, fireAt, generation)
}

// CancelPending отменяет отложенную задачу комнаты, если она есть
func (s *TimeoutScheduler) CancelPending(roomID string) {
	if cancel, ok := s.roomCancels.LoadAndDelete(roomID); ok {
		cancel.(context.CancelFunc)()
		log.Printf("[TimeoutScheduler] Комната %s: отложенная задача отменена", roomID)
	}
}

// Shutdown отменяет все отложенные задачи
func (s *TimeoutScheduler) Shutdown() {
	s.baseCancel()
	s.roomCancels.Range(func(key, value interface{}) bool {
		s.roomCancels.Delete(key)
		return true
	})
}

// runTimeoutTask ждет момента срабатывания и раскрывает правильный ответ
func (s *TimeoutScheduler) runTimeoutTask(ctx context.Context, roomID string, questionIndex int, generation uint64, fireAt time.Time, correctAnswers []string) {
	timer := time.NewTimer(time.Until(fireAt))
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		log.Printf("[TimeoutScheduler] Комната %s: задача вопроса %d отменена до срабатывания", roomID, questionIndex)
		return
	}

	// Проверка актуальности выполняется под блокировкой комнаты - той же
	// единицей атомарности, что и StartTimer/Advance, поэтому устаревшее
	// срабатывание не может перекрыть ответ более нового вопроса
	stale := false
	err := s.deps.Store.WithRoom(roomID, func(room *entity.Room) error {
		if room.Generation != generation {
			stale = true
		}
		return nil
	})
	if err != nil {
		// Комната могла исчезнуть - таймаут best-effort, глушим
		log.Printf("[TimeoutScheduler] Комната %s: задача вопроса %d не сработала: %v", roomID, questionIndex, err)
		return
	}
	if stale {
		log.Printf("[TimeoutScheduler] Комната %s: задача вопроса %d устарела, пропуск", roomID, questionIndex)
		return
	}

	s.roomCancels.Delete(roomID)

	payload := map[string]interface{}{
		"question_index":  questionIndex,
		"correct_answer":  firstAnswer(correctAnswers),
		"correct_answers": correctAnswers,
	}
	if err := s.deps.Broadcaster.BroadcastEventToRoom(roomID, websocket.QUESTION_TIMEOUT, payload); err != nil {
		log.Printf("[TimeoutScheduler] Комната %s: не удалось разослать таймаут вопроса %d: %v", roomID, questionIndex, err)
		return
	}
	log.Printf("[TimeoutScheduler] Комната %s: таймаут вопроса %d разослан", roomID, questionIndex)
}

func firstAnswer(answers []string) string {
	if len(answers) == 0 {
		return ""
	}
	return answers[0]
}
