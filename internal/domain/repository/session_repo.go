package repository

import (
	"github.com/yourusername/quizroom-api/internal/domain/entity"
)

// SessionRepository определяет методы Session Store - потокобезопасного
// хранилища комнат, участников и ответов на время жизни процесса.
//
// Блокировка комнаты - единица атомарности: WithRoom, UpdateParticipant и
// RecordAnswer выполняют переданную функцию под мьютексом комнаты, поэтому
// мутации таймера/статуса, счета/серии участников и лога ответов одной
// комнаты линеаризуются. Операции над разными комнатами не разделяют
// блокировок. Методы чтения возвращают копии (snapshot-семантика).
type SessionRepository interface {
	// CreateRoom регистрирует новую комнату. ErrConflict при повторном коде.
	CreateRoom(room *entity.Room) error

	// GetRoom возвращает копию комнаты. ErrNotFound, если комната отсутствует.
	GetRoom(id string) (*entity.Room, error)

	// WithRoom выполняет fn под блокировкой комнаты.
	// Ошибка fn возвращается вызывающему без изменений.
	WithRoom(id string, fn func(room *entity.Room) error) error

	// RoomCount возвращает количество существующих комнат.
	RoomCount() int

	// CreateParticipant регистрирует участника и добавляет его в список
	// комнаты (порядок вставки = порядок присоединения).
	CreateParticipant(roomID string, participant *entity.Participant) error

	// GetParticipant возвращает копию участника по id.
	GetParticipant(id string) (*entity.Participant, error)

	// UpdateParticipant выполняет fn над комнатой и участником под
	// блокировкой комнаты.
	UpdateParticipant(roomID, participantID string, fn func(room *entity.Room, p *entity.Participant) error) error

	// RecordAnswer выполняет fn под блокировкой комнаты и дописывает
	// возвращенную запись в append-only лог ответов комнаты.
	RecordAnswer(roomID, participantID string, fn func(room *entity.Room, p *entity.Participant) (*entity.Answer, error)) error

	// ParticipantsOf возвращает копии всех участников комнаты.
	ParticipantsOf(roomID string) (map[string]*entity.Participant, error)

	// AnswersOf возвращает лог ответов комнаты в порядке отправки.
	AnswersOf(roomID string) ([]*entity.Answer, error)
}
