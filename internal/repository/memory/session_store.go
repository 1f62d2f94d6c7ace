package memory

import (
	"sync"

	"github.com/yourusername/quizroom-api/internal/domain/entity"
	apperrors "github.com/yourusername/quizroom-api/internal/pkg/errors"
)

// roomEntry объединяет комнату, ее участников и лог ответов под одним мьютексом.
// Мьютекс записи - единица атомарности для всех мутаций состояния комнаты.
type roomEntry struct {
	mu           sync.Mutex
	room         *entity.Room
	participants map[string]*entity.Participant
	answers      []*entity.Answer
}

// SessionStore - реализация repository.SessionRepository в памяти.
// Данные эфемерны и существуют только на время работы процесса.
type SessionStore struct {
	// mu защищает сами карты; состояние внутри roomEntry защищается
	// мьютексом записи. Порядок захвата: сначала mu, затем entry.mu,
	// никогда наоборот.
	mu               sync.RWMutex
	rooms            map[string]*roomEntry
	participantRooms map[string]string // participantID -> roomID
}

// NewSessionStore создает пустое хранилище сессий
func NewSessionStore() *SessionStore {
	return &SessionStore{
		rooms:            make(map[string]*roomEntry),
		participantRooms: make(map[string]string),
	}
}

// CreateRoom регистрирует новую комнату
func (s *SessionStore) CreateRoom(room *entity.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[room.ID]; exists {
		return apperrors.ErrConflict
	}
	s.rooms[room.ID] = &roomEntry{
		room:         room,
		participants: make(map[string]*entity.Participant),
	}
	return nil
}

// entry возвращает запись комнаты или ErrNotFound
func (s *SessionStore) entry(roomID string) (*roomEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.rooms[roomID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return e, nil
}

// GetRoom возвращает копию комнаты
func (s *SessionStore) GetRoom(id string) (*entity.Room, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.room.Clone(), nil
}

// WithRoom выполняет fn под блокировкой комнаты
func (s *SessionStore) WithRoom(id string, fn func(room *entity.Room) error) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.room)
}

// RoomCount возвращает количество комнат
func (s *SessionStore) RoomCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// CreateParticipant регистрирует участника в комнате
func (s *SessionStore) CreateParticipant(roomID string, participant *entity.Participant) error {
	e, err := s.entry(roomID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if _, exists := e.participants[participant.ID]; exists {
		e.mu.Unlock()
		return apperrors.ErrConflict
	}
	e.participants[participant.ID] = participant
	e.room.ParticipantIDs = append(e.room.ParticipantIDs, participant.ID)
	e.mu.Unlock()

	s.mu.Lock()
	s.participantRooms[participant.ID] = roomID
	s.mu.Unlock()
	return nil
}

// GetParticipant возвращает копию участника по id
func (s *SessionStore) GetParticipant(id string) (*entity.Participant, error) {
	s.mu.RLock()
	roomID, ok := s.participantRooms[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrNotFound
	}

	e, err := s.entry(roomID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.participants[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return p.Clone(), nil
}

// UpdateParticipant выполняет fn над комнатой и участником под блокировкой комнаты
func (s *SessionStore) UpdateParticipant(roomID, participantID string, fn func(room *entity.Room, p *entity.Participant) error) error {
	e, err := s.entry(roomID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.participants[participantID]
	if !ok {
		return apperrors.ErrNotFound
	}
	return fn(e.room, p)
}

// RecordAnswer выполняет fn под блокировкой комнаты и дописывает
// возвращенную запись в лог ответов. Записи лога никогда не мутируются.
func (s *SessionStore) RecordAnswer(roomID, participantID string, fn func(room *entity.Room, p *entity.Participant) (*entity.Answer, error)) error {
	e, err := s.entry(roomID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.participants[participantID]
	if !ok {
		return apperrors.ErrNotFound
	}

	answer, err := fn(e.room, p)
	if err != nil {
		return err
	}
	if answer != nil {
		e.answers = append(e.answers, answer)
	}
	return nil
}

// ParticipantsOf возвращает копии всех участников комнаты
func (s *SessionStore) ParticipantsOf(roomID string) (map[string]*entity.Participant, error) {
	e, err := s.entry(roomID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	snapshot := make(map[string]*entity.Participant, len(e.participants))
	for id, p := range e.participants {
		snapshot[id] = p.Clone()
	}
	return snapshot, nil
}

// AnswersOf возвращает лог ответов комнаты в порядке отправки
func (s *SessionStore) AnswersOf(roomID string) ([]*entity.Answer, error) {
	e, err := s.entry(roomID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// Записи неизменяемы, достаточно скопировать срез
	return append([]*entity.Answer(nil), e.answers...), nil
}
