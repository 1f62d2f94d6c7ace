package entity

import "time"

// Participant представляет участника викторины.
// Запись принадлежит Session Store; членство в комнате хранит сама комната
// (Room.ParticipantIDs), RoomID здесь - только обратная ссылка.
type Participant struct {
	ID            string    `json:"id"`
	RoomID        string    `json:"room_id"`
	Nickname      string    `json:"nickname"`
	Score         int       `json:"score"`
	CurrentStreak int       `json:"current_streak"`
	JoinedAt      time.Time `json:"joined_at"`
}

// NewParticipant создает участника с нулевым счетом
func NewParticipant(id, roomID, nickname string) *Participant {
	return &Participant{
		ID:       id,
		RoomID:   roomID,
		Nickname: nickname,
		JoinedAt: time.Now(),
	}
}

// ApplyAnswerResult обновляет счет и серию по результату ответа.
// Счет монотонно не убывает; серия сбрасывается любым неверным ответом.
func (p *Participant) ApplyAnswerResult(isCorrect bool, points int) {
	if isCorrect {
		if points > 0 {
			p.Score += points
		}
		p.CurrentStreak++
		return
	}
	p.CurrentStreak = 0
}

// Clone возвращает копию участника для чтения вне блокировки
func (p *Participant) Clone() *Participant {
	clone := *p
	return &clone
}
