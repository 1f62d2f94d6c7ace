package dto

import (
	"time"

	"github.com/yourusername/quizroom-api/internal/domain/entity"
)

// RoomResponse представляет комнату в ответах API.
// Токен ведущего сюда не попадает никогда.
type RoomResponse struct {
	ID               string     `json:"id"`
	QuizID           string     `json:"quiz_id"`
	TotalQuestions   int        `json:"total_questions"`
	CurrentQuestion  int        `json:"current_question"`
	Status           string     `json:"status"`
	QuestionEndsAt   *time.Time `json:"question_ends_at,omitempty"`
	TimeRemainingSec *int       `json:"time_remaining_sec,omitempty"`
	ParticipantCount int        `json:"participant_count"`
	CreatedAt        time.Time  `json:"created_at"`
}

// NewRoomResponse преобразует комнату в DTO
func NewRoomResponse(room *entity.Room) RoomResponse {
	resp := RoomResponse{
		ID:               room.ID,
		QuizID:           room.QuizID,
		TotalQuestions:   room.TotalQuestions,
		CurrentQuestion:  room.CurrentQuestion,
		Status:           room.Status,
		QuestionEndsAt:   room.QuestionEndsAt,
		ParticipantCount: len(room.ParticipantIDs),
		CreatedAt:        room.CreatedAt,
	}
	if remaining, running := room.TimeRemaining(); running {
		sec := int(remaining.Seconds())
		resp.TimeRemainingSec = &sec
	}
	return resp
}

// CreateRoomResponse возвращается только создателю комнаты и содержит
// токен ведущего
type CreateRoomResponse struct {
	Room       RoomResponse `json:"room"`
	HostSecret string       `json:"host_secret"`
}

// NewCreateRoomResponse преобразует созданную комнату в DTO с токеном
func NewCreateRoomResponse(room *entity.Room) CreateRoomResponse {
	return CreateRoomResponse{
		Room:       NewRoomResponse(room),
		HostSecret: room.HostSecret,
	}
}

// ParticipantResponse представляет участника в ответах API
type ParticipantResponse struct {
	ID            string `json:"id"`
	RoomID        string `json:"room_id"`
	Nickname      string `json:"nickname"`
	Score         int    `json:"score"`
	CurrentStreak int    `json:"current_streak"`
}

// NewParticipantResponse преобразует участника в DTO
func NewParticipantResponse(p *entity.Participant) ParticipantResponse {
	return ParticipantResponse{
		ID:            p.ID,
		RoomID:        p.RoomID,
		Nickname:      p.Nickname,
		Score:         p.Score,
		CurrentStreak: p.CurrentStreak,
	}
}

// LeaderboardResponse представляет турнирную таблицу комнаты
type LeaderboardResponse struct {
	RoomID      string                    `json:"room_id"`
	Leaderboard []entity.LeaderboardEntry `json:"leaderboard"`
}

// NewLeaderboardResponse преобразует таблицу в DTO
func NewLeaderboardResponse(roomID string, entries []entity.LeaderboardEntry) LeaderboardResponse {
	if entries == nil {
		entries = []entity.LeaderboardEntry{}
	}
	return LeaderboardResponse{
		RoomID:      roomID,
		Leaderboard: entries,
	}
}
