package entity

import "sort"

// LeaderboardEntry - одна строка турнирной таблицы
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	ParticipantID string `json:"participant_id"`
	Nickname      string `json:"nickname"`
	Score         int    `json:"score"`
	Streak        int    `json:"streak"`
}

// BuildLeaderboard пересчитывает турнирную таблицу из записей участников.
// Таблица - производное представление, не источник истины: она строится заново
// из снимков Participant по требованию.
//
// Порядок: по убыванию счета; при равном счете сохраняется порядок
// присоединения к комнате (стабильная сортировка по Room.ParticipantIDs).
// Ранги присваиваются сквозной нумерацией с единицы.
func BuildLeaderboard(room *Room, participants map[string]*Participant) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(room.ParticipantIDs))

	// Обходим в порядке присоединения: он же является tie-break при сортировке
	for _, pid := range room.ParticipantIDs {
		p, ok := participants[pid]
		if !ok {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			ParticipantID: p.ID,
			Nickname:      p.Nickname,
			Score:         p.Score,
			Streak:        p.CurrentStreak,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
