package websocket

// Типы событий комнаты. Значения попадают в поле "type" конверта сообщения;
// клиенты обязаны игнорировать неизвестные им типы.
const (
	// PARTICIPANT_JOINED сообщает о присоединении участника к комнате
	PARTICIPANT_JOINED = "participant_joined"

	// QUESTION_STARTED сообщает о запуске таймера вопроса
	QUESTION_STARTED = "question_started"

	// QUESTION_CHANGED сообщает о переходе к следующему вопросу
	QUESTION_CHANGED = "question_changed"

	// QUESTION_TIMEOUT сообщает об истечении времени вопроса и раскрывает правильный ответ
	QUESTION_TIMEOUT = "question_timeout"

	// LEADERBOARD_UPDATED сообщает об обновлении турнирной таблицы
	LEADERBOARD_UPDATED = "leaderboard_updated"
)
