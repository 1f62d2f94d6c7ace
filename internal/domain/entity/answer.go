package entity

import "time"

// Типы вопросов
const (
	// QuestionTypeMultipleChoice - выбор одного из вариантов, строгое сравнение
	QuestionTypeMultipleChoice = "multiple-choice"

	// QuestionTypeShortAnswer - свободный текстовый ответ, нечеткое/семантическое сравнение
	QuestionTypeShortAnswer = "short-answer"
)

// Методы валидации ответа
const (
	ValidationMethodExact    = "exact"
	ValidationMethodFuzzy    = "fuzzy"
	ValidationMethodSemantic = "semantic"
	ValidationMethodHybrid   = "hybrid"
)

// IsKnownValidationMethod проверяет, что метод входит в закрытый набор вариантов.
// Неизвестные методы обрабатываются валидатором как fuzzy.
func IsKnownValidationMethod(method string) bool {
	switch method {
	case ValidationMethodExact, ValidationMethodFuzzy, ValidationMethodSemantic, ValidationMethodHybrid:
		return true
	}
	return false
}

// Answer - неизменяемая запись об отправленном ответе.
// Лог ответов комнаты append-only: записи создаются ровно один раз
// и никогда не мутируются и не удаляются.
type Answer struct {
	ParticipantID  string    `json:"participant_id"`
	QuestionIndex  int       `json:"question_index"`
	Answer         string    `json:"answer"`
	IsCorrect      bool      `json:"is_correct"`
	PointsEarned   int       `json:"points_earned"`
	ResponseTimeMs int64     `json:"response_time"`
	SubmittedAt    time.Time `json:"submitted_at"`

	// Метаданные валидации
	MethodUsed    string  `json:"method_used"`
	Confidence    float64 `json:"confidence"`
	MatchedAnswer string  `json:"matched_answer,omitempty"`
}
