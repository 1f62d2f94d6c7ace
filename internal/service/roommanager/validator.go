package roommanager

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/yourusername/quizroom-api/internal/domain/entity"
	"github.com/yourusername/quizroom-api/internal/domain/repository"
)

// ValidationResult описывает вердикт валидатора по одному ответу
type ValidationResult struct {
	IsCorrect     bool
	MethodUsed    string
	Confidence    float64 // Уверенность в [0,1]
	MatchedAnswer string  // Принятый ответ с максимальным сходством (пусто, если нет)
}

// Validator сверяет ответ участника с набором принятых ответов.
// Методы: точное совпадение, нечеткое (редакционное расстояние),
// семантическое (оракул эмбеддингов) и гибридное (нечеткое, затем семантика).
type Validator struct {
	config *Config
	cache  repository.CacheRepository // Может быть nil
	oracle SimilarityOracle           // Может быть nil
}

// NewValidator создает валидатор ответов
func NewValidator(config *Config, cache repository.CacheRepository, oracle SimilarityOracle) *Validator {
	if config == nil {
		config = DefaultConfig()
	}
	return &Validator{
		config: config,
		cache:  cache,
		oracle: oracle,
	}
}

// Validate сверяет ответ участника с принятыми ответами.
//
// Для вопросов с выбором варианта всегда выполняется точное сравнение
// независимо от запрошенного метода. Неизвестный метод обрабатывается
// как fuzzy с записью аномалии в лог; Validate никогда не возвращает ошибку -
// недоступность оракула полностью гасится откатом на нечеткое сравнение.
func (v *Validator) Validate(ctx context.Context, userAnswer string, acceptedAnswers []string, questionType, method string, fuzzyThreshold int, semanticThreshold float64) ValidationResult {
	if fuzzyThreshold <= 0 {
		fuzzyThreshold = v.config.FuzzyThreshold
	}
	if semanticThreshold <= 0 {
		semanticThreshold = v.config.SemanticThreshold
	}

	if questionType == entity.QuestionTypeMultipleChoice {
		return v.validateExact(userAnswer, acceptedAnswers)
	}

	switch method {
	case entity.ValidationMethodExact:
		return v.validateExact(userAnswer, acceptedAnswers)
	case entity.ValidationMethodFuzzy:
		return v.validateFuzzy(userAnswer, acceptedAnswers, fuzzyThreshold)
	case entity.ValidationMethodSemantic:
		return v.validateSemantic(ctx, userAnswer, acceptedAnswers, semanticThreshold)
	case entity.ValidationMethodHybrid:
		return v.validateHybrid(ctx, userAnswer, acceptedAnswers, fuzzyThreshold, semanticThreshold)
	default:
		log.Printf("[Validator] Неизвестный метод валидации %q, используется fuzzy", method)
		return v.validateFuzzy(userAnswer, acceptedAnswers, fuzzyThreshold)
	}
}

// validateExact выполняет точное сравнение нормализованных строк
func (v *Validator) validateExact(userAnswer string, acceptedAnswers []string) ValidationResult {
	normalized := normalizeAnswer(userAnswer)
	for _, accepted := range acceptedAnswers {
		if normalized == normalizeAnswer(accepted) {
			return ValidationResult{
				IsCorrect:     true,
				MethodUsed:    entity.ValidationMethodExact,
				Confidence:    1.0,
				MatchedAnswer: accepted,
			}
		}
	}
	return ValidationResult{
		IsCorrect:  false,
		MethodUsed: entity.ValidationMethodExact,
		Confidence: 0.0,
	}
}

// validateFuzzy сравнивает по нормализованному редакционному расстоянию.
// Сходство в [0,100], берется максимум по всем принятым ответам.
func (v *Validator) validateFuzzy(userAnswer string, acceptedAnswers []string, threshold int) ValidationResult {
	normalized := normalizeAnswer(userAnswer)

	best := ValidationResult{MethodUsed: entity.ValidationMethodFuzzy}
	bestRatio := -1
	for _, accepted := range acceptedAnswers {
		ratio := fuzzyRatio(normalized, normalizeAnswer(accepted))
		if ratio > bestRatio {
			bestRatio = ratio
			best.MatchedAnswer = accepted
		}
	}
	if bestRatio < 0 {
		bestRatio = 0
		best.MatchedAnswer = ""
	}

	best.Confidence = float64(bestRatio) / 100
	best.IsCorrect = bestRatio >= threshold
	if !best.IsCorrect {
		best.MatchedAnswer = ""
	}
	return best
}

// validateSemantic сравнивает через оракул эмбеддингов.
// При недоступности оракула откатывается на fuzzy с порогом
// semanticThreshold*100; вызывающий не наблюдает сбой оракула.
func (v *Validator) validateSemantic(ctx context.Context, userAnswer string, acceptedAnswers []string, threshold float64) ValidationResult {
	if v.oracle == nil {
		return v.semanticFallback(userAnswer, acceptedAnswers, threshold)
	}

	normalized := normalizeAnswer(userAnswer)

	best := ValidationResult{MethodUsed: entity.ValidationMethodSemantic}
	bestSim := -1.0
	for _, accepted := range acceptedAnswers {
		sim, err := v.similarity(ctx, normalized, normalizeAnswer(accepted))
		if err != nil {
			log.Printf("[Validator] Оракул сходства недоступен (%v), откат на fuzzy", err)
			return v.semanticFallback(userAnswer, acceptedAnswers, threshold)
		}
		if sim > bestSim {
			bestSim = sim
			best.MatchedAnswer = accepted
		}
	}
	if bestSim < 0 {
		bestSim = 0
		best.MatchedAnswer = ""
	}

	best.Confidence = bestSim
	best.IsCorrect = bestSim >= threshold
	if !best.IsCorrect {
		best.MatchedAnswer = ""
	}
	return best
}

// validateHybrid запускает fuzzy первым (дешевле); при провале пробует
// семантику; если не прошли оба, возвращает результат с большей
// уверенностью, при равенстве предпочитая fuzzy.
func (v *Validator) validateHybrid(ctx context.Context, userAnswer string, acceptedAnswers []string, fuzzyThreshold int, semanticThreshold float64) ValidationResult {
	fuzzyResult := v.validateFuzzy(userAnswer, acceptedAnswers, fuzzyThreshold)
	if fuzzyResult.IsCorrect {
		return fuzzyResult
	}

	semanticResult := v.validateSemantic(ctx, userAnswer, acceptedAnswers, semanticThreshold)
	if semanticResult.IsCorrect {
		return semanticResult
	}

	if semanticResult.Confidence > fuzzyResult.Confidence {
		return semanticResult
	}
	return fuzzyResult
}

// semanticFallback выполняет откат семантической проверки на нечеткую
func (v *Validator) semanticFallback(userAnswer string, acceptedAnswers []string, semanticThreshold float64) ValidationResult {
	return v.validateFuzzy(userAnswer, acceptedAnswers, int(semanticThreshold*100))
}

// similarity возвращает сходство пары текстов, используя кеш при наличии
func (v *Validator) similarity(ctx context.Context, submission, accepted string) (float64, error) {
	key := similarityCacheKey(submission, accepted)

	if v.cache != nil {
		if cached, err := v.cache.Get(key); err == nil {
			if sim, parseErr := strconv.ParseFloat(cached, 64); parseErr == nil {
				return sim, nil
			}
		}
	}

	sim, err := v.oracle.Similarity(ctx, submission, accepted)
	if err != nil {
		return 0, err
	}

	if v.cache != nil {
		if err := v.cache.Set(key, strconv.FormatFloat(sim, 'f', -1, 64), v.config.SimilarityCacheTTL); err != nil {
			log.Printf("[Validator] Не удалось закешировать сходство: %v", err)
		}
	}
	return sim, nil
}

// similarityCacheKey строит ключ кеша для пары нормализованных текстов
func similarityCacheKey(submission, accepted string) string {
	sum := sha256.Sum256([]byte(submission + "\x00" + accepted))
	return "similarity:" + hex.EncodeToString(sum[:])
}

// normalizeAnswer приводит ответ к нижнему регистру и обрезает пробелы
func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// fuzzyRatio возвращает нормализованное сходство строк в [0,100]
// на основе редакционного расстояния
func fuzzyRatio(a, b string) int {
	if a == b {
		return 100
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 100
	}
	distance := levenshtein.ComputeDistance(a, b)
	return int(100 * (1 - float64(distance)/float64(maxLen)))
}
