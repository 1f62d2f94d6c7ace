package roommanager

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/quizroom-api/internal/domain/entity"
	apperrors "github.com/yourusername/quizroom-api/internal/pkg/errors"
)

// stubOracle возвращает фиксированное сходство либо ошибку
type stubOracle struct {
	similarity float64
	err        error
	calls      int
}

func (o *stubOracle) Similarity(_ context.Context, _, _ string) (float64, error) {
	o.calls++
	if o.err != nil {
		return 0, o.err
	}
	return o.similarity, nil
}

// fakeCache - кеш в памяти для тестов валидатора
type fakeCache struct {
	values map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string]string{}}
}

func (c *fakeCache) Set(key string, value interface{}, _ time.Duration) error {
	c.values[key] = fmt.Sprintf("%v", value)
	return nil
}

func (c *fakeCache) Get(key string) (string, error) {
	val, ok := c.values[key]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return val, nil
}

func (c *fakeCache) Delete(key string) error {
	delete(c.values, key)
	return nil
}

func (c *fakeCache) Exists(key string) (bool, error) {
	_, ok := c.values[key]
	return ok, nil
}

func TestValidator_MultipleChoiceExactMatch(t *testing.T) {
	// Arrange
	v := NewValidator(DefaultConfig(), nil, nil)

	// Act: для выбора варианта метод всегда exact, даже если запрошена семантика
	result := v.Validate(context.Background(), "Paris", []string{"Paris"}, entity.QuestionTypeMultipleChoice, entity.ValidationMethodSemantic, 0, 0)

	// Assert
	assert.True(t, result.IsCorrect)
	assert.Equal(t, entity.ValidationMethodExact, result.MethodUsed)
	assert.Equal(t, 1.0, result.Confidence)
	assert.Equal(t, "Paris", result.MatchedAnswer)
}

func TestValidator_MultipleChoiceMiss(t *testing.T) {
	// Arrange
	v := NewValidator(DefaultConfig(), nil, nil)

	// Act
	result := v.Validate(context.Background(), "London", []string{"Paris", "Rome"}, entity.QuestionTypeMultipleChoice, entity.ValidationMethodExact, 0, 0)

	// Assert
	assert.False(t, result.IsCorrect)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Empty(t, result.MatchedAnswer)
}

func TestValidator_ExactIsCaseAndSpaceInsensitive(t *testing.T) {
	// Arrange
	v := NewValidator(DefaultConfig(), nil, nil)

	// Act
	result := v.Validate(context.Background(), "  pArIs ", []string{"Paris"}, entity.QuestionTypeMultipleChoice, entity.ValidationMethodExact, 0, 0)

	// Assert
	assert.True(t, result.IsCorrect, "Нормализация должна гасить регистр и пробелы")
}

func TestValidator_FuzzyNearMiss(t *testing.T) {
	// Arrange
	v := NewValidator(DefaultConfig(), nil, nil)

	// Act: "Pari" против "Paris" - одна правка из пяти символов, сходство 80
	result := v.Validate(context.Background(), "Pari", []string{"Paris"}, entity.QuestionTypeShortAnswer, entity.ValidationMethodFuzzy, 80, 0)

	// Assert
	assert.True(t, result.IsCorrect)
	assert.Equal(t, entity.ValidationMethodFuzzy, result.MethodUsed)
	assert.InDelta(t, 0.8, result.Confidence, 0.001)
	assert.Equal(t, "Paris", result.MatchedAnswer)
}

func TestValidator_FuzzyBelowThreshold(t *testing.T) {
	// Arrange
	v := NewValidator(DefaultConfig(), nil, nil)

	// Act
	result := v.Validate(context.Background(), "Berlin", []string{"Paris"}, entity.QuestionTypeShortAnswer, entity.ValidationMethodFuzzy, 80, 0)

	// Assert
	assert.False(t, result.IsCorrect)
	assert.Empty(t, result.MatchedAnswer, "Непройденная проверка не должна называть совпавший ответ")
}

func TestValidator_FuzzyTakesMaxAcrossAccepted(t *testing.T) {
	// Arrange
	v := NewValidator(DefaultConfig(), nil, nil)

	// Act: из нескольких принятых ответов берется максимальное сходство
	result := v.Validate(context.Background(), "USA", []string{"United States", "USA", "America"}, entity.QuestionTypeShortAnswer, entity.ValidationMethodFuzzy, 80, 0)

	// Assert
	assert.True(t, result.IsCorrect)
	assert.Equal(t, "USA", result.MatchedAnswer)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestValidator_SemanticPassesThreshold(t *testing.T) {
	// Arrange
	oracle := &stubOracle{similarity: 0.91}
	v := NewValidator(DefaultConfig(), nil, oracle)

	// Act
	result := v.Validate(context.Background(), "the capital of France", []string{"Paris"}, entity.QuestionTypeShortAnswer, entity.ValidationMethodSemantic, 0, 0.75)

	// Assert
	assert.True(t, result.IsCorrect)
	assert.Equal(t, entity.ValidationMethodSemantic, result.MethodUsed)
	assert.InDelta(t, 0.91, result.Confidence, 0.001)
	assert.Equal(t, "Paris", result.MatchedAnswer)
}

func TestValidator_SemanticFallbackOnOracleFailure(t *testing.T) {
	// Arrange: оракул недоступен
	oracle := &stubOracle{err: apperrors.ErrOracleUnavailable}
	v := NewValidator(DefaultConfig(), nil, oracle)

	// Act: откат на fuzzy с порогом semanticThreshold*100 = 75
	result := v.Validate(context.Background(), "Pari", []string{"Paris"}, entity.QuestionTypeShortAnswer, entity.ValidationMethodSemantic, 0, 0.75)

	// Assert: сбой оракула не виден вызывающему, результат нечеткий
	assert.True(t, result.IsCorrect)
	assert.Equal(t, entity.ValidationMethodFuzzy, result.MethodUsed)
	assert.InDelta(t, 0.8, result.Confidence, 0.001)
}

func TestValidator_SemanticWithoutOracleFallsBack(t *testing.T) {
	// Arrange: оракул не сконфигурирован
	v := NewValidator(DefaultConfig(), nil, nil)

	// Act
	result := v.Validate(context.Background(), "Pari", []string{"Paris"}, entity.QuestionTypeShortAnswer, entity.ValidationMethodSemantic, 0, 0.75)

	// Assert
	assert.True(t, result.IsCorrect)
	assert.Equal(t, entity.ValidationMethodFuzzy, result.MethodUsed)
}

func TestValidator_HybridPrefersFuzzy(t *testing.T) {
	// Arrange: семантика тоже прошла бы, но fuzzy дешевле и идет первым
	oracle := &stubOracle{similarity: 0.99}
	v := NewValidator(DefaultConfig(), nil, oracle)

	// Act
	result := v.Validate(context.Background(), "Pari", []string{"Paris"}, entity.QuestionTypeShortAnswer, entity.ValidationMethodHybrid, 80, 0.75)

	// Assert
	assert.True(t, result.IsCorrect)
	assert.Equal(t, entity.ValidationMethodFuzzy, result.MethodUsed)
	assert.Zero(t, oracle.calls, "При пройденном fuzzy оракул не должен вызываться")
}

func TestValidator_HybridFallsThroughToSemantic(t *testing.T) {
	// Arrange: перефразировка не похожа на строку, но близка по смыслу
	oracle := &stubOracle{similarity: 0.88}
	v := NewValidator(DefaultConfig(), nil, oracle)

	// Act
	result := v.Validate(context.Background(), "city of lights", []string{"Paris"}, entity.QuestionTypeShortAnswer, entity.ValidationMethodHybrid, 80, 0.75)

	// Assert
	assert.True(t, result.IsCorrect)
	assert.Equal(t, entity.ValidationMethodSemantic, result.MethodUsed)
	assert.InDelta(t, 0.88, result.Confidence, 0.001)
}

func TestValidator_HybridNeitherPassesReturnsHigherConfidence(t *testing.T) {
	// Arrange: оба метода провалились, семантика увереннее
	oracle := &stubOracle{similarity: 0.5}
	v := NewValidator(DefaultConfig(), nil, oracle)

	// Act: fuzzy-сходство "xyz" против "Paris" равно 0
	result := v.Validate(context.Background(), "xyz", []string{"Paris"}, entity.QuestionTypeShortAnswer, entity.ValidationMethodHybrid, 80, 0.75)

	// Assert
	assert.False(t, result.IsCorrect)
	assert.Equal(t, entity.ValidationMethodSemantic, result.MethodUsed)
	assert.InDelta(t, 0.5, result.Confidence, 0.001)
}

func TestValidator_HybridTiePrefersFuzzy(t *testing.T) {
	// Arrange: одинаковая уверенность с обеих сторон
	oracle := &stubOracle{similarity: 0.0}
	v := NewValidator(DefaultConfig(), nil, oracle)

	// Act
	result := v.Validate(context.Background(), "xyz", []string{"Paris"}, entity.QuestionTypeShortAnswer, entity.ValidationMethodHybrid, 80, 0.75)

	// Assert: при равенстве предпочитается fuzzy - он был вычислен первым
	assert.False(t, result.IsCorrect)
	assert.Equal(t, entity.ValidationMethodFuzzy, result.MethodUsed)
}

func TestValidator_UnknownMethodBehavesAsFuzzy(t *testing.T) {
	// Arrange
	v := NewValidator(DefaultConfig(), nil, nil)

	// Act
	result := v.Validate(context.Background(), "Pari", []string{"Paris"}, entity.QuestionTypeShortAnswer, "telepathy", 80, 0)

	// Assert: неизвестный метод не приводит к ошибке
	assert.True(t, result.IsCorrect)
	assert.Equal(t, entity.ValidationMethodFuzzy, result.MethodUsed)
}

func TestValidator_SemanticUsesCache(t *testing.T) {
	// Arrange
	oracle := &stubOracle{similarity: 0.9}
	cache := newFakeCache()
	v := NewValidator(DefaultConfig(), cache, oracle)

	// Act: повторная проверка той же пары текстов
	first := v.Validate(context.Background(), "the capital of France", []string{"Paris"}, entity.QuestionTypeShortAnswer, entity.ValidationMethodSemantic, 0, 0.75)
	second := v.Validate(context.Background(), "the capital of France", []string{"Paris"}, entity.QuestionTypeShortAnswer, entity.ValidationMethodSemantic, 0, 0.75)

	// Assert: второй вызов обслужен из кеша
	assert.True(t, first.IsCorrect)
	assert.True(t, second.IsCorrect)
	assert.Equal(t, 1, oracle.calls, "Закешированное сходство не должно дергать оракул повторно")
}

func TestValidator_EmptyAcceptedAnswers(t *testing.T) {
	// Arrange
	v := NewValidator(DefaultConfig(), nil, nil)

	// Act
	result := v.Validate(context.Background(), "anything", nil, entity.QuestionTypeShortAnswer, entity.ValidationMethodFuzzy, 80, 0)

	// Assert
	assert.False(t, result.IsCorrect)
	assert.Equal(t, 0.0, result.Confidence)
}
