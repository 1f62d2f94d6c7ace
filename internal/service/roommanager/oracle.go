package roommanager

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/yourusername/quizroom-api/internal/pkg/errors"
)

// HTTPOracle обращается к внешнему сервису эмбеддингов за косинусным
// сходством двух текстов. Любая проблема связи, таймаут или некорректный
// ответ сервиса трактуется как недоступность оракула, которую валидатор
// полностью гасит откатом на нечеткое сравнение.
type HTTPOracle struct {
	baseURL string
	client  *http.Client
}

// NewHTTPOracle создает оракул поверх HTTP-сервиса эмбеддингов
func NewHTTPOracle(baseURL string, timeout time.Duration) *HTTPOracle {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPOracle{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type similarityRequest struct {
	TextA string `json:"text_a"`
	TextB string `json:"text_b"`
}

type similarityResponse struct {
	Similarity float64 `json:"similarity"`
}

// Similarity возвращает косинусное сходство двух текстов в [0,1]
func (o *HTTPOracle) Similarity(ctx context.Context, submission, accepted string) (float64, error) {
	body, err := json.Marshal(similarityRequest{TextA: submission, TextB: accepted})
	if err != nil {
		return 0, fmt.Errorf("marshal similarity request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/similarity", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrOracleUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrOracleUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: status %d", apperrors.ErrOracleUnavailable, resp.StatusCode)
	}

	var parsed similarityResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("%w: decode response: %v", apperrors.ErrOracleUnavailable, err)
	}

	// Сервис обязан возвращать значение в [0,1], но защищаемся от выбросов
	if parsed.Similarity < 0 {
		parsed.Similarity = 0
	}
	if parsed.Similarity > 1 {
		parsed.Similarity = 1
	}
	return parsed.Similarity, nil
}
