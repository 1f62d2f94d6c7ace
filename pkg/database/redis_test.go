package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quizroom-api/internal/config"
)

func TestNewRedisClient_SingleMode(t *testing.T) {
	// Arrange
	mr := miniredis.RunT(t)

	// Act
	client, err := NewRedisClient(config.RedisConfig{Addr: mr.Addr()})

	// Assert
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Set(context.Background(), "probe-key", "1", 0).Err(),
		"Клиент должен быть работоспособен сразу после создания")
}

func TestNewRedisClient_NoAddress(t *testing.T) {
	// Act
	_, err := NewRedisClient(config.RedisConfig{})

	// Assert
	assert.Error(t, err, "Пустая конфигурация адресов должна отклоняться")
}

func TestNewRedisClient_SentinelRequiresMasterName(t *testing.T) {
	// Act
	_, err := NewRedisClient(config.RedisConfig{
		Mode: "sentinel",
		Addr: "localhost:26379",
	})

	// Assert
	assert.Error(t, err)
}

func TestNewRedisClient_UnsupportedMode(t *testing.T) {
	// Act
	_, err := NewRedisClient(config.RedisConfig{
		Mode: "cluster",
		Addr: "localhost:6379",
	})

	// Assert
	assert.Error(t, err, "Режимы вне single/sentinel не поддерживаются")
}
