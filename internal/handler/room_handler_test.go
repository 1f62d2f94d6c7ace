package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quizroom-api/internal/repository/memory"
	"github.com/yourusername/quizroom-api/internal/service"
	"github.com/yourusername/quizroom-api/internal/service/roommanager"
	"github.com/yourusername/quizroom-api/internal/websocket"
)

// newTestRouter собирает роутер с полным стеком комнат на памяти
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewSessionStore()
	hub := websocket.NewHub(websocket.DefaultHubConfig())
	go hub.Run()
	t.Cleanup(hub.Shutdown)
	manager := websocket.NewManager(hub)

	config := roommanager.DefaultConfig()
	validator := roommanager.NewValidator(config, nil, nil)
	scheduler := roommanager.NewTimeoutScheduler(config, &roommanager.Dependencies{
		Store:       store,
		Broadcaster: manager,
		Config:      config,
	})
	t.Cleanup(scheduler.Shutdown)

	roomService := service.NewRoomService(store, validator, scheduler, manager, config)
	roomHandler := NewRoomHandler(roomService)

	router := gin.New()
	rooms := router.Group("/api/rooms")
	{
		rooms.POST("", roomHandler.CreateRoom)
		rooms.GET("/:roomID", roomHandler.GetRoom)
		rooms.POST("/:roomID/join", roomHandler.JoinRoom)
		rooms.POST("/:roomID/start", roomHandler.StartQuestion)
		rooms.POST("/:roomID/advance", roomHandler.AdvanceQuestion)
		rooms.POST("/:roomID/answers", roomHandler.SubmitAnswer)
		rooms.GET("/:roomID/leaderboard", roomHandler.GetLeaderboard)
	}
	return router
}

// doJSON выполняет запрос с JSON-телом и возвращает рекордер
func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// createRoom создает комнату через API и возвращает код и токен ведущего
func createRoom(t *testing.T, router *gin.Engine) (string, string) {
	t.Helper()

	w := doJSON(t, router, http.MethodPost, "/api/rooms", gin.H{
		"quiz_id":         "quiz-1",
		"total_questions": 3,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Room struct {
			ID string `json:"id"`
		} `json:"room"`
		HostSecret string `json:"host_secret"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Room.ID)
	require.NotEmpty(t, resp.HostSecret)
	return resp.Room.ID, resp.HostSecret
}

func TestRoomHandler_CreateRoom(t *testing.T) {
	// Arrange
	router := newTestRouter(t)

	// Act
	roomID, _ := createRoom(t, router)

	// Assert: комната доступна через GET и не раскрывает токен ведущего
	w := doJSON(t, router, http.MethodGet, "/api/rooms/"+roomID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "host_secret")
	assert.Contains(t, w.Body.String(), `"status":"waiting"`)
}

func TestRoomHandler_CreateRoom_InvalidBody(t *testing.T) {
	// Arrange
	router := newTestRouter(t)

	// Act: total_questions отсутствует
	w := doJSON(t, router, http.MethodPost, "/api/rooms", gin.H{"quiz_id": "quiz-1"})

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoomHandler_GetRoom_NotFound(t *testing.T) {
	// Arrange
	router := newTestRouter(t)

	// Act
	w := doJSON(t, router, http.MethodGet, "/api/rooms/MISSING1", nil)

	// Assert
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoomHandler_JoinRoom(t *testing.T) {
	// Arrange
	router := newTestRouter(t)
	roomID, _ := createRoom(t, router)

	// Act
	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/rooms/%s/join", roomID), gin.H{
		"nickname": "Alice",
	})

	// Assert
	require.Equal(t, http.StatusCreated, w.Code)
	var participant struct {
		ID       string `json:"id"`
		Nickname string `json:"nickname"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &participant))
	assert.NotEmpty(t, participant.ID)
	assert.Equal(t, "Alice", participant.Nickname)
}

func TestRoomHandler_JoinRoom_NotFound(t *testing.T) {
	// Arrange
	router := newTestRouter(t)

	// Act
	w := doJSON(t, router, http.MethodPost, "/api/rooms/MISSING1/join", gin.H{"nickname": "Alice"})

	// Assert
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoomHandler_StartQuestion_WrongSecretIsForbidden(t *testing.T) {
	// Arrange
	router := newTestRouter(t)
	roomID, _ := createRoom(t, router)

	// Act
	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/rooms/%s/start", roomID), gin.H{
		"host_secret":     "wrong",
		"question_index":  0,
		"time_limit":      30,
		"correct_answers": []string{"Paris"},
	})

	// Assert
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRoomHandler_StartQuestion_TwiceIsConflict(t *testing.T) {
	// Arrange
	router := newTestRouter(t)
	roomID, hostSecret := createRoom(t, router)
	body := gin.H{
		"host_secret":     hostSecret,
		"question_index":  0,
		"time_limit":      30,
		"correct_answers": []string{"Paris"},
	}
	first := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/rooms/%s/start", roomID), body)
	require.Equal(t, http.StatusOK, first.Code)

	// Act
	second := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/rooms/%s/start", roomID), body)

	// Assert: повторный запуск при активном таймере - конфликт состояния
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestRoomHandler_AdvanceQuestion(t *testing.T) {
	// Arrange
	router := newTestRouter(t)
	roomID, hostSecret := createRoom(t, router)

	// Act
	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/rooms/%s/advance", roomID), gin.H{
		"host_secret": hostSecret,
	})

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		CurrentQuestion int  `json:"current_question"`
		QuizFinished    bool `json:"quiz_finished"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.CurrentQuestion)
	assert.False(t, resp.QuizFinished)
}

func TestRoomHandler_SubmitAnswerFlow(t *testing.T) {
	// Arrange
	router := newTestRouter(t)
	roomID, _ := createRoom(t, router)

	join := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/rooms/%s/join", roomID), gin.H{"nickname": "Alice"})
	require.Equal(t, http.StatusCreated, join.Code)
	var participant struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(join.Body.Bytes(), &participant))

	// Act
	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/rooms/%s/answers", roomID), gin.H{
		"participant_id":  participant.ID,
		"answer":          "Pari",
		"response_time":   5000,
		"question_index":  0,
		"correct_answers": []string{"Paris"},
		"question_type":   "short-answer",
		"max_points":      1000,
	})

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	var result struct {
		IsCorrect    bool   `json:"is_correct"`
		PointsEarned int    `json:"points_earned"`
		MethodUsed   string `json:"method_used"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.IsCorrect)
	assert.Greater(t, result.PointsEarned, 0)
	assert.Equal(t, "fuzzy", result.MethodUsed)

	// Турнирная таблица отражает начисленные очки
	lb := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/rooms/%s/leaderboard", roomID), nil)
	require.Equal(t, http.StatusOK, lb.Code)
	var leaderboard struct {
		Leaderboard []struct {
			Rank  int    `json:"rank"`
			Score int    `json:"score"`
			ID    string `json:"participant_id"`
		} `json:"leaderboard"`
	}
	require.NoError(t, json.Unmarshal(lb.Body.Bytes(), &leaderboard))
	require.Len(t, leaderboard.Leaderboard, 1)
	assert.Equal(t, 1, leaderboard.Leaderboard[0].Rank)
	assert.Equal(t, result.PointsEarned, leaderboard.Leaderboard[0].Score)
}

func TestRoomHandler_SubmitAnswer_UnknownParticipant(t *testing.T) {
	// Arrange
	router := newTestRouter(t)
	roomID, _ := createRoom(t, router)

	// Act
	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/rooms/%s/answers", roomID), gin.H{
		"participant_id":  "ghost",
		"answer":          "Paris",
		"question_index":  0,
		"correct_answers": []string{"Paris"},
		"question_type":   "short-answer",
		"max_points":      1000,
	})

	// Assert
	assert.Equal(t, http.StatusNotFound, w.Code)
}
