package server

import (
	"batepapo-uol-api/observability"
	"batepapo-uol-api/projection"
	"batepapo-uol-api/repositories"
	"batepapo-uol-api/runtime"
	"batepapo-uol-api/services"
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func setupServer(t *testing.T) http.Handler {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	messageRepository, err := repositories.NewMessageRepository(db, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = messageRepository.Close() })

	registry := runtime.NewRegistry(log, repositories.NewParticipantRepository(db, log))
	messageLog := runtime.NewMessageLog(log, messageRepository, nil)
	monitoring := observability.NewMonitoringManager(log, time.Second)
	chatService := services.NewChatService(log, registry, messageLog, projection.NewVisibilityFilter(messageLog), nil, monitoring)
	return NewChatServer(log, chatService, messageLog, monitoring, 5*time.Second).Router()
}

func do(t *testing.T, h http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body
}

func TestParticipants(t *testing.T) {
	h := setupServer(t)

	t.Run("should create a participant", func(t *testing.T) {
		resp := do(t, h, http.MethodPost, "/participants", "", map[string]string{"name": "Ann"})
		require.Equal(t, http.StatusCreated, resp.Code)
	})

	t.Run("should reject a duplicate name with 409", func(t *testing.T) {
		resp := do(t, h, http.MethodPost, "/participants", "", map[string]string{"name": "Ann"})
		require.Equal(t, http.StatusConflict, resp.Code)
		require.Equal(t, msgParticipantExists, decodeError(t, resp).Error)
	})

	t.Run("should reject an empty name with field errors", func(t *testing.T) {
		resp := do(t, h, http.MethodPost, "/participants", "", map[string]string{"name": ""})
		require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		body := decodeError(t, resp)
		require.Len(t, body.Fields, 1)
		require.Equal(t, "name", body.Fields[0].Field)
	})

	t.Run("should reject a malformed body", func(t *testing.T) {
		resp := do(t, h, http.MethodPost, "/participants", "", "{not json")
		require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})

	t.Run("should list participants", func(t *testing.T) {
		resp := do(t, h, http.MethodGet, "/participants", "", nil)
		require.Equal(t, http.StatusOK, resp.Code)
		var participants []participantResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &participants))
		require.Len(t, participants, 1)
		require.Equal(t, "Ann", participants[0].Name)
		require.Positive(t, participants[0].LastStatus)
	})
}

func TestMessages(t *testing.T) {
	h := setupServer(t)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/participants", "", map[string]string{"name": "Ann"}).Code)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/participants", "", map[string]string{"name": "Bob"}).Code)

	t.Run("should post a private message", func(t *testing.T) {
		resp := do(t, h, http.MethodPost, "/messages", "Ann", map[string]string{"to": "Bob", "text": "hi", "type": "private_message"})
		require.Equal(t, http.StatusCreated, resp.Code)
	})

	t.Run("should reject an unknown sender with 422", func(t *testing.T) {
		resp := do(t, h, http.MethodPost, "/messages", "Ghost", map[string]string{"to": "Todos", "text": "boo", "type": "message"})
		require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		require.Equal(t, msgParticipantNotFound, decodeError(t, resp).Error)
	})

	t.Run("should reject an invalid type with field errors", func(t *testing.T) {
		resp := do(t, h, http.MethodPost, "/messages", "Ann", map[string]string{"to": "Todos", "text": "x", "type": "status"})
		require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		body := decodeError(t, resp)
		require.Len(t, body.Fields, 1)
		require.Equal(t, "type", body.Fields[0].Field)
	})

	t.Run("should only show visible messages", func(t *testing.T) {
		var messages []messageResponse

		resp := do(t, h, http.MethodGet, "/messages", "Bob", nil)
		require.Equal(t, http.StatusOK, resp.Code)
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &messages))
		require.Len(t, messages, 3)
		require.Equal(t, "private_message", messages[2].Type)
		require.Len(t, messages[2].Time, len(timeLayout))

		resp = do(t, h, http.MethodGet, "/messages", "Carol", nil)
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &messages))
		require.Len(t, messages, 2)
	})

	t.Run("should honour the limit", func(t *testing.T) {
		var messages []messageResponse
		resp := do(t, h, http.MethodGet, "/messages?limit=1", "Bob", nil)
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &messages))
		require.Len(t, messages, 1)
		require.Equal(t, "hi", messages[0].Text)

		resp = do(t, h, http.MethodGet, "/messages?limit=abc", "Bob", nil)
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &messages))
		require.Len(t, messages, 3)
	})
}

func TestStatusAndHealth(t *testing.T) {
	h := setupServer(t)

	resp := do(t, h, http.MethodPost, "/status", "Ann", nil)
	require.Equal(t, http.StatusNotFound, resp.Code)

	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/participants", "", map[string]string{"name": "Ann"}).Code)
	resp = do(t, h, http.MethodPost, "/status", "Ann", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = do(t, h, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var health healthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &health))
	require.Equal(t, "ok", health.Status)
	require.Equal(t, 1, health.Participants)
	require.Equal(t, 1, health.Messages)
	require.Equal(t, uint64(1), health.Stats.ParticipantsRegistered)
}

func TestCors(t *testing.T) {
	h := setupServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/messages", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	require.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
}
