// Package server exposes the chat over HTTP.
package server

import (
	"batepapo-uol-api/domain"
	"batepapo-uol-api/observability"
	"batepapo-uol-api/services"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/samber/lo"
)

// UserHeader carries the name of the participant issuing the request.
const UserHeader = "User"

const timeLayout = "15:04:05"

type MessageCounter interface {
	Len(ctx context.Context) (int, error)
}

type ChatServer struct {
	log            *slog.Logger
	chatService    services.IChatService
	counter        MessageCounter
	monitoring     *observability.MonitoringManager
	storageTimeout time.Duration
}

func NewChatServer(log *slog.Logger, chatService services.IChatService, counter MessageCounter,
	monitoring *observability.MonitoringManager, storageTimeout time.Duration) *ChatServer {
	return &ChatServer{
		log:            log,
		chatService:    chatService,
		counter:        counter,
		monitoring:     monitoring,
		storageTimeout: storageTimeout,
	}
}

type participantResponse struct {
	Name       string `json:"name"`
	LastStatus int64  `json:"lastStatus"`
}

type messageResponse struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
	Type string `json:"type"`
	Time string `json:"time"`
}

type healthResponse struct {
	Status       string                        `json:"status"`
	Participants int                           `json:"participants"`
	Messages     int                           `json:"messages"`
	Stats        observability.MonitoringStats `json:"stats"`
}

// Router wires the chat routes behind the common middleware stack.
func (s *ChatServer) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", UserHeader},
	}))
	if s.storageTimeout > 0 {
		r.Use(middleware.Timeout(s.storageTimeout))
	}

	s.RegisterRoutes(r)
	return r
}

func (s *ChatServer) RegisterRoutes(r chi.Router) {
	r.Post("/participants", s.handleRegisterParticipant)
	r.Get("/participants", s.handleListParticipants)
	r.Post("/messages", s.handlePostMessage)
	r.Get("/messages", s.handleGetMessages)
	r.Post("/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
}

func (s *ChatServer) handleRegisterParticipant(w http.ResponseWriter, r *http.Request) {
	var payload services.RegisterParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(s.log, w, http.StatusUnprocessableEntity, msgInvalidPayload)
		return
	}
	if _, err := s.chatService.RegisterParticipant(r.Context(), payload.Name); err != nil {
		respondDomainError(s.log, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *ChatServer) handleListParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := s.chatService.Participants(r.Context())
	if err != nil {
		respondDomainError(s.log, w, err)
		return
	}
	respondJSON(s.log, w, http.StatusOK, lo.Map(participants, func(p domain.Participant, _ int) participantResponse {
		return participantResponse{Name: p.Name, LastStatus: p.LastSeen.UnixMilli()}
	}))
}

func (s *ChatServer) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var payload services.PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(s.log, w, http.StatusUnprocessableEntity, msgInvalidPayload)
		return
	}
	if _, err := s.chatService.PostMessage(r.Context(), r.Header.Get(UserHeader), payload); err != nil {
		respondDomainError(s.log, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// handleGetMessages serves the poll. A missing, non numeric or non positive
// limit returns the whole visible history.
func (s *ChatServer) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		limit = 0
	}
	events, err := s.chatService.Messages(r.Context(), r.Header.Get(UserHeader), limit)
	if err != nil {
		respondDomainError(s.log, w, err)
		return
	}
	respondJSON(s.log, w, http.StatusOK, lo.Map(events, func(e domain.Event, _ int) messageResponse {
		return messageResponse{
			From: e.From,
			To:   e.To,
			Text: e.Text,
			Type: string(e.Kind),
			Time: e.Time.UTC().Format(timeLayout),
		}
	}))
}

func (s *ChatServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if err := s.chatService.Heartbeat(r.Context(), r.Header.Get(UserHeader)); err != nil {
		respondDomainError(s.log, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *ChatServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	participants, err := s.chatService.Participants(r.Context())
	if err != nil {
		respondDomainError(s.log, w, err)
		return
	}
	messages, err := s.counter.Len(r.Context())
	if err != nil {
		respondDomainError(s.log, w, err)
		return
	}
	respondJSON(s.log, w, http.StatusOK, healthResponse{
		Status:       "ok",
		Participants: len(participants),
		Messages:     messages,
		Stats:        s.monitoring.GetLatest(),
	})
}

func (s *ChatServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.log.Debug("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
