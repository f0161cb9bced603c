package services

import (
	"batepapo-uol-api/contract"
	"batepapo-uol-api/domain"
	"batepapo-uol-api/errors"
	"batepapo-uol-api/moderation"
	"batepapo-uol-api/observability"
	"context"
	goerrors "errors"
	"log/slog"
	"strings"
)

type IChatService interface {
	RegisterParticipant(ctx context.Context, name string) (domain.Participant, error)
	PostMessage(ctx context.Context, from string, req PostMessageRequest) (domain.Event, error)
	Heartbeat(ctx context.Context, name string) error
	Participants(ctx context.Context) ([]domain.Participant, error)
	Messages(ctx context.Context, requester string, limit int) ([]domain.Event, error)
}

type ChatService struct {
	log        *slog.Logger
	registry   contract.IRegistry
	messageLog contract.IMessageLog
	visibility contract.IVisibilityFilter
	moderator  *moderation.Moderator
	monitoring *observability.MonitoringManager
}

func NewChatService(
	log *slog.Logger,
	registry contract.IRegistry,
	messageLog contract.IMessageLog,
	visibility contract.IVisibilityFilter,
	moderator *moderation.Moderator,
	monitoring *observability.MonitoringManager,
) *ChatService {
	return &ChatService{
		log:        log,
		registry:   registry,
		messageLog: messageLog,
		visibility: visibility,
		moderator:  moderator,
		monitoring: monitoring,
	}
}

// RegisterParticipant adds a participant and announces the arrival to everyone.
// The uniqueness check runs before field validation, so a taken name is
// reported as a conflict even when the request is otherwise malformed.
func (s *ChatService) RegisterParticipant(ctx context.Context, name string) (domain.Participant, error) {
	name = strings.TrimSpace(name)

	// 1. Uniqueness
	exists, err := s.registry.Exists(ctx, name)
	if err != nil {
		return domain.Participant{}, err
	}
	if exists {
		return domain.Participant{}, errors.ErrParticipantAlreadyExists
	}

	// 2. Fields
	if err = validateStruct(RegisterParticipantRequest{Name: name}); err != nil {
		return domain.Participant{}, err
	}

	// 3. Register, a concurrent caller may still win the name here
	participant, err := s.registry.Register(ctx, name)
	if err != nil {
		return domain.Participant{}, err
	}

	// 4. Announce. A failure leaves a registered participant without a join record.
	if _, err = s.messageLog.Append(ctx, domain.NewJoinEvent(name)); err != nil {
		s.log.Error("Join announcement lost", "name", name, "error", err)
		return domain.Participant{}, err
	}
	s.monitoring.IncrParticipantsRegistered()
	s.log.Info("Participant joined", "name", name)
	return participant, nil
}

// PostMessage appends a message from a registered sender.
// Sender authorization is checked before field validation.
func (s *ChatService) PostMessage(ctx context.Context, from string, req PostMessageRequest) (domain.Event, error) {
	from = strings.TrimSpace(from)
	req = PostMessageRequest{
		To:   strings.TrimSpace(req.To),
		Text: strings.TrimSpace(req.Text),
		Type: strings.TrimSpace(req.Type),
	}

	// 1. Authorization
	exists, err := s.registry.Exists(ctx, from)
	if err != nil {
		return domain.Event{}, err
	}
	if !exists {
		return domain.Event{}, errors.ErrUnknownSender
	}

	// 2. Fields
	if err = validateStruct(req); err != nil {
		return domain.Event{}, err
	}

	text, censored := s.moderator.Censor(req.Text)
	if len(censored) > 0 {
		s.monitoring.IncrMessagesCensored()
	}

	// 3. Liveness, the sender may have been evicted since step 1
	if err = s.registry.Touch(ctx, from); err != nil {
		if goerrors.Is(err, errors.ErrParticipantNotFound) {
			return domain.Event{}, errors.ErrUnknownSender
		}
		return domain.Event{}, err
	}

	event, err := s.messageLog.Append(ctx, domain.Event{
		From: from,
		To:   req.To,
		Text: text,
		Kind: domain.Kind(req.Type),
	})
	if err != nil {
		return domain.Event{}, err
	}
	s.monitoring.IncrMessagesPosted()
	return event, nil
}

// Heartbeat keeps a participant alive without posting anything.
func (s *ChatService) Heartbeat(ctx context.Context, name string) error {
	return s.registry.Touch(ctx, strings.TrimSpace(name))
}

func (s *ChatService) Participants(ctx context.Context) ([]domain.Participant, error) {
	return s.registry.List(ctx)
}

// Messages returns what the requester may read. Reading counts as activity for
// a registered requester; anonymous readers are served without a presence update.
func (s *ChatService) Messages(ctx context.Context, requester string, limit int) ([]domain.Event, error) {
	requester = strings.TrimSpace(requester)
	if err := s.registry.Touch(ctx, requester); err != nil && !goerrors.Is(err, errors.ErrParticipantNotFound) {
		return nil, err
	}
	return s.visibility.MessagesVisibleTo(ctx, requester, limit)
}
