package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/revocation-service/internal/events"
	"github.com/spec-kit/revocation-service/internal/observability"
)

// TokenEventService logs token store lifecycle events.
type TokenEventService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewTokenEventService creates the service.
func NewTokenEventService(dispatcher events.Dispatcher, logger *zap.Logger) *TokenEventService {
	return &TokenEventService{
		dispatcher: dispatcher,
		logger:     observability.Named(logger, "token-events"),
	}
}

// RegisterHandlers subscribes to events.
func (n *TokenEventService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTokenStored, n.handleTokenStored)
	n.dispatcher.Subscribe(events.EventTokenRemoved, n.handleTokenRemoved)
	n.dispatcher.Subscribe(events.EventTokensRevoked, n.handleTokensRevoked)
	n.dispatcher.Subscribe(events.EventTokensExpired, n.handleTokensExpired)
}

func (n *TokenEventService) handleTokenStored(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.TokenStoredPayload)
	n.logger.Debug("TokenStored",
		zap.String("subject_id", payload.SubjectID),
		zap.String("client_id", payload.ClientID))
	return nil
}

func (n *TokenEventService) handleTokenRemoved(_ context.Context, event events.Event) error {
	n.logger.Debug("TokenRemoved", zap.Time("at", event.Timestamp))
	return nil
}

func (n *TokenEventService) handleTokensRevoked(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.TokensRevokedPayload)
	n.logger.Info("TokensRevoked",
		zap.String("subject_id", payload.SubjectID),
		zap.String("client_id", payload.ClientID),
		zap.String("mode", payload.Mode),
		zap.Int("count", len(payload.Keys)))
	return nil
}

func (n *TokenEventService) handleTokensExpired(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.TokensExpiredPayload)
	n.logger.Info("TokensExpired", zap.Int("count", len(payload.Keys)))
	return nil
}
