// Package subscription はマーカー購読のドメインロジックを提供する。
package subscription

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/ollamap/internal/metrics"
	"github.com/hitoshi/ollamap/internal/model"
	"github.com/hitoshi/ollamap/internal/repository"
)

// Service は購読ワークフローのサービス層。
type Service struct {
	subscriptions repository.SubscriptionRepository
	markers       repository.MarkerRepository
	logger        *slog.Logger
	collector     metrics.MetricsCollector
	now           func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	subscriptions repository.SubscriptionRepository,
	markers repository.MarkerRepository,
	logger *slog.Logger,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		subscriptions: subscriptions,
		markers:       markers,
		logger:        logger,
		collector:     collector,
		now:           time.Now,
	}
}

// Subscribe はマーカーを購読する。すでに購読済みの場合は既存の購読を返す（冪等）。
// 失効済みマーカーと自分が所有するマーカーは購読できない。
func (s *Service) Subscribe(ctx context.Context, markerID, userID string) (*model.Subscription, error) {
	marker, err := s.markers.FindByID(ctx, markerID)
	if err != nil {
		return nil, err
	}
	if marker == nil {
		return nil, model.NewInvalidMarkerError()
	}
	if marker.IsExpired(s.now()) {
		return nil, model.NewCanNotSubscribeExpiredMarkerError()
	}
	if marker.IsOwner(userID) {
		return nil, model.NewCanNotSubscribeOwnMarkerError()
	}

	existing, err := s.subscriptions.FindByUserAndMarker(ctx, userID, markerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	subscription := &model.Subscription{
		ID:        uuid.NewString(),
		MarkerID:  markerID,
		UserID:    userID,
		CreatedAt: s.now(),
	}
	if err := s.subscriptions.Create(ctx, subscription); err != nil {
		s.logger.Error("failed to subscribe marker", "marker_id", markerID, "user_id", userID, "error", err)
		return nil, model.NewInternalError(model.ErrCodeErrorSubscribingMarker)
	}

	s.collector.RecordSubscription("subscribe")

	return subscription, nil
}

// Unsubscribe はマーカーの購読を解除する。購読していない場合は何もしない（冪等）。
func (s *Service) Unsubscribe(ctx context.Context, markerID, userID string) error {
	existing, err := s.subscriptions.FindByUserAndMarker(ctx, userID, markerID)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	if err := s.subscriptions.DeleteByUserAndMarker(ctx, userID, markerID); err != nil {
		s.logger.Error("failed to unsubscribe marker", "marker_id", markerID, "user_id", userID, "error", err)
		return model.NewInternalError(model.ErrCodeErrorUnsubscribingMarker)
	}

	s.collector.RecordSubscription("unsubscribe")

	return nil
}
