// Package request はマーカーに対する物資リクエストと購読者への
// 通知ファンアウトを提供する。
package request

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/ollamap/internal/metrics"
	"github.com/hitoshi/ollamap/internal/model"
	"github.com/hitoshi/ollamap/internal/notification"
	"github.com/hitoshi/ollamap/internal/repository"
)

// AddInput は物資リクエスト作成の入力。
type AddInput struct {
	MarkerID    string
	Description string
	Notifiable  bool
	ExpiresAt   *time.Time
}

// Service は物資リクエストワークフローのサービス層。
type Service struct {
	requests      repository.RequestRepository
	subscriptions repository.SubscriptionRepository
	markers       repository.MarkerRepository
	notifier      notification.Sender
	logger        *slog.Logger
	collector     metrics.MetricsCollector
	now           func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	requests repository.RequestRepository,
	subscriptions repository.SubscriptionRepository,
	markers repository.MarkerRepository,
	notifier notification.Sender,
	logger *slog.Logger,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		requests:      requests,
		subscriptions: subscriptions,
		markers:       markers,
		notifier:      notifier,
		logger:        logger,
		collector:     collector,
		now:           time.Now,
	}
}

// Add は物資リクエストを作成し、親マーカーをカテゴリ付きで返す。
//
// notifiableの場合、リクエスト作成と購読者ごとの通知レコード作成は
// 同一トランザクションで行う。実際のプッシュ配信はそれとは独立の
// ベストエフォート処理で、失敗してもリクエスト作成は成立する。
func (s *Service) Add(ctx context.Context, input AddInput, userID string) (*model.Marker, error) {
	req := &model.Request{
		ID:          uuid.NewString(),
		Description: input.Description,
		MarkerID:    input.MarkerID,
		UserID:      userID,
		Notifiable:  input.Notifiable,
		ExpiresAt:   input.ExpiresAt,
		CreatedAt:   s.now(),
	}

	var subscriberIDs []string
	if input.Notifiable {
		ids, err := s.subscriptions.ListUserIDsByMarker(ctx, input.MarkerID)
		if err != nil {
			s.logger.Error("failed to list subscribers", "marker_id", input.MarkerID, "error", err)
			return nil, model.NewInternalError(model.ErrCodeErrorCreatingRequest)
		}
		subscriberIDs = ids
	}

	notifications := make([]*model.Notification, 0, len(subscriberIDs))
	for _, subscriberID := range subscriberIDs {
		notifications = append(notifications, &model.Notification{
			ID:        uuid.NewString(),
			RequestID: req.ID,
			UserID:    subscriberID,
			Type:      model.NotificationTypePush,
			CreatedAt: req.CreatedAt,
		})
	}

	if err := s.requests.CreateWithNotifications(ctx, req, notifications); err != nil {
		s.logger.Error("failed to create request", "marker_id", input.MarkerID, "error", err)
		return nil, model.NewInternalError(model.ErrCodeErrorCreatingRequest)
	}

	marker, err := s.markers.FindByID(ctx, input.MarkerID)
	if err != nil || marker == nil {
		// 作成直後にマーカーが引けないのはデータ不整合
		s.logger.Error("failed to load marker after request creation", "marker_id", input.MarkerID, "error", err)
		return nil, model.NewInternalError(model.ErrCodeErrorCreatingRequest)
	}

	if len(subscriberIDs) > 0 {
		s.notifier.Send(ctx, subscriberIDs, notification.MarkerRequestEvent{
			MarkerID:    marker.ID,
			MarkerName:  marker.Name,
			RequestID:   req.ID,
			Description: req.Description,
		})
	}

	s.collector.RecordItemRequest()

	return marker, nil
}

// ListByMarker はマーカーの有効なリクエスト一覧を、投稿者の公開プロフィール
// （名前とメールアドレスのみ）付きで返す。
func (s *Service) ListByMarker(ctx context.Context, markerID string) ([]*model.Request, error) {
	return s.requests.ListActiveByMarkerWithUser(ctx, markerID, s.now())
}
