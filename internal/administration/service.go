// Package administration はマーカー管理者申請の申請・応答プロトコルを提供する。
package administration

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hitoshi/ollamap/internal/metrics"
	"github.com/hitoshi/ollamap/internal/model"
	"github.com/hitoshi/ollamap/internal/notification"
	"github.com/hitoshi/ollamap/internal/repository"
)

// Service は管理者申請ワークフローのサービス層。
type Service struct {
	markers       repository.MarkerRepository
	adminRequests repository.AdminRequestRepository
	subscriptions repository.SubscriptionRepository
	users         repository.UserRepository
	notifier      notification.Sender
	logger        *slog.Logger
	collector     metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	markers repository.MarkerRepository,
	adminRequests repository.AdminRequestRepository,
	subscriptions repository.SubscriptionRepository,
	users repository.UserRepository,
	notifier notification.Sender,
	logger *slog.Logger,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		markers:       markers,
		adminRequests: adminRequests,
		subscriptions: subscriptions,
		users:         users,
		notifier:      notifier,
		logger:        logger,
		collector:     collector,
	}
}

// RequestAdministration はマーカーの管理者になるための申請を作成する。
//
// 所有者のいないマーカーへの申請は即時承認され、申請者が最初の所有者になる
// （先着順、承認不要）。申請行はこの場合も監査記録として残る。
// 所有者のいるマーカーへの申請はpendingで作成され、全所有者に通知される。
func (s *Service) RequestAdministration(ctx context.Context, markerID, userID string) (*model.AdminRequest, error) {
	marker, err := s.markers.FindByID(ctx, markerID)
	if err != nil {
		return nil, err
	}
	if marker == nil {
		return nil, model.NewInvalidMarkerError()
	}
	if marker.IsOwner(userID) {
		return nil, model.NewAlreadyAnAdministratorError()
	}

	existing, err := s.adminRequests.FindByUserAndMarker(ctx, userID, markerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, model.NewAlreadyRequestedAdministrationError()
	}

	request := &model.AdminRequest{
		ID:       uuid.NewString(),
		MarkerID: markerID,
		UserID:   userID,
	}

	if len(marker.Owners) == 0 {
		request.Status = model.RequestStatusAccepted
		if err := s.adminRequests.CreateAcceptedWithOwnership(ctx, request); err != nil {
			s.logger.Error("failed to claim unowned marker", "marker_id", markerID, "user_id", userID, "error", err)
			return nil, model.NewInternalError(model.ErrCodeErrorRequestingMarkerAdmin)
		}

		s.collector.RecordAdminRequest("auto_accepted")
		s.logger.Info("marker claimed by first administrator", "marker_id", markerID, "user_id", userID)

		return request, nil
	}

	request.Status = model.RequestStatusPending
	if err := s.adminRequests.Create(ctx, request); err != nil {
		s.logger.Error("failed to create administration request", "marker_id", markerID, "user_id", userID, "error", err)
		return nil, model.NewInternalError(model.ErrCodeErrorRequestingMarkerAdmin)
	}

	s.notifier.Send(ctx, marker.Owners, notification.AdministrationRequestEvent{
		MarkerID:   marker.ID,
		MarkerName: marker.Name,
	})

	s.collector.RecordAdminRequest("pending")

	return request, nil
}

// RespondRequest は未解決の申請をaccepted/rejectedへ遷移させる。遷移は1回限り。
// 承認時は申請者をownersへ追加し、申請者の既存購読があれば削除する
// （管理は購読を包含する）。コミット後に申請者へ結果を通知する。
func (s *Service) RespondRequest(ctx context.Context, requestID string, response model.RequestStatus, userID string) (*model.Marker, error) {
	request, err := s.adminRequests.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, model.NewInvalidRequestError()
	}
	if request.Status != model.RequestStatusPending || response == model.RequestStatusPending || !response.IsValid() {
		return nil, model.NewInvalidRequestStateError()
	}

	marker, err := s.markers.FindByID(ctx, request.MarkerID)
	if err != nil {
		return nil, err
	}
	if marker == nil {
		return nil, model.NewInvalidMarkerError()
	}
	if !marker.IsOwner(userID) {
		return nil, model.NewUserNotAllowedError()
	}

	// 申請者の消失は利用者の誤操作ではなくデータ不整合
	requester, err := s.users.FindByID(ctx, request.UserID)
	if err != nil {
		return nil, err
	}
	if requester == nil {
		s.logger.Error("administration requester vanished", "request_id", requestID, "user_id", request.UserID)
		return nil, model.NewInternalError(model.ErrCodeInvalidUser)
	}

	subscription, err := s.subscriptions.FindByUserAndMarker(ctx, request.UserID, request.MarkerID)
	if err != nil {
		return nil, err
	}

	if err := s.adminRequests.Resolve(ctx, requestID, response, request.MarkerID, request.UserID, subscription != nil); err != nil {
		s.logger.Error("failed to resolve administration request", "request_id", requestID, "response", response, "error", err)
		return nil, model.NewInternalError(model.ErrCodeErrorUpdatingMarkerReq)
	}

	s.notifier.Send(ctx, []string{request.UserID}, notification.AdministrationResponseEvent{
		MarkerID:   marker.ID,
		MarkerName: marker.Name,
	})

	s.collector.RecordAdminRequest(string(response))

	return marker, nil
}
