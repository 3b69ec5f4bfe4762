// Package marker はマーカーのライフサイクル（作成・確認・失効・通報・削除）の
// ドメインロジックを提供する。
package marker

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/ollamap/internal/cache"
	"github.com/hitoshi/ollamap/internal/metrics"
	"github.com/hitoshi/ollamap/internal/model"
	"github.com/hitoshi/ollamap/internal/recurrence"
	"github.com/hitoshi/ollamap/internal/repository"
)

// CreateInput はマーカー作成の入力。
type CreateInput struct {
	CategoryID  string
	Description string
	Duration    int
	Latitude    float64
	Longitude   float64
	Name        string
	Recurrence  string
	TimeZone    string
	ExpiresAt   *time.Time
}

// Policy はマーカーライフサイクルのポリシー定数。
type Policy struct {
	// ExpirationDays は作成・確認時に有効期限を延長する日数。
	ExpirationDays int
	// ReportsMax は失効させずに受け付ける通報数の上限。これを超えた通報で失効する。
	ReportsMax int
	// ReportTTL は通報カウンタと通報済みフラグの生存期間。
	ReportTTL time.Duration
}

// Service はマーカーライフサイクルのサービス層。
type Service struct {
	markers       repository.MarkerRepository
	adminRequests repository.AdminRequestRepository
	store         cache.Store
	policy        Policy
	logger        *slog.Logger
	collector     metrics.MetricsCollector
	now           func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	markers repository.MarkerRepository,
	adminRequests repository.AdminRequestRepository,
	store cache.Store,
	policy Policy,
	logger *slog.Logger,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		markers:       markers,
		adminRequests: adminRequests,
		store:         store,
		policy:        policy,
		logger:        logger,
		collector:     collector,
		now:           time.Now,
	}
}

// extendExpiration は有効期限の延長先を計算する。
// 基準は渡された日時、nilの場合は現在時刻。確認のたびに加算で伸びる。
func (s *Service) extendExpiration(date *time.Time) time.Time {
	base := s.now()
	if date != nil {
		base = *date
	}
	return base.AddDate(0, 0, s.policy.ExpirationDays)
}

// List は有効なマーカー一覧をカテゴリ付きで返す。
// 失効済みマーカーは削除されないが、一覧には決して現れない。
func (s *Service) List(ctx context.Context) ([]*model.Marker, error) {
	return s.markers.ListActive(ctx, s.now())
}

// Get は指定IDのマーカーをカテゴリ付きで返す。
// 存在しない、または失効済みの場合はINVALID_MARKER。
func (s *Service) Get(ctx context.Context, id string) (*model.Marker, error) {
	marker, err := s.markers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if marker == nil || marker.IsExpired(s.now()) {
		return nil, model.NewInvalidMarkerError()
	}
	return marker, nil
}

// Create は新しいマーカーを作成し、カテゴリ付きで返す。
// 有効期限は指定日時（未指定なら現在時刻）からポリシー日数だけ延長される。
func (s *Service) Create(ctx context.Context, input CreateInput, ownerIDs []string) (*model.Marker, error) {
	if !recurrence.Validate(input.Recurrence, s.now()) {
		return nil, model.NewInvalidRecurrenceError(input.Recurrence)
	}

	expiresAt := s.extendExpiration(input.ExpiresAt)
	now := s.now()
	owners := ownerIDs
	if owners == nil {
		owners = []string{}
	}

	marker := &model.Marker{
		ID:          uuid.NewString(),
		CategoryID:  input.CategoryID,
		Description: input.Description,
		Duration:    input.Duration,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		Name:        input.Name,
		Owners:      owners,
		Recurrence:  input.Recurrence,
		TimeZone:    input.TimeZone,
		ExpiresAt:   &expiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.markers.Create(ctx, marker); err != nil {
		s.logger.Error("failed to create marker", "name", input.Name, "error", err)
		return nil, model.NewInternalError(model.ErrCodeErrorAddingMarker)
	}

	created, err := s.markers.FindByID(ctx, marker.ID)
	if err != nil || created == nil {
		s.logger.Error("failed to load created marker", "marker_id", marker.ID, "error", err)
		return nil, model.NewInternalError(model.ErrCodeErrorAddingMarker)
	}

	categoryName := ""
	if created.Category != nil {
		categoryName = created.Category.Name
	}
	s.collector.RecordMarkerCreated(categoryName)

	return created, nil
}

// Confirm はマーカーがまだ有効であることを確認し、有効期限を延長する。
// 延長の基準は現在の有効期限であり、確認のたびに加算される。
func (s *Service) Confirm(ctx context.Context, id string) (*model.Marker, error) {
	marker, err := s.markers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if marker == nil {
		return nil, model.NewInvalidMarkerError()
	}

	extended := s.extendExpiration(marker.ExpiresAt)
	if err := s.markers.UpdateExpiration(ctx, id, &extended); err != nil {
		s.logger.Error("failed to confirm marker", "marker_id", id, "error", err)
		return nil, model.NewInternalError(model.ErrCodeErrorConfirmingMarker)
	}

	confirmed, err := s.markers.FindByID(ctx, id)
	if err != nil || confirmed == nil {
		s.logger.Error("failed to load confirmed marker", "marker_id", id, "error", err)
		return nil, model.NewInternalError(model.ErrCodeErrorConfirmingMarker)
	}

	s.collector.RecordMarkerConfirmed()

	return confirmed, nil
}

// Delete はマーカーを物理削除し、更新後の有効マーカー一覧を返す。
// 所有者のみが削除できる。
func (s *Service) Delete(ctx context.Context, id, userID string) ([]*model.Marker, error) {
	marker, err := s.markers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if marker == nil {
		return nil, model.NewInvalidMarkerError()
	}
	if !marker.IsOwner(userID) {
		return nil, model.NewInvalidActionError()
	}

	if err := s.markers.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete marker", "marker_id", id, "error", err)
		return nil, model.NewInternalError(model.ErrCodeErrorDeletingMarker)
	}

	return s.List(ctx)
}

// Report はマーカーを通報する。通報数が上限を超えると即時失効させ、
// 通報状態をすべて破棄する。いずれの正常系でも更新後の有効マーカー一覧を返す。
//
// カウンタの加算はread-then-writeであり、同一TTL窓内の同時通報では
// 取りこぼしが起こりうる。閾値は厳密値ではなくベストエフォート。
func (s *Service) Report(ctx context.Context, id, userID string) ([]*model.Marker, error) {
	amountKey := cache.Key(cache.KeyPrefixMarkerReportsAmount, id)
	flagKey := cache.Key(cache.KeyPrefixUserReport, id+":"+userID)

	var (
		marker          *model.Marker
		reports         string
		alreadyReported bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		marker, err = s.markers.FindByID(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		reports, _, err = s.store.Get(gctx, amountKey)
		return err
	})
	g.Go(func() error {
		var err error
		_, alreadyReported, err = s.store.Get(gctx, flagKey)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to read report state", "marker_id", id, "error", err)
		return nil, model.NewInternalError(model.ErrCodeErrorReportingMarker)
	}

	if marker == nil {
		return nil, model.NewInvalidMarkerError()
	}
	if marker.IsExpired(s.now()) {
		return nil, model.NewMarkerAlreadyExpiredError()
	}
	if alreadyReported {
		return nil, model.NewUserAlreadyReportedMarkerError()
	}

	count, _ := strconv.Atoi(reports)
	amount := count + 1

	s.collector.RecordMarkerReported()

	if amount > s.policy.ReportsMax {
		now := s.now()
		if err := s.markers.UpdateExpiration(ctx, id, &now); err != nil {
			s.logger.Error("failed to expire reported marker", "marker_id", id, "error", err)
			return nil, model.NewInternalError(model.ErrCodeErrorExpiringMarker)
		}

		// 失効は一回限りの解放であり、通報状態は持ち越さない
		flagKeys, err := s.store.Keys(ctx, cache.Key(cache.KeyPrefixUserReport, id)+":*")
		if err != nil {
			s.logger.Error("failed to list report flags", "marker_id", id, "error", err)
			return nil, model.NewInternalError(model.ErrCodeErrorExpiringMarker)
		}
		if err := s.store.Del(ctx, append(flagKeys, amountKey)...); err != nil {
			s.logger.Error("failed to clear report state", "marker_id", id, "error", err)
			return nil, model.NewInternalError(model.ErrCodeErrorExpiringMarker)
		}

		s.collector.RecordMarkerExpired("reports")
		s.logger.Info("marker expired by reports", "marker_id", id, "reports", amount)

		return s.List(ctx)
	}

	if err := s.store.Set(ctx, amountKey, strconv.Itoa(amount), s.policy.ReportTTL); err != nil {
		s.logger.Error("failed to store report counter", "marker_id", id, "error", err)
		return nil, model.NewInternalError(model.ErrCodeErrorReportingMarker)
	}
	if err := s.store.Set(ctx, flagKey, "1", s.policy.ReportTTL); err != nil {
		s.logger.Error("failed to store report flag", "marker_id", id, "error", err)
		return nil, model.NewInternalError(model.ErrCodeErrorReportingMarker)
	}

	return s.List(ctx)
}

// AdminRequests はマーカーの管理者申請一覧を申請者の表示名付きで返す。
// 所有者以外には申請キューの存在を漏らさないため、エラーではなく空一覧を返す。
func (s *Service) AdminRequests(ctx context.Context, id, userID string) ([]model.AdminRequestView, error) {
	marker, err := s.markers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if marker == nil {
		return nil, model.NewInvalidMarkerError()
	}
	if !marker.IsOwner(userID) {
		return []model.AdminRequestView{}, nil
	}

	return s.adminRequests.ListByMarkerWithUserName(ctx, id)
}
