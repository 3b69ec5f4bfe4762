package marker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/ollamap/internal/cache"
	"github.com/hitoshi/ollamap/internal/metrics"
	"github.com/hitoshi/ollamap/internal/model"
	"github.com/hitoshi/ollamap/internal/repository"
)

type mockMarkerRepo struct {
	findByIDFn         func(ctx context.Context, id string) (*model.Marker, error)
	listActiveFn       func(ctx context.Context, now time.Time) ([]*model.Marker, error)
	createFn           func(ctx context.Context, marker *model.Marker) error
	updateExpirationFn func(ctx context.Context, id string, expiresAt *time.Time) error
	deleteFn           func(ctx context.Context, id string) error
}

func (m *mockMarkerRepo) FindByID(ctx context.Context, id string) (*model.Marker, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockMarkerRepo) ListActive(ctx context.Context, now time.Time) ([]*model.Marker, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx, now)
	}
	return nil, nil
}
func (m *mockMarkerRepo) ListByOwner(ctx context.Context, userID string) ([]*model.Marker, error) {
	return nil, nil
}
func (m *mockMarkerRepo) Create(ctx context.Context, marker *model.Marker) error {
	return m.createFn(ctx, marker)
}
func (m *mockMarkerRepo) UpdateExpiration(ctx context.Context, id string, expiresAt *time.Time) error {
	return m.updateExpirationFn(ctx, id, expiresAt)
}
func (m *mockMarkerRepo) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

type mockAdminRequestRepo struct {
	listByMarkerWithUserNameFn func(ctx context.Context, markerID string) ([]model.AdminRequestView, error)
}

func (m *mockAdminRequestRepo) FindByID(ctx context.Context, id string) (*model.AdminRequest, error) {
	return nil, nil
}
func (m *mockAdminRequestRepo) FindByUserAndMarker(ctx context.Context, userID, markerID string) (*model.AdminRequest, error) {
	return nil, nil
}
func (m *mockAdminRequestRepo) Create(ctx context.Context, request *model.AdminRequest) error {
	return nil
}
func (m *mockAdminRequestRepo) ListByMarkerWithUserName(ctx context.Context, markerID string) ([]model.AdminRequestView, error) {
	return m.listByMarkerWithUserNameFn(ctx, markerID)
}
func (m *mockAdminRequestRepo) CreateAcceptedWithOwnership(ctx context.Context, request *model.AdminRequest) error {
	return nil
}
func (m *mockAdminRequestRepo) Resolve(ctx context.Context, requestID string, status model.RequestStatus, markerID, userID string, removeSubscription bool) error {
	return nil
}

// memStore はテスト用のインメモリStore実装。TTLは無視する。
type memStore struct {
	values map[string]string
}

func newMemStore() *memStore {
	return &memStore{values: map[string]string{}}
}

func (s *memStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, ok := s.values[key]
	return value, ok, nil
}
func (s *memStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.values[key] = value
	return nil
}
func (s *memStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}
func (s *memStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for key := range s.values {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

var _ cache.Store = (*memStore)(nil)
var _ repository.MarkerRepository = (*mockMarkerRepo)(nil)
var _ repository.AdminRequestRepository = (*mockAdminRequestRepo)(nil)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(markers *mockMarkerRepo, adminRequests *mockAdminRequestRepo, store cache.Store) *Service {
	if adminRequests == nil {
		adminRequests = &mockAdminRequestRepo{}
	}
	if store == nil {
		store = newMemStore()
	}
	svc := NewService(markers, adminRequests, store, Policy{
		ExpirationDays: 14,
		ReportsMax:     4,
		ReportTTL:      72 * time.Hour,
	}, slog.New(slog.NewJSONHandler(io.Discard, nil)), metrics.NopCollector{})
	svc.now = func() time.Time { return testNow }
	return svc
}

func apiErrorCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	return apiErr.Code
}

// TestService_Confirm_ExtendsFromCurrentExpiration は確認による延長が
// 現在の有効期限を基準に加算されることを検証する。
func TestService_Confirm_ExtendsFromCurrentExpiration(t *testing.T) {
	current := testNow.AddDate(0, 0, 3)
	stored := &model.Marker{ID: "marker-1", ExpiresAt: &current}

	var updated *time.Time
	markers := &mockMarkerRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Marker, error) {
			return stored, nil
		},
		updateExpirationFn: func(ctx context.Context, id string, expiresAt *time.Time) error {
			updated = expiresAt
			return nil
		},
	}

	svc := newTestService(markers, nil, nil)
	if _, err := svc.Confirm(context.Background(), "marker-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := testNow.AddDate(0, 0, 3+14)
	if updated == nil || !updated.Equal(want) {
		t.Errorf("expiresAt = %v, want %v", updated, want)
	}
}

// TestService_Confirm_MissingMarker は存在しないマーカーの確認がINVALID_MARKERに
// なることを検証する。
func TestService_Confirm_MissingMarker(t *testing.T) {
	markers := &mockMarkerRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Marker, error) {
			return nil, nil
		},
	}

	svc := newTestService(markers, nil, nil)
	_, err := svc.Confirm(context.Background(), "missing")
	if code := apiErrorCode(t, err); code != model.ErrCodeInvalidMarker {
		t.Errorf("code = %s, want %s", code, model.ErrCodeInvalidMarker)
	}
}

// TestService_Create_AppliesExpirationPolicy は作成時の有効期限が
// 指定日時（未指定なら現在時刻）からポリシー日数分延長されることを検証する。
func TestService_Create_AppliesExpirationPolicy(t *testing.T) {
	var created *model.Marker
	markers := &mockMarkerRepo{
		createFn: func(ctx context.Context, marker *model.Marker) error {
			created = marker
			return nil
		},
		findByIDFn: func(ctx context.Context, id string) (*model.Marker, error) {
			return created, nil
		},
	}

	svc := newTestService(markers, nil, nil)
	marker, err := svc.Create(context.Background(), CreateInput{
		CategoryID: "category-1",
		Name:       "Olla de Barrio Sur",
		Duration:   120,
		Recurrence: "FREQ=WEEKLY;BYDAY=SA",
		TimeZone:   "America/Montevideo",
	}, []string{"user-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := testNow.AddDate(0, 0, 14)
	if marker.ExpiresAt == nil || !marker.ExpiresAt.Equal(want) {
		t.Errorf("expiresAt = %v, want %v", marker.ExpiresAt, want)
	}
	if len(marker.Owners) != 1 || marker.Owners[0] != "user-1" {
		t.Errorf("owners = %v, want [user-1]", marker.Owners)
	}
}

// TestService_Create_InvalidRecurrence は開催予定のない繰り返しルールが
// 拒否されることを検証する。
func TestService_Create_InvalidRecurrence(t *testing.T) {
	markers := &mockMarkerRepo{
		createFn: func(ctx context.Context, marker *model.Marker) error {
			t.Fatal("Create should not be called")
			return nil
		},
	}

	svc := newTestService(markers, nil, nil)
	_, err := svc.Create(context.Background(), CreateInput{
		Recurrence: "not an rrule",
	}, nil)
	if code := apiErrorCode(t, err); code != model.ErrCodeInvalidRecurrence {
		t.Errorf("code = %s, want %s", code, model.ErrCodeInvalidRecurrence)
	}
}

// TestService_Get_FiltersExpired は失効済みマーカーの取得がINVALID_MARKERに
// なることを検証する。
func TestService_Get_FiltersExpired(t *testing.T) {
	expired := testNow.Add(-time.Hour)
	markers := &mockMarkerRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Marker, error) {
			return &model.Marker{ID: id, ExpiresAt: &expired}, nil
		},
	}

	svc := newTestService(markers, nil, nil)
	_, err := svc.Get(context.Background(), "marker-1")
	if code := apiErrorCode(t, err); code != model.ErrCodeInvalidMarker {
		t.Errorf("code = %s, want %s", code, model.ErrCodeInvalidMarker)
	}
}

// TestService_Delete_RequiresOwner は所有者以外の削除がINVALID_ACTIONに
// なることを検証する。
func TestService_Delete_RequiresOwner(t *testing.T) {
	markers := &mockMarkerRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Marker, error) {
			return &model.Marker{ID: id, Owners: []string{"user-1"}}, nil
		},
		deleteFn: func(ctx context.Context, id string) error {
			t.Fatal("Delete should not be called")
			return nil
		},
	}

	svc := newTestService(markers, nil, nil)
	_, err := svc.Delete(context.Background(), "marker-1", "user-2")
	if code := apiErrorCode(t, err); code != model.ErrCodeInvalidAction {
		t.Errorf("code = %s, want %s", code, model.ErrCodeInvalidAction)
	}
}

// TestService_Delete_ByOwner は所有者による削除が成功し、
// 更新後の一覧が返ることを検証する。
func TestService_Delete_ByOwner(t *testing.T) {
	deleted := false
	markers := &mockMarkerRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Marker, error) {
			return &model.Marker{ID: id, Owners: []string{"user-1"}}, nil
		},
		deleteFn: func(ctx context.Context, id string) error {
			deleted = true
			return nil
		},
		listActiveFn: func(ctx context.Context, now time.Time) ([]*model.Marker, error) {
			return []*model.Marker{}, nil
		},
	}

	svc := newTestService(markers, nil, nil)
	if _, err := svc.Delete(context.Background(), "marker-1", "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deleted {
		t.Error("marker should be deleted")
	}
}

// reportFixture は通報テスト用の有効マーカーとサービスを組み立てる。
func reportFixture(t *testing.T) (*Service, *memStore, *[]*time.Time) {
	t.Helper()

	var expirations []*time.Time
	markers := &mockMarkerRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Marker, error) {
			return &model.Marker{ID: id}, nil
		},
		updateExpirationFn: func(ctx context.Context, id string, expiresAt *time.Time) error {
			expirations = append(expirations, expiresAt)
			return nil
		},
	}

	store := newMemStore()
	svc := newTestService(markers, nil, store)
	return svc, store, &expirations
}

// TestService_Report_ThresholdExpiresMarker は上限内の通報ではマーカーが
// 有効なまま、上限を超えた通報で即時失効し通報状態が破棄されることを検証する。
func TestService_Report_ThresholdExpiresMarker(t *testing.T) {
	svc, store, expirations := reportFixture(t)
	ctx := context.Background()

	users := []string{"user-1", "user-2", "user-3", "user-4"}
	for _, userID := range users {
		if _, err := svc.Report(ctx, "marker-1", userID); err != nil {
			t.Fatalf("report by %s: unexpected error: %v", userID, err)
		}
	}

	if len(*expirations) != 0 {
		t.Fatalf("marker expired after %d reports, want none", len(users))
	}
	if value := store.values[cache.Key(cache.KeyPrefixMarkerReportsAmount, "marker-1")]; value != "4" {
		t.Errorf("report counter = %q, want %q", value, "4")
	}

	if _, err := svc.Report(ctx, "marker-1", "user-5"); err != nil {
		t.Fatalf("fifth report: unexpected error: %v", err)
	}

	if len(*expirations) != 1 {
		t.Fatalf("expirations = %d, want 1", len(*expirations))
	}
	if expiredAt := (*expirations)[0]; expiredAt == nil || !expiredAt.Equal(testNow) {
		t.Errorf("expiresAt = %v, want %v", (*expirations)[0], testNow)
	}
	if len(store.values) != 0 {
		t.Errorf("report state should be cleared, got %v", store.values)
	}
}

// TestService_Report_DuplicateUser は同一ユーザーの再通報が
// USER_ALREADY_REPORTED_MARKERになることを検証する。
func TestService_Report_DuplicateUser(t *testing.T) {
	svc, _, _ := reportFixture(t)
	ctx := context.Background()

	if _, err := svc.Report(ctx, "marker-1", "user-1"); err != nil {
		t.Fatalf("first report: unexpected error: %v", err)
	}

	_, err := svc.Report(ctx, "marker-1", "user-1")
	if code := apiErrorCode(t, err); code != model.ErrCodeUserAlreadyReportedMarker {
		t.Errorf("code = %s, want %s", code, model.ErrCodeUserAlreadyReportedMarker)
	}
}

// TestService_Report_ExpiredMarker は失効済みマーカーへの通報が
// MARKER_ALREADY_EXPIREDになることを検証する。
func TestService_Report_ExpiredMarker(t *testing.T) {
	expired := testNow.Add(-time.Hour)
	markers := &mockMarkerRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Marker, error) {
			return &model.Marker{ID: id, ExpiresAt: &expired}, nil
		},
	}

	svc := newTestService(markers, nil, nil)
	_, err := svc.Report(context.Background(), "marker-1", "user-1")
	if code := apiErrorCode(t, err); code != model.ErrCodeMarkerAlreadyExpired {
		t.Errorf("code = %s, want %s", code, model.ErrCodeMarkerAlreadyExpired)
	}
}

// TestService_AdminRequests_NonOwnerGetsEmptyList は所有者以外に申請キューの
// 存在を漏らさないことを検証する。
func TestService_AdminRequests_NonOwnerGetsEmptyList(t *testing.T) {
	markers := &mockMarkerRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Marker, error) {
			return &model.Marker{ID: id, Owners: []string{"user-1"}}, nil
		},
	}
	adminRequests := &mockAdminRequestRepo{
		listByMarkerWithUserNameFn: func(ctx context.Context, markerID string) ([]model.AdminRequestView, error) {
			t.Fatal("ListByMarkerWithUserName should not be called")
			return nil, nil
		},
	}

	svc := newTestService(markers, adminRequests, nil)
	views, err := svc.AdminRequests(context.Background(), "marker-1", "user-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 0 {
		t.Errorf("views = %d, want 0", len(views))
	}
}

// TestService_AdminRequests_OwnerGetsList は所有者が申請一覧を取得できることを検証する。
func TestService_AdminRequests_OwnerGetsList(t *testing.T) {
	markers := &mockMarkerRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Marker, error) {
			return &model.Marker{ID: id, Owners: []string{"user-1"}}, nil
		},
	}
	adminRequests := &mockAdminRequestRepo{
		listByMarkerWithUserNameFn: func(ctx context.Context, markerID string) ([]model.AdminRequestView, error) {
			return []model.AdminRequestView{
				{ID: "request-1", Status: model.RequestStatusPending, UserName: "Ana"},
			}, nil
		},
	}

	svc := newTestService(markers, adminRequests, nil)
	views, err := svc.AdminRequests(context.Background(), "marker-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 1 || views[0].ID != "request-1" {
		t.Errorf("unexpected views: %+v", views)
	}
}
