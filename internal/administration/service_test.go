package administration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/ollamap/internal/metrics"
	"github.com/hitoshi/ollamap/internal/model"
	"github.com/hitoshi/ollamap/internal/notification"
	"github.com/hitoshi/ollamap/internal/repository"
)

type mockMarkerRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.Marker, error)
}

func (m *mockMarkerRepo) FindByID(ctx context.Context, id string) (*model.Marker, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockMarkerRepo) ListActive(ctx context.Context, now time.Time) ([]*model.Marker, error) {
	return nil, nil
}
func (m *mockMarkerRepo) ListByOwner(ctx context.Context, userID string) ([]*model.Marker, error) {
	return nil, nil
}
func (m *mockMarkerRepo) Create(ctx context.Context, marker *model.Marker) error {
	return nil
}
func (m *mockMarkerRepo) UpdateExpiration(ctx context.Context, id string, expiresAt *time.Time) error {
	return nil
}
func (m *mockMarkerRepo) Delete(ctx context.Context, id string) error {
	return nil
}

type mockAdminRequestRepo struct {
	findByIDFn                  func(ctx context.Context, id string) (*model.AdminRequest, error)
	findByUserAndMarkerFn       func(ctx context.Context, userID, markerID string) (*model.AdminRequest, error)
	createFn                    func(ctx context.Context, request *model.AdminRequest) error
	createAcceptedWithOwnership func(ctx context.Context, request *model.AdminRequest) error
	resolveFn                   func(ctx context.Context, requestID string, status model.RequestStatus, markerID, userID string, removeSubscription bool) error
}

func (m *mockAdminRequestRepo) FindByID(ctx context.Context, id string) (*model.AdminRequest, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockAdminRequestRepo) FindByUserAndMarker(ctx context.Context, userID, markerID string) (*model.AdminRequest, error) {
	if m.findByUserAndMarkerFn != nil {
		return m.findByUserAndMarkerFn(ctx, userID, markerID)
	}
	return nil, nil
}
func (m *mockAdminRequestRepo) Create(ctx context.Context, request *model.AdminRequest) error {
	return m.createFn(ctx, request)
}
func (m *mockAdminRequestRepo) ListByMarkerWithUserName(ctx context.Context, markerID string) ([]model.AdminRequestView, error) {
	return nil, nil
}
func (m *mockAdminRequestRepo) CreateAcceptedWithOwnership(ctx context.Context, request *model.AdminRequest) error {
	return m.createAcceptedWithOwnership(ctx, request)
}
func (m *mockAdminRequestRepo) Resolve(ctx context.Context, requestID string, status model.RequestStatus, markerID, userID string, removeSubscription bool) error {
	return m.resolveFn(ctx, requestID, status, markerID, userID, removeSubscription)
}

type mockSubscriptionRepo struct {
	findByUserAndMarkerFn func(ctx context.Context, userID, markerID string) (*model.Subscription, error)
}

func (m *mockSubscriptionRepo) FindByUserAndMarker(ctx context.Context, userID, markerID string) (*model.Subscription, error) {
	if m.findByUserAndMarkerFn != nil {
		return m.findByUserAndMarkerFn(ctx, userID, markerID)
	}
	return nil, nil
}
func (m *mockSubscriptionRepo) Create(ctx context.Context, subscription *model.Subscription) error {
	return nil
}
func (m *mockSubscriptionRepo) DeleteByUserAndMarker(ctx context.Context, userID, markerID string) error {
	return nil
}
func (m *mockSubscriptionRepo) ListUserIDsByMarker(ctx context.Context, markerID string) ([]string, error) {
	return nil, nil
}
func (m *mockSubscriptionRepo) ListByUserWithMarker(ctx context.Context, userID string) ([]repository.SubscriptionWithMarker, error) {
	return nil, nil
}

type mockUserRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return &model.User{ID: id}, nil
}
func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	return nil
}
func (m *mockUserRepo) FindManyWithDevices(ctx context.Context, ids []string) ([]*model.User, error) {
	return nil, nil
}

type sendCall struct {
	userIDs []string
	event   notification.Event
}

type mockSender struct {
	calls []sendCall
}

func (m *mockSender) Send(ctx context.Context, userIDs []string, event notification.Event) {
	m.calls = append(m.calls, sendCall{userIDs: userIDs, event: event})
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func apiErrorCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	return apiErr.Code
}

// TestRequestAdministration_UnownedMarkerAutoAccepts は所有者のいないマーカーへの
// 申請が即時承認され、申請者が所有者になることを検証する。
func TestRequestAdministration_UnownedMarkerAutoAccepts(t *testing.T) {
	markers := &mockMarkerRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Marker, error) {
			return &model.Marker{ID: id, Owners: []string{}}, nil
		},
	}

	var claimed *model.AdminRequest
	adminRequests := &mockAdminRequestRepo{
		createAcceptedWithOwnership: func(ctx context.Context, request *model.AdminRequest) error {
			claimed = request
			return nil
		},
		createFn: func(ctx context.Context, request *model.AdminRequest) error {
			t.Fatal("Create should not be called for an unowned marker")
			return nil
		},
	}
	sender := &mockSender{}

	svc := NewService(markers, adminRequests, &mockSubscriptionRepo{}, &mockUserRepo{}, sender, testLogger(), metrics.NopCollector{})
	request, err := svc.RequestAdministration(context.Background(), "marker-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if request.Status != model.RequestStatusAccepted {
		t.Errorf("status = %s, want %s", request.Status, model.RequestStatusAccepted)
	}
	if claimed == nil || claimed.UserID != "user-1" {
		t.Errorf("unexpected ownership claim: %+v", claimed)
	}
	if len(sender.calls) != 0 {
		t.Errorf("notifications = %d, want 0", len(sender.calls))
	}
}

// TestRequestAdministration_OwnedMarkerCreatesPending は所有者のいるマーカーへの
// 申請がpendingで作成され、全所有者に通知されることを検証する。
func TestRequestAdministration_OwnedMarkerCreatesPending(t *testing.T) {
	markers := &mockMarkerRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Marker, error) {
			return &model.Marker{ID: id, Name: "Olla Popular", Owners: []string{"user-1", "user-2"}}, nil
		},
	}

	var created *model.AdminRequest
	adminRequests := &mockAdminRequestRepo{
		createFn: func(ctx context.Context, request *model.AdminRequest) error {
			created = request
			return nil
		},
	}
	sender := &mockSender{}

	svc := NewService(markers, adminRequests, &mockSubscriptionRepo{}, &mockUserRepo{}, sender, testLogger(), metrics.NopCollector{})
	request, err := svc.RequestAdministration(context.Background(), "marker-1", "user-3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if request.Status != model.RequestStatusPending {
		t.Errorf("status = %s, want %s", request.Status, model.RequestStatusPending)
	}
	if created == nil || created.MarkerID != "marker-1" {
		t.Errorf("unexpected request: %+v", created)
	}
	if len(sender.calls) != 1 {
		t.Fatalf("notifications = %d, want 1", len(sender.calls))
	}
	if got := sender.calls[0].userIDs; len(got) != 2 || got[0] != "user-1" || got[1] != "user-2" {
		t.Errorf("notified users = %v, want owners", got)
	}
	if sender.calls[0].event.Type() != "EVENT_ADMINISTRATION_REQUEST" {
		t.Errorf("event type = %s", sender.calls[0].event.Type())
	}
}

// TestRequestAdministration_AlreadyAnAdministrator は所有者自身の申請が
// 拒否されることを検証する。
func TestRequestAdministration_AlreadyAnAdministrator(t *testing.T) {
	markers := &mockMarkerRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Marker, error) {
			return &model.Marker{ID: id, Owners: []string{"user-1"}}, nil
		},
	}

	svc := NewService(markers, &mockAdminRequestRepo{}, &mockSubscriptionRepo{}, &mockUserRepo{}, &mockSender{}, testLogger(), metrics.NopCollector{})
	_, err := svc.RequestAdministration(context.Background(), "marker-1", "user-1")
	if code := apiErrorCode(t, err); code != model.ErrCodeAlreadyAnAdministrator {
		t.Errorf("code = %s, want %s", code, model.ErrCodeAlreadyAnAdministrator)
	}
}

// TestRequestAdministration_DuplicateRequest は同一(ユーザー, マーカー)の
// 再申請が拒否されることを検証する。
func TestRequestAdministration_DuplicateRequest(t *testing.T) {
	markers := &mockMarkerRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Marker, error) {
			return &model.Marker{ID: id, Owners: []string{"user-1"}}, nil
		},
	}
	adminRequests := &mockAdminRequestRepo{
		findByUserAndMarkerFn: func(ctx context.Context, userID, markerID string) (*model.AdminRequest, error) {
			return &model.AdminRequest{ID: "request-1", Status: model.RequestStatusPending}, nil
		},
	}

	svc := NewService(markers, adminRequests, &mockSubscriptionRepo{}, &mockUserRepo{}, &mockSender{}, testLogger(), metrics.NopCollector{})
	_, err := svc.RequestAdministration(context.Background(), "marker-1", "user-2")
	if code := apiErrorCode(t, err); code != model.ErrCodeAlreadyRequestedAdmin {
		t.Errorf("code = %s, want %s", code, model.ErrCodeAlreadyRequestedAdmin)
	}
}

type respondFixture struct {
	svc           *Service
	sender        *mockSender
	adminRequests *mockAdminRequestRepo
	resolved      []model.RequestStatus
	removeSub     []bool
}

func newRespondFixture(t *testing.T, requestStatus model.RequestStatus, subscribed bool) *respondFixture {
	t.Helper()

	f := &respondFixture{sender: &mockSender{}}

	markers := &mockMarkerRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Marker, error) {
			return &model.Marker{ID: id, Name: "Olla Popular", Owners: []string{"owner-1"}}, nil
		},
	}
	f.adminRequests = &mockAdminRequestRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.AdminRequest, error) {
			return &model.AdminRequest{
				ID:       id,
				MarkerID: "marker-1",
				UserID:   "requester-1",
				Status:   requestStatus,
			}, nil
		},
		resolveFn: func(ctx context.Context, requestID string, status model.RequestStatus, markerID, userID string, removeSubscription bool) error {
			f.resolved = append(f.resolved, status)
			f.removeSub = append(f.removeSub, removeSubscription)
			return nil
		},
	}
	subscriptions := &mockSubscriptionRepo{
		findByUserAndMarkerFn: func(ctx context.Context, userID, markerID string) (*model.Subscription, error) {
			if subscribed {
				return &model.Subscription{ID: "subscription-1", UserID: userID, MarkerID: markerID}, nil
			}
			return nil, nil
		},
	}

	f.svc = NewService(markers, f.adminRequests, subscriptions, &mockUserRepo{}, f.sender, testLogger(), metrics.NopCollector{})
	return f
}

// TestRespondRequest_AcceptRemovesSubscriptionAndNotifies は承認時に購読削除付きで
// 解決され、申請者に通知されることを検証する。
func TestRespondRequest_AcceptRemovesSubscriptionAndNotifies(t *testing.T) {
	f := newRespondFixture(t, model.RequestStatusPending, true)

	marker, err := f.svc.RespondRequest(context.Background(), "request-1", model.RequestStatusAccepted, "owner-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if marker == nil || marker.ID != "marker-1" {
		t.Errorf("unexpected marker: %+v", marker)
	}

	if len(f.resolved) != 1 || f.resolved[0] != model.RequestStatusAccepted {
		t.Errorf("resolved = %v, want [accepted]", f.resolved)
	}
	if !f.removeSub[0] {
		t.Error("subscription of the requester should be removed")
	}
	if len(f.sender.calls) != 1 {
		t.Fatalf("notifications = %d, want 1", len(f.sender.calls))
	}
	if got := f.sender.calls[0].userIDs; len(got) != 1 || got[0] != "requester-1" {
		t.Errorf("notified users = %v, want [requester-1]", got)
	}
	if f.sender.calls[0].event.Type() != "EVENT_ADMINISTRATION_RESPONSE" {
		t.Errorf("event type = %s", f.sender.calls[0].event.Type())
	}
}

// TestRespondRequest_NotSubscribedKeepsSubscriptionUntouched は申請者が購読して
// いない場合に購読削除を行わないことを検証する。
func TestRespondRequest_NotSubscribedKeepsSubscriptionUntouched(t *testing.T) {
	f := newRespondFixture(t, model.RequestStatusPending, false)

	if _, err := f.svc.RespondRequest(context.Background(), "request-1", model.RequestStatusRejected, "owner-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.removeSub[0] {
		t.Error("no subscription existed, none should be removed")
	}
}

// TestRespondRequest_AlreadyResolved は解決済み申請への再応答が
// INVALID_REQUEST_STATEになることを検証する。
func TestRespondRequest_AlreadyResolved(t *testing.T) {
	f := newRespondFixture(t, model.RequestStatusAccepted, false)

	_, err := f.svc.RespondRequest(context.Background(), "request-1", model.RequestStatusRejected, "owner-1")
	if code := apiErrorCode(t, err); code != model.ErrCodeInvalidRequestState {
		t.Errorf("code = %s, want %s", code, model.ErrCodeInvalidRequestState)
	}
	if len(f.resolved) != 0 {
		t.Error("Resolve should not be called")
	}
}

// TestRespondRequest_PendingResponseRejected はpendingへの遷移指定が
// 拒否されることを検証する。
func TestRespondRequest_PendingResponseRejected(t *testing.T) {
	f := newRespondFixture(t, model.RequestStatusPending, false)

	_, err := f.svc.RespondRequest(context.Background(), "request-1", model.RequestStatusPending, "owner-1")
	if code := apiErrorCode(t, err); code != model.ErrCodeInvalidRequestState {
		t.Errorf("code = %s, want %s", code, model.ErrCodeInvalidRequestState)
	}
}

// TestRespondRequest_NonOwnerNotAllowed は所有者以外の応答が
// USER_NOT_ALLOWED_TO_PERFORM_OPERATIONになることを検証する。
func TestRespondRequest_NonOwnerNotAllowed(t *testing.T) {
	f := newRespondFixture(t, model.RequestStatusPending, false)

	_, err := f.svc.RespondRequest(context.Background(), "request-1", model.RequestStatusAccepted, "user-9")
	if code := apiErrorCode(t, err); code != model.ErrCodeUserNotAllowed {
		t.Errorf("code = %s, want %s", code, model.ErrCodeUserNotAllowed)
	}
}

// TestRespondRequest_MissingRequest は存在しない申請への応答が
// INVALID_REQUESTになることを検証する。
func TestRespondRequest_MissingRequest(t *testing.T) {
	f := newRespondFixture(t, model.RequestStatusPending, false)
	f.adminRequests.findByIDFn = func(ctx context.Context, id string) (*model.AdminRequest, error) {
		return nil, nil
	}

	_, err := f.svc.RespondRequest(context.Background(), "missing", model.RequestStatusAccepted, "owner-1")
	if code := apiErrorCode(t, err); code != model.ErrCodeInvalidRequest {
		t.Errorf("code = %s, want %s", code, model.ErrCodeInvalidRequest)
	}
}
