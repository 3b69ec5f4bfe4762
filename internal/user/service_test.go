package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/ollamap/internal/model"
	"github.com/hitoshi/ollamap/internal/repository"
)

type mockUserRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFn(ctx, id)
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

type mockMarkerRepo struct {
	listByOwnerFn func(ctx context.Context, userID string) ([]*model.Marker, error)
}

func (m *mockMarkerRepo) FindByID(ctx context.Context, id string) (*model.Marker, error) {
	return nil, nil
}
func (m *mockMarkerRepo) ListActive(ctx context.Context, now time.Time) ([]*model.Marker, error) {
	return nil, nil
}
func (m *mockMarkerRepo) ListByOwner(ctx context.Context, userID string) ([]*model.Marker, error) {
	return m.listByOwnerFn(ctx, userID)
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

type mockSubscriptionRepo struct {
	listByUserWithMarkerFn func(ctx context.Context, userID string) ([]repository.SubscriptionWithMarker, error)
}

func (m *mockSubscriptionRepo) FindByUserAndMarker(ctx context.Context, userID, markerID string) (*model.Subscription, error) {
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
	return m.listByUserWithMarkerFn(ctx, userID)
}

// TestGetProfile_ReturnsPublicFieldsOnly はプロフィールが公開フィールドのみを
// 含むことを検証する。
func TestGetProfile_ReturnsPublicFieldsOnly(t *testing.T) {
	users := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{
				ID:       id,
				Email:    "ana@example.com",
				Name:     "Ana",
				Password: "$2a$10$hash",
			}, nil
		},
	}

	svc := NewService(users, &mockMarkerRepo{}, &mockSubscriptionRepo{})
	profile, err := svc.GetProfile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Email != "ana@example.com" || profile.Name != "Ana" {
		t.Errorf("unexpected profile: %+v", profile)
	}
}

// TestGetProfile_MissingUser は存在しないユーザーがINVALID_USERになることを検証する。
func TestGetProfile_MissingUser(t *testing.T) {
	users := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return nil, nil
		},
	}

	svc := NewService(users, &mockMarkerRepo{}, &mockSubscriptionRepo{})
	_, err := svc.GetProfile(context.Background(), "missing")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidUser {
		t.Errorf("code = %s, want %s", apiErr.Code, model.ErrCodeInvalidUser)
	}
}

// TestGetEvents_ReturnsOwnedMarkers は所有マーカーがイベントとして返ることを検証する。
func TestGetEvents_ReturnsOwnedMarkers(t *testing.T) {
	markers := &mockMarkerRepo{
		listByOwnerFn: func(ctx context.Context, userID string) ([]*model.Marker, error) {
			return []*model.Marker{{ID: "marker-1", Owners: []string{userID}}}, nil
		},
	}

	svc := NewService(&mockUserRepo{}, markers, &mockSubscriptionRepo{})
	events, err := svc.GetEvents(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].Marker.ID != "marker-1" {
		t.Errorf("unexpected events: %+v", events)
	}
}

// TestGetSubscriptions_IncludesDateAndMarker は購読一覧が購読開始日と
// マーカーを含むことを検証する。
func TestGetSubscriptions_IncludesDateAndMarker(t *testing.T) {
	subscribedAt := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	subscriptions := &mockSubscriptionRepo{
		listByUserWithMarkerFn: func(ctx context.Context, userID string) ([]repository.SubscriptionWithMarker, error) {
			return []repository.SubscriptionWithMarker{
				{
					Subscription: model.Subscription{ID: "subscription-1", CreatedAt: subscribedAt},
					Marker:       model.Marker{ID: "marker-1", Name: "Olla Popular"},
				},
			}, nil
		},
	}

	svc := NewService(&mockUserRepo{}, &mockMarkerRepo{}, subscriptions)
	views, err := svc.GetSubscriptions(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("views = %d, want 1", len(views))
	}
	if views[0].ID != "subscription-1" || !views[0].Date.Equal(subscribedAt) || views[0].Marker.ID != "marker-1" {
		t.Errorf("unexpected view: %+v", views[0])
	}
}
