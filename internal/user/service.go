// Package user はユーザーの公開プロフィール・所有マーカー・購読一覧の
// 問い合わせを提供する。
package user

import (
	"context"
	"time"

	"github.com/hitoshi/ollamap/internal/model"
	"github.com/hitoshi/ollamap/internal/repository"
)

// Event はユーザーが所有（主催）するマーカーを表す。
type Event struct {
	Marker *model.Marker
}

// SubscriptionView はユーザーの購読1件を購読開始日とマーカー付きで表す。
type SubscriptionView struct {
	ID     string
	Date   time.Time
	Marker model.Marker
}

// Service はユーザー問い合わせのサービス層。
type Service struct {
	users         repository.UserRepository
	markers       repository.MarkerRepository
	subscriptions repository.SubscriptionRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	users repository.UserRepository,
	markers repository.MarkerRepository,
	subscriptions repository.SubscriptionRepository,
) *Service {
	return &Service{
		users:         users,
		markers:       markers,
		subscriptions: subscriptions,
	}
}

// GetProfile はユーザーの公開プロフィール（名前とメールアドレスのみ）を返す。
func (s *Service) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewInvalidUserError()
	}

	profile := user.ToProfile()
	return &profile, nil
}

// GetEvents はユーザーが所有するマーカーの一覧を返す。失効済みも含む。
func (s *Service) GetEvents(ctx context.Context, userID string) ([]Event, error) {
	markers, err := s.markers.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	events := make([]Event, len(markers))
	for i, marker := range markers {
		events[i] = Event{Marker: marker}
	}
	return events, nil
}

// GetSubscriptions はユーザーの購読一覧を、購読開始日とマーカー
// （カテゴリ付き）と合わせて返す。
func (s *Service) GetSubscriptions(ctx context.Context, userID string) ([]SubscriptionView, error) {
	rows, err := s.subscriptions.ListByUserWithMarker(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]SubscriptionView, len(rows))
	for i, row := range rows {
		views[i] = SubscriptionView{
			ID:     row.ID,
			Date:   row.CreatedAt,
			Marker: row.Marker,
		}
	}
	return views, nil
}
