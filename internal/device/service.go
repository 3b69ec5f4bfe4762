// Package device はプッシュ通知デバイストークンの登録・解除と
// アプリバージョン情報を提供する。
package device

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/ollamap/internal/model"
	"github.com/hitoshi/ollamap/internal/repository"
)

// RegisterInput はデバイストークン登録の入力。
type RegisterInput struct {
	DeviceID string
	Platform model.Platform
	Token    string
}

// AppVersion はモバイルアプリの必須バージョン情報。
type AppVersion struct {
	Android string
	IOS     string
}

// Service はデバイス管理のサービス層。
type Service struct {
	devices    repository.DeviceRepository
	appVersion AppVersion
	logger     *slog.Logger
	now        func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(devices repository.DeviceRepository, appVersion AppVersion, logger *slog.Logger) *Service {
	return &Service{
		devices:    devices,
		appVersion: appVersion,
		logger:     logger,
		now:        time.Now,
	}
}

// AppVersion はプラットフォーム別のアプリバージョンを返す。
func (s *Service) AppVersion() AppVersion {
	return s.appVersion
}

// RegisterToken は端末識別子をキーにデバイストークンを登録する。
// 既知の端末はトークン・プラットフォーム・所有ユーザーを更新する
// （端末の持ち主が変わるアプリ入れ直しもこの経路で扱う）。
func (s *Service) RegisterToken(ctx context.Context, input RegisterInput, userID string) error {
	existing, err := s.devices.FindByDeviceID(ctx, input.DeviceID)
	if err != nil {
		return err
	}

	if existing != nil {
		existing.Platform = input.Platform
		existing.Token = input.Token
		existing.UserID = userID
		if err := s.devices.Update(ctx, existing); err != nil {
			s.logger.Error("failed to update device token", "device_id", input.DeviceID, "error", err)
			return model.NewInternalError(model.ErrCodeErrorRegisteringToken)
		}
		return nil
	}

	now := s.now()
	device := &model.Device{
		ID:        uuid.NewString(),
		DeviceID:  input.DeviceID,
		Platform:  input.Platform,
		Token:     input.Token,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.devices.Create(ctx, device); err != nil {
		s.logger.Error("failed to register device token", "device_id", input.DeviceID, "error", err)
		return model.NewInternalError(model.ErrCodeErrorRegisteringToken)
	}
	return nil
}

// UnregisterToken はユーザー自身の端末のトークン登録を解除する。
// ユーザーに紐づかない端末識別子はINVALID_DEVICE_IDENTIFIER。
func (s *Service) UnregisterToken(ctx context.Context, deviceID, userID string) error {
	existing, err := s.devices.FindByUserAndDeviceID(ctx, userID, deviceID)
	if err != nil {
		return err
	}
	if existing == nil {
		return model.NewInvalidDeviceIdentifierError()
	}

	if err := s.devices.DeleteByDeviceID(ctx, deviceID); err != nil {
		s.logger.Error("failed to unregister device token", "device_id", deviceID, "error", err)
		return model.NewInternalError(model.ErrCodeErrorUnregisteringToken)
	}
	return nil
}
