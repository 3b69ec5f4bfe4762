package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/ollamap/internal/model"
	"github.com/hitoshi/ollamap/internal/repository"
)

// bcryptCost はパスワードハッシュのコストパラメータ。
const bcryptCost = 10

// Session は発行済みアクセストークン。
type Session struct {
	JWT string
}

// Service はアカウント作成とサインインのサービス層。
type Service struct {
	users  repository.UserRepository
	issuer *TokenIssuer
	logger *slog.Logger
	now    func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(users repository.UserRepository, issuer *TokenIssuer, logger *slog.Logger) *Service {
	return &Service{
		users:  users,
		issuer: issuer,
		logger: logger,
		now:    time.Now,
	}
}

// SignUp はアカウントを作成し、アクセストークンを発行する。
// メールアドレスの重複を含む永続化失敗はERROR_CREATING_USERに包む。
func (s *Service) SignUp(ctx context.Context, email, name, password string) (*Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		return nil, model.NewInternalError(model.ErrCodeErrorCreatingUser)
	}

	now := s.now()
	user := &model.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Password:  string(hash),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		s.logger.Error("failed to create user", "email", email, "error", err)
		return nil, model.NewInternalError(model.ErrCodeErrorCreatingUser)
	}

	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		s.logger.Error("failed to issue token", "user_id", user.ID, "error", err)
		return nil, model.NewInternalError(model.ErrCodeErrorCreatingUser)
	}

	return &Session{JWT: token}, nil
}

// SignIn はメールアドレスとパスワードを検証し、アクセストークンを発行する。
// ユーザーの不存在とパスワード不一致は区別せずINVALID_CREDENTIALSを返す。
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, model.NewInvalidCredentialsError()
	}

	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		s.logger.Error("failed to issue token", "user_id", user.ID, "error", err)
		return nil, model.NewInvalidCredentialsError()
	}

	return &Session{JWT: token}, nil
}
