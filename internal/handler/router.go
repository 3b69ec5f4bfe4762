package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/ollamap/internal/metrics"
	"github.com/hitoshi/ollamap/internal/middleware"
)

// HealthChecker はヘルスチェックのためのインターフェース。sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Collector         metrics.MetricsCollector

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface

	// マーカー
	MarkerService MarkerServiceInterface

	// 管理者申請
	AdministrationService AdministrationServiceInterface

	// 物資リクエスト
	RequestService RequestServiceInterface

	// 購読
	SubscriptionService SubscriptionServiceInterface

	// ユーザー
	UserService UserServiceInterface

	// デバイス
	DeviceService DeviceServiceInterface

	// カテゴリ
	Categories CategoryLister
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Auth → RateLimit(General)
//
// 認証ルート（/auth/*）とマーカーの読み取り系ルートは認証ミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効くミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Collector))

	authHandler := NewAuthHandler(deps.AuthService)
	markerHandler := NewMarkerHandler(deps.MarkerService)
	adminHandler := NewAdministrationHandler(deps.AdministrationService)
	requestHandler := NewRequestHandler(deps.RequestService)
	subHandler := NewSubscriptionHandler(deps.SubscriptionService)
	userHandler := NewUserHandler(deps.UserService)
	deviceHandler := NewDeviceHandler(deps.DeviceService)
	categoryHandler := NewCategoryHandler(deps.Categories)

	// --- 認証不要のルート ---

	// 運用エンドポイント
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.SignUp)
		r.Post("/signin", authHandler.SignIn)
	})

	// 地図表示はログイン前でも使えるため、読み取り系は公開する
	r.Get("/api/markers", markerHandler.ListMarkers)
	r.Get("/api/markers/{id}", markerHandler.GetMarker)
	r.Get("/api/markers/{id}/requests", requestHandler.ListRequests)
	r.Get("/api/categories", categoryHandler.ListCategories)
	r.Get("/api/app-version", deviceHandler.GetAppVersion)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 読み取り系の/api/markersルートは公開側に登録済みのため、
		// サブルーターをマウントせずフルパスで登録する
		writeLimited := deps.RateLimiter.WriteMiddleware()

		// マーカーライフサイクル（作成・通報・申請は書き込み系レート制限を追加）
		r.With(writeLimited).Post("/api/markers", markerHandler.CreateMarker)
		r.Post("/api/markers/{id}/confirm", markerHandler.ConfirmMarker)
		r.Delete("/api/markers/{id}", markerHandler.DeleteMarker)
		r.With(writeLimited).Post("/api/markers/{id}/report", markerHandler.ReportMarker)

		// 管理者申請
		r.Get("/api/markers/{id}/admin-requests", markerHandler.ListAdminRequests)
		r.With(writeLimited).Post("/api/markers/{id}/admin-requests", adminHandler.RequestAdministration)

		// 物資リクエスト
		r.With(writeLimited).Post("/api/markers/{id}/requests", requestHandler.AddRequest)

		// 購読
		r.Post("/api/markers/{id}/subscription", subHandler.Subscribe)
		r.Delete("/api/markers/{id}/subscription", subHandler.Unsubscribe)

		// 管理者申請への応答
		r.Post("/api/admin-requests/{id}/respond", adminHandler.RespondRequest)

		// ユーザー
		r.Get("/api/profile", userHandler.GetProfile)
		r.Get("/api/events", userHandler.GetEvents)
		r.Get("/api/subscriptions", userHandler.GetSubscriptions)

		// デバイス
		r.Post("/api/devices", deviceHandler.RegisterDevice)
		r.Delete("/api/devices/{deviceId}", deviceHandler.UnregisterDevice)
	})

	return r
}
