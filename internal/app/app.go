// Package app はアプリケーションの起動・依存関係のワイヤリング・シャットダウンを担う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/ollamap/internal/administration"
	"github.com/hitoshi/ollamap/internal/auth"
	"github.com/hitoshi/ollamap/internal/cache"
	"github.com/hitoshi/ollamap/internal/config"
	"github.com/hitoshi/ollamap/internal/database"
	"github.com/hitoshi/ollamap/internal/device"
	"github.com/hitoshi/ollamap/internal/handler"
	"github.com/hitoshi/ollamap/internal/logger"
	"github.com/hitoshi/ollamap/internal/marker"
	"github.com/hitoshi/ollamap/internal/metrics"
	"github.com/hitoshi/ollamap/internal/middleware"
	"github.com/hitoshi/ollamap/internal/notification"
	"github.com/hitoshi/ollamap/internal/repository"
	"github.com/hitoshi/ollamap/internal/request"
	"github.com/hitoshi/ollamap/internal/subscription"
	"github.com/hitoshi/ollamap/internal/user"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSeed:
		return runSeed(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB・Redis接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. Redis接続（通報カウンタ・冪等フラグ用）
	store, err := cache.NewRedisStore(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to open redis: %w", err)
	}
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("redis connection established")

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	categoryRepo := repository.NewPostgresCategoryRepo(db)
	markerRepo := repository.NewPostgresMarkerRepo(db)
	subRepo := repository.NewPostgresSubscriptionRepo(db)
	adminReqRepo := repository.NewPostgresAdminRequestRepo(db)
	requestRepo := repository.NewPostgresRequestRepo(db)
	deviceRepo := repository.NewPostgresDeviceRepo(db)

	// 5. プッシュ通知ゲートウェイの初期化
	// Firebase認証情報が未設定の場合はログ出力のみのゲートウェイで起動する
	var gateway notification.Gateway
	if cfg.FirebaseProjectID != "" && cfg.FirebaseAuthKey != "" {
		fcm, err := notification.NewFCMGateway(context.Background(), notification.FCMCredentials{
			ProjectID:   cfg.FirebaseProjectID,
			ClientEmail: cfg.FirebaseServiceAccount,
			PrivateKey:  cfg.FirebaseAuthKey,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize FCM gateway: %w", err)
		}
		gateway = fcm
		slog.Info("FCM gateway initialized", slog.String("project_id", cfg.FirebaseProjectID))
	} else {
		gateway = notification.NewLoggingGateway(slog.Default())
		slog.Warn("firebase credentials not configured, push notifications are log-only")
	}

	notifier := notification.NewNotifier(userRepo, gateway, slog.Default(), collector)

	// 6. 認証トークン発行者の初期化
	issuer, err := auth.NewTokenIssuer(cfg.JWTPrivateKey, cfg.TokenLifetime)
	if err != nil {
		return fmt.Errorf("failed to initialize token issuer: %w", err)
	}

	// 7. ドメインサービスの初期化
	authService := auth.NewService(userRepo, issuer, slog.Default())

	markerService := marker.NewService(markerRepo, adminReqRepo, store, marker.Policy{
		ExpirationDays: cfg.MarkerExpirationDays,
		ReportsMax:     cfg.MarkerReportsMax,
		ReportTTL:      cfg.MarkerReportTTL,
	}, slog.Default(), collector)

	adminService := administration.NewService(
		markerRepo, adminReqRepo, subRepo, userRepo,
		notifier, slog.Default(), collector,
	)

	requestService := request.NewService(
		requestRepo, subRepo, markerRepo,
		notifier, slog.Default(), collector,
	)

	subService := subscription.NewService(subRepo, markerRepo, slog.Default(), collector)
	userService := user.NewService(userRepo, markerRepo, subRepo)
	deviceService := device.NewService(deviceRepo, device.AppVersion{
		Android: cfg.AppVersionAndroid,
		IOS:     cfg.AppVersionIOS,
	}, slog.Default())

	// 8. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitWrite),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		TokenVerifier:     issuer,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),
		Collector:         collector,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(registry),

		AuthService:           authService,
		MarkerService:         markerService,
		AdministrationService: adminService,
		RequestService:        requestService,
		SubscriptionService:   subService,
		UserService:           userService,
		DeviceService:         deviceService,
		Categories:            categoryRepo,
	})

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
