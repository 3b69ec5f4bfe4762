package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/ollamap/internal/config"
	"github.com/hitoshi/ollamap/internal/database"
	"github.com/hitoshi/ollamap/internal/model"
	"github.com/hitoshi/ollamap/internal/repository"
)

// seedCategories はシードで投入する静的なカテゴリ。
var seedCategories = []model.Category{
	{
		Name:        "Olla Popular",
		Description: "Entrega de comida.",
		Color:       "#DB441B",
	},
	{
		Name:        "Merendero",
		Description: "Espacio al aire libre donde sentarse a comer, almorzar o merendar.",
		Color:       "#DBBB31",
	},
	{
		Name:        "Otras",
		Description: "Otro tipo de evento.",
		Color:       "#44B11C",
	},
}

// runSeed はカテゴリとデモデータを投入する。
// カテゴリは名前で冪等に投入する（既存の名前はスキップ）。
// デモユーザー・マーカーはSEED_DEMO_DATA=trueの場合のみ投入する。
func runSeed(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	ctx := context.Background()
	categoryRepo := repository.NewPostgresCategoryRepo(db)

	categoryIDs := make(map[string]string, len(seedCategories))
	for _, c := range seedCategories {
		existing, err := categoryRepo.FindByName(ctx, c.Name)
		if err != nil {
			return fmt.Errorf("failed to look up category: %w", err)
		}
		if existing != nil {
			categoryIDs[c.Name] = existing.ID
			slog.Info("category already exists", slog.String("name", c.Name))
			continue
		}

		c.ID = uuid.NewString()
		if err := categoryRepo.Create(ctx, &c); err != nil {
			return fmt.Errorf("failed to create category: %w", err)
		}
		categoryIDs[c.Name] = c.ID
		slog.Info("category created", slog.String("name", c.Name), slog.String("id", c.ID))
	}

	if cfg.SeedDemoData {
		if err := seedDemoData(ctx, db, categoryIDs); err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	slog.Info("seed completed")
	return nil
}

// seedDemoData は開発環境向けのデモユーザー・マーカー・購読を投入する。
func seedDemoData(ctx context.Context, db *sql.DB, categoryIDs map[string]string) error {
	userRepo := repository.NewPostgresUserRepo(db)
	markerRepo := repository.NewPostgresMarkerRepo(db)
	subRepo := repository.NewPostgresSubscriptionRepo(db)

	password, err := bcrypt.GenerateFromPassword([]byte("P4ssw*rd"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash demo password: %w", err)
	}

	users := []*model.User{
		{ID: uuid.NewString(), Email: "joaquin.aguirre@fing.edu.uy", Name: "Joaquín Aguirre", Password: string(password)},
		{ID: uuid.NewString(), Email: "maria.cecilia.pirotto@fing.edu.uy", Name: "Cecilia Pirotto", Password: string(password)},
	}
	for _, u := range users {
		existing, err := userRepo.FindByEmail(ctx, u.Email)
		if err != nil {
			return fmt.Errorf("failed to look up demo user: %w", err)
		}
		if existing != nil {
			u.ID = existing.ID
			continue
		}
		if err := userRepo.Create(ctx, u); err != nil {
			return fmt.Errorf("failed to create demo user: %w", err)
		}
	}

	expiresAt := time.Now().AddDate(0, 0, 10)
	markers := []*model.Marker{
		{
			ID:          uuid.NewString(),
			CategoryID:  categoryIDs["Olla Popular"],
			Description: "Vení y llevate un plato de comida caliente.",
			Duration:    180,
			Latitude:    -34.895365,
			Longitude:   -56.18769,
			Name:        "Residencia Universitaria Sagrada Familia",
			Owners:      []string{users[1].ID},
			Recurrence:  "RRULE:FREQ=DAILY;BYHOUR=20;BYMINUTE=0",
			TimeZone:    "America/Montevideo",
		},
		{
			ID:          uuid.NewString(),
			CategoryID:  categoryIDs["Merendero"],
			Description: "Espacio para merendar y conversar.",
			Duration:    120,
			Latitude:    -34.90578,
			Longitude:   -56.191679,
			Name:        "Plaza Cagancha",
			Owners:      []string{},
			Recurrence:  "RRULE:FREQ=DAILY;BYDAY=SA,SU;BYHOUR=17;BYMINUTE=0",
			TimeZone:    "America/Montevideo",
			ExpiresAt:   &expiresAt,
		},
	}
	for _, m := range markers {
		if err := markerRepo.Create(ctx, m); err != nil {
			return fmt.Errorf("failed to create demo marker: %w", err)
		}
	}

	subscriptions := []*model.Subscription{
		{ID: uuid.NewString(), MarkerID: markers[0].ID, UserID: users[0].ID},
		{ID: uuid.NewString(), MarkerID: markers[1].ID, UserID: users[0].ID},
		{ID: uuid.NewString(), MarkerID: markers[1].ID, UserID: users[1].ID},
	}
	for _, s := range subscriptions {
		if err := subRepo.Create(ctx, s); err != nil {
			return fmt.Errorf("failed to create demo subscription: %w", err)
		}
	}

	slog.Info("demo data created",
		slog.Int("users", len(users)),
		slog.Int("markers", len(markers)),
		slog.Int("subscriptions", len(subscriptions)),
	)
	return nil
}
