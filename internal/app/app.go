package app

import (
	"context"
	"fmt"

	"github.com/Kyushi/pemoi/internal/config"
	"github.com/Kyushi/pemoi/internal/db"
	"github.com/Kyushi/pemoi/internal/markdown"
	"github.com/Kyushi/pemoi/internal/repository"
	"github.com/Kyushi/pemoi/internal/service"
	"github.com/Kyushi/pemoi/internal/storage"
	"github.com/Kyushi/pemoi/internal/tumblr"
	"github.com/jmoiron/sqlx"
)

type App struct {
	Cfg             *config.Config
	DB              *sqlx.DB
	Storage         storage.Storage
	AuthService     *service.AuthService
	UserService     *service.UserService
	CategoryService *service.CategoryService
	ItemService     *service.ItemService
	EmailService    *service.EmailService
	Tumblr          *tumblr.Client
	Markdown        *markdown.Renderer
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if cfg.AutoMigrate {
		err = db.RunMigrations(database.DB, cfg.DBDriver)
		if err != nil {
			_ = db.Close(database)
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	categoryRepository := repository.NewCategoryRepository(database)
	itemRepository := repository.NewItemRepository(database)

	// Storage
	fileStorage, err := storage.New(cfg)
	if err != nil {
		_ = db.Close(database)
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	err = service.Bootstrap(ctx, userRepository, categoryRepository, cfg.AdminEmail)
	if err != nil {
		_ = db.Close(database)
		return nil, fmt.Errorf("failed to bootstrap sentinels: %w", err)
	}

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	authService := service.NewAuthService(
		userRepository,
		cfg.JWTSecret,
		cfg.IsProduction(),
		cfg.JWTExpiry,
		cfg.SignupTokenExpiry,
	)
	userService := service.NewUserService(
		database,
		userRepository,
		categoryRepository,
		itemRepository,
		fileStorage,
		emailService,
		cfg.UploadURLPrefix,
	)
	categoryService := service.NewCategoryService(categoryRepository, userRepository)
	itemService := service.NewItemService(
		database,
		itemRepository,
		categoryRepository,
		userRepository,
		fileStorage,
		cfg.UploadURLPrefix,
	)

	return &App{
		Cfg:             cfg,
		DB:              database,
		Storage:         fileStorage,
		AuthService:     authService,
		UserService:     userService,
		CategoryService: categoryService,
		ItemService:     itemService,
		EmailService:    emailService,
		Tumblr:          tumblr.NewClient(cfg.TumblrAPIKey, ""),
		Markdown:        markdown.NewRenderer(),
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return db.Close(a.DB)
	}
	return nil
}
