package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/amezhanin/skinstore/internal/cache"
	"github.com/amezhanin/skinstore/internal/controller"
	"github.com/amezhanin/skinstore/internal/events"
	"github.com/amezhanin/skinstore/internal/middlewareinternal"
	"github.com/amezhanin/skinstore/internal/pricesource"
	"github.com/amezhanin/skinstore/internal/repository"
	"github.com/amezhanin/skinstore/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// App owns the process-wide handles (store, cache, publisher). They are
// created once here and closed once on shutdown, never recreated mid-run.
type App struct {
	cfg    *Config
	Router *chi.Mux
	Logger *zap.Logger
	Server *http.Server

	db           *repository.Database
	catalogCache *cache.CatalogCache
}

func New(cfg *Config, logger *zap.Logger) (*App, error) {
	app := &App{
		cfg:    cfg,
		Router: chi.NewRouter(),
		Logger: logger,
	}

	db, err := repository.NewDatabase(repository.DatabaseConfig{
		Host:           cfg.DBHost,
		Port:           cfg.DBPort,
		User:           cfg.DBUser,
		Password:       cfg.DBPassword,
		Name:           cfg.DBName,
		MigrationsPath: cfg.MigrationsPath,
	})
	if err != nil {
		return nil, fmt.Errorf("database initialization failed: %w", err)
	}
	app.db = db

	catalogCache, err := cache.NewCatalogCache(cache.Config{
		Host: cfg.RedisHost,
		Port: cfg.RedisPort,
	})
	if err != nil {
		return nil, fmt.Errorf("cache initialization failed: %w", err)
	}
	app.catalogCache = catalogCache

	userRepo := repository.NewUserRepository(db)
	if err := repository.SeedDemoUsers(context.Background(), userRepo, cfg.BcryptCost); err != nil {
		return nil, fmt.Errorf("demo seed failed: %w", err)
	}

	app.initRouter(userRepo)
	return app, nil
}

func (a *App) initRouter(userRepo repository.UserRepository) {
	a.Router.Use(middleware.RequestID)
	a.Router.Use(middleware.RealIP)
	a.Router.Use(middleware.Logger)
	a.Router.Use(middleware.Recoverer)
	a.Router.Use(middleware.Compress(5))

	itemRepo := repository.NewItemRepository(a.db)
	ledgerStore := repository.NewLedgerStore(a.db)

	var publisher events.Publisher = events.NopPublisher{}
	if len(a.cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(a.cfg.KafkaBrokers)
	}

	priceClient := pricesource.NewClient(a.cfg.PriceSourceAddr)

	authService := service.NewAuthService(userRepo, a.cfg.TokenSecret, a.cfg.BcryptCost)
	userService := service.NewUserService(userRepo)
	ledgerService := service.NewLedgerService(ledgerStore, publisher, a.Logger)
	catalogService := service.NewCatalogService(a.catalogCache, priceClient, itemRepo, a.Logger)

	authController := controller.NewAuthController(authService, a.Logger)
	userController := controller.NewUserController(userService, a.Logger)
	purchaseController := controller.NewPurchaseController(ledgerService, a.Logger)
	skinsController := controller.NewSkinsController(catalogService, a.Logger)

	a.Router.Route("/users", func(r chi.Router) {
		r.Post("/login", authController.Login)
		r.Patch("/change-password", authController.ChangePassword)
		r.Post("/buy", purchaseController.Buy)

		r.Group(func(r chi.Router) {
			r.Use(middlewareinternal.JWTAuthMiddleware(authService))
			r.Get("/", userController.List)
			r.Get("/{id}", userController.GetByID)
		})
	})

	a.Router.Get("/skins/", skinsController.GetSkins)
}

func (a *App) Close() {
	if a.catalogCache != nil {
		if err := a.catalogCache.Close(); err != nil {
			a.Logger.Error("Cache close error", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Error("Database close error", zap.Error(err))
		}
	}
}

func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.Server.Shutdown(ctx)
}
