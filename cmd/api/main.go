package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/denvolkov/playcart-backend/api/routes"
	internalauth "github.com/denvolkov/playcart-backend/internal/auth"
	"github.com/denvolkov/playcart-backend/internal/missions"
	"github.com/denvolkov/playcart-backend/internal/orders"
	"github.com/denvolkov/playcart-backend/internal/products"
	"github.com/denvolkov/playcart-backend/internal/promos"
	"github.com/denvolkov/playcart-backend/internal/reviews"
	"github.com/denvolkov/playcart-backend/internal/rewards"
	"github.com/denvolkov/playcart-backend/internal/topup"
	internalusers "github.com/denvolkov/playcart-backend/internal/users"
	"github.com/denvolkov/playcart-backend/internal/wallet"
	"github.com/denvolkov/playcart-backend/internal/wheel"
	"github.com/denvolkov/playcart-backend/pkg/auth/session"
	"github.com/denvolkov/playcart-backend/pkg/config"
	"github.com/denvolkov/playcart-backend/pkg/db"
	"github.com/denvolkov/playcart-backend/pkg/logger"
	"github.com/denvolkov/playcart-backend/pkg/metrics"
	"github.com/denvolkov/playcart-backend/pkg/migrate"
	"github.com/denvolkov/playcart-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessions, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	usersRepo := internalusers.NewRepository(gormDB)
	productsRepo := products.NewRepository(gormDB)
	promosRepo := promos.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)
	reviewsRepo := reviews.NewRepository(gormDB)
	missionsRepo := missions.NewRepository(gormDB)
	wheelRepo := wheel.NewRepository(gormDB)
	rewardsRepo := rewards.NewRepository(gormDB)
	topupRepo := topup.NewRepository(gormDB)
	ledger := wallet.NewLedger(gormDB)

	authService, err := internalauth.NewService(usersRepo, sessions, cfg.JWT, cfg.Password, logg)
	if err != nil {
		fatal(logg, "failed to create auth service", err)
	}
	usersService, err := internalusers.NewService(usersRepo, ledger, dbClient, logg, cfg.Levels)
	if err != nil {
		fatal(logg, "failed to create users service", err)
	}
	missionsService, err := missions.NewService(missionsRepo, usersRepo, ledger, dbClient, logg)
	if err != nil {
		fatal(logg, "failed to create missions service", err)
	}
	ordersService, err := orders.NewService(ordersRepo, usersRepo, productsRepo, promosRepo, ledger, dbClient, missionsService, logg, cfg.Orders, cfg.Levels)
	if err != nil {
		fatal(logg, "failed to create orders service", err)
	}
	reviewsService, err := reviews.NewService(reviewsRepo, productsRepo, missionsService, dbClient, logg)
	if err != nil {
		fatal(logg, "failed to create reviews service", err)
	}
	wheelService, err := wheel.NewService(wheelRepo, usersRepo, ledger, dbClient, logg)
	if err != nil {
		fatal(logg, "failed to create wheel service", err)
	}
	rewardsService, err := rewards.NewService(rewardsRepo, usersRepo, ledger, dbClient, logg)
	if err != nil {
		fatal(logg, "failed to create rewards service", err)
	}
	topupService, err := topup.NewService(topupRepo, ledger, dbClient, logg)
	if err != nil {
		fatal(logg, "failed to create topup service", err)
	}

	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(registry)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Cfg:  cfg,
			Logg: logg,

			DB:       gormDB,
			Redis:    redisClient,
			Sessions: sessions,

			HTTPMetrics: httpMetrics,
			Gatherer:    registry,

			AuthService:     authService,
			UsersService:    usersService,
			OrdersService:   ordersService,
			OrdersRepo:      ordersRepo,
			ProductsRepo:    productsRepo,
			PromosRepo:      promosRepo,
			ReviewsService:  reviewsService,
			WheelService:    wheelService,
			WheelRepo:       wheelRepo,
			RewardsService:  rewardsService,
			RewardsRepo:     rewardsRepo,
			MissionsService: missionsService,
			MissionsRepo:    missionsRepo,
			TopUpService:    topupService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func fatal(logg *logger.Logger, msg string, err error) {
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
