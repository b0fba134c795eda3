package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/avalonhealth/carehub-backend/api/routes"
	"github.com/avalonhealth/carehub-backend/internal/auth"
	"github.com/avalonhealth/carehub-backend/internal/hospitals"
	"github.com/avalonhealth/carehub-backend/internal/inventory"
	"github.com/avalonhealth/carehub-backend/internal/pharmacy"
	"github.com/avalonhealth/carehub-backend/internal/records"
	"github.com/avalonhealth/carehub-backend/internal/reports"
	"github.com/avalonhealth/carehub-backend/internal/users"
	"github.com/avalonhealth/carehub-backend/pkg/auth/session"
	"github.com/avalonhealth/carehub-backend/pkg/config"
	"github.com/avalonhealth/carehub-backend/pkg/db"
	"github.com/avalonhealth/carehub-backend/pkg/logger"
	"github.com/avalonhealth/carehub-backend/pkg/metrics"
	"github.com/avalonhealth/carehub-backend/pkg/migrate"
	"github.com/avalonhealth/carehub-backend/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	userRepo := users.NewRepository(gormDB)
	hospitalRepo := hospitals.NewRepository(gormDB)
	inventoryRepo := inventory.NewRepository(gormDB)
	pharmacyRepo := pharmacy.NewRepository(gormDB)
	recordsRepo := records.NewRepository(gormDB)
	reportsRepo := reports.NewRepository(gormDB)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(users.ServiceParams{
		Repo:           userRepo,
		Hospitals:      hospitalRepo,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	hospitalService, err := hospitals.NewService(hospitals.ServiceParams{
		Repo:              hospitalRepo,
		Users:             userRepo,
		Inventory:         inventoryRepo,
		LowStockThreshold: cfg.Pharmacy.LowStockThreshold,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create hospitals service", err)
		os.Exit(1)
	}

	inventoryService, err := inventory.NewService(inventoryRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	pharmacyService, err := pharmacy.NewService(pharmacy.ServiceParams{
		DB:                dbClient,
		Repo:              pharmacyRepo,
		Patients:          userRepo,
		Metrics:           metrics.NewPharmacyMetrics(prometheus.DefaultRegisterer),
		LowStockThreshold: cfg.Pharmacy.LowStockThreshold,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pharmacy service", err)
		os.Exit(1)
	}

	recordsService, err := records.NewService(records.ServiceParams{
		Repo:  recordsRepo,
		Users: userRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create records service", err)
		os.Exit(1)
	}

	reportsService, err := reports.NewService(reportsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create reports service", err)
		os.Exit(1)
	}

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
		Handler: routes.NewRouter(routes.RouterParams{
			Config:           cfg,
			Logger:           logg,
			DB:               dbClient,
			Redis:            redisClient,
			SessionChecker:   sessionManager,
			AuthService:      authService,
			RegisterService:  registerService,
			UsersService:     usersService,
			HospitalService:  hospitalService,
			InventoryService: inventoryService,
			PharmacyService:  pharmacyService,
			RecordsService:   recordsService,
			ReportsService:   reportsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
