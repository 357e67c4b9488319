package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/hungnp/smart-parking-api/internal/config"
	"github.com/hungnp/smart-parking-api/internal/database"
	"github.com/hungnp/smart-parking-api/internal/gate"
	"github.com/hungnp/smart-parking-api/internal/handler"
	"github.com/hungnp/smart-parking-api/internal/middleware"
	"github.com/hungnp/smart-parking-api/internal/queue"
	"github.com/hungnp/smart-parking-api/internal/repository"
	"github.com/hungnp/smart-parking-api/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	// The database is not optional: without it every endpoint is dead,
	// so refuse to start.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()

	e := echo.New()

	// Redis-backed rate limiting and response caching degrade to no-ops
	// when Redis is unreachable.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and caching disabled")
	}
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	// Repositories
	users := repository.NewUserRepo(db)
	lots := repository.NewParkingLotRepo(db)
	spots := repository.NewParkingSpotRepo(db)
	reservations := repository.NewReservationRepo(db)
	parkingLogs := repository.NewParkingLogRepo(db)
	banks := repository.NewBankAccountRepo(db)
	paymentLogs := repository.NewPaymentLogRepo(db)

	// The gate controller is optional: development setups without the
	// hardware run with gate signalling disabled.
	var gateClient gate.Sender
	if cfg.ESP32Host != "" {
		gateClient = gate.NewClient(cfg.ESP32Host, cfg.ESP32Port)
	} else {
		log.Printf("ESP32_IP not set; gate signalling disabled")
	}

	// Handlers
	authH := handler.NewAuthHandler(cfg, users)
	lotH := handler.NewParkingLotHandler(lots)
	spotH := handler.NewParkingSpotHandler(spots, lots)
	reservationH := handler.NewReservationHandler(db, reservations, spots, lots, parkingLogs, banks)
	paymentH := handler.NewPaymentHandler(db, reservations, spots, lots, parkingLogs, banks, paymentLogs)
	webhookH := handler.NewWebhookHandler(cfg.SepaySecret, paymentH)
	logH := handler.NewParkingLogHandler(parkingLogs)
	statusH := handler.NewUserStatusHandler(reservations, parkingLogs, spots)
	bankH := handler.NewBankAccountHandler(banks)
	adminUserH := handler.NewAdminUserHandler(users)
	plateH := handler.NewLicensePlateHandler(db, users, spots, lots, parkingLogs, gateClient, cfg.DefaultLotID)

	// Routes
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, lotH, spotH)
	router.RegisterUser(e, reservationH, paymentH, logH, statusH, cfg.JWTSecret)
	router.RegisterManager(e, lotH, spotH, bankH, reservationH, logH, paymentH, cfg.JWTSecret)
	router.RegisterAdmin(e, adminUserH, reservationH, cfg.JWTSecret)
	router.RegisterGate(e, plateH, webhookH)

	// Background audit consumer; runs its own reconnect loop.
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
