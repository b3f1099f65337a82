package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-space-reservation/internal/config"
	"github.com/iliyamo/parking-space-reservation/internal/database"
	"github.com/iliyamo/parking-space-reservation/internal/handler"
	"github.com/iliyamo/parking-space-reservation/internal/middleware"
	"github.com/iliyamo/parking-space-reservation/internal/queue"
	"github.com/iliyamo/parking-space-reservation/internal/repository"
	"github.com/iliyamo/parking-space-reservation/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	branches := repository.NewBranchRepo(db)
	spaces := repository.NewSpaceRepo(db, branches)
	users := repository.NewUserRepo(db)
	reservations := repository.NewReservationRepo(db)

	e := echo.New()
	e.HideBanner = true

	// Limiter degrades to a pass-through when Redis is unreachable.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, rate limiting disabled")
	}
	e.Use(middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users), cfg.JWTSecret)
	router.RegisterUsers(e, handler.NewUserHandler(cfg, users))
	router.RegisterRegistry(e, handler.NewBranchHandler(branches), handler.NewSpaceHandler(spaces, branches))
	router.RegisterAvailability(e, handler.NewAvailabilityHandler(branches, spaces, reservations))
	router.RegisterReservations(e, handler.NewReservationHandler(users, branches, spaces, reservations))

	// Consume confirmation events in the background for the duration of
	// the process; the consumer reconnects on broker failures.
	go func() {
		if err := queue.StartReservationConsumer(); err != nil {
			log.Printf("reservation consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
