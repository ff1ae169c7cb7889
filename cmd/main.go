package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecommerce-backend/internal/api"
	"ecommerce-backend/internal/auth"
	"ecommerce-backend/internal/config"
	"ecommerce-backend/internal/events"
	"ecommerce-backend/internal/idempotency"
	"ecommerce-backend/internal/repository"
	"ecommerce-backend/internal/service"
	"ecommerce-backend/migrations"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	app := &cli.App{
		Name:  "ecommerce-backend",
		Usage: "e-commerce REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Usage: "dotenv file to load before the environment"},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "apply migrations and start the HTTP server",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "manage the database schema",
				Subcommands: []*cli.Command{
					{Name: "up", Usage: "apply every pending migration", Action: migrateUp},
					{Name: "down", Usage: "roll back every migration", Action: migrateDown},
				},
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("Exiting")
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	var files []string
	if f := c.String("env-file"); f != "" {
		files = append(files, f)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, errors.Wrapf(err, "parse LOG_LEVEL %q", cfg.LogLevel)
	}
	zerolog.SetGlobalLevel(level)
	return cfg, nil
}

func migrateUp(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := config.ConnectDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Up(db.DB); err != nil {
		return err
	}
	log.Info().Msg("Migrations applied")
	return nil
}

func migrateDown(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := config.ConnectDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Down(db.DB); err != nil {
		return err
	}
	log.Info().Msg("Migrations rolled back")
	return nil
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	db, err := config.ConnectDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Up(db.DB); err != nil {
		return err
	}

	var guard service.IdempotencyGuard
	if rdb := config.NewRedisClient(cfg); rdb != nil {
		defer rdb.Close()
		guard = idempotency.NewRedisGuard(rdb, cfg.IdempotencyTTL)
	} else {
		log.Warn().Msg("REDIS_ADDR not set, idempotency keys are ignored")
	}

	var publisher service.EventPublisher
	if cfg.KafkaBrokers != "" {
		kafkaWriter := events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaWriter.Close()
		publisher = events.NewKafkaPublisher(kafkaWriter)
	} else {
		log.Warn().Msg("KAFKA_BROKERS not set, order events are not published")
	}

	paging := service.Paging{DefaultPageSize: cfg.DefaultPageSize, MaxPageSize: cfg.MaxPageSize}
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)

	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	cartRepo := repository.NewCartRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	authService := service.NewAuthService(userRepo, auth.NewBcryptHasher(bcrypt.DefaultCost), tokens, cfg.MinPasswordLength)
	productService := service.NewProductService(productRepo, paging)
	cartService := service.NewCartService(cartRepo, productRepo)
	orderService := service.NewOrderService(orderRepo, cartRepo, productRepo, guard, publisher, paging)

	e := api.NewRouter(api.Handlers{
		Auth:    api.NewAuthHandler(authService),
		Product: api.NewProductHandler(productService),
		Cart:    api.NewCartHandler(cartService),
		Order:   api.NewOrderHandler(orderService),
	}, api.RouterConfig{
		Tokens:    tokens,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Msgf("Listening on :%s (%s)", cfg.Port, cfg.Env)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
