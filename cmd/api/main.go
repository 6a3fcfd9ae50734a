package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-teaching-api/internal/config"
	"github.com/noah-isme/gema-teaching-api/internal/database"
	"github.com/noah-isme/gema-teaching-api/internal/handler"
	"github.com/noah-isme/gema-teaching-api/internal/middleware"
	"github.com/noah-isme/gema-teaching-api/internal/models"
	"github.com/noah-isme/gema-teaching-api/internal/repository"
	"github.com/noah-isme/gema-teaching-api/internal/router"
	"github.com/noah-isme/gema-teaching-api/internal/service"
)

type stores struct {
	entries  repository.TeachingLearningRepository
	teachers repository.TeacherRepository
	activity repository.ActivityLogRepository
	probe    handler.HealthProbe
	close    func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.close()

	probes := map[string]handler.HealthProbe{"store": st.probe}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		probes["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	} else {
		logger.Warn().Msg("redis not configured; teacher cache and cross-node fan-out disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	notifier := service.NewChangeNotifier(redisClient, cfg.RealtimeChannel, natsConn, logger)
	notifier.Start(ctx)

	activityService := service.NewActivityService(st.activity, logger)
	resolver := service.NewTeacherResolver(st.teachers, redisClient, cfg.TeacherCacheTTL, logger)
	entryService := service.NewTeachingLearningService(st.entries, activityService, notifier, validate, service.TeachingLearningOptions{
		EnforceValidation: cfg.EnforceValidation,
	}, logger)

	mutationLimiter := middleware.RateLimit("teaching-learning", cfg.MutationRateLimit, cfg.MutationRateLimitInterval)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		TeachingLearningHandler: handler.NewTeachingLearningHandler(entryService, resolver, mutationLimiter, logger),
		BoardSessionHandler:     handler.NewTeachingLearningSessionHandler(resolver, entryService, notifier, validate, logger),
		AdminActivityHandler:    handler.NewAdminActivityHandler(activityService, logger),
		SeedHandler:             handler.NewSeedHandler(service.NewSeedService(st.teachers, cfg.SeedEnabled, cfg.SeedToken, logger), logger),
		HealthProbes:            probes,
		JWTMiddleware:           middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	logger.Info().Str("addr", cfg.HTTPAddress()).Str("store", cfg.StoreDriver).Msg("server started")
	waitForShutdown(app, cancel)
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	if cfg.StoreDriver == config.StoreDriverMongo {
		db, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return stores{}, err
		}
		if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
			return stores{}, err
		}
		return stores{
			entries:  repository.NewMongoTeachingLearningRepository(db),
			teachers: repository.NewMongoTeacherRepository(db),
			activity: repository.NewMongoActivityLogRepository(db),
			probe: func(ctx context.Context) error {
				return db.Client().Ping(ctx, nil)
			},
			close: func() {
				_ = db.Client().Disconnect(context.Background())
			},
		}, nil
	}

	connect := database.ConnectPostgres
	if cfg.StoreDriver == config.StoreDriverSQLite {
		connect = database.ConnectSQLite
	}
	db, err := connect(cfg.DatabaseURL)
	if err != nil {
		return stores{}, err
	}
	if err := db.AutoMigrate(&models.Teacher{}, &models.TeachingLearning{}, &models.ActivityLog{}); err != nil {
		return stores{}, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return stores{}, err
	}

	return stores{
		entries:  repository.NewTeachingLearningRepository(db),
		teachers: repository.NewTeacherRepository(db),
		activity: repository.NewActivityLogRepository(db),
		probe:    sqlDB.PingContext,
		close: func() {
			_ = sqlDB.Close()
		},
	}, nil
}

func waitForShutdown(app *fiber.App, cancel context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	cancel()

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
