package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tazhibayda/places-service/docs"
	"github.com/tazhibayda/places-service/internal/config"
	"github.com/tazhibayda/places-service/internal/geocode"
	api "github.com/tazhibayda/places-service/internal/http"
	"github.com/tazhibayda/places-service/internal/log"
	"github.com/tazhibayda/places-service/internal/metrics"
	"github.com/tazhibayda/places-service/internal/queue"
	"github.com/tazhibayda/places-service/internal/ratelimit"
	"github.com/tazhibayda/places-service/internal/repo"
	"github.com/tazhibayda/places-service/internal/repo/memstore"
	"github.com/tazhibayda/places-service/internal/security"
	"github.com/tazhibayda/places-service/internal/service"
	"github.com/tazhibayda/places-service/internal/storage"
	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

type store interface {
	service.PlaceStore
	service.UserStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// @title Places API
// @version 0.1.0
// @description Share places: users sign up, add geocoded places with an image, and manage their own.
// @schemes http https
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()

	logger, err := log.Init(cfg.LogJSON)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.DDEnabled {
		tracer.Start(tracer.WithService(cfg.DDService))
		defer tracer.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("store", zap.String("kind", cfg.Store), zap.Error(err))
	}
	defer st.Close(context.Background())

	var tokens *security.TokenService
	if cfg.RS256() {
		keys, err := security.LoadKeyManager(
			security.KeyFile{Kid: cfg.JWTActiveKid, Path: cfg.JWTActiveKeyPath},
			security.KeyFile{Kid: cfg.JWTNextKid, Path: cfg.JWTNextKeyPath},
		)
		if err != nil {
			logger.Fatal("signing keys", zap.Error(err))
		}
		tokens = security.NewRS256(keys, cfg.TokenTTL)
	} else {
		tokens = security.NewHS256(cfg.JWTSecret, cfg.TokenTTL)
	}

	files, staticDir, err := openFiles(ctx, cfg)
	if err != nil {
		logger.Fatal("file storage", zap.Error(err))
	}

	var pub queue.Publisher = queue.NewNoop()
	if cfg.RabbitURL != "" {
		rp, err := queue.NewRabbit(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			logger.Fatal("rabbitmq", zap.Error(err))
		}
		pub = rp
	}
	defer pub.Close()

	var limiter ratelimit.Limiter = ratelimit.NewMemory(cfg.RateLimitPerMin, time.Minute)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		limiter = ratelimit.NewRedis(rdb, cfg.RateLimitPerMin, time.Minute)
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)
	docs.SwaggerInfo.BasePath = "/"

	places := service.NewPlaceService(st, geocode.New(cfg.GeocoderURL, cfg.GeocoderTimeout), files, pub, logger)
	users := service.NewUserService(st, security.NewBcryptHasher(cfg.BcryptCost), tokens, pub, logger)

	h := api.NewHandler(places, users, files, st, tokens.Keys(), cfg.MaxUploadMB, logger)
	r := api.NewRouter(h, api.RouterConfig{
		Tokens:    tokens,
		Limiter:   limiter,
		Service:   cfg.DDService,
		StaticDir: staticDir,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.ListenAndServe() }()
	logger.Info("places-service listening",
		zap.String("port", cfg.Port),
		zap.String("store", cfg.Store),
		zap.Bool("rs256", tokens.Keys() != nil),
		zap.Duration("token_ttl", tokens.TTL()),
	)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Info("shutting down", zap.String("signal", s.String()))
	case err := <-srvErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	}

	shutdown, done := context.WithTimeout(context.Background(), 15*time.Second)
	defer done()
	if err := srv.Shutdown(shutdown); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg config.Config) (store, error) {
	if cfg.Store == "memory" {
		return memstore.New(), nil
	}
	s, err := repo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = s.Close(context.Background())
		return nil, err
	}
	return s, nil
}

// openFiles picks S3 when a bucket is configured; otherwise images live on
// local disk and are served from staticDir.
func openFiles(ctx context.Context, cfg config.Config) (files storage.Files, staticDir string, err error) {
	if cfg.S3Bucket != "" {
		s3, err := storage.NewS3(ctx, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Region, cfg.S3Bucket)
		return s3, "", err
	}
	local, err := storage.NewLocal(cfg.UploadDir)
	if err != nil {
		return nil, "", err
	}
	return local, local.Dir, nil
}
