package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fjod/products-api/internal/cache"
	"github.com/fjod/products-api/internal/config"
	"github.com/fjod/products-api/internal/events"
	h "github.com/fjod/products-api/internal/http"
	"github.com/fjod/products-api/internal/repository"
	"github.com/fjod/products-api/internal/service"
	"github.com/fjod/products-api/pkg/closer"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// App holds every long-lived dependency of the process.
type App struct {
	cfg    *config.Config
	log    *zap.SugaredLogger
	closer *closer.Closer

	db      *mongo.Database
	service *service.ProductService
	server  *http.Server
}

// New connects to the database and wires the HTTP server. It fails before
// anything listens if MongoDB cannot be reached.
func New(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*App, error) {
	a := &App{
		cfg:    cfg,
		log:    log,
		closer: closer.New(0),
	}

	dbName := repository.DatabaseName(cfg.MongoURI, cfg.MongoDatabase)
	db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, dbName)
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	a.db = db
	a.closer.Add("mongo", db.Client().Disconnect)
	log.Infow("connected to MongoDB", "database", dbName)

	repo := repository.NewMongoRepository(db)
	if err := repo.CreateIndexes(ctx); err != nil {
		log.Warnw("create indexes failed", "error", err)
	}

	a.service = service.NewProductService(repo, a.newCache(ctx), a.newPublisher(), log)

	handler := h.NewProductHandler(a.service, cfg.RequestTimeout, log)
	router := h.NewRouter(handler, h.RouterConfig{
		MaxBodyBytes: cfg.MaxRequestBodySize,
		StaticDir:    cfg.StaticDir,
	}, log)

	a.server = &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	a.closer.Add("http", a.server.Shutdown)

	return a, nil
}

func (a *App) newCache(ctx context.Context) cache.ProductCache {
	if a.cfg.RedisAddr == "" {
		a.log.Info("REDIS_ADDR not set, caching disabled")
		return cache.Noop{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	})
	a.closer.AddErr("redis", client.Close)

	if err := client.Ping(ctx).Err(); err != nil {
		a.log.Warnw("redis ping failed, cache calls will fail open", "addr", a.cfg.RedisAddr, "error", err)
	} else {
		a.log.Infow("redis ping succeeded", "addr", a.cfg.RedisAddr)
	}

	breaker := cache.NewBreaker(func(name, from, to string) {
		a.log.Warnw("circuit breaker state change", "name", name, "from", from, "to", to)
	})
	return cache.NewRedisCache(client, a.cfg.CacheTTL, breaker)
}

func (a *App) newPublisher() events.Publisher {
	if len(a.cfg.KafkaBrokers) == 0 {
		a.log.Info("KAFKA_BROKERS not set, change events disabled")
		return events.Noop{}
	}

	pub := events.NewKafkaPublisher(a.cfg.KafkaTopic, a.cfg.KafkaBrokers...)
	a.closer.AddErr("kafka", pub.Close)
	a.log.Infow("publishing change events", "brokers", a.cfg.KafkaBrokers, "topic", a.cfg.KafkaTopic)
	return pub
}

// Run serves HTTP until SIGINT or SIGTERM, then releases resources in reverse order.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.log.Infow("server up and running", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var serveErr error
	select {
	case sig := <-quit:
		a.log.Infow("shutting down", "signal", sig.String())
	case serveErr = <-errCh:
		a.log.Errorw("server error", "error", serveErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.closer.Close(ctx); err != nil {
		a.log.Errorw("shutdown", "error", err)
		if serveErr == nil {
			serveErr = err
		}
	}

	a.log.Info("server exited")
	return serveErr
}
