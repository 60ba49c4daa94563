package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// startupTimeout bounds the backends connections made by NewApp.
const startupTimeout = 30 * time.Second

type AppProvider interface {
	Run() error
	Serve() func() error
	Stop(context.Context, context.Context) func() error
}

type App struct {
	logger         *zap.Logger
	config         *Config
	server         *http.Server
	closers        []func() error
	cleanups       []func()
	queueConsumers []func(context.Context) error
}

// backends gathers the clients opened at startup so they can be shared and released.
type backends struct {
	config      *Config
	logger      *zap.Logger
	redisClient *redis.Client
	closers     []func() error
}

func (b *backends) sharedRedis() (*redis.Client, error) {
	if b.redisClient != nil {
		return b.redisClient, nil
	}
	client, err := GetRedisClient(b.config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis server: %w", err)
	}
	b.redisClient = client
	b.closers = append(b.closers, client.Close)
	return client, nil
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			b.logger.Error("failed to release backend", zap.Error(err))
		}
	}
}

// NewBookStorage opens the storage selected by `storage.driver`.
func (b *backends) NewBookStorage(ctx context.Context, ids UIDHandler) (StorageBackend, error) {
	switch b.config.Storage.Driver {
	case StoragePostgres:
		pool, err := GetPostgresPool(ctx, b.config)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres server: %w", err)
		}
		b.closers = append(b.closers, func() error { pool.Close(); return nil })
		if b.config.Postgres.AutoMigrate {
			if err = RunMigrations(pool, b.logger); err != nil {
				return nil, err
			}
		}
		return NewPostgresBookStorage(b.logger, pool, b.config.Postgres.QueryTimeout), nil

	case StorageBolt:
		db, err := GetBoltDBClient(&b.config.BoltDB)
		if err != nil {
			return nil, fmt.Errorf("failed to open boltdb file: %w", err)
		}
		b.closers = append(b.closers, db.Close)
		return NewBoltBookStorage(b.logger, b.config.BoltDB.BucketName, db, ids), nil

	case StorageRedis:
		client, err := b.sharedRedis()
		if err != nil {
			return nil, err
		}
		return NewRedisBookStorage(b.logger, client, ids), nil
	}
	return nil, fmt.Errorf("unsupported storage driver %q", b.config.Storage.Driver)
}

// NewPublisher opens the publisher selected by `events.driver`. The queue is
// only returned for the redis driver since it is the only one consumed here.
func (b *backends) NewPublisher() (Publisher, Queuer, error) {
	switch b.config.Events.Driver {
	case EventsRedis:
		client, err := b.sharedRedis()
		if err != nil {
			return nil, nil, err
		}
		q := NewRedisQueue(client, b.config.Events.PopTimeout)
		return q, q, nil
	case EventsKafka:
		p := NewKafkaPublisher(b.logger, &b.config.Kafka)
		b.closers = append(b.closers, p.Close)
		return p, nil, nil
	}
	return noopPublisher{}, nil, nil
}

// NewApp provides an instance of App.
func NewApp() (AppProvider, error) {
	config, err := LoadAndInitConfigs(GitCommit, GitTag, BuildTime)
	if err != nil {
		return nil, fmt.Errorf("failed to setup app configuration: %w", err)
	}

	// ensure the logs folder exists and Setup the logging module.
	err = os.MkdirAll(filepath.Dir(config.LogFile), 0o700)
	if err != nil {
		return nil, fmt.Errorf("failed to create logging folder: %w", err)
	}
	logFile, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create logging file: %w", err)
	}
	closer := func() {
		if cerr := logFile.Close(); cerr != nil {
			fmt.Println("error during closing of log file: ", cerr)
		}
	}
	clock := NewClock(config.IsProduction)
	logger, flusher := SetupLogging(config, logFile, clock)

	startupFailed := func(err error) (AppProvider, error) {
		flusher()
		closer()
		return nil, err
	}

	ids := NewIDsHandler()
	b := &backends{config: config, logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	storage, err := b.NewBookStorage(ctx, ids)
	if err != nil {
		b.close()
		return startupFailed(err)
	}

	publisher, queue, err := b.NewPublisher()
	if err != nil {
		b.close()
		return startupFailed(err)
	}

	var consumers []func(context.Context) error
	if config.Events.MirrorEnable && queue != nil {
		mirrorDB, err := GetBoltDBClient(&config.BoltDB)
		if err != nil {
			b.close()
			return startupFailed(fmt.Errorf("failed to open boltdb mirror: %w", err))
		}
		b.closers = append(b.closers, mirrorDB.Close)
		mirror := NewBoltBookStorage(logger, config.BoltDB.BucketName, mirrorDB, ids)
		boltDBConsumer := NewBoltDBConsumer(logger.Named("mirror"), queue, mirror)
		consumers = append(consumers, func(ctx context.Context) error {
			return boltDBConsumer.Consume(ctx, CreateQueue, UpdateQueue, DeleteQueue)
		})
	}

	bookService := NewBookService(logger, config, storage, publisher)
	stats := &Statistics{
		version:   config.GitTag,
		container: IsAppRunningInDocker(),
		started:   clock.Now(),
		runtime:   runtime.Version(),
		platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	// Use git commit in case the tag is not set.
	if stats.version == "" {
		stats.version = config.GitCommit
	}
	apiService := NewAPIHandler(logger, config, stats, clock, ids, storage, bookService)

	// Build the map of middlewares stacks.
	middlewaresPublic, middlewaresOps := apiService.MiddlewaresStacks()

	// Configure the endpoints with their handlers and middlewares.
	router := apiService.SetupRoutes(httprouter.New(),
		&MiddlewareMap{
			public: middlewaresPublic.Chain,
			ops:    middlewaresOps.Chain,
		},
	)

	// Wrap the router with the default http timeout handler.
	handler := WithRequestTimeout(router, config.Server.RequestTimeout)

	// Build the api server definition.
	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port),
		Handler:        handler,
		ReadTimeout:    config.Server.ReadTimeout,
		WriteTimeout:   config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // Max headers size : 1MB
		ConnContext:    SaveConnInContext,
		ErrorLog:       zap.NewStdLog(logger.Named("http")),
	}

	logger.Info("app initialized",
		zap.String("storage.driver", config.Storage.Driver),
		zap.String("events.driver", config.Events.Driver),
		zap.Bool("events.mirror", config.Events.MirrorEnable),
	)

	return &App{
		logger:         logger,
		config:         config,
		server:         srv,
		closers:        b.closers,
		cleanups:       []func(){flusher, closer},
		queueConsumers: consumers,
	}, nil
}

// Run starts the api web server and a goroutine which is responsible to stop it.
func (app *App) Run() error {
	defer app.Clean()
	nCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(nCtx)

	g.Go(app.ConsumeQueues(gCtx, g))
	g.Go(app.Serve())
	g.Go(app.Stop(nCtx, gCtx))

	err := g.Wait()
	app.logger.Info("api server stopped",
		zap.String("app.host", app.config.Server.Host),
		zap.String("app.port", app.config.Server.Port),
		zap.Error(err),
	)
	return err
}

// Clean calls all registered cleanups functions.
func (app *App) Clean() {
	for _, f := range app.cleanups {
		f()
	}
}

// Serve starts the api web server. It returned error
// will be caught by the errorgroup.
func (app *App) Serve() func() error {
	return func() error {
		app.logger.Info("api server starting",
			zap.String("app.host", app.config.Server.Host),
			zap.String("app.port", app.config.Server.Port),
		)
		err := app.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return err
	}
}

// Stop listens for the group context and triggers the server graceful shutdown.
// It states the reason of its call. We proceed with a brutal shutdown if the
// the graceful did not complete successfully. We explicitly return `nil` to
// allow the errorgroup catches only the `Serve` method result.
func (app *App) Stop(nCtx, gCtx context.Context) func() error {
	return func() error {
		<-gCtx.Done()

		if nCtx.Err() != nil {
			app.logger.Info("api server stopping. reason: requested to stop")
		} else {
			app.logger.Info("api server stopping. reason: errored at running")
		}

		sCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()
		err := app.server.Shutdown(sCtx)
		switch {
		case err == nil, errors.Is(err, http.ErrServerClosed):
			app.logger.Info("api server graceful shutdown succeeded")
		case errors.Is(err, context.DeadlineExceeded):
			app.logger.Info("api server graceful shutdown timed out")
		default:
			app.logger.Info("api server graceful shutdown failed", zap.Error(err))
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Info("api server going to force shutdown", zap.Error(app.server.Close()))
		}

		for i := len(app.closers) - 1; i >= 0; i-- {
			if cerr := app.closers[i](); cerr != nil {
				app.logger.Error("failed to release backend", zap.Error(cerr))
			}
		}
		return nil
	}
}

// ConsumeQueues runs all queue consumers into separate controlled goroutines.
func (app *App) ConsumeQueues(gCtx context.Context, g *errgroup.Group) func() error {
	return func() error {
		for _, consume := range app.queueConsumers {
			consume := consume
			g.Go(func() error {
				return consume(gCtx)
			})
		}
		return nil
	}
}
