package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"academy/internal/attendance"
	"academy/internal/cache"
	"academy/internal/cloudinary"
	"academy/internal/config"
	"academy/internal/fees"
	"academy/internal/httpapi"
	"academy/internal/httpmiddleware"
	"academy/internal/leave"
	"academy/internal/metrics"
	"academy/internal/notify"
	"academy/internal/queue"
	"academy/internal/roster"
	"academy/internal/session"
	"academy/internal/sheet"
	"academy/internal/store"
)

func main() {
	cfg := config.Load()
	logger := newLogger(cfg, "api")

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api failed", "err", err)
	}
}

func newLogger(cfg config.App, prefix string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: prefix})
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.Warn("unknown LOG_LEVEL, using info", "value", cfg.LogLevel)
	}
	return logger
}

// backend is the opened system of record plus what must be closed and
// probed alongside it.
type backend struct {
	tables sheet.Tables
	health httpapi.HealthCheck
	close  func() error
}

// openTables connects the configured backend. A failure here is fatal: the
// process never starts pointed at an unreachable store.
func openTables(ctx context.Context, cfg config.App) (backend, error) {
	switch cfg.TablesBackend {
	case "sheets":
		g, err := sheet.NewGoogleSheets(ctx, cfg.SpreadsheetID, cfg.GoogleCredentialsFile)
		if err != nil {
			return backend{}, err
		}
		return backend{
			tables: g,
			health: func(ctx context.Context) bool { return g.Ping(ctx) == nil },
			close:  func() error { return nil },
		}, nil
	case "xlsx":
		w, err := sheet.OpenWorkbook(cfg.XLSXPath)
		if err != nil {
			return backend{}, err
		}
		return backend{tables: w, health: func(context.Context) bool { return true }, close: w.Close}, nil
	case "postgres":
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return backend{}, err
		}
		p, err := sheet.NewPostgres(ctx, db.Client)
		if err != nil {
			_ = db.Close()
			return backend{}, err
		}
		return backend{tables: p, health: db.Healthy, close: db.Close}, nil
	case "memory":
		return backend{tables: sheet.NewMemory(), health: func(context.Context) bool { return true }, close: func() error { return nil }}, nil
	}
	return backend{}, errors.New("unknown TABLES_BACKEND " + cfg.TablesBackend)
}

func run(cfg config.App, logger *log.Logger) error {
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	be, err := openTables(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := be.close(); err != nil {
			logger.Warn("closing backing store", "err", err)
		}
	}()
	logger.Info("backing store connected", "backend", cfg.TablesBackend)

	var redisClient *store.Redis
	if cfg.RedisAddr != "" {
		redisClient, err = store.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Warn("redis not reachable, using in-process cache and claims", "err", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var tables sheet.Tables = sheet.NewRetrying(be.tables, cfg.RateLimitRetryDelay, logger, func(op string) {
		m.StoreRetries.WithLabelValues(op).Inc()
	})
	var snapshots cache.Cache = cache.NewMemory()
	var claims attendance.Claims = attendance.NewMemoryClaims()
	var q queue.Queue
	if redisClient != nil {
		snapshots = cache.NewRedis(redisClient.Client, "")
		claims = attendance.NewRedisClaims(redisClient.Client)
	}
	switch cfg.OutboxBackend {
	case "redis":
		if redisClient != nil {
			q = queue.NewRedisQueue(redisClient.Client, "")
		} else {
			logger.Warn("OUTBOX_BACKEND=redis without redis, messages will not be queued")
		}
	case "memory":
		q = queue.NewInMemory(256)
	}
	tables = cache.NewTables(tables, snapshots, cfg.CacheWindow, logger, sheet.Students, sheet.LeaveLog, sheet.Batches)

	rs := roster.NewService(roster.NewRepository(tables, m, logger))
	ls := leave.NewService(leave.NewRepository(tables, m, logger), rs)
	att := attendance.NewService(rs, ls, attendance.NewLog(tables), claims, attendance.Options{
		Subjects: cfg.Subjects,
		Metrics:  m,
		Logger:   logger,
	})
	ledger := fees.NewLedger(tables, rs, m, logger)

	var archive httpapi.Archiver
	if cfg.CloudinaryEnabled() {
		archive = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		logger.Info("receipt archive configured", "cloud", cfg.CloudinaryCloudName)
	}

	health := map[string]httpapi.HealthCheck{"store": be.health}
	if redisClient != nil {
		health["redis"] = redisClient.Healthy
	}
	var outbox *notify.Outbox
	if q != nil {
		outbox = notify.NewOutbox(q)
		if mem, ok := q.(*queue.InMemory); ok {
			// Without an external worker, drain in-process so the buffer
			// never blocks a request.
			go drain(ctx, mem, logger)
		}
	}

	srv := httpapi.New(httpapi.Deps{
		Academy:    cfg.AcademyName,
		Roster:     rs,
		Leaves:     ls,
		Attendance: att,
		Fees:       ledger,
		Composer:   notify.NewComposer(cfg.AcademyName),
		Outbox:     outbox,
		Signer:     session.NewSigner(cfg.SessionSigningKey, cfg.SessionIssuer, cfg.SessionTTL),
		Archive:    archive,
		Health:     health,
		Limiter:    httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin, m.RateLimited).GinMiddleware(),
		Gatherer:   reg,
		Logger:     logger,
	})

	httpSrv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", "err", err)
	}
	logger.Info("server exited")
	return nil
}

func drain(ctx context.Context, q queue.Queue, logger *log.Logger) {
	msgs, err := q.Consume(ctx)
	if err != nil {
		logger.Warn("outbox consume failed", "err", err)
		return
	}
	for msg := range msgs {
		h, err := notify.Decode(msg)
		if err != nil {
			logger.Warn("dropping outbox message", "err", err)
			continue
		}
		logger.Info("message ready", "reason", h.Reason, "to", h.Name, "uri", h.URI)
	}
}
