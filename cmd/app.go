package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/config"
	"github.com/Leganyst/clinic-scheduling/internal/db"
	"github.com/Leganyst/clinic-scheduling/internal/lock"
	"github.com/Leganyst/clinic-scheduling/internal/logging"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/notify"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
	"github.com/Leganyst/clinic-scheduling/internal/service"
	"github.com/Leganyst/clinic-scheduling/internal/transport/httpapi"
	"github.com/Leganyst/clinic-scheduling/internal/worker"
)

const serviceName = "clinic-scheduling"

// app holds everything the commands share.
type app struct {
	cfg   *config.Config
	log   zerolog.Logger
	db    *gorm.DB
	sqlDB *sql.DB
	redis *redis.Client

	services   httpapi.Services
	reconciler *worker.Reconciler
}

func newApp() (*app, error) {
	// 1. Config and logger.
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logging.Init(serviceName, cfg.Env, cfg.LogLevel)
	logger := log.Logger

	engine, err := service.ConfigFrom(cfg.Engine)
	if err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}

	// 2. Database.
	gormDB, err := db.NewGormDB(&cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("sql DB: %w", err)
	}

	a := &app{cfg: cfg, log: logger, db: gormDB, sqlDB: sqlDB}

	// 3. Lock backend: Redis when configured, otherwise in-process.
	var locker lock.Locker = lock.NewLocal()
	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		locker = lock.NewRedis(a.redis, "")
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("using redis lock")
	}

	// 4. Notifications go to the log until a real provider is plugged in.
	sender := notify.NewLogSender(logger)
	notifier := notify.NewDispatcher(sender, sender, cfg.Notify.MaxElapsed, logger)

	// 5. Services.
	store := repository.NewStore(gormDB)
	billingSvc := service.NewBillingService(store, engine, notifier, logger)
	a.services = httpapi.Services{
		Scheduling: service.NewSchedulingService(store, engine, notifier, logger),
		Billing:    billingSvc,
		Patients:   service.NewPatientService(store, engine, notifier, logger),
		Clinicians: service.NewClinicianService(store, engine, notifier, logger),
	}
	a.reconciler = worker.NewReconciler(billingSvc, locker, cfg.Engine.ReconcileInterval, cfg.Redis.LockTTL, logger)
	a.services.Reconcile = a.reconciler.RunOnce
	return a, nil
}

func (a *app) migrate() error {
	if err := model.AutoMigrate(a.db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	a.log.Info().Msg("schema migrated")
	return nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = a.sqlDB.Close()
}

func runServer(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.migrate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// HTTP API.
	e := httpapi.New(a.services, a.log)
	go func() {
		a.log.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := e.Start(a.cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error().Err(err).Msg("http serve")
			stop()
		}
	}()

	// gRPC health and reflection for orchestrators.
	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", a.cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.GRPCAddr, err)
	}
	go func() {
		a.log.Info().Str("addr", a.cfg.GRPCAddr).Msg("grpc health server listening")
		if err := grpcServer.Serve(lis); err != nil {
			a.log.Error().Err(err).Msg("grpc serve")
			stop()
		}
	}()
	healthSrv.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)

	// Reconciler.
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = a.reconciler.Run(ctx)
	}()

	<-ctx.Done()
	a.log.Info().Msg("shutting down")
	healthSrv.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		a.log.Error().Err(err).Msg("http shutdown")
	}
	grpcServer.GracefulStop()
	<-done
	return nil
}
