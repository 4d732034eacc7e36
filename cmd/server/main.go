// Package main - точка входа сервиса очков connecta-points.
//
// Сервер поднимает REST API, планировщик прогрева рейтингов и шину событий.
// Хранилище выбирается через STORAGE_DRIVER: postgres для продакшена,
// memory для локальной разработки.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/connecta-hub/connecta-points/config"
	"github.com/connecta-hub/connecta-points/internal/application/audit"
	"github.com/connecta-hub/connecta-points/internal/application/catalogue"
	"github.com/connecta-hub/connecta-points/internal/application/command"
	"github.com/connecta-hub/connecta-points/internal/application/eventhandler"
	"github.com/connecta-hub/connecta-points/internal/application/query"
	"github.com/connecta-hub/connecta-points/internal/application/saga"
	"github.com/connecta-hub/connecta-points/internal/domain/achievement"
	"github.com/connecta-hub/connecta-points/internal/domain/leaderboard"
	"github.com/connecta-hub/connecta-points/internal/domain/ledger"
	"github.com/connecta-hub/connecta-points/internal/domain/shared"
	"github.com/connecta-hub/connecta-points/internal/domain/tier"
	"github.com/connecta-hub/connecta-points/internal/domain/uow"
	"github.com/connecta-hub/connecta-points/internal/domain/user"
	"github.com/connecta-hub/connecta-points/internal/infrastructure/messaging"
	"github.com/connecta-hub/connecta-points/internal/infrastructure/persistence/memory"
	"github.com/connecta-hub/connecta-points/internal/infrastructure/persistence/postgres"
	"github.com/connecta-hub/connecta-points/internal/infrastructure/persistence/redis"
	"github.com/connecta-hub/connecta-points/internal/infrastructure/scheduler"
	"github.com/connecta-hub/connecta-points/internal/infrastructure/scheduler/jobs"
	"github.com/connecta-hub/connecta-points/internal/infrastructure/seed"
	httpapi "github.com/connecta-hub/connecta-points/internal/interface/http"
	"github.com/connecta-hub/connecta-points/internal/interface/http/handlers"
	"github.com/connecta-hub/connecta-points/pkg/circuitbreaker"
	"github.com/connecta-hub/connecta-points/pkg/logger"
	"github.com/connecta-hub/connecta-points/pkg/retry"
	"github.com/connecta-hub/connecta-points/pkg/timeutil"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

// storage - набор портов выбранного хранилища.
type storage struct {
	unit         uow.UnitOfWork
	users        user.Repository
	entries      ledger.Repository
	unlocks      achievement.UnlockRepository
	tiers        tier.Repository
	achievements achievement.Repository
	leaderboard  leaderboard.Repository
	ping         func(ctx context.Context) error
	close        func()
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. КОНФИГУРАЦИЯ И ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	}).With(logger.String("service", cfg.App.Name))

	log.Info("starting points service",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("storage", cfg.Storage.Driver),
		logger.String("version", cfg.App.Version),
	)

	if cfg.Storage.MigrateCommand != "" {
		return runMigrationCommand(ctx, cfg, log)
	}

	clock := timeutil.SystemClock{}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ХРАНИЛИЩЕ
	// ─────────────────────────────────────────────────────────────────────────
	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. КЕШ РЕЙТИНГОВ (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		rankingCache leaderboard.Cache
		redisCache   *redis.Cache
	)
	if !cfg.Redis.Disabled {
		redisCache, err = openRedis(ctx, cfg, log)
		if err != nil {
			log.Warn("redis unavailable, ranking cache disabled", logger.Err(err))
		} else {
			defer redisCache.Close()
			breaker := circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
				log.Warn("circuit breaker state changed",
					logger.String("breaker", name),
					logger.String("from", from.String()),
					logger.String("to", to.String()),
				)
			})
			rankingCache = redis.NewRankingCache(redisCache, cfg.Leaderboard.CacheTTL, breaker)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ШИНА СОБЫТИЙ
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultConfig()
	busCfg.Logger = log
	// cache invalidation must land before the HTTP response
	busCfg.AsyncMode = false
	eventBus := messaging.NewInMemoryEventBus(busCfg)
	defer func() { _ = eventBus.Close() }()

	if rankingCache != nil {
		invalidator := eventhandler.NewOnPointsChangedHandler(rankingCache, log)
		_ = eventBus.Subscribe(shared.EventPointsChanged, invalidator.Handle)
		_ = eventBus.Subscribe(shared.EventCatalogueReloaded, invalidator.Handle)
	}
	progress := eventhandler.NewOnProgressHandler(log)
	_ = eventBus.Subscribe(shared.EventTierChanged, progress.Handle)
	_ = eventBus.Subscribe(shared.EventAchievementUnlocked, progress.Handle)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. КАТАЛОГ
	// ─────────────────────────────────────────────────────────────────────────
	seeder := seed.NewSeeder(st.tiers, st.achievements, log)
	cat := catalogue.New(st.tiers, st.achievements, eventBus, clock, log, catalogue.Config{Strict: cfg.Catalogue.Strict})

	reload := func(ctx context.Context) error {
		if cfg.Catalogue.Path != "" {
			if err := seeder.SeedFile(ctx, cfg.Catalogue.Path); err != nil {
				return err
			}
		}
		return cat.Load(ctx)
	}
	if err := reload(ctx); err != nil {
		return fmt.Errorf("failed to load catalogue: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ПРИКЛАДНОЙ СЛОЙ
	// ─────────────────────────────────────────────────────────────────────────
	ledgerSvc := ledger.New(audit.New(log), clock.Now, uuid.NewString)
	pointSaga := saga.NewPointEventSaga(st.unit, ledgerSvc, cat, eventBus, clock, log)
	rankings := query.NewGetRankingHandler(st.leaderboard, rankingCache, clock, log)

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck("storage", st.ping)
	health.AddCheck("catalogue", func(context.Context) error {
		_, err := cat.Current()
		return err
	})
	if redisCache != nil {
		health.AddOptionalCheck("redis", redisCache.Ping)
	}

	httpCfg := httpapi.DefaultConfig()
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.AdminTokenHash = cfg.Admin.TokenHash
	httpCfg.AdminActorID = cfg.Admin.ActorID
	httpCfg.Version = cfg.App.Version

	server := httpapi.NewServer(httpCfg, httpapi.Dependencies{
		RegisterUser:        command.NewRegisterUserHandler(st.users, cat, clock),
		ApplyPointEvent:     command.NewApplyPointEventHandler(pointSaga),
		SetAbsolutePoints:   command.NewSetAbsolutePointsHandler(pointSaga),
		GetRanking:          rankings,
		GetUserAchievements: query.NewGetUserAchievementsHandler(st.users, st.unlocks),
		GetLedger:           query.NewGetLedgerHandler(st.users, st.entries),
		ReloadCatalogue:     reload,
		HealthChecker:       health,
		Logger:              log,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ПЛАНИРОВЩИК
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(scheduler.Config{Logger: log})
	if rankingCache != nil && cfg.Leaderboard.RefreshInterval > 0 {
		job := jobs.NewWarmLeaderboardJob(rankings, cfg.Leaderboard.RefreshInterval, log)
		if err := sched.Register(job, scheduler.NewIntervalSchedule(cfg.Leaderboard.RefreshInterval)); err != nil {
			return err
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	g.Go(server.Start)
	g.Go(func() error {
		if err := sched.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		sched.Stop()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown completed")
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	if cfg.Storage.Driver == config.DriverMemory {
		store := memory.NewStore()
		log.Warn("using in-memory storage, data is lost on restart")
		return &storage{
			unit:         store,
			users:        store.Users(),
			entries:      store.Entries(),
			unlocks:      store.Unlocks(),
			tiers:        store.Tiers(),
			achievements: store.Achievements(),
			leaderboard:  store.Leaderboard(),
			ping:         func(context.Context) error { return nil },
			close:        func() {},
		}, nil
	}

	conn, err := connectPostgres(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	if cfg.Storage.MigrateOnStart {
		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")
	}

	return &storage{
		unit:         postgres.NewUnitOfWork(conn),
		users:        postgres.NewUserRepository(conn),
		entries:      postgres.NewLedgerRepository(conn),
		unlocks:      postgres.NewUnlockRepository(conn),
		tiers:        postgres.NewTierRepository(conn),
		achievements: postgres.NewAchievementRepository(conn),
		leaderboard:  postgres.NewLeaderboardRepository(conn),
		ping:         conn.Ping,
		close:        conn.Close,
	}, nil
}

func connectPostgres(ctx context.Context, cfg *config.Config, log *logger.Logger) (*postgres.Connection, error) {
	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Storage.DatabaseURL
	pgCfg.MaxConns = int32(cfg.Storage.MaxConns)
	pgCfg.MinConns = int32(cfg.Storage.MinConns)
	pgCfg.MaxConnLifetime = cfg.Storage.ConnMaxLifetime

	r := retry.StartupRetrier(func(attempt int, err error, delay time.Duration) {
		log.Warn("database not ready, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Err(err),
		)
	})
	conn, err := retry.DoWithData(ctx, r, func(ctx context.Context) (*postgres.Connection, error) {
		conn, err := postgres.NewConnection(ctx, pgCfg)
		if errors.Is(err, postgres.ErrInvalidConfig) {
			return nil, retry.Permanent(err)
		}
		return conn, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("database connection established")
	return conn, nil
}

// runMigrationCommand выполняет DB_MIGRATE_COMMAND и завершает процесс
// без запуска API.
func runMigrationCommand(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	conn, err := connectPostgres(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	m := postgres.NewMigrator(conn)
	if cfg.Storage.MigrateCommand == config.MigrateDown {
		if err := m.Rollback(ctx); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		log.Info("last migration rolled back")
	}

	status, err := m.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}
	for _, mig := range status {
		fields := []logger.Field{
			logger.Int("version", mig.Version),
			logger.String("name", mig.Name),
			logger.Bool("applied", mig.IsApplied),
		}
		if mig.IsApplied {
			fields = append(fields, logger.Time("applied_at", mig.AppliedAt))
		}
		log.Info("migration", fields...)
	}
	return nil
}

func openRedis(ctx context.Context, cfg *config.Config, log *logger.Logger) (*redis.Cache, error) {
	rc := redis.DefaultConfig()
	rc.Host = cfg.Redis.Host
	rc.Port = cfg.Redis.Port
	rc.Password = cfg.Redis.Password
	rc.DB = cfg.Redis.DB
	rc.PoolSize = cfg.Redis.PoolSize
	rc.DialTimeout = cfg.Redis.DialTimeout

	r := retry.New(retry.WithMaxAttempts(3), retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		log.Warn("redis not ready, retrying", logger.Int("attempt", attempt), logger.Err(err))
	}))
	return retry.DoWithData(ctx, r, func(ctx context.Context) (*redis.Cache, error) {
		return redis.NewCache(ctx, rc)
	})
}
