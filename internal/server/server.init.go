package server

import (
	"context"
	"fmt"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/config"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/database"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/feeds"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/hubservice"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/models"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/monitoring"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/remote"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/remote/postgres"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/remote/supabase"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/repository"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/repository/backend"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/repository/influx"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/repository/redis"
	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/snapshot"
	"github.com/juju/clock"
	nuts "github.com/vaudience/go-nuts"
)

// initializeFeederService connects the backend and the optional sinks and
// wires the sync core.
func initializeFeederService(ctx context.Context, cfg *config.Config, clk clock.Clock, mon *monitoring.Service) (*hubservice.FeederService, error) {
	svc, err := initRemote(ctx, cfg, clk)
	if err != nil {
		return nil, err
	}

	opts, err := feedOptions(cfg.Sync, clk, mon)
	if err != nil {
		svc.Close()
		return nil, err
	}
	store := snapshot.NewStore(storePolicy(cfg.Sync))
	nuts.L.Infof("[Server] Snapshot policy %s, motion profile %s, day in %s", store.Policy(), opts.MotionProfile, opts.Location)

	deps := hubservice.Deps{
		Remote:    svc,
		Manager:   feeds.NewManager(svc, store, opts),
		Feedings:  backend.NewFeedingRepository(svc),
		DailyLogs: backend.NewDailyLogRepository(svc),
		Readings:  backend.NewReadingRepository(svc),
		Calibration: models.FoodCalibration{
			EmptyCM: cfg.Sync.FoodEmptyCM,
			FullCM:  cfg.Sync.FoodFullCM,
		},
		Mirror:   initMirror(ctx, cfg.Redis),
		Recorder: initRecorder(ctx, cfg.Influx, clk),
		SeedWait: cfg.Sync.SeedWait,
		Clock:    clk,
	}

	feeder := hubservice.New(deps)
	if err := feeder.Validate(); err != nil {
		feeder.Close()
		return nil, err
	}
	return feeder, nil
}

func initRemote(ctx context.Context, cfg *config.Config, clk clock.Clock) (remote.DataService, error) {
	switch cfg.Backend.Driver {
	case config.DriverPostgres:
		return initPostgres(ctx, cfg.Backend.Postgres, clk)
	case config.DriverSupabase:
		svc, err := supabase.New(cfg.Backend.Supabase, clk, cfg.Sync.ResubscribeMinDelay, cfg.Sync.ResubscribeMaxDelay)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize supabase backend: %w", err)
		}
		nuts.L.Infof("[Server] Using supabase backend at %s", cfg.Backend.Supabase.URL)
		return svc, nil
	}
	return nil, fmt.Errorf("unknown backend driver %q", cfg.Backend.Driver)
}

func initPostgres(ctx context.Context, cfg config.PostgresConfig, clk clock.Clock) (remote.DataService, error) {
	db, err := database.NewPostgresDB(ctx, cfg, clk)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if cfg.InstallNotify {
		if err := postgres.EnsureNotifyTriggers(ctx, db, cfg.NotifyChannel); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to install change triggers: %w", err)
		}
	}

	notifier, err := postgres.Listen(cfg.DSN(), cfg.NotifyChannel, clk)
	if err != nil {
		// Polling alone keeps feeds correct.
		nuts.L.Warnf("[Server] Change notifications unavailable, polling only: %v", err)
		notifier = nil
	}
	nuts.L.Infof("[Server] Using postgres backend at %s:%d/%s", cfg.Host, cfg.Port, cfg.DBName)
	return postgres.NewService(db, notifier), nil
}

func initMirror(ctx context.Context, cfg config.RedisConfig) repository.SnapshotMirror {
	if !cfg.Enabled() {
		return nil
	}
	mirror := redis.NewSnapshotRepository(cfg)
	if err := mirror.Ping(ctx); err != nil {
		nuts.L.Warnf("[Server] Redis at %s is not reachable yet: %v", cfg.Addr(), err)
	}
	return mirror
}

func initRecorder(ctx context.Context, cfg config.InfluxConfig, clk clock.Clock) repository.ReadingRecorder {
	if !cfg.Enabled() {
		return nil
	}
	recorder := influx.NewRecorder(cfg, clk)
	if err := recorder.Health(ctx); err != nil {
		nuts.L.Warnf("[Server] InfluxDB at %s is not healthy yet: %v", cfg.URL, err)
	}
	return recorder
}

func storePolicy(cfg config.SyncConfig) snapshot.Policy {
	if cfg.RejectStaleReadings {
		return snapshot.RejectStale
	}
	return snapshot.LastDelivered
}

func feedOptions(cfg config.SyncConfig, clk clock.Clock, observer feeds.Observer) (feeds.Options, error) {
	profile, err := feeds.ParseMotionProfile(cfg.MotionProfile)
	if err != nil {
		return feeds.Options{}, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return feeds.Options{}, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	return feeds.Options{
		Clock:               clk,
		SensorPollInterval:  cfg.SensorPollInterval,
		FeedingPollInterval: cfg.FeedingPollInterval,
		MotionProfile:       profile,
		Location:            loc,
		ResubscribeMinDelay: cfg.ResubscribeMinDelay,
		ResubscribeMaxDelay: cfg.ResubscribeMaxDelay,
		Observer:            observer,
	}, nil
}
