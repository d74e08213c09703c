package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/mitchelldurbincs/FogOfWar/internal/config"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/world"
	"github.com/mitchelldurbincs/FogOfWar/internal/grpc/fogserver"
	"github.com/mitchelldurbincs/FogOfWar/internal/logging"
	"github.com/mitchelldurbincs/FogOfWar/internal/monitoring"
	"github.com/mitchelldurbincs/FogOfWar/internal/persist"
	"github.com/mitchelldurbincs/FogOfWar/internal/scenario"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	port := flag.Int("port", -1, "The server port (-1 to use config default)")
	host := flag.String("host", "", "The server host (empty to use config default)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error) (empty to use config default)")
	scenarioPath := flag.String("scenario", "", "Scenario file to play (empty to use config default)")
	enableReflection := flag.Bool("enable-reflection", false, "Enable gRPC reflection for debugging")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize config")
	}
	cfg := config.Get()

	if *port == -1 {
		*port = cfg.Server.Port
	}
	if *host == "" {
		*host = cfg.Server.Host
	}
	if *logLevel == "" {
		*logLevel = cfg.Server.LogLevel
	}
	if *scenarioPath == "" {
		*scenarioPath = cfg.Scenario.Path
	}

	logger := logging.Setup(*logLevel, cfg.Server.LogFormat)
	if path := config.ConfigFilePath(); path != "" {
		logger.Info().Str("config", path).Msg("Loaded config file")
	}

	if err := run(cfg, *host, *port, *scenarioPath, *enableReflection, logger); err != nil {
		logger.Fatal().Err(err).Msg("Fog daemon failed")
	}
	logger.Info().Msg("Server shutdown complete")
}

func run(cfg *config.Config, host string, port int, scenarioPath string, enableReflection bool, logger zerolog.Logger) error {
	opts, err := world.OptionsFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("fog config: %w", err)
	}
	opts.Logger = logger

	var sc *scenario.Scenario
	if scenarioPath != "" {
		if sc, err = scenario.Load(scenarioPath); err != nil {
			return err
		}
		opts.Query = sc.Field()
		logger.Info().
			Str("scenario", sc.Name).
			Int("obstacles", len(sc.Obstacles)).
			Int("revealers", len(sc.Revealers)).
			Msg("Loaded scenario")
	}

	store, err := persist.NewStore(world.PersistenceFromConfig(cfg.Persistence), logger)
	if err != nil {
		return fmt.Errorf("save-slot store: %w", err)
	}
	defer store.Close()
	opts.Store = store

	w, err := world.New(opts)
	if err != nil {
		return err
	}
	runner, err := world.NewRunner(w, cfg.Fog.Update.TickRate, logger)
	if err != nil {
		return err
	}
	if sc != nil {
		radius, los := world.DefaultShapes(cfg.Fog.Revealer)
		player := scenario.NewPlayer(sc, w, opts.Region.Orientation, scenario.Defaults{Radius: radius, LOS: los}, logger)
		runner.AddHook(player.Advance)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	config.WatchConfig(func(c *config.Config, err error) {
		if err != nil {
			logger.Warn().Err(err).Msg("Ignoring invalid config change")
			return
		}
		if err := runner.ApplyTuning(ctx, world.TuningFromConfig(c.Fog)); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("Failed to apply tuning")
		}
	})

	monitor := monitoring.NewGoroutineMonitor(monitoring.MonitorOptions{
		CheckInterval: time.Duration(cfg.Server.MonitorIntervalSec) * time.Second,
		Logger:        logger,
	})
	monitor.RegisterComponent("chunk_workers", w.Manager().ActiveWorkers)
	monitor.RegisterComponent("revealers", w.Registry().Active)
	monitor.Start()
	defer monitor.Stop()

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	grpcServer := grpc.NewServer(fogserver.ServerOptions(logger)...)
	fogserver.RegisterFogServiceServer(grpcServer, fogserver.NewServer(w, runner, logger).WithTerrain(runner))

	var healthServer *health.Server
	if cfg.Server.EnableHealth {
		healthServer = health.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		healthServer.SetServingStatus(fogserver.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	}
	if enableReflection {
		reflection.Register(grpcServer)
		logger.Info().Msg("gRPC reflection enabled")
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("address", lis.Addr().String()).Msg("gRPC server listening")
		serveErr <- grpcServer.Serve(lis)
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- runner.Run(ctx) }()

	select {
	case err := <-serveErr:
		stop()
		<-runErr
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		logger.Info().Msg("Received shutdown signal")
	}
	<-runErr

	if healthServer != nil {
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		healthServer.SetServingStatus(fogserver.ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}
	time.Sleep(time.Duration(cfg.Server.GracefulShutdownDelay) * time.Second)

	logger.Info().Msg("Gracefully stopping gRPC server")
	grpcServer.GracefulStop()
	return nil
}
