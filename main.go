package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"github.com/wfunc/dungeonserver/broadcast"
	"github.com/wfunc/dungeonserver/config"
	"github.com/wfunc/dungeonserver/game"
	"github.com/wfunc/dungeonserver/logger"
	"github.com/wfunc/dungeonserver/monitor"
	"github.com/wfunc/dungeonserver/persistence"
	"github.com/wfunc/dungeonserver/room"
	"github.com/wfunc/dungeonserver/rpc"
	"github.com/wfunc/dungeonserver/server"
	"github.com/wfunc/dungeonserver/services"
	"github.com/wfunc/dungeonserver/session"
	"github.com/wfunc/dungeonserver/world"
)

const roomID = "main"

func main() {
	configDir := flag.String("config", ".", "directory holding config.yaml")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	err = logger.Init(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		logger.Log.Errorf("Server stopped: %v", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Log.Info("Server stopped.")
	logger.Sync()
}

func run(ctx context.Context, cfg *config.Config) (err error) {
	m, err := world.LoadMapFile(cfg.Game.MapFile)
	if err != nil {
		return err
	}
	logger.Log.Infof("Loaded map %q (%dx%d, goal %d)", m.Name(), m.Width(), m.Height(), m.Goal())

	// Initialize Database
	db, err := persistence.Open(cfg.Recorder)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, db.Close()) }()
	logger.Log.Infof("Recording match history with driver %q", cfg.Recorder.Driver)

	records := services.NewRecordService(db, services.GameInfo{RoomID: roomID, MapName: m.Name(), Goal: m.Goal()})
	defer records.Close()

	mon := monitor.NewMonitor("dungeon")
	rules := game.DefaultRules()
	if cfg.Game.MaxAP > 0 {
		rules.MaxAP = cfg.Game.MaxAP
	}
	if cfg.Game.MaxHealth > 0 {
		rules.MaxHealth = cfg.Game.MaxHealth
	}
	if cfg.Game.LookDistance > 0 {
		rules.LookDistance = cfg.Game.LookDistance
	}
	engine, err := game.NewEngine(m,
		game.WithRules(rules),
		game.WithObserver(game.Observers{mon, records, server.LogObserver{}}),
	)
	if err != nil {
		return err
	}

	r := room.NewRoom(roomID, m.Name(), engine)
	defer r.Close()
	mon.SetActiveRooms(1)

	sessions := session.NewManager()
	gameServer := server.NewGameServer(cfg.Server, r, sessions,
		server.WithMonitor(mon),
		server.WithRecorder(records),
	)
	if err := gameServer.Listen(); err != nil {
		return err
	}

	admin := rpc.NewAdmin(r, broadcast.NewSessionBroadcaster(sessions), records, sessions)
	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress, admin)
	if err != nil {
		return fmt.Errorf("start rpc server: %w", err)
	}
	go rpcServer.Start()
	defer func() { err = multierr.Append(err, rpcServer.Stop()) }()

	metricsServer := mon.NewServer(cfg.Server.MetricsAddress)
	go func() {
		logger.Log.Infof("Metrics listening on %s", cfg.Server.MetricsAddress)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Errorf("Metrics server failed: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = multierr.Append(err, metricsServer.Shutdown(shutdownCtx))
	}()

	if err := config.Watch(func(c *config.Config) {
		if err := logger.SetLevel(c.Log.Level); err != nil {
			logger.Log.Warnf("Ignoring log level %q: %v", c.Log.Level, err)
			return
		}
		logger.Log.Infof("Log level is now %s", logger.Level())
	}); err != nil && !errors.Is(err, config.ErrNoConfigFile) {
		logger.Log.Warnf("Config hot reload disabled: %v", err)
	}

	return gameServer.Serve(ctx)
}
