package main

import (
	"github.com/wfunc/treasurehunt/config"
	"github.com/wfunc/treasurehunt/logger"
	"github.com/wfunc/treasurehunt/monitor"
	"github.com/wfunc/treasurehunt/persistence"
	"github.com/wfunc/treasurehunt/room"
	"github.com/wfunc/treasurehunt/server"
	"github.com/wfunc/treasurehunt/services"
)

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// 战绩存档可选；禁用时落到空实现，引擎本身不依赖数据库
	var store persistence.Store = persistence.NoopStore{}
	if cfg.Database.Enabled {
		store, err = persistence.NewGormPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
		if err != nil {
			logger.Log.Fatalf("Failed to connect to database: %v", err)
		}
		logger.Log.Info("Database connection successful.")
	}
	defer store.Close()

	// Metrics endpoint
	mon := monitor.NewMonitor("treasurehunt")
	mon.StartServer(cfg.Server.MetricsAddress)

	// Room registry and supporting services
	rooms := room.NewManager(room.Settings{
		TimeLimit:      cfg.Game.TimeLimit,
		TreasureRadius: cfg.Game.TreasureRadius,
	})
	records := services.NewRecordService(store, cfg.Game.TimeLimit)

	// Start server
	gameServer := server.NewGameServer(cfg.Server.HTTPAddress, cfg.Server.RPCAddress, rooms, records, mon)
	logger.Log.Infof("Starting treasure hunt server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
