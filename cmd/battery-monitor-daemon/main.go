package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cptspacemanspiff/battery-monitor/internal/battery"
	"github.com/cptspacemanspiff/battery-monitor/internal/config"
	dbussvc "github.com/cptspacemanspiff/battery-monitor/internal/dbus"
	"github.com/cptspacemanspiff/battery-monitor/internal/httpapi"
	"github.com/cptspacemanspiff/battery-monitor/internal/logging"
	"github.com/cptspacemanspiff/battery-monitor/internal/metrics"
	"github.com/cptspacemanspiff/battery-monitor/internal/monitor"
	"github.com/cptspacemanspiff/battery-monitor/internal/platform"
	"github.com/cptspacemanspiff/battery-monitor/internal/sleep"
	"github.com/cptspacemanspiff/battery-monitor/internal/status"
	"github.com/cptspacemanspiff/battery-monitor/internal/storage"
)

const defaultConfigPath = "/etc/battery-monitor/config.toml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to the TOML config file")
	verbose := flag.Bool("verbose", false, "enable all verbose logging (equivalent to -log=all)")
	logFlag := flag.String("log", "", "comma-separated log topics: battery,storage,dbus,http,sleep (or 'all')")
	resetDB := flag.Bool("reset-db", false, "delete the database and start fresh")
	writeConfig := flag.Bool("write-config", false, "write the effective config to -config and exit")
	flag.Parse()

	logger := logging.New(os.Stderr, logging.ParseTopics(*verbose, *logFlag))
	batteryLog := logging.Topic(logger, logging.TopicBattery)
	storeLog := logging.Topic(logger, logging.TopicStorage)
	httpLog := logging.Topic(logger, logging.TopicHTTP)
	sleepLog := logging.Topic(logger, logging.TopicSleep)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("load config", "path", *configPath, "err", err)
		os.Exit(1)
	}

	if *writeConfig {
		if err := config.Save(*configPath, cfg); err != nil {
			logger.Error("write config", "path", *configPath, "err", err)
			os.Exit(1)
		}
		logger.Info("config written", "path", *configPath)
		return
	}

	dbPath := cfg.Storage.DBPath
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("create data dir", "err", err)
		os.Exit(1)
	}

	if *resetDB {
		for _, suffix := range []string{"", "-wal", "-shm"} {
			if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
				logger.Error("delete database", "err", err)
				os.Exit(1)
			}
		}
		logger.Info("database deleted", "path", dbPath)
		return
	}

	store, err := storage.Open(dbPath)
	if err != nil {
		logger.Error("open database", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	src, err := platform.NewSource(cfg.Collection.Backend)
	if err != nil {
		logger.Error("select battery backend", "backend", cfg.Collection.Backend, "err", err)
		os.Exit(1)
	}

	cache := &status.Cache{}
	if n, err := cache.Restore(store); err != nil {
		storeLog.Warn("restore latest reports", "err", err)
	} else if n > 0 {
		storeLog.Info("restored latest reports", "batteries", n)
	}
	m := metrics.New()

	svc := dbussvc.NewService(store, cache)
	conn, err := svc.Export()
	if err != nil {
		logger.Error("export dbus service", "err", err)
		os.Exit(1)
	}
	defer conn.Close()
	logging.Topic(logger, logging.TopicDBus).Info("D-Bus service registered", "name", dbussvc.BusName)

	var wakeCh <-chan storage.SleepEvent
	sleepMon, err := sleep.NewMonitor(sleepLog)
	if err != nil {
		logger.Warn("sleep monitor unavailable", "err", err)
	} else {
		wakeCh = sleepMon.Wake()
		defer sleepMon.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.HTTP.Listen != "" {
		srv := &http.Server{
			Addr:              cfg.HTTP.Listen,
			Handler:           httpapi.NewServer(cache, store, m.Handler(), httpLog).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			httpLog.Info("HTTP API listening", "addr", cfg.HTTP.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				httpLog.Error("HTTP API stopped", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	mon := monitor.New(battery.NewManager(src), store, cache, m, batteryLog, storeLog)
	interval := time.Duration(cfg.Collection.IntervalSeconds) * time.Second
	logger.Info("battery-monitor-daemon started", "interval", interval, "backend", cfg.Collection.Backend)
	mon.Run(ctx, monitor.Options{
		Interval:        interval,
		CleanupInterval: time.Duration(cfg.Cleanup.IntervalHours) * time.Hour,
		Retention:       time.Duration(cfg.Cleanup.RetentionDays) * 24 * time.Hour,
		Wake:            wakeCh,
	})
	logger.Info("shutting down")
}

// loadConfig reads path, falling back to the defaults when the default
// config file does not exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) && path == defaultConfigPath {
		return config.NormalizeAndValidate(config.DefaultConfig())
	}
	return cfg, err
}
