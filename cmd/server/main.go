package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/fileflows-bridge/internal/adapters/fileflows"
	"github.com/frostdev-ops/fileflows-bridge/internal/api"
	"github.com/frostdev-ops/fileflows-bridge/internal/api/handlers"
	"github.com/frostdev-ops/fileflows-bridge/internal/api/middleware"
	"github.com/frostdev-ops/fileflows-bridge/internal/config"
	"github.com/frostdev-ops/fileflows-bridge/internal/core/coordinator"
	"github.com/frostdev-ops/fileflows-bridge/internal/core/entities"
	"github.com/frostdev-ops/fileflows-bridge/internal/core/metrics"
	"github.com/frostdev-ops/fileflows-bridge/internal/websocket"
	"github.com/frostdev-ops/fileflows-bridge/pkg/logger"
	"github.com/frostdev-ops/fileflows-bridge/pkg/version"
)

func main() {
	configDir := flag.String("config", "", "directory containing config.yaml")
	issueToken := flag.String("issue-token", "", "print an API token for the given subject and exit")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", version.Name, version.GetVersion())
		return
	}

	var paths []string
	if *configDir != "" {
		paths = append(paths, *configDir)
	}

	// Load configuration
	cfg, err := config.Load(paths...)
	if err != nil {
		logrus.Fatal("Failed to load configuration: ", err)
	}

	// Initialize logger
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	if *issueToken != "" {
		token, err := middleware.IssueToken(cfg.Auth.JWTSecret, *issueToken, time.Duration(cfg.Auth.TokenExpiry)*time.Second)
		if err != nil {
			log.Fatal("Failed to issue token: ", err)
		}
		fmt.Println(token)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// FileFlows client
	clientCfg, err := cfg.FileFlows.ClientConfig()
	if err != nil {
		log.Fatal("Invalid FileFlows configuration: ", err)
	}
	client, err := fileflows.NewClient(clientCfg, log)
	if err != nil {
		log.Fatal("Failed to create FileFlows client: ", err)
	}
	log.WithFields(logrus.Fields{
		"url":  client.URL(),
		"auth": client.Mode().Name(),
	}).Info("FileFlows client configured")

	testCtx, cancel := context.WithTimeout(ctx, cfg.FileFlows.RequestTimeout)
	if err := client.TestConnection(testCtx); err != nil {
		log.WithError(err).Warn("FileFlows is not reachable yet, polling will keep retrying")
	} else {
		log.Info("FileFlows connection verified")
	}
	cancel()

	coord := coordinator.New(client, cfg.FileFlows.CoordinatorOptions(), log)

	// Persisted snapshot
	var stateFile *coordinator.StateFile
	if cfg.State.Path != "" {
		stateFile, err = coordinator.NewStateFile(cfg.State.Path)
		if err != nil {
			log.Fatal("Failed to open state file: ", err)
		}
		if saved, err := stateFile.Load(); err != nil {
			log.WithError(err).Warn("Ignoring unreadable state file")
		} else if coord.Restore(saved) {
			log.WithFields(logrus.Fields{
				"path":       stateFile.Path(),
				"fetched_at": saved.FetchedAt(),
			}).Info("Restored last known FileFlows snapshot")
		}
		coord.Subscribe(stateFile.Persist(func(err error) {
			log.WithError(err).Warn("Failed to persist snapshot")
		}))
	}

	// Metrics
	registry := prometheus.NewRegistry()
	var collector metrics.MetricsCollector = metrics.NopCollector{}
	if cfg.Monitoring.Enabled {
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		collector = metrics.NewPrometheusCollector(&metrics.MetricsConfig{
			Enabled: true,
			Prefix:  cfg.Monitoring.Prefix,
		}, registry)
	}
	coord.SetRecorder(collector)
	coord.Subscribe(metrics.Observe(collector))

	health := metrics.NewHealthChecker()
	health.RegisterCheck("fileflows", metrics.CoordinatorCheck(coord))

	// WebSocket hub
	wsHub := websocket.NewHub(log, websocket.Options{
		PingInterval: time.Duration(cfg.WebSocket.PingInterval) * time.Second,
		PongTimeout:  time.Duration(cfg.WebSocket.PongTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WebSocket.WriteTimeout) * time.Second,
	})
	wsHub.SetRecorder(collector)
	wsHub.OnConnect(func() []websocket.Message {
		status := coord.Status()
		return []websocket.Message{
			websocket.CoordinatorStatusMessage(status),
			websocket.SnapshotUpdatedMessage(coordinator.Update{Snapshot: coord.Snapshot(), Status: status, Published: true}),
		}
	})
	coord.Subscribe(wsHub.Subscriber())
	go wsHub.Run(ctx)

	// HTTP API
	requests := logger.NewBatchLogger(log, 50)
	h := handlers.NewHandlers(cfg, log, coord, entities.NewService(coord, log), health, wsHub)
	router := api.NewRouter(cfg, api.Dependencies{
		Handlers:  h,
		Hub:       wsHub,
		Collector: collector,
		Gatherer:  registry,
		Requests:  requests,
	}, log)

	srv := newHTTPServer(cfg, router)

	go func() {
		log.WithFields(logrus.Fields{
			"addr":    srv.Addr,
			"version": version.GetVersion(),
		}).Info("Starting FileFlows bridge")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	if err := coord.Start(ctx); err != nil {
		log.Fatal("Failed to start coordinator: ", err)
	}

	<-ctx.Done()
	log.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := coord.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("Coordinator did not stop cleanly")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	requests.FlushPending()
	if stateFile != nil {
		if err := stateFile.Close(); err != nil {
			log.WithError(err).Warn("Failed to close state file")
		}
	}

	log.Info("Server exited")
}

// newHTTPServer binds the API to the configured address. The write timeout
// leaves room for a manual refresh that waits on a full tick.
func newHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
