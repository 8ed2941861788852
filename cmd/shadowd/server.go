package main

import (
	"context"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warthog618/shadowd/internal/api"
	"github.com/warthog618/shadowd/internal/mqttbroker"
	"github.com/warthog618/shadowd/internal/processor"
	"github.com/warthog618/shadowd/internal/shadow"
	"github.com/warthog618/shadowd/internal/store"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the MQTT broker, processor, and HTTP admin surface",
	Args:  cobra.NoArgs,
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

// readiness flips to true once the store and broker are both up, backing
// the /readyz probe.
type readiness struct {
	ready bool
}

func (r *readiness) Ready() bool { return r.ready }

func runServer(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := store.Open(cfg.MustGet("database.path").String())
	if err != nil {
		return err
	}
	defer db.Close()

	certDir := cfg.MustGet("cert_dir").String()
	broker, err := mqttbroker.StartBroker(mqttbroker.Config{
		BindV3:                cfg.MustGet("mqtt.bind_v3").String(),
		BindV5:                cfg.MustGet("mqtt.bind_v5").String(),
		CertFile:              filepath.Join(certDir, "server.pem"),
		KeyFile:               filepath.Join(certDir, "server-key.pem"),
		CAFile:                filepath.Join(certDir, "ca.pem"),
		QueueSize:             int(cfg.MustGet("mqtt.queue_size").Int()),
		ConnectionEventBuffer: int(cfg.MustGet("mqtt.connection_event_buffer").Int()),
	}, log)
	if err != nil {
		return err
	}

	pool := store.NewPool(0, 0, log)
	defer pool.Close()

	procCfg := processor.Config{
		ShadowTopicPrefix: cfg.MustGet("processor.shadow_topic_prefix").String(),
		ExtraUpdateTopics: cfg.MustGet("processor.extra_update_topics").StringSlice(),
	}
	proc := processor.New(procCfg, broker, broker.Sender(), db, shadow.New(), pool, log)

	backupPeriod := cfg.MustGet("database.backup_period").Duration()
	backupDir := cfg.MustGet("database.backup_path").String()
	scheduler := store.NewBackupScheduler(db, backupDir, backupPeriod, log)
	defer scheduler.Close()

	health := &readiness{}
	apiServer := api.NewServer(db, proc.Connections(), shadow.New(), backupDir, health, log)
	httpServer := &http.Server{
		Addr:    cfg.MustGet("bind_api").String(),
		Handler: apiServer.Router(),
	}

	metricsServer := &http.Server{
		Addr:    cfg.MustGet("metrics.bind").String(),
		Handler: promhttp.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	procDone := make(chan error, 1)
	go func() { procDone <- proc.Run(ctx) }()

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("api server stopped", zap.Error(err))
		}
	}()
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()

	health.ready = true
	log.Info("shadowd started",
		zap.String("bind_api", httpServer.Addr),
		zap.String("mqtt_bind_v3", cfg.MustGet("mqtt.bind_v3").String()))

	<-ctx.Done()
	log.Info("shutting down")
	health.ready = false

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)
	if err := broker.Shutdown(shutdownCtx); err != nil {
		log.Warn("broker shutdown error", zap.Error(err))
	}

	if err := <-procDone; err != nil && err != context.Canceled {
		return err
	}
	return nil
}
