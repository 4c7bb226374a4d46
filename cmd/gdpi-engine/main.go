// Command gdpi-engine runs the circumvention engine: load a TOML config
// (or a legacy numeric mode), build the strategy pipeline, open the
// platform capture driver, and serve Prometheus metrics over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdpi-go/engine/pkg/config"
	"github.com/gdpi-go/engine/pkg/engine"
	"github.com/gdpi-go/engine/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	legacyMode := flag.Uint("mode", 0, "legacy numeric mode (1-9), used when -config is not set")
	metricsAddr := flag.String("metrics-addr", ":18080", "address to serve /metrics on")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	log := logrus.New()
	if lvl, err := logrus.ParseLevel(*logLevel); err == nil {
		log.SetLevel(lvl)
	}

	cfg, err := loadConfig(*configPath, uint8(*legacyMode))
	if err != nil {
		log.WithError(err).Fatal("loading configuration")
	}

	if cfg.Logging.JSONFormat {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	orch, err := engine.New(cfg, log.WithField("component", "engine"))
	if err != nil {
		log.WithError(err).Fatal("building engine")
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	collector := metrics.New("gdpi", prometheus.Labels{
		"profile":  cfg.General.Name,
		"hostname": hostname,
	})
	collector.Track("engine", orch.Context)
	prometheus.MustRegister(collector)

	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.WithField("addr", *metricsAddr).Info("serving metrics")
		if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
			log.WithError(err).Error("metrics server stopped")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.WithField("profile", cfg.General.Name).Info("starting engine")
	if err := orch.Run(ctx); err != nil {
		log.WithError(err).Fatal("engine stopped")
	}
}

func loadConfig(path string, mode uint8) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if mode != 0 {
		return config.FromLegacyMode(mode)
	}
	return config.Config{}, fmt.Errorf("gdpi-engine: either -config or -mode must be set")
}
