package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hapticlink/watch-relay/internal/log"
	"github.com/hapticlink/watch-relay/internal/metrics"
	"github.com/hapticlink/watch-relay/internal/relay"
	"github.com/hapticlink/watch-relay/pkg/config"
	"github.com/hapticlink/watch-relay/pkg/connector/ble"
	"github.com/hapticlink/watch-relay/pkg/connector/inet"
	"github.com/hapticlink/watch-relay/pkg/identity"
	"github.com/hapticlink/watch-relay/pkg/status"
)

const backendTimeout = 30 * time.Second

var (
	configPath  = flag.String("config", "", "Configuration `file` (YAML)")
	backendURL  = flag.String("backend", "", "Backend base `url` (overrides configuration)")
	watchName   = flag.String("watch", "", "Advertised `name` of the wearable to connect to")
	metricsAddr = flag.String("metrics", "", "Serve Prometheus metrics on `address`")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
)

func Usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: %s [OPTION...]\n", os.Args[0])
	fmt.Fprintf(out, "\nA gateway daemon that relays wearable heart-rate telemetry to a remote backend\n")
	fmt.Fprintf(out, "and carries haptic instructions back to the wearable.\n")
	fmt.Fprintln(out, "\nOptions:")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = Usage
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	if *backendURL != "" {
		os.Setenv(config.EnvBackendURL, *backendURL)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if *watchName != "" {
		cfg.WatchName = *watchName
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *verbose || cfg.Verbose {
		log.SetLevel(log.LevelDebug)
	}

	adapter, err := ble.NewAdapter(cfg.BLEAdapter)
	if err != nil {
		return err
	}
	defer adapter.Close()

	registry := prometheus.NewRegistry()
	r, err := relay.New(relay.Config{
		PeerDialer: ble.NewDialer(adapter, cfg.WatchName, cfg.ScanTimeout()),
		BackendDialer: &inet.Dialer{
			ServerURL: cfg.BackendURL,
			DeviceID:  identity.ParseDeviceID(cfg.DeviceName),
			Secret:    []byte(cfg.DeviceSecret),
			Timeout:   backendTimeout,
		},
		DeviceName:       cfg.DeviceName,
		RetryLimit:       cfg.RetryLimit,
		RetryDelay:       cfg.RetryDelay(),
		ThrottleInterval: cfg.ThrottleInterval(),
		Sink:             status.LoggerSink{},
		Metrics:          metrics.New(registry),
	})
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			log.Info("serving metrics on %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Error("metrics server failed: %s", err)
			}
		}()
	}

	if err := r.Start(); err != nil {
		return err
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range signals {
		if sig == syscall.SIGHUP {
			log.Info("reconnecting on SIGHUP")
			if err := r.ForceReconnect(); err != nil {
				log.Error("reconnect failed: %s", err)
			}
			continue
		}
		log.Info("shutting down on %s", sig)
		break
	}
	r.Stop()
	return nil
}
