package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wampd/wampd/pkg/metrics"
	"github.com/wampd/wampd/pkg/wampconfig"
	"github.com/wampd/wampd/pkg/wampcore/router"
)

// shutdownTimeout bounds the HTTP server's graceful Shutdown, which runs
// after GOODBYE has been sent to every session. It does not wait for the
// sessions' GOODBYE replies: WebSocket connections are hijacked and are not
// tracked by http.Server.Shutdown.
const shutdownTimeout = 10 * time.Second

type serveFlags struct {
	listen     string
	configFile string
	logLevel   string
	logFormat  string
}

var serveFlagVals serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the WAMP router",
	Long: `Start the WAMP router, accepting WebSocket connections and routing
pub/sub events and RPC calls between peers within each configured realm.

With no --config, a single realm named "realm1" is created on :8181.`,
	Example: `  # Start with defaults
  wampd serve

  # Start from a config file
  wampd serve --config wampd.yaml

  # Override the listen address
  wampd serve --config wampd.yaml --listen :9000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(&serveFlagVals)
	},
}

func init() {
	initServeCmd()
}

func initServeCmd() {
	rootCmd.AddCommand(serveCmd)

	f := &serveFlagVals
	serveCmd.Flags().StringVarP(&f.listen, "listen", "l", "", "Listen address (overrides config file)")
	serveCmd.Flags().StringVarP(&f.configFile, "config", "c", "", "Path to router configuration file (YAML)")
	serveCmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config file)")
	serveCmd.Flags().StringVar(&f.logFormat, "log-format", "", "Log format: text, json (overrides config file)")
}

func loadServeConfig(f *serveFlags) (*wampconfig.Config, error) {
	var cfg *wampconfig.Config
	if f.configFile != "" {
		loaded, err := wampconfig.Load(f.configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	} else {
		cfg = wampconfig.Default()
	}

	if f.listen != "" {
		cfg.Listen = f.listen
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Logging.Format = f.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(f *serveFlags) error {
	cfg, err := loadServeConfig(f)
	if err != nil {
		return err
	}

	logger := cfg.NewLogger()

	realms, err := cfg.BuildRealms()
	if err != nil {
		return fmt.Errorf("build realms: %w", err)
	}

	r := router.New(realms, logger)

	registry := metrics.Init()
	if metrics.RealmsTotal != nil {
		_ = metrics.RealmsTotal.Set(float64(len(cfg.Realms)))
	}
	stopRuntimeMetrics := metrics.NewRuntimeCollector(registry, metrics.UptimeSeconds).StartCollector(15 * time.Second)
	defer stopRuntimeMetrics()

	mux := http.NewServeMux()
	mux.Handle("/", r)
	mux.Handle("/metrics", registry.Handler())

	server := &http.Server{
		Addr:    cfg.Listen,
		Handler: mux,
	}

	logger.Info("starting wampd", "listen", cfg.Listen, "realms", len(cfg.Realms))

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	r.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("stopped")
	return nil
}
