package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"unified-control/config"
	"unified-control/internal/application"
	"unified-control/internal/domain"
	"unified-control/internal/infra/console"
	"unified-control/internal/infra/link"
	"unified-control/internal/infra/metrics"
	"unified-control/internal/infra/remote"
	"unified-control/internal/infra/script"
	"unified-control/internal/infra/serialport"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	listPorts := flag.Bool("list-ports", false, "list serial ports and exit")
	flag.Parse()

	if *listPorts {
		if err := printPorts(); err != nil {
			slog.Error("listing serial ports", "error", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	if err := run(cfg, logger); err != nil {
		logger.Error("session error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	recorder := metrics.NewRecorder(registry)

	inbox := application.NewInbox(cfg.Session.InboxSize, recorder)

	opts := linkOptions(cfg.Serial, logger)
	var links []application.DeviceLink
	for _, role := range domain.Roles {
		l := openLink(ctx, role, devicePort(cfg.Devices, role), opts, logger)
		if l == nil {
			continue
		}
		link.StartReceiver(l, inbox, logger)
		links = append(links, l)
	}

	orchestrator := application.NewOrchestrator(
		application.NewRuleParser(),
		links,
		recorder,
		parseDuration(cfg.Session.ShutdownGrace, 500*time.Millisecond, "shutdown_grace", logger),
		logger,
	)
	defer orchestrator.Shutdown()

	sources, err := createSources(cfg, orchestrator, registry, logger)
	if err != nil {
		return err
	}

	session := application.NewSession(
		orchestrator,
		inbox,
		os.Stdout,
		application.SessionConfig{
			ResponseWindow: parseDuration(cfg.Session.ResponseWindow, 200*time.Millisecond, "response_window", logger),
		},
		logger,
		sources...,
	)

	logger.Info("starting unified control",
		"source", cfg.Session.Source,
		"http", cfg.HTTP.Enabled,
		"links", len(links),
	)

	if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func linkOptions(cfg config.SerialConfig, logger *slog.Logger) link.Options {
	opts := link.DefaultOptions()
	opts.SettleDelay = parseDuration(cfg.SettleDelay, opts.SettleDelay, "settle_delay", logger)
	opts.PollInterval = parseDuration(cfg.PollInterval, opts.PollInterval, "poll_interval", logger)
	opts.Serial.Baud = cfg.Baud
	opts.Serial.ReadTimeout = opts.PollInterval
	opts.Serial.Driver = serialport.Driver(cfg.Driver)
	return opts
}

func devicePort(cfg config.DevicesConfig, role domain.Role) string {
	switch role {
	case domain.RoleActuator:
		return cfg.Actuator.Port
	case domain.RoleLighting:
		return cfg.Lighting.Port
	}
	return ""
}

// openLink returns nil when the device is not configured or cannot be
// reached; the session then runs without it.
func openLink(ctx context.Context, role domain.Role, port string, opts link.Options, logger *slog.Logger) *link.Link {
	if port == "" {
		logger.Warn("no port configured, device disabled", "role", role)
		return nil
	}

	l, err := link.Open(ctx, role, port, opts, logger)
	if err != nil {
		var connErr *domain.ConnectError
		if errors.As(err, &connErr) {
			logger.Warn("device unavailable", "role", role, "port", port, "error", connErr.Err)
		} else {
			logger.Warn("device unavailable", "role", role, "port", port, "error", err)
		}
		return nil
	}

	logger.Info("device connected", "role", role, "port", port)
	return l
}

func createSources(
	cfg *config.Config,
	orchestrator *application.Orchestrator,
	registry *prometheus.Registry,
	logger *slog.Logger,
) ([]application.CommandSource, error) {
	var sources []application.CommandSource

	switch cfg.Session.Source {
	case "console":
		sources = append(sources, console.NewSource(cfg.Session.Prompt, cfg.Session.HistoryFile, logger))
	case "script":
		if cfg.Session.Script == "" {
			return nil, fmt.Errorf("session.script is required for the script source")
		}
		interval := parseDuration(cfg.Session.ScriptInterval, 0, "script_interval", logger)
		sources = append(sources, script.NewSource(cfg.Session.Script, interval))
	case "none":
	default:
		logger.Warn("unknown command source, using console", "source", cfg.Session.Source)
		sources = append(sources, console.NewSource(cfg.Session.Prompt, cfg.Session.HistoryFile, logger))
	}

	if cfg.HTTP.Enabled {
		sources = append(sources, remote.NewSource(
			cfg.HTTP.Addr,
			cfg.HTTP.AuthToken,
			cfg.HTTP.RateLimit,
			orchestrator.LinkStates,
			metrics.Handler(registry),
			logger,
		))
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("no command source configured")
	}
	return sources, nil
}

func parseDuration(value string, fallback time.Duration, name string, logger *slog.Logger) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		logger.Warn("invalid duration, using default", "setting", name, "value", value, "error", err)
		return fallback
	}
	return d
}

func printPorts() error {
	ports, err := serialport.List()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("no serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	// stdout belongs to the operator display.
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
