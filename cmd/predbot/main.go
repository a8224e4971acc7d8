package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/predbot/config"
	"github.com/alejandrodnm/predbot/internal/adapters/notify"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one cycle and exit")
	demo := flag.Bool("demo", false, "use synthetic demo markets instead of the Manifold API")
	fixtures := flag.String("fixtures", "", "load market snapshots from a JSON file instead of the API")
	report := flag.Bool("report", false, "print the performance report and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print decision tables (default: compact 1-line)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	closeLog := setupLogger(cfg.Log)
	defer closeLog()

	offline := *demo || *fixtures != ""
	slog.Info("predbot starting",
		"config", *configPath,
		"interval", cfg.Interval(),
		"storage", cfg.Storage.Backend,
		"demo", *demo,
		"fixtures", *fixtures,
		"once", *once,
		"report", *report,
	)

	st, err := openStores(cfg.Storage, offline)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "backend", cfg.Storage.Backend)
		os.Exit(1)
	}
	defer st.Close()

	console := notify.NewConsole(*table)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *report {
		if err := runReport(ctx, st, console); err != nil {
			slog.Error("report failed", "err", err)
			os.Exit(1)
		}
		return
	}

	provider, err := newProvider(cfg, *demo, *fixtures)
	if err != nil {
		slog.Error("failed to build market provider", "err", err)
		os.Exit(1)
	}

	eng, err := newEngine(cfg, provider, st, console)
	if err != nil {
		slog.Error("failed to build engine", "err", err)
		os.Exit(1)
	}

	if *once {
		if _, err := eng.RunOnce(ctx); err != nil {
			slog.Error("cycle failed", "err", err)
			os.Exit(1)
		}
		return
	}

	runLoop(ctx, eng, cfg.Interval())
	slog.Info("predbot stopped cleanly")
}

// setupLogger configura slog. Si cfg.File está definido, el output se duplica
// a un archivo rotado con lumberjack. Devuelve la función que lo cierra.
func setupLogger(cfg config.LogConfig) func() {
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

	var w io.Writer = os.Stdout
	closer := func() {}
	if cfg.File != "" {
		fileLogger := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     28, // días
			Compress:   true,
		}
		w = io.MultiWriter(os.Stdout, fileLogger)
		closer = func() { _ = fileLogger.Close() }
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
	return closer
}
