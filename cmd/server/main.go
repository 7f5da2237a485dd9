package main

import (
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"shellbridge/internal/config"
	"shellbridge/internal/logging"
	"shellbridge/internal/mcp"
	"shellbridge/internal/realtime"
	"shellbridge/internal/shell"
	"shellbridge/internal/tools"
	"shellbridge/internal/watcher"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadOrDefault()

	transport := flag.String("transport", cfg.Transport, "transport to serve: stdio or http")
	flag.Parse()

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		logger = logging.NewDefault()
		logger.Warn("invalid logging config, using defaults", zap.Error(err))
	}
	defer logger.Sync()

	workDir := cfg.Shell.WorkDir
	if workDir == "" {
		workDir, _ = os.Getwd()
	}

	session := shell.NewSession(shell.Options{
		ShellPath:      cfg.Shell.Path,
		WorkDir:        workDir,
		PollInterval:   cfg.Shell.PollInterval(),
		InterruptGrace: cfg.Shell.InterruptGrace(),
		DefaultTimeout: cfg.Shell.DefaultTimeout(),
		Logger:         logger.Named("shell"),
	})
	defer session.Close()

	fileOps := tools.NewFileOps(logger.Named("files"))

	switch *transport {
	case "stdio":
		runStdio(session, fileOps, logger)
	case "http":
		runHTTP(cfg, session, fileOps, workDir, logger)
	default:
		logger.Fatal("unknown transport", zap.String("transport", *transport))
	}
}

func runStdio(session *shell.Session, fileOps *tools.FileOps, logger *zap.Logger) {
	srv := mcp.New(session, fileOps, logger.Named("mcp"))
	if err := srv.ServeStdio(); err != nil {
		logger.Error("mcp server error", zap.Error(err))
	}
}

func runHTTP(cfg *config.Config, session *shell.Session, fileOps *tools.FileOps, workDir string, logger *zap.Logger) {
	// Watcher callback is set after the realtime server exists.
	var rtServer *realtime.Server
	fileWatch := watcher.New(func(fileCount int) {
		if rtServer != nil {
			rtServer.OnFileUpdate(fileCount)
		}
	}, logger.Named("watcher"))

	rtServer = realtime.New(session, fileOps, fileWatch, logger.Named("realtime"))

	if err := fileWatch.Watch(workDir); err != nil {
		logger.Warn("workspace watch disabled", zap.Error(err))
	}

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: rtServer.Handler(),
	}

	// Graceful shutdown on signals.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Info("shutting down")
		fileWatch.Shutdown()
		session.Close()
		httpServer.Close()
	}()

	logger.Info("server listening", zap.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("http server error", zap.Error(err))
	}
}
