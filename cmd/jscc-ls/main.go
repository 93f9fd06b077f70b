package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jwtly10/jscc"
	"github.com/jwtly10/jscc/internal/config"
	"github.com/jwtly10/jscc/internal/lsp"
	"github.com/jwtly10/jscc/internal/lsp/server"
	"github.com/jwtly10/jscc/internal/transformer"
)

// getLogFile returns a log file for the lsp server to write to.
//
// During development (-debug flag) uses persistent log for easy access.
func getLogFile(debug bool) (*os.File, error) {
	if debug {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		logDir := filepath.Join(homeDir, ".jscc")
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, err
		}
		return os.OpenFile(filepath.Join(logDir, "jscc-ls.log"),
			os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	}

	return os.CreateTemp("", "jscc-ls-*.log")
}

func main() {
	var (
		debug       bool
		configPath  string
		buildOnSave bool
	)
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.StringVar(&configPath, "config", "", "Config file (default: nearest "+config.FileName+")")
	flag.BoolVar(&buildOnSave, "build-on-save", false, "Write outputs when a document is saved")
	flag.Parse()

	logFile, err := getLogFile(debug)
	if err != nil {
		slog.Error("failed to setup logging", "error", err)
		os.Exit(1)
	}
	defer logFile.Close()

	level := slog.LevelInfo
	var out io.Writer = logFile
	if debug {
		level = slog.LevelDebug
		out = io.MultiWriter(os.Stderr, logFile)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	})))

	slog.Info("starting jscc-ls", "version", jscc.VERSION, "logfile", logFile.Name())

	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.Find(".")
	}
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	docOpts := lsp.DocumentServiceOptions{
		Engine: jscc.Options{
			Values:    cfg.Values,
			Prefixes:  cfg.Prefixes,
			KeepLines: cfg.KeepLines,
		},
	}
	if cfg.Path != "" {
		docOpts.Engine.Root = filepath.Dir(cfg.Path)
	}
	if buildOnSave {
		build := transformer.TransformOptions{NoBackup: !cfg.BackupEnabled()}
		if cfg.OutDir != "" {
			build.OutDir = filepath.Join(filepath.Dir(cfg.Path), cfg.OutDir)
		}
		docOpts.BuildOnSave = &build
	}

	s, err := server.NewServer(server.Options{DocService: docOpts})
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	<-s.Serve(context.Background(), server.NewStdRWC()).DisconnectNotify()
}
