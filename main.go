// Package main provides a push-to-talk dictation tool: press START on the
// local web page, speak a short phrase and read the formatted transcript.
// A volume-driven orb shows the microphone level between phrases.
//
// Usage:
//
//	zwfm-dictation [-config path/to/config.json]
//
// If -config is not specified, config.json next to the binary is used.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/oszuidwest/zwfm-dictation/internal/audio"
	"github.com/oszuidwest/zwfm-dictation/internal/config"
	"github.com/oszuidwest/zwfm-dictation/internal/util"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: config.json next to binary)")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	if *showVersion {
		slog.Info("version info", "version", Version, "commit", Commit, "build_time", BuildTime)
		return
	}

	if *configPath == "" {
		execPath, err := os.Executable()
		if err != nil {
			slog.Error("failed to get executable path", "error", err)
			os.Exit(1)
		}
		*configPath = filepath.Join(filepath.Dir(execPath), "config.json")
	}

	slog.Info("using config file", "path", *configPath)

	cfg := config.New(*configPath)
	if err := cfg.Load(); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	snap := cfg.Snapshot()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: snap.LogLevel})))

	// FFmpeg is only needed where the exec backend captures through it.
	ffmpegPath := util.ResolveFFmpegPath(snap.FFmpegPath)
	ffmpegAvailable := ffmpegPath != ""
	if !ffmpegAvailable && snap.AudioBackend == audio.BackendExec {
		slog.Warn("FFmpeg not found - exec capture may be unavailable on this platform",
			"configured_path", snap.FFmpegPath)
	} else if ffmpegAvailable {
		slog.Info("FFmpeg found", "path", ffmpegPath)
	}

	rec, closer, err := newRecognizer(context.Background(), snap)
	if err != nil {
		slog.Error("failed to create recognizer", "provider", snap.Provider, "error", err)
		os.Exit(1)
	}
	slog.Info("speech recognizer ready", "provider", snap.Provider)

	dictation, err := NewDictation(cfg, ffmpegPath, rec, closer)
	if err != nil {
		slog.Error("failed to create dictation", "error", err)
		os.Exit(1)
	}
	dictation.Start()

	watchCtx, stopWatch := context.WithCancel(context.Background())
	releases := NewReleaseWatcher(githubAPI, dictation.AnnounceRelease)
	go releases.Run(watchCtx)

	srv := NewServer(dictation, releases, ffmpegAvailable)
	httpServer := srv.Start(snap.Addr())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, util.ShutdownSignals()...)
	<-sigChan

	slog.Info("shutting down")

	stopWatch()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if err := dictation.Stop(); err != nil {
		slog.Error("error stopping dictation", "error", err)
	}

	slog.Info("shutdown complete")
}
