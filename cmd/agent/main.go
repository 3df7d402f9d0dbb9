// Interview agent - captures loopback audio and screen triggers, extracts
// questions, and relays answers.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/earshot-app/earshot/internal/audio"
	"github.com/earshot-app/earshot/internal/clients"
	"github.com/earshot-app/earshot/internal/config"
	"github.com/earshot-app/earshot/internal/hotkeys"
	"github.com/earshot-app/earshot/internal/modes"
	"github.com/earshot-app/earshot/internal/queue"
	"github.com/earshot-app/earshot/internal/record"
	"github.com/earshot-app/earshot/internal/resilience"
	"github.com/earshot-app/earshot/internal/screen"
	"github.com/earshot-app/earshot/internal/stream"
	"github.com/earshot-app/earshot/internal/vision"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		return 1
	}

	if cfg.Debug {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
		slog.SetDefault(logger)
	}

	activeModes, err := modes.Load(cfg.Modes)
	if err != nil {
		slog.Error("invalid mode configuration", "error", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Collaborator clients. The relay probe is advisory: the agent arms
	// even when the relay is still coming up.
	stt := clients.NewSTT(cfg.STT.URL)
	diarizer := clients.NewDiarizer(cfg.Diarization.URL)
	reasoner := clients.NewReasoning(cfg.Reasoning.APIKey, clients.WithBaseURL(cfg.Reasoning.BaseURL))
	relay := clients.NewRelay(cfg.ServerURL)

	if err := resilience.Retry(ctx, resilience.ProbeRetryConfig(), func() error {
		return relay.Ping(ctx)
	}); err != nil {
		slog.Warn("relay unreachable, answers will be dropped until it returns", "url", cfg.ServerURL, "error", err)
	}

	// One worker drains the global request queue, so at most one heavy
	// pipeline runs at a time; the shared guard covers direct triggers.
	requests := queue.New(cfg.Queue.Capacity, cfg.Queue.Cooldown())
	go requests.Run(ctx)
	var pipelineGuard sync.Mutex

	screenCapturer := screen.New()
	defer screenCapturer.Close()
	screenProc := vision.NewProcessor(screenCapturer, reasoner, relay, &pipelineGuard, cfg.Vision)

	recordPipeline := record.NewPipeline(stt, diarizer, reasoner, relay, &pipelineGuard,
		cfg.Record, cfg.Diarization, cfg.QuestionMinWords)
	recorder := record.NewRecorder(
		func() (record.Capture, error) { return audio.NewCapturer(cfg.Stream.LoopbackDevice) },
		cfg.Record.MaxDuration(),
		func(path string) {
			requests.Enqueue("audio", func() { recordPipeline.Run(ctx, path) })
		})

	controller := stream.NewController(cfg.Stream, cfg.QuestionMinWords, stream.Deps{
		OpenCapture: func() (stream.Capture, error) { return audio.NewCapturer(cfg.Stream.LoopbackDevice) },
		STT:         stt,
		Reasoning:   reasoner,
		Relay:       relay,
	})

	hk := hotkeys.NewManager()
	bind := func(combo string, fn func()) {
		if err := hk.Bind(combo, fn); err != nil {
			slog.Warn("hotkey unavailable", "combo", combo, "error", err)
		}
	}
	for _, m := range activeModes {
		m := m
		bind(m.Hotkey, func() {
			requests.Enqueue("image", func() { screenProc.Trigger(ctx, m) })
		})
		slog.Info("mode armed", "name", m.Name, "hotkey", m.Hotkey, "model", m.Model)
	}
	bind(cfg.Record.Hotkey, func() { recorder.Toggle(ctx) })
	bind(cfg.Stream.Hotkey, func() { controller.Toggle(ctx) })
	bind(cfg.Stream.SendHotkey, controller.SendNow)

	metricsServer := startMetrics(cfg.MetricsAddr)

	slog.Info("interview agent armed",
		"relay", cfg.ServerURL,
		"record_hotkey", cfg.Record.Hotkey,
		"stream_hotkey", cfg.Stream.Hotkey,
		"stream_send_hotkey", cfg.Stream.SendHotkey)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")
	hk.Close()
	controller.Shutdown()
	recorder.Stop()
	cancel()

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer shutdownCancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	slog.Info("shutdown complete")
	return 0
}

// startMetrics serves /metrics and /healthz on a local debug listener.
// An empty addr disables it.
func startMetrics(addr string) *http.Server {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadTimeout: 5 * time.Second}
	go func() {
		slog.Info("metrics listener starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Warn("metrics listener error", "error", err)
		}
	}()
	return srv
}
