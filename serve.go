package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"moodmusic/audiofilestore"
	"moodmusic/faceemotion"
	"moodmusic/metadata"
	"moodmusic/metrics"
	"moodmusic/musicgen"
	"moodmusic/pipeline"
	"moodmusic/voiceemotion"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigFlag(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg)
		},
	}
}

// audioStore is what the server needs of an audio store backend.
type audioStore interface {
	pipeline.AudioStore
	routeRegistrar
}

// server is a fully wired backend.
type server struct {
	handler http.Handler
	closers []func()
}

func (s *server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// newServer builds every component from cfg, once, and wires them together.
func newServer(cfg *Config) (*server, error) {
	s := &server{}

	db, err := metadata.Open(cfg.Catalog.DSN)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		s.closers = append(s.closers, func() { _ = sqlDB.Close() })
	}

	catalog, err := metadata.NewCatalog(db)
	if err != nil {
		s.Close()
		return nil, err
	}

	store, closeStore, err := openAudioStore(cfg.AudioStore)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.closers = append(s.closers, closeStore)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(registry)
	if err != nil {
		s.Close()
		return nil, err
	}

	client := musicgen.NewClient(cfg.Synthesis.BaseURL, musicgen.WithMaxNewTokens(cfg.Synthesis.MaxNewTokens))
	pingSynthesis(client)

	svc := pipeline.NewService(pipeline.Deps{
		Images: faceemotion.NewClassifier(
			faceemotion.NewTFServingModel(cfg.FaceModel.BaseURL, cfg.FaceModel.Name, 0)),
		Voices: voiceemotion.NewClassifier(
			voiceemotion.NewWhisperClient(cfg.Transcriber.BaseURL,
				voiceemotion.WithAPIKey(cfg.Transcriber.APIKey),
				voiceemotion.WithModel(cfg.Transcriber.Model),
				voiceemotion.WithLanguage(cfg.Transcriber.Language))),
		Synth:             musicgen.NewLimited(client, cfg.Synthesis.MaxConcurrent),
		Store:             store,
		Catalog:           catalog,
		Metrics:           m,
		GenerateTimeout:   cfg.Synthesis.GenerateTimeout,
		RegenerateTimeout: cfg.Synthesis.RegenerateTimeout,
	})

	s.handler = MakeRouter(cfg.CORS, registry, store, svc)
	return s, nil
}

func runServe(ctx context.Context, cfg *Config) error {
	s, err := newServer(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	// no write timeout: synthesis may legitimately take minutes
	srv := &http.Server{
		Addr:              cfg.HTTPListenAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.HTTPListenAddr).Info("serve: listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("serve: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openAudioStore returns the configured backend and a func releasing it.
func openAudioStore(cfg AudioStoreConfig) (audioStore, func(), error) {
	switch cfg.Backend {
	case AudioStoreBackendNats:
		nc, err := nats.Connect(cfg.NatsURL, nats.Name("moodmusic"))
		if err != nil {
			return nil, nil, fmt.Errorf("%w: connect %s: %v", audiofilestore.ErrStorage, cfg.NatsURL, err)
		}
		js, err := nc.JetStream()
		if err != nil {
			nc.Close()
			return nil, nil, fmt.Errorf("%w: JetStream: %v", audiofilestore.ErrStorage, err)
		}
		store, err := audiofilestore.NewNatsAudioStore(js, cfg.Bucket)
		if err != nil {
			nc.Close()
			return nil, nil, err
		}
		return store, nc.Close, nil
	default:
		store, err := audiofilestore.NewAudioFileStore(cfg.FileDir)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}

// pingSynthesis warns early when the synthesis service is down.
// It is not fatal: the service may come up later.
func pingSynthesis(client *musicgen.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		logger.WithError(err).Warn("synthesis service not reachable yet")
	}
}
