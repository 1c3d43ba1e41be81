package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mnemosyne-labs/mnemosyne/internal/config"
	"github.com/mnemosyne-labs/mnemosyne/internal/handler"
	"github.com/mnemosyne-labs/mnemosyne/internal/model/mode"
	"github.com/mnemosyne-labs/mnemosyne/internal/service/completion"
	"github.com/mnemosyne-labs/mnemosyne/internal/service/therapy"
	"github.com/mnemosyne-labs/mnemosyne/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	log.Printf("storage ready at %s", cfg.Storage.Path)

	if !cfg.Completion.Enabled() {
		log.Println("warning: GROQ_API_KEY not configured, therapist replies will degrade to placeholders")
	}
	completer := completion.NewClient(completion.Config{
		APIKey:  cfg.Completion.APIKey,
		APIURL:  cfg.Completion.APIURL,
		Model:   cfg.Completion.Model,
		Timeout: cfg.Completion.Timeout,
	})

	modeStore := mode.NewMemoryStore(mode.Seed())
	therapySvc := therapy.NewService(store, completer, modeStore)

	router := handler.NewRouter(modeStore, therapySvc)
	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Mnemosyne backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
