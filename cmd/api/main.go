package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"friendlychat/backend/internal/bootstrap"
	"friendlychat/backend/internal/config"
	apihttp "friendlychat/backend/internal/http"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	backends, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("backend init failed: %v", err)
	}
	defer backends.Close()

	view := apihttp.NewView()
	chatSvc := backends.NewService(cfg, view)
	defer chatSvc.Close()

	router := apihttp.NewRouter(apihttp.RouterDeps{
		Cfg:  cfg,
		Chat: chatSvc,
		View: view,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// graceful shutdown
	go func() {
		log.Printf("API listening on :%s (backend=%s project=%s)", cfg.Port, cfg.Backend, cfg.ProjectID)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Println("shutting down...")
	_ = srv.Shutdown(ctxShutdown)
}
