package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Frankh1982/projectos/internal/config"
	"github.com/Frankh1982/projectos/internal/httpapi"
	"github.com/Frankh1982/projectos/internal/logging"
	"github.com/Frankh1982/projectos/internal/modeladapter"
	"github.com/Frankh1982/projectos/internal/pipeline"
	"github.com/Frankh1982/projectos/internal/store"
)

func main() {
	logger, err := logging.New()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalw("config", "err", err)
	}

	st, err := store.Open(cfg.DataDir, logger)
	if err != nil {
		logger.Fatalw("store", "err", err)
	}
	defer st.Close()

	model := modeladapter.New(cfg.ModelBaseURL, cfg.ModelAPIKey, cfg.ModelID)
	pipe := pipeline.New(cfg, st, model, nil, nil, nil, logger)

	srv := httpapi.New(pipe, st, logger)

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infow("listening", "addr", cfg.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("server", "err", err)
		}
	}()

	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	logger.Infow("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
}
