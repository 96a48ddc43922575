package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"anpr-dashboard/internal/camera"
	"anpr-dashboard/internal/config"
	"anpr-dashboard/internal/feed"
	httpapi "anpr-dashboard/internal/http"
	"anpr-dashboard/internal/logger"
	"anpr-dashboard/internal/render"
	"anpr-dashboard/internal/repository"
	"anpr-dashboard/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("anpr-dashboard stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(cfg.Server.Mode)

	loc, err := cfg.UI.Location()
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}

	renderer, err := render.New(loc)
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	src := feed.NewCSVSource(cfg.Feed, &http.Client{}, log)
	dashboard := service.NewListController(service.ViewDashboard, src, repository.NewPlateRepository(), loc, log)
	mydata := service.NewListController(service.ViewMyData, src, repository.NewPlateRepository(), loc, log)

	handler := httpapi.NewHandler(service.NewViews(dashboard, mydata), camera.FromConfig(cfg.Cameras), renderer, cfg, log)
	srv := &http.Server{Handler: httpapi.NewRouter(handler, cfg, log)}

	// The default feed URL points at this server's own /ml-data, so listen
	// before the first fetch.
	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}
	log.Info().Str("addr", ln.Addr().String()).Str("feed", cfg.Feed.URL).Msg("listening")

	dashSub := dashboard.Mount(ctx, cfg.Dashboard.RefreshInterval)
	defer dashSub.Stop()
	mydataSub := mydata.Mount(ctx, 0)
	defer mydataSub.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
