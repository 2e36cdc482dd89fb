package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tyrowin/roomchat/internal/chat"
	clog "github.com/Tyrowin/roomchat/internal/log"
	"github.com/Tyrowin/roomchat/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run() error {
	cfg, err := server.LoadConfig()
	if err != nil {
		return err
	}
	clog.Init(cfg.Env)
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	hub := server.NewHub()
	opts := cfg.EngineOptions()
	opts.Logger = clog.Component("chat")
	engine, err := chat.NewEngine(hub, opts)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	router := server.SetupRoutes(cfg, hub, engine)
	defer router.Close()
	httpServer := server.CreateServer(cfg.Port, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return server.StartServer(httpServer)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down gracefully")
		if err := server.ShutdownServer(httpServer, cfg.ShutdownTimeout); err != nil {
			return err
		}
		return hub.Shutdown(cfg.ShutdownTimeout)
	})

	log.Info().Str("addr", cfg.Port).Strs("rooms", engine.Rooms()).Str("default_room", engine.DefaultRoom()).
		Strs("origins", cfg.AllowedOrigins).Msg("chat server starting")
	return g.Wait()
}
