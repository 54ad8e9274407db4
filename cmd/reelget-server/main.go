package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/guiyumin/reelget/internal/core/config"
	"github.com/guiyumin/reelget/internal/core/extractor"
	"github.com/guiyumin/reelget/internal/core/logging"
	"github.com/guiyumin/reelget/internal/core/version"
	"github.com/guiyumin/reelget/internal/server"
)

func main() {
	// Command-line flags
	port := flag.Int("port", 0, "HTTP listen port (default: 3000)")
	configFile := flag.String("config", "", "config file (default: ~/.config/reelget/config.yml)")
	showVersion := flag.Bool("version", false, "show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("reelget-server %s\n", version.Version)
		return
	}

	// Load configuration (flag > env > config > default)
	cfg, err := config.Resolve(*configFile)
	if err != nil {
		logging.Setup(config.DefaultLogLevel)
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logging.Setup(cfg.LogLevel)

	if *port > 0 {
		cfg.Server.Port = *port
	}

	if !extractor.Available(cfg.Extractor.Python) {
		log.Warn().Str("python", cfg.Extractor.Python).Msg("Extractor interpreter not found, requests will fail")
	}

	gin.SetMode(gin.ReleaseMode)
	resolver := extractor.Limit(extractor.NewYtDlp(cfg.Extractor.Python, cfg.Extractor.Args...), cfg.Server.MaxConcurrent)
	srv := server.NewServer(cfg, resolver)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Stop(ctx)
	}()

	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
}
