package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/guiyumin/reelget/internal/core/config"
	"github.com/guiyumin/reelget/internal/core/extractor"
	"github.com/guiyumin/reelget/internal/server"
)

var (
	servePort int
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	Long: `Start the HTTP gateway with the download form.

Examples:
  reelget serve              # Start server on port 3000
  reelget serve -p 9000      # Start server on port 9000

API Endpoints:
  GET  /api/health           # Health check
  POST /api/info             # List downloadable formats
  GET  /api/download         # Stream one format
  GET  /metrics              # Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// Resolve listen address (flag > env > config > default)
		if servePort > 0 {
			cfg.Server.Port = servePort
		}
		if cmd.Flags().Changed("host") {
			cfg.Server.Host = serveHost
		}

		return runServer(cfg)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "HTTP listen port (default: 3000)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (default: all interfaces)")

	rootCmd.AddCommand(serveCmd)
}

// runServer runs the gateway in the foreground until SIGINT or SIGTERM
func runServer(cfg *config.Config) error {
	if !extractor.Available(cfg.Extractor.Python) {
		log.Warn().Str("python", cfg.Extractor.Python).Msg("Extractor interpreter not found, requests will fail")
	}

	gin.SetMode(gin.ReleaseMode)
	srv := server.NewServer(cfg, newResolver(cfg))

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		<-sigChan
		log.Info().Msg("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	return srv.Start()
}
