package cli

import (
	"github.com/spf13/cobra"

	"github.com/guiyumin/reelget/internal/core/config"
	"github.com/guiyumin/reelget/internal/core/extractor"
	"github.com/guiyumin/reelget/internal/core/logging"
	"github.com/guiyumin/reelget/internal/core/version"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:          "reelget",
	Short:        "Look up and download Instagram reels through yt-dlp",
	Version:      version.Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: ~/.config/reelget/config.yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig resolves the runtime config and installs the logger.
// The --log-level flag beats LOG_LEVEL and the config file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Resolve(configPath)
	if err != nil {
		logging.Setup(config.DefaultLogLevel)
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logging.Setup(cfg.LogLevel)
	return cfg, nil
}

func newResolver(cfg *config.Config) extractor.Resolver {
	ytdlp := extractor.NewYtDlp(cfg.Extractor.Python, cfg.Extractor.Args...)
	return extractor.Limit(ytdlp, cfg.Server.MaxConcurrent)
}
