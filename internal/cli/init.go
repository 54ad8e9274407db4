package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/guiyumin/reelget/internal/core/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create reelget config file with defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("%s already exists", configPath)
			}
			if err := config.SaveFile(configPath, config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", configPath)
			return nil
		}

		if err := config.Init(); err != nil {
			return err
		}

		path, _ := config.ConfigPath()
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
