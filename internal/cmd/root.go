package cmd

import (
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"auravox/internal/config"
	"auravox/internal/logging"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "auravoxd",
		Short:         "Auravox chat and transcription backend",
		Long:          `auravoxd serves the Auravox chat API, the speech-to-text upload endpoint and the realtime change feed.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("env-file", "e", "", "Load environment from this file instead of .env")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewMigrateCommand())
	rootCmd.AddCommand(NewStatsCommand())
	rootCmd.AddCommand(NewSweepCommand())
	rootCmd.AddCommand(NewVoiceCheckCommand())

	return rootCmd
}

// loadConfig resolves configuration honouring the persistent flags.
func loadConfig(cmd *cobra.Command) (config.Config, logr.Logger, error) {
	if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
		if err := os.Setenv("AURAVOX_ENV_FILE", envFile); err != nil {
			return config.Config{}, logr.Discard(), err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, logr.Discard(), err
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, logging.New(cfg.Log, cmd.ErrOrStderr()), nil
}
