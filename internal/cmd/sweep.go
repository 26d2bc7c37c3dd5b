package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"auravox/internal/janitor"
)

func NewSweepCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove spooled uploads once, outside the server schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			j, err := janitor.New(cfg.Server.UploadDir, cfg.Server.UploadRetention, cfg.Server.SweepSchedule, logger)
			if err != nil {
				return err
			}

			all, _ := cmd.Flags().GetBool("all")
			var removed int
			if all {
				removed, err = j.Purge()
			} else {
				removed, err = j.Sweep()
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d file(s) from %s\n", removed, cfg.Server.UploadDir)
			return nil
		},
	}

	cmd.Flags().Bool("all", false, "Remove every spooled upload regardless of age")

	return cmd
}
