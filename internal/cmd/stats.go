package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"auravox/internal/admin"
	"auravox/internal/bootstrap"
)

func NewStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the admin usage report as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			st, err := bootstrap.OpenStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			report, err := admin.NewService(st, nil).Report(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}
