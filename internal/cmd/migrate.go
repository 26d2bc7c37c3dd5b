package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"auravox/internal/bootstrap"
)

func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
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

			fmt.Fprintf(cmd.OutOrStdout(), "schema is up to date (%s)\n", st.Driver())
			return nil
		},
	}
}
