package main

import (
	"github.com/spf13/cobra"

	"permanentes/internal/daemonrun"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{Bind: bind})
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (default paths.api_bind)")
	return cmd
}
