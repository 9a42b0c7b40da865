package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"permanentes/internal/api"
	"permanentes/internal/version"
)

func newVersionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the build version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ctx.jsonOutput() {
				return writeJSON(cmd, api.VersionResponse{Version: version.String()})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "permanentes %s\n", version.String())
			return nil
		},
	}
}
