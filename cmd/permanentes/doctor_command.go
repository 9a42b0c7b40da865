package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"permanentes/internal/backend"
	"permanentes/internal/preflight"
)

var errChecksFailed = errors.New("one or more checks failed")

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, registry, and the API daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			reg, openErr := backend.Open(cmd.Context(), cfg)
			if openErr == nil {
				defer reg.Close()
			}
			results := preflight.RunAll(cmd.Context(), cfg, reg, openErr)

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("permanentes "+backend.Describe(cfg), colorize) {
					fmt.Fprintln(out, line)
				}
				for _, r := range results {
					kind := statusOK
					switch {
					case r.Skipped:
						kind = statusInfo
					case !r.Passed:
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
				}
			}
			if preflight.Failed(results) {
				return errChecksFailed
			}
			return nil
		},
	}
}
