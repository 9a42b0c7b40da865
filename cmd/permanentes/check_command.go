package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"permanentes/internal/api"
	"permanentes/internal/backend"
	"permanentes/internal/resolver"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check <numero>",
		Short: "Look up one process number, modern or legacy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(runCtx context.Context, svc *backend.Services) error {
				res, err := svc.Resolver.Resolve(runCtx, args[0])
				if err != nil {
					return err
				}
				resp := api.CheckResponse{Found: false}
				if res.Matched && res.Record != nil {
					resp = api.FromRecord(*res.Record, svc.Resolver.IsPermanent(*res.Record), string(res.Strategy))
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderCheck(args[0], resp, res, colorize) {
					fmt.Fprintln(out, line)
				}
				return nil
			})
		},
	}
}

func renderCheck(input string, resp api.CheckResponse, res resolver.Result, colorize bool) []string {
	lines := []string{renderField("Input", input)}
	if !resp.Found {
		return append(lines, renderStatusLine("Registry", statusInfo, "not found", colorize))
	}
	lines = append(lines,
		renderField("Number", resp.Identifier),
		renderField("Box", valueOr(resp.Box, "-")),
		renderField("Status", resp.Status),
	)
	if resp.Permanent != nil && *resp.Permanent {
		lines = append(lines, renderStatusLine("Permanent", statusOK, "yes, set this process aside", colorize))
	} else {
		lines = append(lines, renderStatusLine("Permanent", statusInfo, "no", colorize))
	}
	match := string(res.Strategy)
	if res.Candidates > 1 {
		match += " of " + strconv.Itoa(res.Candidates) + " candidates"
		lines = append(lines, renderStatusLine("Match", statusWarn, match, colorize))
	} else {
		lines = append(lines, renderField("Match", match))
	}
	return lines
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
