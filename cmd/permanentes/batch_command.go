package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"permanentes/internal/backend"
	"permanentes/internal/identifier"
	"permanentes/internal/reconcile"
	"permanentes/internal/registry"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var mode string
	var file string

	cmd := &cobra.Command{
		Use:   "batch [numero...]",
		Short: "Reconcile many numbers at once",
		Long: "Reconcile the numbers given as arguments, or extract them from pasted text\n" +
			"read from --file or stdin. Text extraction uses --mode (broad or strict).",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(runCtx context.Context, svc *backend.Services) error {
				var (
					out reconcile.Outcome
					err error
				)
				if len(args) > 0 {
					out, err = svc.Reconciler.Reconcile(runCtx, args)
				} else {
					extraction := svc.Mode
					if strings.TrimSpace(mode) != "" {
						if extraction, err = identifier.ParseMode(mode); err != nil {
							return err
						}
					}
					var text string
					if text, err = readBatchText(cmd, file); err != nil {
						return err
					}
					out, err = svc.Reconciler.ReconcileText(runCtx, text, extraction)
				}
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, out)
				}
				w := cmd.OutOrStdout()
				for _, line := range renderOutcome(out, shouldColorize(w)) {
					fmt.Fprintln(w, line)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Extraction mode for text input: broad or strict (default from config)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read text from file instead of stdin")
	return cmd
}

func readBatchText(cmd *cobra.Command, file string) (string, error) {
	var r io.Reader = cmd.InOrStdin()
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return "", fmt.Errorf("open batch input: %w", err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read batch input: %w", err)
	}
	return string(data), nil
}

func renderOutcome(out reconcile.Outcome, colorize bool) []string {
	if out.Empty {
		return []string{renderStatusLine("Batch", statusWarn, "no process numbers found in the input", colorize)}
	}

	var lines []string
	lines = append(lines,
		renderField("Verified", strconv.Itoa(out.TotalVerified)),
		renderField("Matched", strconv.Itoa(out.TotalMatched)),
		renderField("Unmatched", strconv.Itoa(out.TotalUnmatched)),
	)
	if len(out.Failed) > 0 {
		lines = append(lines, renderStatusLine("Failed", statusError, strconv.Itoa(len(out.Failed)), colorize))
	}

	if len(out.Permanent) > 0 {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader(fmt.Sprintf("Permanent (%d)", len(out.Permanent)), colorize)...)
		lines = append(lines, recordTable(out.Permanent))
	}
	if len(out.Other) > 0 {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader(fmt.Sprintf("Other matches (%d)", len(out.Other)), colorize)...)
		lines = append(lines, recordTable(out.Other))
	}
	if len(out.Unmatched) > 0 {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader(fmt.Sprintf("Not in registry (%d)", len(out.Unmatched)), colorize)...)
		lines = append(lines, out.Unmatched...)
	}
	for _, failure := range out.Failed {
		lines = append(lines, renderStatusLine("Lookup error", statusError, failure.Error(), colorize))
	}
	return lines
}

func recordTable(records []registry.Record) string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{rec.Identifier, valueOr(rec.Box, "-"), rec.StatusText()})
	}
	return renderTable(tableSpec{
		Headers: []string{"Number", "Box", "Status"},
		Rows:    rows,
	})
}
