package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"permanentes/internal/backend"
	"permanentes/internal/importer"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var encoding string
	var delimiter string
	var batchSize int

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Load a registry CSV export, upserting by process number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if encoding != "" {
				cfg.Import.Encoding = encoding
			}
			if delimiter != "" {
				cfg.Import.Delimiter = delimiter
			}
			if batchSize > 0 {
				cfg.Import.BatchSize = batchSize
			}
			return ctx.withServices(cmd, func(runCtx context.Context, svc *backend.Services) error {
				summary, err := svc.Importer.ImportFile(runCtx, args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, summary)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderImportSummary(args[0], summary))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&encoding, "encoding", "", "Source encoding: latin-1, windows-1252 or utf-8 (default from config)")
	cmd.Flags().StringVar(&delimiter, "delimiter", "", "Field delimiter: auto, ; or , (default from config)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Rows per transaction (default from config)")
	return cmd
}

func renderImportSummary(path string, s importer.Summary) string {
	rows := [][]string{
		{"Rows read", strconv.Itoa(s.Rows)},
		{"Imported", strconv.Itoa(s.Imported)},
		{"Created", strconv.Itoa(s.Created)},
		{"Updated", strconv.Itoa(s.Updated)},
		{"Skipped", strconv.Itoa(s.Skipped)},
		{"Failed", strconv.Itoa(s.Failed)},
		{"Delimiter", fmt.Sprintf("%q", s.Delimiter)},
		{"Elapsed", s.Elapsed.Round(time.Millisecond).String()},
	}
	return renderTable(tableSpec{
		Title:   "Import " + path,
		Headers: []string{"Field", "Value"},
		Rows:    rows,
		Aligns:  []columnAlignment{alignLeft, alignRight},
	}) + "\nColumns: " + strings.Join(s.Columns, ", ")
}
