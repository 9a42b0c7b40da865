package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"permanentes/internal/api"
	"permanentes/internal/backend"
)

func newBoxesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "boxes",
		Short: "List the boxes that hold registry records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withServices(cmd, func(runCtx context.Context, svc *backend.Services) error {
				boxes, err := svc.Registry.ListBoxes(runCtx)
				if err != nil {
					return err
				}
				if boxes == nil {
					boxes = []string{}
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.BoxesResponse{Boxes: boxes})
				}
				out := cmd.OutOrStdout()
				if len(boxes) == 0 {
					fmt.Fprintln(out, "No boxes recorded")
					return nil
				}
				for _, box := range boxes {
					fmt.Fprintln(out, box)
				}
				return nil
			})
		},
	}
}

func newBoxCommand(ctx *commandContext) *cobra.Command {
	var scan bool
	cmd := &cobra.Command{
		Use:   "box <label>",
		Short: "Show the processes filed in one box for auditing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(runCtx context.Context, svc *backend.Services) error {
				records, err := svc.Registry.RecordsInBox(runCtx, args[0])
				if err != nil {
					return err
				}
				if scan {
					targets := api.FromScanRecords(records)
					if ctx.jsonOutput() {
						return writeJSON(cmd, api.ScanTargetsResponse{Processes: targets})
					}
					rows := make([][]string, 0, len(targets))
					for _, t := range targets {
						rows = append(rows, []string{t.Number, t.Original, t.Status})
					}
					fmt.Fprintln(cmd.OutOrStdout(), renderTable(tableSpec{
						Title:   "Box " + args[0],
						Headers: []string{"Digits", "Stored", "Status"},
						Rows:    rows,
					}))
					return nil
				}

				processes := api.FromBoxRecords(records)
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.BoxProcessesResponse{Box: args[0], Processes: processes})
				}
				rows := make([][]string, 0, len(processes))
				for _, p := range processes {
					rows = append(rows, []string{p.Identifier, p.Subject, p.Status})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(tableSpec{
					Title:   "Box " + args[0],
					Headers: []string{"Number", "Subject", "Status"},
					Rows:    rows,
					Footer:  []string{fmt.Sprintf("%d processes", len(rows))},
				}))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&scan, "scan", false, "Emit digits-only numbers for barcode comparison")
	return cmd
}
