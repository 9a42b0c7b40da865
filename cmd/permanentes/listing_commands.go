package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"permanentes/internal/api"
	"permanentes/internal/backend"
	"permanentes/internal/listing"
	"permanentes/internal/registry"
)

func newListingCommand(ctx *commandContext) *cobra.Command {
	listingCmd := &cobra.Command{
		Use:     "listing",
		Aliases: []string{"listings"},
		Short:   "Manage listings of processes being separated",
	}
	listingCmd.AddCommand(
		newListingNewCommand(ctx),
		newListingListCommand(ctx),
		newListingShowCommand(ctx),
		newListingAddCommand(ctx),
		newListingRemoveCommand(ctx),
		newListingRenameCommand(ctx),
		newListingPrintCommand(ctx),
	)
	return listingCmd
}

func newListingNewCommand(ctx *commandContext) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "new <title> [numero...]",
		Short: "Create a listing, optionally with bulk entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := append([]string(nil), args[1:]...)
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read entries: %w", err)
				}
				entries = append(entries, strings.Fields(string(data))...)
			}
			return ctx.withServices(cmd, func(runCtx context.Context, svc *backend.Services) error {
				res, err := svc.Listings.Create(runCtx, args[0], ctx.operator(), entries)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, res)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintf(out, "Created listing %d %q\n", res.Listing.ID, res.Listing.Title)
				fmt.Fprintln(out, renderField("Added", strconv.Itoa(res.Added)))
				fmt.Fprintln(out, renderField("Permanent", strconv.Itoa(res.Permanent)))
				if len(res.Invalid) > 0 {
					fmt.Fprintln(out, renderStatusLine("Skipped", statusWarn, strings.Join(res.Invalid, ", "), colorize))
				}
				if len(res.Duplicates) > 0 {
					fmt.Fprintln(out, renderStatusLine("Duplicates", statusInfo, strings.Join(res.Duplicates, ", "), colorize))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read whitespace-separated entries from file")
	return cmd
}

func newListingListCommand(ctx *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your listings (or everyone's with --all)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			creator := ctx.operator()
			if all {
				creator = ""
			}
			return ctx.withServices(cmd, func(runCtx context.Context, svc *backend.Services) error {
				listings, err := svc.Listings.List(runCtx, creator)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.ListingsResponse{Listings: listings})
				}
				out := cmd.OutOrStdout()
				if len(listings) == 0 {
					fmt.Fprintln(out, "No listings")
					return nil
				}
				fmt.Fprintln(out, renderListings(listings))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include listings of every operator")
	return cmd
}

func renderListings(listings []registry.Listing) string {
	rows := make([][]string, 0, len(listings))
	for _, l := range listings {
		rows = append(rows, []string{
			strconv.FormatInt(l.ID, 10),
			l.Title,
			l.Creator,
			l.CreatedAt.Local().Format("2006-01-02 15:04"),
			strconv.Itoa(l.ItemCount),
		})
	}
	return renderTable(tableSpec{
		Headers: []string{"ID", "Title", "Creator", "Created", "Items"},
		Rows:    rows,
		Aligns:  []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
	})
}

func newListingShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <listing-id>",
		Short: "Show the items and claims of a listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "listing id")
			if err != nil {
				return err
			}
			return ctx.withServices(cmd, func(runCtx context.Context, svc *backend.Services) error {
				detail, err := svc.Listings.Show(runCtx, id, ctx.operator())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, detail)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderDetail(detail))
				return nil
			})
		},
	}
}

func renderDetail(d listing.Detail) string {
	rows := make([][]string, 0, len(d.Items))
	for _, item := range d.Items {
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.Entered,
			yesNo(item.Permanent),
			item.AddedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	var b strings.Builder
	b.WriteString(renderTable(tableSpec{
		Title:   fmt.Sprintf("Listing %d %s (%s)", d.Listing.ID, d.Listing.Title, d.Listing.Creator),
		Headers: []string{"Item", "Number", "Permanent", "Added"},
		Rows:    rows,
		Aligns:  []columnAlignment{alignRight},
	}))
	if len(d.Claimed) > 0 {
		b.WriteString("\n")
		b.WriteString(renderTable(tableSpec{
			Title:   fmt.Sprintf("Set aside (%d)", len(d.Claimed)),
			Headers: []string{"Number", "Box", "Status"},
			Rows:    claimedRows(d.Claimed),
		}))
	}
	return b.String()
}

func claimedRows(records []registry.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{rec.Identifier, valueOr(rec.Box, "-"), rec.StatusText()})
	}
	return rows
}

func newListingAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <listing-id> <numero>",
		Short: "Enter one number into a listing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "listing id")
			if err != nil {
				return err
			}
			return ctx.withServices(cmd, func(runCtx context.Context, svc *backend.Services) error {
				res, err := svc.Listings.Add(runCtx, id, ctx.operator(), args[1])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, res)
				}
				out := cmd.OutOrStdout()
				kind := statusInfo
				switch res.Outcome {
				case listing.OutcomeClaimed:
					kind = statusOK
				case listing.OutcomeDuplicate:
					kind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine(string(res.Outcome), kind, res.Message, shouldColorize(out)))
				return nil
			})
		},
	}
}

func newListingRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <listing-id> <item-id>",
		Short: "Delete one item from a listing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			listingID, err := parseID(args[0], "listing id")
			if err != nil {
				return err
			}
			itemID, err := parseID(args[1], "item id")
			if err != nil {
				return err
			}
			return ctx.withServices(cmd, func(runCtx context.Context, svc *backend.Services) error {
				if err := svc.Listings.Remove(runCtx, listingID, itemID, ctx.operator()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed item %d from listing %d\n", itemID, listingID)
				return nil
			})
		},
	}
}

func newListingRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <listing-id> <NNNN/TT/AA>",
		Short: "Rename a listing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "listing id")
			if err != nil {
				return err
			}
			return ctx.withServices(cmd, func(runCtx context.Context, svc *backend.Services) error {
				if err := svc.Listings.Rename(runCtx, id, ctx.operator(), args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed listing %d to %s\n", id, strings.TrimSpace(args[1]))
				return nil
			})
		},
	}
}

func newListingPrintCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "print <listing-id>",
		Short: "Write the printable report of a listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "listing id")
			if err != nil {
				return err
			}
			return ctx.withServices(cmd, func(runCtx context.Context, svc *backend.Services) error {
				detail, err := svc.Listings.Show(runCtx, id, ctx.operator())
				if err != nil {
					return err
				}
				return listing.WriteReport(cmd.OutOrStdout(), detail)
			})
		},
	}
}
