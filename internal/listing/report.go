package listing

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const reportTimeLayout = "02/01/2006 15:04"

// WriteReport renders the printable form of a listing: a heading, the typed
// items in entry order, and the permanent records claimed through it.
func WriteReport(w io.Writer, d Detail) error {
	if _, err := fmt.Fprintf(w, "Listing %s\nCreated by %s on %s\n\n",
		d.Listing.Title, d.Listing.Creator, d.Listing.CreatedAt.Local().Format(reportTimeLayout)); err != nil {
		return err
	}

	items := table.NewWriter()
	items.SetOutputMirror(w)
	items.SetStyle(table.StyleLight)
	items.AppendHeader(table.Row{"#", "Process", "Permanent", "Added"})
	for i, item := range d.Items {
		items.AppendRow(table.Row{i + 1, item.Entered, yesNo(item.Permanent), item.AddedAt.Local().Format(reportTimeLayout)})
	}
	items.AppendFooter(table.Row{"", "Total", strconv.Itoa(len(d.Items)), ""})
	items.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
	})
	items.Render()

	if len(d.Claimed) == 0 {
		_, err := fmt.Fprintln(w, "\nNo permanent processes were found in this listing.")
		return err
	}

	if _, err := fmt.Fprintf(w, "\nPermanent processes set aside (%d)\n", len(d.Claimed)); err != nil {
		return err
	}
	claimed := table.NewWriter()
	claimed.SetOutputMirror(w)
	claimed.SetStyle(table.StyleLight)
	claimed.AppendHeader(table.Row{"Process", "Box", "Status", "Found"})
	for _, rec := range d.Claimed {
		found := ""
		if rec.FoundAt != nil {
			found = rec.FoundAt.Local().Format(reportTimeLayout)
		}
		claimed.AppendRow(table.Row{rec.Identifier, rec.Box, rec.StatusText(), found})
	}
	claimed.Render()
	return nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
