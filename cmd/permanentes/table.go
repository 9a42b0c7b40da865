package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// tableSpec describes one rendered table. Footer is optional.
type tableSpec struct {
	Title   string
	Headers []string
	Rows    [][]string
	Aligns  []columnAlignment
	Footer  []string
}

func renderTable(spec tableSpec) string {
	columns := len(spec.Headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if spec.Title != "" {
		tw.SetTitle(spec.Title)
	}

	tw.AppendHeader(toRow(spec.Headers, columns))
	for _, row := range spec.Rows {
		tw.AppendRow(toRow(row, columns))
	}
	if len(spec.Footer) > 0 {
		tw.AppendFooter(toRow(spec.Footer, columns))
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(spec.Aligns) && spec.Aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			AlignFooter: align,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func toRow(values []string, columns int) table.Row {
	row := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		if i < len(values) {
			row[i] = values[i]
		} else {
			row[i] = ""
		}
	}
	return row
}
