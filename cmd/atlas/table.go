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

// wideColumnMax caps free-text columns such as tasks, prompts and paths so a
// long caption cannot blow up the terminal width.
const wideColumnMax = 60

// renderTable draws rows under headers. Missing cells render empty; the last
// left-aligned column wraps at wideColumnMax.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	if len(headers) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(toRow(headers, len(headers)))
	for _, row := range rows {
		tw.AppendRow(toRow(row, len(headers)))
	}

	wide := -1
	for i := range headers {
		if alignmentAt(aligns, i) == alignLeft {
			wide = i
		}
	}
	configs := make([]table.ColumnConfig, len(headers))
	for i := range headers {
		cc := table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if alignmentAt(aligns, i) == alignRight {
			cc.Align = text.AlignRight
		}
		if i == wide {
			cc.WidthMax = wideColumnMax
			cc.WidthMaxEnforcer = text.WrapSoft
		}
		configs[i] = cc
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func toRow(cells []string, width int) table.Row {
	row := make(table.Row, width)
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		} else {
			row[i] = ""
		}
	}
	return row
}

func alignmentAt(aligns []columnAlignment, i int) columnAlignment {
	if i < len(aligns) {
		return aligns[i]
	}
	return alignLeft
}
