package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"pagekernel/pkg/primitives"
	"pagekernel/pkg/storage/heap"
	"pagekernel/pkg/storage/page"
	"pagekernel/pkg/tuple"
)

var (
	primaryColor = lipgloss.AdaptiveColor{Light: "#5A4FCF", Dark: "#B4A7F5"}
	mutedColor   = lipgloss.AdaptiveColor{Light: "#6C6F85", Dark: "#A6ADC8"}
	successColor = lipgloss.AdaptiveColor{Light: "#40A02B", Dark: "#A6E3A1"}
	errorColor   = lipgloss.AdaptiveColor{Light: "#D20F39", Dark: "#F38BA8"}

	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Bold(true)

	pageTitleStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true).
			MarginTop(1)

	headerStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)
)

// headerRow is the row index StyleFunc receives for the header; data rows
// start at 1.
const headerRow = 0

func newTable(headers []string, rows [][]string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(mutedColor)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(styleCell)
}

func styleCell(row, _ int) lipgloss.Style {
	if row == headerRow {
		return headerStyle
	}
	return cellStyle
}

// renderReport lays out the file summary, a per-page header table and the
// occupied slots of each page.
func renderReport(path string, td *tuple.TupleDescription, pages []pageReport) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("heap file " + path))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("schema:"), td)
	fmt.Fprintf(&b, "%s %d bytes, %d slots per page, %d header bytes\n",
		labelStyle.Render("tuple:"), td.GetSize(), heap.TupleCount(td.GetSize()),
		heap.HeaderSize(heap.TupleCount(td.GetSize())))
	fmt.Fprintf(&b, "%s %d bytes\n", labelStyle.Render("page size:"), page.PageSize)

	summary := make([][]string, 0, len(pages))
	totalUsed := 0
	for _, p := range pages {
		totalUsed += p.used
		summary = append(summary, []string{
			strconv.FormatUint(uint64(p.pageNo), 10),
			strconv.Itoa(p.slots),
			strconv.Itoa(p.used),
			strconv.Itoa(p.slots - p.used),
		})
	}
	b.WriteString(newTable([]string{"page", "slots", "used", "free"}, summary).String())
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %d pages, %d rows\n", labelStyle.Render("total:"), len(pages), totalUsed)

	for _, p := range pages {
		b.WriteString(renderPage(td, p))
	}
	return b.String()
}

func renderPage(td *tuple.TupleDescription, p pageReport) string {
	var b strings.Builder
	b.WriteString(pageTitleStyle.Render(fmt.Sprintf("page %d", p.pageNo)))
	b.WriteString("\n")

	if len(p.rows) == 0 {
		b.WriteString(labelStyle.Render("(no occupied slots)"))
		b.WriteString("\n")
		return b.String()
	}

	headers := []string{"slot"}
	for i := primitives.ColumnID(0); i < td.NumFields(); i++ {
		name, _ := td.GetFieldName(i)
		if name == "" {
			name = fmt.Sprintf("col%d", i)
		}
		headers = append(headers, name)
	}
	headers = append(headers, "digest")

	rows := make([][]string, 0, len(p.rows))
	for _, r := range p.rows {
		row := append([]string{strconv.Itoa(r.slot)}, r.values...)
		rows = append(rows, append(row, r.digest))
	}
	b.WriteString(newTable(headers, rows).String())
	b.WriteString("\n")
	return b.String()
}
