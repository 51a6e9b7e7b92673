package cmd

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// tableView is one tabular CLI listing. Columns named in numeric are
// right-aligned.
type tableView struct {
	headers []string
	numeric []string
	rows    [][]string
}

func newTableView(headers ...string) *tableView {
	return &tableView{headers: headers}
}

func (v *tableView) rightAlign(headers ...string) *tableView {
	v.numeric = append(v.numeric, headers...)
	return v
}

func (v *tableView) add(cells ...string) {
	v.rows = append(v.rows, cells)
}

// writeTo renders the view with rounded borders. Short rows are padded.
func (v *tableView) writeTo(w io.Writer) error {
	if len(v.headers) == 0 {
		return nil
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, 0, len(v.headers))
	for _, h := range v.headers {
		header = append(header, h)
	}
	tw.AppendHeader(header)

	for _, cells := range v.rows {
		row := make(table.Row, len(v.headers))
		for i := range row {
			row[i] = ""
			if i < len(cells) {
				row[i] = cells[i]
			}
		}
		tw.AppendRow(row)
	}

	configs := make([]table.ColumnConfig, 0, len(v.numeric))
	for _, name := range v.numeric {
		configs = append(configs, table.ColumnConfig{Name: name, Align: text.AlignRight, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	_, err := io.WriteString(w, tw.Render()+"\n")
	return err
}

// truncate shortens s to at most limit runes for table cells.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
