package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/apd/v3"
	"github.com/jedib0t/go-pretty/v6/table"

	"cfkit/pkg/core"
)

// newTable returns a rounded table writer with the given header.
func newTable(header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(header)
	return t
}

func render(w io.Writer, t table.Writer) error {
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func printJSON(w io.Writer, v any) error {
	payload, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(payload))
	return err
}

// num renders a decimal without exponent notation.
func num(d *apd.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.Text('f')
}

func ts(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func bookRows(t table.Writer, side string, levels []core.BookLevel, depth int) {
	for i := range levels {
		if depth > 0 && i >= depth {
			break
		}
		t.AppendRow(table.Row{side, num(&levels[i].Price), num(&levels[i].Size)})
	}
}
