package evaluate

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteTable renders the matrix as a bordered table with a row total and a
// per-class recall column.
func (c *ConfusionMatrix) WriteTable(w io.Writer) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignRight},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.Off},
				Alignment:  tw.CellAlignment{Global: tw.AlignRight},
			},
		}),
	)

	header := append([]string{"true \\ pred"}, c.Classes...)
	header = append(header, "total", "recall")
	rows := make([][]string, len(c.Counts))
	for i, counts := range c.Counts {
		total := 0
		row := []string{c.Classes[i]}
		for _, v := range counts {
			row = append(row, strconv.Itoa(v))
			total += v
		}
		row = append(row, strconv.Itoa(total), strconv.FormatFloat(ratio(counts[i], total), 'f', 2, 64))
		rows[i] = row
	}

	table.Header(header)
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
