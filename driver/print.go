package driver

import (
	"fmt"
	"io"
	"strings"
)

// printWidths sizes the six columns spec.md §8 S6 fixes exactly: index,
// name, class, output size, whether the value comes straight from a
// bound dataset column, and the node's first published value.
var printWidths = [6]int{9, 37, 20, 9, 10, 20}

func printTable(w io.Writer, order []*NodeInfo, dm *dataMap) error {
	headers := [6]string{"Index", "Name", "Class", "Size", "FromData", "FirstValue"}
	if err := printRule(w); err != nil {
		return err
	}
	if err := printRow(w, headers); err != nil {
		return err
	}
	if err := printRule(w); err != nil {
		return err
	}

	for _, info := range order {
		row := [6]string{
			fmt.Sprintf("%d", info.Token),
			info.Node.Name(),
			info.Node.Class(),
			fmt.Sprintf("%d", info.OutputSize),
			fmt.Sprintf("%v", info.FromDataset),
			firstValue(dm, info.Token),
		}
		if err := printRow(w, row); err != nil {
			return err
		}
		if err := printRule(w); err != nil {
			return err
		}
	}
	return nil
}

// firstValue renders the first element of a node's currently published
// span, or "-" if the node has never published one (e.g. Print called
// before the first GetValue).
func firstValue(dm *dataMap, token int) string {
	data := dm.At(token).Data
	if len(data) == 0 {
		return "-"
	}
	return fmt.Sprintf("%g", data[0])
}

func printRule(w io.Writer) error {
	total := len(printWidths) + 1
	for _, width := range printWidths {
		total += width
	}
	_, err := fmt.Fprintln(w, strings.Repeat("-", total))
	return err
}

func printRow(w io.Writer, cols [6]string) error {
	var b strings.Builder
	b.WriteByte('|')
	for i, c := range cols {
		b.WriteString(padRight(c, printWidths[i]))
		b.WriteByte('|')
	}
	_, err := fmt.Fprintln(w, b.String())
	return err
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}
