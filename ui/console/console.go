// Package console prints report views as compact colored text.
package console

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"graphbridge/internal/output"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

const labelWidth = 28

// Print renders a view to the writer in a compact format.
func Print(w io.Writer, view output.View) {
	fmt.Fprintf(w, "%s■ %s%s\n", colorCyan, view.Title, colorReset)

	for _, sec := range view.Sections {
		fmt.Fprintf(w, "%s─ %s%s\n", colorCyan, sec.Title, colorReset)
		for _, it := range sec.Items {
			printItem(w, it)
		}
	}

	fmt.Fprintf(w, "%s─ Summary%s: %s\n\n", colorCyan, colorReset, view.Summary)
}

func printItem(w io.Writer, it output.Item) {
	marker := statusMarker(it.Status)

	// Warnings carry only a note.
	if it.Label == "" {
		fmt.Fprintf(w, " %s %s\n", marker, it.Note)
		return
	}

	label := it.Label
	if utf8.RuneCountInString(label) > labelWidth {
		label = string([]rune(label)[:labelWidth-3]) + "..."
	}
	dots := strings.Repeat("·", labelWidth+2-utf8.RuneCountInString(label))

	value := ""
	if it.Value != 0 || it.Note == "" {
		value = fmt.Sprintf("%d", it.Value)
	}
	note := ""
	if it.Note != "" {
		note = " " + it.Note
	}
	fmt.Fprintf(w, " %s %s%s%s%s %8s%s\n", marker, label, colorCyan, dots, colorReset, value, note)
}

func statusMarker(status string) string {
	color := colorFor(status)
	switch status {
	case output.StatusOK:
		return color + "✓" + colorReset
	case output.StatusWarn:
		return color + "!" + colorReset
	case output.StatusCrit:
		return color + "X" + colorReset
	default:
		return " "
	}
}

func colorFor(status string) string {
	switch status {
	case output.StatusWarn:
		return colorYellow
	case output.StatusCrit:
		return colorRed
	default:
		return colorGreen
	}
}
