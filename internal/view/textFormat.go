package view

import (
	"fmt"
	"strings"
)

// TruncateTextToWidth Cuts off front of text and adds ellipsis to indicate that text was shortened. Fills lines with spaces.
func TruncateTextToWidth(width int, out string) string {
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		runes := []rune(line)
		switch {
		case len(runes) <= width:
			lines[i] = fmt.Sprintf("%-*s", width, line)
		case width > 3:
			lines[i] = "..." + string(runes[len(runes)-width+3:])
		default:
			lines[i] = string(runes[len(runes)-width:])
		}
	}
	return strings.Join(lines, "\n")
}

// TrimTextToWidth Cuts off end of every line if longer than width. Fills lines to width with spaces.
func TrimTextToWidth(width int, out string) string {
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		runes := []rune(line)
		if len(runes) > width {
			lines[i] = string(runes[:width])
		} else {
			lines[i] = fmt.Sprintf("%-*s", width, line)
		}
	}
	return strings.Join(lines, "\n")
}
