package color

import "github.com/fatih/color"

// Sprint style helpers used for terminal and log output. Colours are dropped
// automatically when the output is not a terminal.
var (
	FgRed     = color.New(color.FgRed).SprintFunc()
	FgGreen   = color.New(color.FgGreen).SprintFunc()
	FgYellow  = color.New(color.FgYellow).SprintFunc()
	FgMagenta = color.New(color.FgMagenta).SprintFunc()
	FgCyan    = color.New(color.FgCyan).SprintFunc()
)
