package view

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"
)

const DefaultTerminalWidth = 80

// IsTerminal reports whether file is attached to a terminal.
func IsTerminal(file *os.File) bool {
	return term.IsTerminal(int(file.Fd()))
}

// TerminalWidth returns the width of the terminal behind file, or
// DefaultTerminalWidth when it cannot be determined.
func TerminalWidth(file *os.File) int {
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	return width
}

// RunRenderLoop redraws r in place every refresh interval until ctx is done,
// then draws it one final time. width is asked for before every draw.
func RunRenderLoop(ctx context.Context, r View, out io.Writer, width func() int, refresh time.Duration) {
	lineCount := r.Render(width())

	ticker := time.NewTicker(refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_, _ = fmt.Fprint(out, ansiLineOffset(lineCount))
			r.Render(width())
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(out, ansiLineOffset(lineCount)); err != nil {
				return
			}
			lineCount = r.Render(width())
		}
	}
}

// StartTTYRenderLoop runs the render loop on a terminal. The returned
// function stops the loop and waits for the final draw.
func StartTTYRenderLoop(ctx context.Context, r View, file *os.File) (stop func()) {
	if !IsTerminal(file) {
		panic(fmt.Errorf("cannot start a TTY render loop on a non-terminal file"))
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		RunRenderLoop(loopCtx, r, file, func() int { return TerminalWidth(file) }, 100*time.Millisecond)
	}()
	return func() {
		cancel()
		<-done
	}
}
