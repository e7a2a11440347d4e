package terminalView

import (
	"fmt"
	"io"
	"time"

	"glclone/internal/view"
)

type CloneCommandView struct {
	compositeView *view.CompositeView
	stdout        io.Writer
}

func NewCloneCommandView(vm *CloneViewModel, errorViewModel *view.ErrorViewModel, out io.Writer, elapsed view.View) *CloneCommandView {
	compositeView := view.NewCompositeView(NewCloneView(vm, out))
	compositeView.AddView(view.NewErrorView(errorViewModel, out))
	if elapsed == nil {
		elapsed = view.NewTimeElapsedView(time.Now(), out, time.Since)
	}
	compositeView.AddView(elapsed)

	return &CloneCommandView{
		compositeView: compositeView,
		stdout:        out,
	}
}

func (c CloneCommandView) Render(width int) (lines int) {
	return c.compositeView.Render(width)
}

// RenderNonTTY renders the counters once, for output that is not a terminal.
func (c CloneCommandView) RenderNonTTY(width int) int {
	if _, err := fmt.Fprintln(c.stdout, "Transfers done"); err != nil {
		return 0
	}
	return 1 + c.Render(width)
}
