package view

import (
	"fmt"
)

// View writes itself to its output and returns the number of lines written.
type View interface {
	Render(width int) (lines int)
}

type CompositeView struct {
	views []View
}

func NewCompositeView(views ...View) *CompositeView {
	return &CompositeView{views: views}
}

func (cv *CompositeView) AddView(v View) {
	cv.views = append(cv.views, v)
}

func (cv *CompositeView) Render(w int) int {
	totalLines := 0
	for _, view := range cv.views {
		totalLines += view.Render(w)
	}
	return totalLines
}

// ansiLineOffset moves the cursor up by lines, so the next render overwrites
// the previous one.
func ansiLineOffset(lines int) string {
	if lines <= 0 {
		return ""
	}
	return fmt.Sprintf("\033[%dA", lines)
}
