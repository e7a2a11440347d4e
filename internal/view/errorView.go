package view

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"glclone/internal/color"
	"glclone/internal/counter"
	"glclone/internal/ext"
)

type ErrorViewModel struct {
	ErrorCount  *counter.Counter
	logFilePath string

	mu          sync.Mutex
	latestError string
}

func NewErrorViewModel(errorCount *counter.Counter, logFilePath string) *ErrorViewModel {
	return &ErrorViewModel{
		ErrorCount:  errorCount,
		logFilePath: logFilePath,
	}
}

// Report remembers err as the latest error. It does not count it; the count
// is owned by whoever classifies outcomes.
func (vm *ErrorViewModel) Report(err error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.latestError = err.Error()
}

func (vm *ErrorViewModel) LatestError() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.latestError
}

type ErrorView struct {
	viewModel *ErrorViewModel
	stdout    io.Writer
}

func NewErrorView(vm *ErrorViewModel, stdout io.Writer) *ErrorView {
	return &ErrorView{
		viewModel: vm,
		stdout:    stdout,
	}
}

func (v ErrorView) Render(width int) int {
	count := v.viewModel.ErrorCount.Count()
	if count == 0 {
		return 0
	}

	var out strings.Builder
	out.WriteString(fmt.Sprintf("--- %s errors ---\n", color.FgRed(fmt.Sprintf("%d", count))))
	if latest := v.viewModel.LatestError(); latest != "" {
		out.WriteString(TrimTextToWidth(width, strings.ReplaceAll(latest, "\n", " ")) + "\n")
	}
	if v.viewModel.logFilePath != "" {
		out.WriteString(fmt.Sprintf("See log file:\n%s\n", color.FgMagenta(ext.ReplaceHomeDirWithTilde(v.viewModel.logFilePath))))
	}

	text := out.String()
	if _, err := fmt.Fprint(v.stdout, text); err != nil {
		return 0
	}
	return strings.Count(text, "\n")
}
