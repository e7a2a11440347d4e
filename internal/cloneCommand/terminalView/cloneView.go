package terminalView

import (
	"fmt"
	"io"
	"strings"

	"glclone/internal/color"
	"glclone/internal/counter"
	"glclone/internal/ext"
	"glclone/internal/gitrepo"
	"glclone/internal/view"
)

type CloneViewModel struct {
	SourceHost string
	Target     string

	ListedCount      *counter.Counter
	FilteredOutCount *counter.Counter
	InFlight         *counter.Gauge
	TransferredCount *counter.Counter
	SkippedCount     *counter.Counter
	FailedCount      *counter.Counter
}

func NewCloneViewModel(sourceHost, target string) *CloneViewModel {
	return &CloneViewModel{
		SourceHost:       sourceHost,
		Target:           target,
		ListedCount:      counter.NewCounter(),
		FilteredOutCount: counter.NewCounter(),
		InFlight:         counter.NewGauge(),
		TransferredCount: counter.NewCounter(),
		SkippedCount:     counter.NewCounter(),
		FailedCount:      counter.NewCounter(),
	}
}

func (vm *CloneViewModel) TransferCounters() gitrepo.TransferCounters {
	return gitrepo.TransferCounters{
		InFlight:    vm.InFlight,
		Transferred: vm.TransferredCount,
		Skipped:     vm.SkippedCount,
		Failed:      vm.FailedCount,
	}
}

// CloneView renders the live counters of a run
type CloneView struct {
	viewModel *CloneViewModel
	stdout    io.Writer
}

func NewCloneView(vm *CloneViewModel, stdout io.Writer) *CloneView {
	return &CloneView{viewModel: vm, stdout: stdout}
}

func count(c interface{ Count() int }) string {
	return color.FgMagenta(fmt.Sprintf("%d", c.Count()))
}

func (r *CloneView) Render(width int) (lines int) {
	vm := r.viewModel
	out := fmt.Sprintf(
		"%s\n  <- %s\n    %s projects listed, %s filtered out\n    %s in flight, %s transferred, %s skipped, %s failed\n",
		color.FgCyan(view.TruncateTextToWidth(width, ext.ReplaceHomeDirWithTilde(vm.Target))),
		color.FgCyan(view.TrimTextToWidth(max(width-6, 1), vm.SourceHost)),
		count(vm.ListedCount),
		count(vm.FilteredOutCount),
		color.FgMagenta(fmt.Sprintf("%d", vm.InFlight.Value())),
		count(vm.TransferredCount),
		count(vm.SkippedCount),
		color.FgRed(fmt.Sprintf("%d", vm.FailedCount.Count())),
	)
	_, err := fmt.Fprint(r.stdout, out)
	if err != nil {
		return 0
	}
	return strings.Count(out, "\n")
}
