package terminalView

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	fcolor "github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"glclone/internal/color"
	"glclone/internal/gitrepo"
	"glclone/internal/view"
)

func TestMain(m *testing.M) {
	fcolor.NoColor = true
	os.Exit(m.Run())
}

type fakeView struct {
	output string
	stdout io.Writer
}

func (m *fakeView) Render(int) int {
	_, _ = fmt.Fprint(m.stdout, m.output)
	return strings.Count(m.output, "\n")
}

func addSomeFakeCounts(vm *CloneViewModel) {
	vm.ListedCount.Add(20)
	vm.FilteredOutCount.Add(5)
	vm.InFlight.Inc()
	vm.TransferredCount.Add(10)
	vm.SkippedCount.Add(3)
	vm.FailedCount.Add(1)
}

func TestCloneView_Render(t *testing.T) {
	vm := NewCloneViewModel("https://gitlab.example.com", "/srv/mirror")
	addSomeFakeCounts(vm)

	var buf bytes.Buffer
	lines := NewCloneView(vm, &buf).Render(80)

	expected := fmt.Sprintf("%s\n  <- %s\n    %s projects listed, %s filtered out\n    %s in flight, %s transferred, %s skipped, %s failed\n",
		color.FgCyan(view.TruncateTextToWidth(80, "/srv/mirror")),
		color.FgCyan(view.TrimTextToWidth(74, "https://gitlab.example.com")),
		color.FgMagenta("20"),
		color.FgMagenta("5"),
		color.FgMagenta("1"),
		color.FgMagenta("10"),
		color.FgMagenta("3"),
		color.FgRed("1"))
	assert.Equal(t, expected, buf.String())
	assert.Equal(t, 4, lines)
}

func TestCloneView_TransferCountersShareModel(t *testing.T) {
	vm := NewCloneViewModel("", "")
	counters := vm.TransferCounters()
	counters.Transferred.Inc()
	counters.InFlight.Inc()

	assert.Equal(t, 1, vm.TransferredCount.Count())
	assert.Equal(t, 1, vm.InFlight.Value())
}

func TestCloneCommandView_RenderNonTTY(t *testing.T) {
	vm := NewCloneViewModel("https://gitlab.example.com", "/srv/mirror")
	addSomeFakeCounts(vm)
	errorVM := view.NewErrorViewModel(vm.FailedCount, "")
	errorVM.Report(errors.New("push team/a: permission denied"))

	var buf bytes.Buffer
	commandView := NewCloneCommandView(vm, errorVM, &buf, &fakeView{output: "5.00 seconds\n", stdout: &buf})
	lines := commandView.RenderNonTTY(80)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Transfers done\n"))
	assert.Contains(t, out, "permission denied")
	assert.True(t, strings.HasSuffix(out, "5.00 seconds\n"))
	assert.Equal(t, strings.Count(out, "\n"), lines)
}

func TestSummaryView_Render(t *testing.T) {
	outcomes := []gitrepo.Outcome{
		{Project: "team/b", Destination: "/out/team/b", Kind: gitrepo.Failed, Stage: gitrepo.StagePush, Err: errors.New("denied")},
		{Project: "team/a", Destination: "/out/team/a", Kind: gitrepo.Transferred, Stage: gitrepo.StageDone},
		{Project: "team/c", Destination: "/out/team/c", Kind: gitrepo.Skipped, Reason: gitrepo.ReasonArchived},
	}

	var buf bytes.Buffer
	lines := NewSummaryView(outcomes, &buf).Render(80)

	out := buf.String()
	assert.Contains(t, out, "push: denied")
	assert.Contains(t, out, "archived")
	assert.Less(t, strings.Index(out, "team/a"), strings.Index(out, "team/b"))
	assert.Less(t, strings.Index(out, "team/b"), strings.Index(out, "team/c"))
	assert.True(t, strings.HasSuffix(out, "3 attempted, 1 transferred, 1 skipped, 1 failed\n"))
	assert.Equal(t, strings.Count(out, "\n"), lines)
}

func TestSummaryView_RenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	lines := NewSummaryView(nil, &buf).Render(80)

	assert.Equal(t, "0 attempted, 0 transferred, 0 skipped, 0 failed\n", buf.String())
	assert.Equal(t, 1, lines)
}

func TestDryRunView_Render(t *testing.T) {
	outcomes := []gitrepo.Outcome{
		{Project: "team/b", Destination: "/out/team/b", Kind: gitrepo.Skipped, Reason: gitrepo.ReasonDryRun},
		{Project: "other/b", Kind: gitrepo.Failed, Stage: gitrepo.StageResolve, Err: errors.New("name collision")},
		{Project: "team/a", Destination: "/out/team/a", Kind: gitrepo.Skipped, Reason: gitrepo.ReasonDryRun},
	}

	var buf bytes.Buffer
	lines := NewDryRunView(outcomes, &buf).Render(80)

	expected := "Dry run: 2 projects would be transferred\n" +
		"  team/a -> /out/team/a\n" +
		"  team/b -> /out/team/b\n" +
		"  other/b: resolve: name collision\n"
	assert.Equal(t, expected, buf.String())
	assert.Equal(t, 4, lines)
}
