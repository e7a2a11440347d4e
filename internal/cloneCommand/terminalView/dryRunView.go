package terminalView

import (
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"

	"glclone/internal/color"
	"glclone/internal/gitrepo"
)

// DryRunView lists where every project would be mirrored to, and the
// projects that could not be planned.
type DryRunView struct {
	outcomes []gitrepo.Outcome
	stdout   io.Writer
}

func NewDryRunView(outcomes []gitrepo.Outcome, stdout io.Writer) *DryRunView {
	return &DryRunView{outcomes: outcomes, stdout: stdout}
}

func (v DryRunView) Render(int) int {
	sorted := sortedByProject(v.outcomes)
	failed := func(o gitrepo.Outcome, _ int) bool { return o.Kind == gitrepo.Failed }
	planned := lo.Reject(sorted, failed)
	rejected := lo.Filter(sorted, failed)

	var out strings.Builder
	out.WriteString(fmt.Sprintf("Dry run: %s projects would be transferred\n", color.FgMagenta(fmt.Sprintf("%d", len(planned)))))
	for _, o := range planned {
		out.WriteString(fmt.Sprintf("  %s -> %s\n", color.FgMagenta(o.Project), color.FgCyan(o.Destination)))
	}
	for _, o := range rejected {
		out.WriteString(fmt.Sprintf("  %s: %s\n", color.FgRed(o.Project), o.Detail()))
	}

	text := out.String()
	if _, err := fmt.Fprint(v.stdout, text); err != nil {
		return 0
	}
	return strings.Count(text, "\n")
}
