package terminalView

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"glclone/internal/color"
	"glclone/internal/gitrepo"
)

// SummaryView prints one table row per project, followed by the totals.
type SummaryView struct {
	outcomes []gitrepo.Outcome
	stdout   io.Writer
}

func NewSummaryView(outcomes []gitrepo.Outcome, stdout io.Writer) *SummaryView {
	return &SummaryView{outcomes: outcomes, stdout: stdout}
}

func kindLabel(kind gitrepo.OutcomeKind) string {
	switch kind {
	case gitrepo.Failed:
		return color.FgRed(kind.String())
	case gitrepo.Skipped:
		return color.FgYellow(kind.String())
	default:
		return color.FgGreen(kind.String())
	}
}

func sortedByProject(outcomes []gitrepo.Outcome) []gitrepo.Outcome {
	sorted := slices.Clone(outcomes)
	slices.SortStableFunc(sorted, func(a, b gitrepo.Outcome) int {
		return strings.Compare(a.Project, b.Project)
	})
	return sorted
}

func totals(outcomes []gitrepo.Outcome) string {
	ofKind := func(kind gitrepo.OutcomeKind) string {
		return fmt.Sprintf("%d", lo.CountBy(outcomes, func(o gitrepo.Outcome) bool { return o.Kind == kind }))
	}
	return fmt.Sprintf("%s attempted, %s transferred, %s skipped, %s failed\n",
		color.FgMagenta(fmt.Sprintf("%d", len(outcomes))),
		color.FgMagenta(ofKind(gitrepo.Transferred)),
		color.FgMagenta(ofKind(gitrepo.Skipped)),
		color.FgRed(ofKind(gitrepo.Failed)))
}

func (v SummaryView) Render(int) int {
	var buf bytes.Buffer
	if len(v.outcomes) > 0 {
		table := tablewriter.NewWriter(&buf)
		table.SetHeader([]string{"Project", "Outcome", "Destination", "Detail"})
		table.SetAutoWrapText(false)
		table.SetBorder(false)
		for _, o := range sortedByProject(v.outcomes) {
			table.Append([]string{o.Project, kindLabel(o.Kind), o.Destination, o.Detail()})
		}
		table.Render()
	}
	buf.WriteString(totals(v.outcomes))

	if _, err := v.stdout.Write(buf.Bytes()); err != nil {
		return 0
	}
	return strings.Count(buf.String(), "\n")
}
