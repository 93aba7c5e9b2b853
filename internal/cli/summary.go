package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/drewfead/releasebridge/internal/release"
)

var boxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#7aa2f7")).
	Padding(0, 1)

// StatusMarker returns the colored glyph for a task status.
func StatusMarker(s release.Status) string {
	ColorsEnabled()
	switch s {
	case release.StatusSuccess:
		return green.Sprint(CheckMark)
	case release.StatusSkipped:
		return yellow.Sprint(Circle)
	default:
		return red.Sprint(Cross)
	}
}

// Summary renders the boxed run header followed by one line per task.
func Summary(r *release.Report) string {
	ColorsEnabled()

	var head strings.Builder
	fmt.Fprintf(&head, "releasebridge %s\n", gray.Sprint(r.RunID))
	fmt.Fprintf(&head, "Range:   %s\n", r.CommitRange)
	fmt.Fprintf(&head, "Commits: %d   PRs: %d", len(r.Commits), len(r.PullRequests))
	if n := len(r.PRErrors); n > 0 {
		fmt.Fprintf(&head, "   %s", yellow.Sprintf("(%d commits unresolved)", n))
	}
	if r.Board != nil {
		fmt.Fprintf(&head, "\nBoard:   %s (%s)", r.Board.Name, r.Board.ID)
	}

	switch {
	case r.NoTasks:
		fmt.Fprintf(&head, "\nTasks:   %s", yellow.Sprint("none found"))
	case r.DryRun:
		fmt.Fprintf(&head, "\nTasks:   %d %s", len(r.TaskIDs), cyan.Sprint("(dry run)"))
	default:
		ok, skipped, failed := r.Counts()
		fmt.Fprintf(&head, "\nTasks:   %s updated, %s skipped, %s failed",
			green.Sprint(ok), yellow.Sprint(skipped), red.Sprint(failed))
	}

	var b strings.Builder
	b.WriteString(boxStyle.Render(head.String()))
	b.WriteString("\n")

	for i, res := range r.Results {
		branch := TreeBranch
		if i == len(r.Results)-1 {
			branch = TreeLastBranch
		}
		fmt.Fprintf(&b, "%s %s %s", gray.Sprint(branch), StatusMarker(res.Status), res.TaskID)
		switch {
		case res.Status == release.StatusSkipped:
			fmt.Fprintf(&b, " %s", gray.Sprintf("skipped (%s)", res.Reason))
		case res.ItemID != "":
			fmt.Fprintf(&b, " %s item %s", Arrow, res.ItemID)
		}
		if err := firstErr(res); err != nil && res.Status == release.StatusFailed {
			fmt.Fprintf(&b, " %s", red.Sprint(err.Error()))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func firstErr(res release.TaskResult) error {
	for _, err := range []error{res.LookupErr, res.ColumnErr, res.CommentErr} {
		if err != nil {
			return err
		}
	}
	return nil
}

// PlanMarkdown describes a dry run as markdown.
func PlanMarkdown(r *release.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Dry run: %s\n\n", r.CommitRange)
	if len(r.Plan) == 0 {
		b.WriteString("No task updates planned.\n")
		return b.String()
	}

	b.WriteString("| Task | Column | Value |\n|---|---|---|\n")
	for _, p := range r.Plan {
		fmt.Fprintf(&b, "| %s | %s | `%s` |\n", p.TaskID, p.ColumnID, p.ColumnValue)
	}

	b.WriteString("\n## Comment\n\n```\n")
	b.WriteString(r.Plan[0].Comment)
	b.WriteString("\n```\n")
	return b.String()
}

// renderMarkdown renders markdown using glamour, falling back to the raw text.
func renderMarkdown(content string, width int) string {
	if width < 40 {
		width = 40
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}

	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return out
}

// Print writes the run summary, plus the rendered plan for dry runs.
// Markdown is only styled when w is a terminal.
func Print(w io.Writer, r *release.Report) {
	fmt.Fprint(w, Summary(r))

	if !r.DryRun || r.NoTasks {
		return
	}

	md := PlanMarkdown(r)
	if f, ok := w.(interface{ Fd() uintptr }); ok && term.IsTerminal(int(f.Fd())) && ColorsEnabled() {
		width, _, err := term.GetSize(int(f.Fd()))
		if err != nil {
			width = 80
		}
		md = renderMarkdown(md, width-4)
	}
	fmt.Fprint(w, md)
}
