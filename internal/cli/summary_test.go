package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/drewfead/releasebridge/internal/release"
	"github.com/drewfead/releasebridge/internal/ticket"
)

func TestSummary(t *testing.T) {
	ForceColors(false)

	report := &release.Report{
		RunID:       "run-42",
		CommitRange: "v1..v2",
		Commits:     []string{"aaaaaaa", "bbbbbbb"},
		TaskIDs:     []string{"100", "404", "200"},
		Board:       &ticket.Board{ID: "900", Name: "Sprint"},
		Results: []release.TaskResult{
			{TaskID: "100", ItemID: "555", Status: release.StatusSuccess},
			{TaskID: "404", Status: release.StatusSkipped, Reason: "not found"},
			{TaskID: "200", ItemID: "666", Status: release.StatusFailed, ColumnErr: errors.New("bad column")},
		},
	}

	out := Summary(report)

	for _, want := range []string{
		"run-42",
		"Range:   v1..v2",
		"Board:   Sprint (900)",
		"1 updated, 1 skipped, 1 failed",
		CheckMark + " 100 " + Arrow + " item 555",
		Circle + " 404 skipped (not found)",
		Cross + " 200 " + Arrow + " item 666 bad column",
		TreeLastBranch,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected summary to contain %q, got:\n%s", want, out)
		}
	}
}

func TestSummaryNoTasks(t *testing.T) {
	ForceColors(false)

	out := Summary(&release.Report{RunID: "run-1", CommitRange: "v1..v2", NoTasks: true})
	if !strings.Contains(out, "none found") {
		t.Errorf("expected no-tasks notice, got:\n%s", out)
	}
}

func TestPrintDryRun(t *testing.T) {
	ForceColors(false)

	report := &release.Report{
		RunID:       "run-7",
		CommitRange: "v1..v2",
		TaskIDs:     []string{"100"},
		DryRun:      true,
		Plan: []release.PlannedUpdate{{
			TaskID:      "100",
			ColumnID:    "deploy_col",
			ColumnValue: "prod1.2.3",
			Comment:     release.CommentBody("1.2.3", "prod", "Spring"),
		}},
	}

	var buf bytes.Buffer
	Print(&buf, report)
	out := buf.String()

	if !strings.Contains(out, "(dry run)") {
		t.Errorf("expected dry run marker, got:\n%s", out)
	}
	// Non-terminal writers get raw markdown.
	if !strings.Contains(out, "| 100 | deploy_col | `prod1.2.3` |") {
		t.Errorf("expected plan table row, got:\n%s", out)
	}
	if !strings.Contains(out, "Version: 1.2.3\nEnvironment: prod\nDescription: Spring") {
		t.Errorf("expected comment preview, got:\n%s", out)
	}
}

func TestRenderMarkdownFallsBackGracefully(t *testing.T) {
	out := renderMarkdown("# Dry run\n\nvalue `prod1.2.3`\n", 10)
	if !strings.Contains(out, "prod1.2.3") {
		t.Errorf("expected rendered output to keep content, got %q", out)
	}
}
