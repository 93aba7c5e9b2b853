package gitlog

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseOneline(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"Empty", "", nil},
		{"SingleLine", "a1b2c3d Fix login\n", []string{"a1b2c3d"}},
		{"MultipleLines", "a1b2c3d Fix login\ne4f5a6b Add metrics\n", []string{"a1b2c3d", "e4f5a6b"}},
		{"BlankLinesSkipped", "\n a1b2c3d Fix\n\n", []string{"a1b2c3d"}},
		{"SubjectlessCommit", "a1b2c3d\n", []string{"a1b2c3d"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := parseOneline(tc.input)
			if strings.Join(got, ",") != strings.Join(tc.want, ",") {
				t.Fatalf("parseOneline(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

// setupTestRepo builds a throwaway repository with three commits tagged v1 and v2.
func setupTestRepo(t *testing.T) string {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := t.TempDir()
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(dir))

	git := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v failed: %v\n%s", args, err, out)
		}
	}

	git("init", "-q")
	git("commit", "-q", "--allow-empty", "-m", "initial")
	git("tag", "v1")
	git("commit", "-q", "--allow-empty", "-m", "feature one")
	git("commit", "-q", "--allow-empty", "-m", "feature two")
	git("tag", "v2")

	return dir
}

func TestListerCommits(t *testing.T) {
	dir := setupTestRepo(t)
	lister := Lister{RepoPath: dir}
	ctx := context.Background()

	t.Run("Range", func(t *testing.T) {
		commits, err := lister.Commits(ctx, "v1..v2")
		if err != nil {
			t.Fatalf("Commits failed: %v", err)
		}
		if len(commits) != 2 {
			t.Fatalf("expected 2 commits, got %d: %v", len(commits), commits)
		}
		for _, c := range commits {
			if len(c) < 7 || strings.ContainsAny(c, " \t") {
				t.Errorf("expected abbreviated hash, got %q", c)
			}
		}
	})

	t.Run("EmptyRange", func(t *testing.T) {
		commits, err := lister.Commits(ctx, "v2..v2")
		if err != nil {
			t.Fatalf("Commits failed: %v", err)
		}
		if len(commits) != 0 {
			t.Errorf("expected no commits, got %v", commits)
		}
	})

	t.Run("UnknownRef", func(t *testing.T) {
		_, err := lister.Commits(ctx, "v1..does-not-exist")
		var rangeErr *RangeResolutionError
		if !errors.As(err, &rangeErr) {
			t.Fatalf("expected RangeResolutionError, got %v", err)
		}
		if rangeErr.Range != "v1..does-not-exist" {
			t.Errorf("expected range in error, got '%s'", rangeErr.Range)
		}
	})

	t.Run("OptionLikeRange", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "out.txt")
		rangeExpr := "--output=" + target

		_, err := lister.Commits(ctx, rangeExpr)
		var rangeErr *RangeResolutionError
		if !errors.As(err, &rangeErr) {
			t.Fatalf("expected RangeResolutionError, got %v", err)
		}
		if !errors.Is(err, ErrOptionLikeRange) {
			t.Errorf("expected ErrOptionLikeRange, got %v", err)
		}
		if _, statErr := os.Stat(target); !os.IsNotExist(statErr) {
			t.Errorf("expected %s not to be written, stat returned %v", target, statErr)
		}
	})
}
