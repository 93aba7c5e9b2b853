// Package gitlog lists the commits contained in a revision range.
package gitlog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/drewfead/releasebridge/internal/executil"
)

// ErrOptionLikeRange is returned for ranges that git would parse as an option.
var ErrOptionLikeRange = errors.New("commit range must not start with '-'")

// RangeResolutionError reports that git could not resolve a commit range.
type RangeResolutionError struct {
	Range  string
	Stderr string
	Err    error
}

func (e *RangeResolutionError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("failed to get commits in range %q: %s", e.Range, e.Stderr)
	}
	return fmt.Sprintf("failed to get commits in range %q: %v", e.Range, e.Err)
}

func (e *RangeResolutionError) Unwrap() error {
	return e.Err
}

// Lister reads history from the repository at RepoPath.
type Lister struct {
	RepoPath string
}

// Commits returns the abbreviated ids of every commit in rangeExpr (e.g. "v1.0..v1.1").
// An empty range yields an empty slice.
func (l Lister) Commits(ctx context.Context, rangeExpr string) ([]string, error) {
	if strings.HasPrefix(rangeExpr, "-") {
		return nil, &RangeResolutionError{Range: rangeExpr, Err: ErrOptionLikeRange}
	}

	dir := l.RepoPath
	if dir == "" {
		dir = "."
	}

	res, err := executil.Run(ctx, dir, "git", "log", "--oneline", "--end-of-options", rangeExpr)
	if err != nil {
		return nil, &RangeResolutionError{Range: rangeExpr, Stderr: res.Stderr, Err: err}
	}
	return parseOneline(string(res.Stdout)), nil
}

// parseOneline takes the first whitespace-delimited token of each line.
func parseOneline(out string) []string {
	var ids []string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		ids = append(ids, fields[0])
	}
	return ids
}
