// Package prlookup maps commits to the pull requests that introduced them.
package prlookup

import (
	"context"
	"fmt"
	"strings"

	"github.com/drewfead/releasebridge/internal/github"
	"github.com/drewfead/releasebridge/internal/logging"
)

// Source is the subset of the GitHub client the resolver needs.
type Source interface {
	ListPullRequestsAssociatedWithCommit(ctx context.Context, sha string) ([]github.PullRequest, error)
	GetPullRequest(ctx context.Context, number int) (*github.PullRequest, error)
	ListPullRequests(ctx context.Context, opts github.ListOptions) ([]github.PullRequest, error)
}

const (
	fallbackPageSize = 100
	minAbbrevLen     = 7
)

// Resolver finds pull requests for commits, deduplicated by PR number.
type Resolver struct {
	source   Source
	maxPages int

	// Full listing fetched by the fallback, reused for later commits in the same run.
	listing []github.PullRequest
}

// NewResolver creates a resolver. maxPages bounds the fallback listing (values < 1 mean one page).
func NewResolver(source Source, maxPages int) *Resolver {
	if maxPages < 1 {
		maxPages = 1
	}
	return &Resolver{source: source, maxPages: maxPages}
}

// Resolve returns the pull requests associated with commits in first-discovery order.
// Per-commit failures are reported but do not stop processing.
func (r *Resolver) Resolve(ctx context.Context, commits []string) ([]github.PullRequest, []error) {
	found := newOrderedSet()
	var errs []error

	for _, sha := range commits {
		logging.Info("looking for PRs associated with commit", "commit", sha)

		err := r.resolveAssociated(ctx, sha, found)
		if err == nil {
			continue
		}

		logging.Warn("associated PR lookup failed, trying fallback", "commit", sha, "error", err)
		if ferr := r.resolveFallback(ctx, sha, found); ferr != nil {
			logging.Warn("fallback PR lookup also failed", "commit", sha, "error", ferr)
			errs = append(errs, fmt.Errorf("commit %s: %w", sha, ferr))
		}
	}

	return found.list(), errs
}

func (r *Resolver) resolveAssociated(ctx context.Context, sha string, found *orderedSet) error {
	associated, err := r.source.ListPullRequestsAssociatedWithCommit(ctx, sha)
	if err != nil {
		return err
	}
	logging.Info("found PRs for commit", "commit", sha, "count", len(associated))

	for _, pr := range associated {
		if err := r.addDetail(ctx, pr.Number, found, "associated"); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) resolveFallback(ctx context.Context, sha string, found *orderedSet) error {
	prs, err := r.fullListing(ctx)
	if err != nil {
		return err
	}

	for _, pr := range prs {
		if !matchesCommit(sha, pr.Head.SHA) && !matchesCommit(sha, pr.MergeSHA()) {
			continue
		}
		if err := r.addDetail(ctx, pr.Number, found, "fallback"); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) addDetail(ctx context.Context, number int, found *orderedSet, via string) error {
	if found.has(number) {
		return nil
	}
	full, err := r.source.GetPullRequest(ctx, number)
	if err != nil {
		return fmt.Errorf("get PR #%d: %w", number, err)
	}
	if found.add(*full) {
		logging.Info("added PR", "number", full.Number, "title", full.Title, "via", via)
	}
	return nil
}

// fullListing pages through all pull requests, newest update first.
func (r *Resolver) fullListing(ctx context.Context) ([]github.PullRequest, error) {
	if r.listing != nil {
		return r.listing, nil
	}

	var all []github.PullRequest
	for page := 1; page <= r.maxPages; page++ {
		prs, err := r.source.ListPullRequests(ctx, github.ListOptions{
			State:     "all",
			Sort:      "updated",
			Direction: "desc",
			PerPage:   fallbackPageSize,
			Page:      page,
		})
		if err != nil {
			return nil, fmt.Errorf("list pull requests page %d: %w", page, err)
		}
		all = append(all, prs...)
		if len(prs) < fallbackPageSize {
			break
		}
	}

	if all == nil {
		all = []github.PullRequest{}
	}
	r.listing = all
	return all, nil
}

// matchesCommit reports whether a (possibly abbreviated) commit id names fullSHA.
func matchesCommit(commit, fullSHA string) bool {
	if commit == "" || fullSHA == "" {
		return false
	}
	if commit == fullSHA {
		return true
	}
	return len(commit) >= minAbbrevLen && strings.HasPrefix(fullSHA, commit)
}

// orderedSet keeps pull requests keyed by number in insertion order.
type orderedSet struct {
	seen  map[int]struct{}
	items []github.PullRequest
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[int]struct{})}
}

func (s *orderedSet) has(number int) bool {
	_, ok := s.seen[number]
	return ok
}

// add returns false when the PR number was already present.
func (s *orderedSet) add(pr github.PullRequest) bool {
	if _, ok := s.seen[pr.Number]; ok {
		return false
	}
	s.seen[pr.Number] = struct{}{}
	s.items = append(s.items, pr)
	return true
}

func (s *orderedSet) list() []github.PullRequest {
	return s.items
}
