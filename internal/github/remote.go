package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/drewfead/releasebridge/internal/executil"
)

// ParseRepository splits an "owner/name" slug.
func ParseRepository(slug string) (owner, repo string, err error) {
	parts := strings.Split(strings.TrimSpace(slug), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q: expected owner/name", slug)
	}
	return parts[0], parts[1], nil
}

// ParseRepoFromRemote extracts owner/repo from a git remote URL.
// Supports both HTTPS and SSH formats.
func ParseRepoFromRemote(remoteURL string) (owner, repo string, err error) {
	remoteURL = strings.TrimSpace(remoteURL)

	var path string
	switch {
	case strings.HasPrefix(remoteURL, "git@github.com:"):
		path = strings.TrimPrefix(remoteURL, "git@github.com:")
	case strings.HasPrefix(remoteURL, "ssh://git@github.com/"):
		path = strings.TrimPrefix(remoteURL, "ssh://git@github.com/")
	case strings.HasPrefix(remoteURL, "https://github.com/"):
		path = strings.TrimPrefix(remoteURL, "https://github.com/")
	default:
		return "", "", fmt.Errorf("unsupported remote URL format: %s", remoteURL)
	}

	owner, repo, err = ParseRepository(strings.TrimSuffix(path, ".git"))
	if err != nil {
		return "", "", fmt.Errorf("invalid remote URL: %s", remoteURL)
	}
	return owner, repo, nil
}

// RepositoryFromGit reads the origin remote of the repository at repoPath.
func RepositoryFromGit(ctx context.Context, repoPath string) (owner, repo string, err error) {
	res, err := executil.Run(ctx, repoPath, "git", "remote", "get-url", "origin")
	if err != nil {
		return "", "", fmt.Errorf("read origin remote: %w", err)
	}
	return ParseRepoFromRemote(string(res.Stdout))
}
