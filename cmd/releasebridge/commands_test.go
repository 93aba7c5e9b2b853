package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/drewfead/releasebridge/internal/config"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("RELEASEBRIDGE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	for _, key := range []string{"GITHUB_TOKEN", "GITHUB_REPOSITORY", "GITHUB_API_URL", "MONDAY_API_TOKEN"} {
		t.Setenv(key, "")
	}
}

func TestBuildConfig(t *testing.T) {
	t.Run("FlagsAndEnvironment", func(t *testing.T) {
		isolateEnv(t)
		t.Setenv("MONDAY_API_TOKEN", "monday-env")
		t.Setenv("GITHUB_TOKEN", "gh-env")

		cmd := newRootCmd()
		err := cmd.ParseFlags([]string{
			"--commit-range", "v1..v2",
			"--version", "1.2.3",
			"--environment", "prod",
			"--description", "Spring",
			"--monday-column", "deploy_col",
			"--github-token", "gh-flag",
			"--dry-run",
		})
		if err != nil {
			t.Fatalf("ParseFlags failed: %v", err)
		}

		cfg, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("buildConfig failed: %v", err)
		}
		if cfg.Release.CommitRange != "v1..v2" {
			t.Errorf("expected commit range v1..v2, got %q", cfg.Release.CommitRange)
		}
		if cfg.Monday.APIToken != "monday-env" {
			t.Errorf("expected monday token from env, got %q", cfg.Monday.APIToken)
		}
		if cfg.GitHub.Token != "gh-flag" {
			t.Errorf("expected flag token to win over env, got %q", cfg.GitHub.Token)
		}
		if !cfg.Release.DryRun {
			t.Error("expected dry run to be set")
		}
		if cfg.Release.RepoPath != "." {
			t.Errorf("expected default repo path, got %q", cfg.Release.RepoPath)
		}
	})

	t.Run("MissingInputs", func(t *testing.T) {
		isolateEnv(t)

		cmd := newRootCmd()
		if err := cmd.ParseFlags([]string{"--version", "1.2.3"}); err != nil {
			t.Fatalf("ParseFlags failed: %v", err)
		}

		_, err := buildConfig(cmd)
		var missing *config.MissingInputError
		if !errors.As(err, &missing) {
			t.Fatalf("expected MissingInputError, got %v", err)
		}
		if !strings.Contains(err.Error(), "commit_range") {
			t.Errorf("expected commit_range to be reported, got %v", err)
		}
	})

	t.Run("ConfigFile", func(t *testing.T) {
		isolateEnv(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
github:
  token: gh-file
monday:
  api_token: monday-file
  column_id: deploy_col
release:
  commit_range: v1..v2
  version: 1.2.3
  environment: staging
  description: from file
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		cmd := newRootCmd()
		if err := cmd.ParseFlags([]string{"--config", path, "--environment", "prod"}); err != nil {
			t.Fatalf("ParseFlags failed: %v", err)
		}

		cfg, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("buildConfig failed: %v", err)
		}
		if cfg.Release.Environment != "prod" {
			t.Errorf("expected flag to override file, got %q", cfg.Release.Environment)
		}
		if cfg.Release.Description != "from file" {
			t.Errorf("expected description from file, got %q", cfg.Release.Description)
		}
	})
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if strings.TrimSpace(out.String()) != Version {
		t.Errorf("expected %q, got %q", Version, out.String())
	}
}

func TestExitCodes(t *testing.T) {
	t.Run("MissingInput", func(t *testing.T) {
		isolateEnv(t)
		if code := run([]string{"--version", "1.2.3"}); code != 1 {
			t.Errorf("expected exit code 1, got %d", code)
		}
	})

	t.Run("UnknownFlag", func(t *testing.T) {
		isolateEnv(t)
		if code := run([]string{"--no-such-flag"}); code != 1 {
			t.Errorf("expected exit code 1, got %d", code)
		}
	})

	t.Run("Version", func(t *testing.T) {
		if code := run([]string{"version"}); code != 0 {
			t.Errorf("expected exit code 0, got %d", code)
		}
	})

	t.Run("Panic", func(t *testing.T) {
		cmd := &cobra.Command{
			Use: "releasebridge",
			RunE: func(cmd *cobra.Command, args []string) error {
				panic("tracker client not configured")
			},
		}
		if code := execute(cmd, []string{}); code != 2 {
			t.Errorf("expected exit code 2, got %d", code)
		}
	})
}
