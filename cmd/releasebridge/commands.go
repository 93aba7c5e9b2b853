package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/drewfead/releasebridge/internal/cli"
	"github.com/drewfead/releasebridge/internal/config"
	"github.com/drewfead/releasebridge/internal/github"
	"github.com/drewfead/releasebridge/internal/gitlog"
	"github.com/drewfead/releasebridge/internal/logging"
	"github.com/drewfead/releasebridge/internal/prlookup"
	"github.com/drewfead/releasebridge/internal/release"
	"github.com/drewfead/releasebridge/internal/ticket"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "releasebridge",
		Short: "Record a deployment on the monday.com tasks behind a commit range",
		Long: `releasebridge finds the GitHub pull requests for every commit in a range,
collects the task ids they reference ("Ticket number: <id>") and writes the
deployment to each task on monday.com: a column set to <environment><version>
and an update with the version, environment and description.

Examples:
  releasebridge --commit-range v1.4.0..v1.5.0 --version 1.5.0 \
      --environment prod --description "Spring release" --monday-column deploy_col
  releasebridge --commit-range HEAD~20..HEAD ... --dry-run`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd)
			if err != nil {
				return err
			}
			return runRelease(cmd.Context(), cfg)
		},
	}

	fl := cmd.Flags()
	fl.String("config", "", "path to config file (default $RELEASEBRIDGE_CONFIG or ~/.config/releasebridge/config.yaml)")
	fl.String("commit-range", "", "git revision range, e.g. v1.0.0..v1.1.0")
	fl.String("version", "", "version being deployed")
	fl.String("environment", "", "environment deployed to")
	fl.String("description", "", "free-text deployment description")
	fl.String("monday-column", "", "monday.com column id to set")
	fl.String("monday-api-token", "", "monday.com API token (default $MONDAY_API_TOKEN)")
	fl.String("github-token", "", "GitHub token (default $GITHUB_TOKEN)")
	fl.String("repo", "", "GitHub repository owner/name (default $GITHUB_REPOSITORY or origin remote)")
	fl.String("repo-path", "", "path to the git checkout (default .)")
	fl.String("log-level", "", "debug, info, warn or error")
	fl.Bool("dry-run", false, "resolve tasks and print the planned updates without writing them")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the releasebridge version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}

// buildConfig layers the config file, then explicitly set flags, then the
// environment for anything still empty.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	fl := cmd.Flags()
	path, _ := fl.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	set := func(name string, dst *string) {
		if fl.Changed(name) {
			*dst, _ = fl.GetString(name)
		}
	}
	set("commit-range", &cfg.Release.CommitRange)
	set("version", &cfg.Release.Version)
	set("environment", &cfg.Release.Environment)
	set("description", &cfg.Release.Description)
	set("repo-path", &cfg.Release.RepoPath)
	set("monday-column", &cfg.Monday.ColumnID)
	set("monday-api-token", &cfg.Monday.APIToken)
	set("github-token", &cfg.GitHub.Token)
	set("repo", &cfg.GitHub.Repository)
	set("log-level", &cfg.Logging.Level)
	if fl.Changed("dry-run") {
		cfg.Release.DryRun, _ = fl.GetBool("dry-run")
	}

	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runRelease(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logCfg := logging.Config{
		Level:     logging.ParseLevel(cfg.Logging.Level),
		SentryDSN: cfg.Logging.SentryDSN,
		Env:       getEnv(cfg),
		Version:   Version,
		LogFile:   cfg.Logging.File,
	}
	if os.Getenv("GITHUB_ACTIONS") == "true" {
		logCfg.Annotations = os.Stdout
	}
	if err := logging.Init(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	defer logging.Flush(2 * time.Second)

	runID := uuid.NewString()
	logging.SetRunID(runID)

	gh, err := newGitHubClient(ctx, cfg)
	if err != nil {
		logging.CaptureError(err, "stage", "github")
		return err
	}
	logging.Info("starting releasebridge",
		"version", Version,
		"repository", gh.Repository(),
		"dry_run", cfg.Release.DryRun,
		"sentry", cfg.Logging.SentryDSN != "")

	deps := release.Deps{
		Commits:      gitlog.Lister{RepoPath: cfg.Release.RepoPath},
		PullRequests: prlookup.NewResolver(gh, cfg.GitHub.FallbackMaxPages),
		Tracker:      ticket.NewMondayClient(cfg.Monday.APIURL, cfg.Monday.APIToken, cfg.Monday.APIVersion),
		RunID:        runID,
	}

	report, err := release.Run(ctx, cfg, deps)
	if report != nil {
		cli.Print(os.Stdout, report)
	}
	if err != nil {
		logging.CaptureError(err, "range", cfg.Release.CommitRange)
		return err
	}
	return nil
}

func newGitHubClient(ctx context.Context, cfg *config.Config) (*github.Client, error) {
	var (
		owner, repo string
		err         error
	)
	if cfg.GitHub.Repository != "" {
		owner, repo, err = github.ParseRepository(cfg.GitHub.Repository)
	} else {
		owner, repo, err = github.RepositoryFromGit(ctx, cfg.Release.RepoPath)
	}
	if err != nil {
		return nil, fmt.Errorf("determine GitHub repository: %w", err)
	}

	var tokens github.TokenSource = github.StaticToken(cfg.GitHub.Token)
	if app := github.NewAppClient(cfg.GitHub.App, cfg.GitHub.APIURL); app != nil {
		logging.Info("authenticating as GitHub App", "identity", app.String())
		tokens = app
	}

	return github.NewClient(cfg.GitHub.APIURL, owner, repo, tokens), nil
}

func getEnv(cfg *config.Config) string {
	if env := os.Getenv("RELEASEBRIDGE_ENV"); env != "" {
		return env
	}
	if os.Getenv("GITHUB_ACTIONS") == "true" {
		return "ci"
	}
	return cfg.Logging.Env
}
