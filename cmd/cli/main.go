package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kurihiro0119/github-sbom-licenses/internal/aggregator"
	"github.com/kurihiro0119/github-sbom-licenses/internal/collector"
	"github.com/kurihiro0119/github-sbom-licenses/internal/config"
	"github.com/kurihiro0119/github-sbom-licenses/internal/domain"
	"github.com/kurihiro0119/github-sbom-licenses/internal/exporter"
	"github.com/kurihiro0119/github-sbom-licenses/internal/storage"
	"github.com/kurihiro0119/github-sbom-licenses/internal/storage/csvfile"
	"github.com/kurihiro0119/github-sbom-licenses/pkg/client"
)

var (
	verbose    bool
	outputJSON bool
	remote     bool
	outputPath string
	threshold  int
	delay      time.Duration

	// loaded once per command by the root pre-run hook
	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sbom-licenses",
	Short: "GitHub organization dependency licensing report",
	Long: `A CLI tool that collects the dependency-graph SBOM of every active repository
in a GitHub organization and writes one CSV row per dependency and license.

GITHUB_TOKEN and GITHUB_ORG are read from the environment or a .env file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		appConfig = cfg
		return setupLogging(cfg.LogLevel)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the dependency licensing report of GITHUB_ORG",
	Long: `Enumerate all repositories of GITHUB_ORG that are not archived, disabled or templates,
fetch each dependency-graph SBOM and write {org}_repo_dependency_licensing.csv.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var summaryCmd = &cobra.Command{
	Use:   "summary [org]",
	Short: "Show license summary of an exported report",
	Long:  `Display license and repository totals of a report, read locally or from the report server.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSummary,
}

var copyleftCmd = &cobra.Command{
	Use:   "copyleft [org]",
	Short: "List copyleft-licensed dependencies of an exported report",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCopyleft,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")

	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "report path (default {org}_repo_dependency_licensing.csv)")
	exportCmd.Flags().IntVar(&threshold, "threshold", config.DefaultRateLimitThreshold, "minimum remaining API quota before waiting")
	exportCmd.Flags().DurationVar(&delay, "delay", config.DefaultRateLimitDelay, "wait between rate limit checks")

	for _, cmd := range []*cobra.Command{summaryCmd, copyleftCmd} {
		cmd.Flags().BoolVar(&remote, "remote", false, "read from the report server at API_ENDPOINT")
	}

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(copyleftCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func setupLogging(name string) error {
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", name, err)
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	return nil
}

// commandConfig returns the loaded configuration with the command flags applied
func commandConfig(cmd *cobra.Command) *config.Config {
	cfg := *appConfig

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.OutputPath = outputPath
	}
	if flags.Changed("threshold") {
		cfg.RateLimitThreshold = threshold
	}
	if flags.Changed("delay") {
		cfg.RateLimitDelay = delay
	}
	return &cfg
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := commandConfig(cmd)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	coll, err := collector.NewGitHubCollector(ctx, cfg.GitHubToken, collector.Options{
		BaseURL:            cfg.GitHubAPIURL,
		RateLimitThreshold: cfg.RateLimitThreshold,
		RateLimitDelay:     cfg.RateLimitDelay,
		Out:                out,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize collector: %w", err)
	}

	store := csvfile.NewCSVStorage(cfg.ReportPath(cfg.GitHubOrg))
	batch, err := exporter.NewExporter(coll, store, out).Run(ctx, cfg.GitHubOrg)
	if err != nil {
		return err
	}

	if outputJSON {
		return writeJSON(out, batch)
	}

	fmt.Fprintf(out, "\nExport complete: %s\n\n", batch.ReportPath)
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Run", batch.ID})
	table.Append([]string{"Repositories", fmt.Sprintf("%d", batch.Repositories)})
	table.Append([]string{"SBOMs Fetched", fmt.Sprintf("%d", batch.Succeeded)})
	table.Append([]string{"SBOMs Skipped", fmt.Sprintf("%d", len(batch.Failed))})
	table.Append([]string{"Dependencies", fmt.Sprintf("%d", batch.Packages)})
	table.Append([]string{"Copyleft", fmt.Sprintf("%d", batch.Copyleft)})
	table.Append([]string{"Duration", batch.Duration().Round(time.Second).String()})
	table.Render()

	return nil
}

// reportOrg returns the org argument, falling back to GITHUB_ORG
func reportOrg(cfg *config.Config, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if cfg.GitHubOrg == "" {
		return "", &config.ConfigError{Field: "GITHUB_ORG", Message: "pass an organization or set GITHUB_ORG"}
	}
	return cfg.GitHubOrg, nil
}

func localAggregator(cfg *config.Config) aggregator.Aggregator {
	return aggregator.NewAggregator(func(org string) storage.Storage {
		return csvfile.NewCSVStorage(cfg.ReportPath(org))
	})
}

func runSummary(cmd *cobra.Command, args []string) error {
	cfg := commandConfig(cmd)
	org, err := reportOrg(cfg, args)
	if err != nil {
		return err
	}

	var (
		summary  *domain.OrgSummary
		licenses []*domain.LicenseCount
		repos    []*domain.RepoSummary
	)

	if remote {
		api := client.NewClient(cfg.APIEndpoint)
		if summary, err = api.GetOrgSummary(org); err != nil {
			return fmt.Errorf("failed to get summary: %w", err)
		}
		if licenses, err = api.GetLicenseCounts(org); err != nil {
			return fmt.Errorf("failed to get license counts: %w", err)
		}
		if repos, err = api.GetRepoSummaries(org); err != nil {
			return fmt.Errorf("failed to get repositories: %w", err)
		}
	} else {
		agg := localAggregator(cfg)
		ctx := cmd.Context()
		if summary, err = agg.OrgSummary(ctx, org); err != nil {
			return fmt.Errorf("failed to get summary: %w", err)
		}
		if licenses, err = agg.LicenseCounts(ctx, org); err != nil {
			return fmt.Errorf("failed to get license counts: %w", err)
		}
		if repos, err = agg.RepoSummaries(ctx, org); err != nil {
			return fmt.Errorf("failed to get repositories: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		return writeJSON(out, map[string]interface{}{
			"summary":  summary,
			"licenses": licenses,
			"repos":    repos,
		})
	}

	fmt.Fprintf(out, "\nLicensing Summary: %s\n\n", org)

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Repositories", fmt.Sprintf("%d", summary.Repositories)})
	table.Append([]string{"Dependencies", fmt.Sprintf("%d", summary.Dependencies)})
	table.Append([]string{"Distinct Licenses", fmt.Sprintf("%d", summary.Licenses)})
	table.Append([]string{"Unknown License", fmt.Sprintf("%d", summary.Unknown)})
	table.Append([]string{"Copyleft", fmt.Sprintf("%d", summary.Copyleft)})
	table.Render()

	fmt.Fprintln(out)
	table = tablewriter.NewWriter(out)
	table.SetHeader([]string{"License", "Dependencies", "Copyleft"})
	for _, lc := range licenses {
		table.Append([]string{lc.License, fmt.Sprintf("%d", lc.Count), yesNo(lc.Copyleft)})
	}
	table.Render()

	fmt.Fprintln(out)
	table = tablewriter.NewWriter(out)
	table.SetHeader([]string{"Repository", "Dependencies", "Unknown", "Copyleft"})
	for _, r := range repos {
		table.Append([]string{
			r.Repo,
			fmt.Sprintf("%d", r.Dependencies),
			fmt.Sprintf("%d", r.Unknown),
			fmt.Sprintf("%d", r.Copyleft),
		})
	}
	table.Render()

	return nil
}

func runCopyleft(cmd *cobra.Command, args []string) error {
	cfg := commandConfig(cmd)
	org, err := reportOrg(cfg, args)
	if err != nil {
		return err
	}

	var deps []*domain.DependencyRecord
	if remote {
		deps, err = client.NewClient(cfg.APIEndpoint).GetCopyleftDependencies(org)
	} else {
		deps, err = localAggregator(cfg).CopyleftDependencies(cmd.Context(), org)
	}
	if err != nil {
		return fmt.Errorf("failed to get copyleft dependencies: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		return writeJSON(out, deps)
	}

	fmt.Fprintf(out, "\nCopyleft Dependencies: %s (%d)\n\n", org, len(deps))

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Repository", "Dependency", "License"})
	for _, d := range deps {
		table.Append([]string{d.Repo, d.Name, d.License})
	}
	table.Render()

	return nil
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
