package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-sbom-licenses/internal/config"
	"github.com/kurihiro0119/github-sbom-licenses/internal/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// resetFlags restores flag defaults, since cobra keeps parsed values between executions
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	chdir(t, t.TempDir())
	if _, ok := env["LOG_LEVEL"]; !ok {
		env["LOG_LEVEL"] = "disabled"
	}
	for _, key := range []string{"GITHUB_TOKEN", "GITHUB_ORG", "GITHUB_API_URL", "OUTPUT_PATH", "REPORT_DIR", "LOG_LEVEL", "RATE_LIMIT_DELAY"} {
		t.Setenv(key, env[key])
	}
}

func TestExportRequiresEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		missing string
	}{
		{"no token", map[string]string{"GITHUB_ORG": "acme"}, "GITHUB_TOKEN"},
		{"no org", map[string]string{"GITHUB_TOKEN": "ghp_test"}, "GITHUB_ORG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &testutil.FakeGitHub{Org: "acme"}
			tt.env["GITHUB_API_URL"] = fake.Start(t)
			setEnv(t, tt.env)

			_, err := execute(t, "export")

			var cfgErr *config.ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.missing, cfgErr.Field)
			assert.Empty(t, fake.Requests(), "no request may be sent before configuration is valid")
		})
	}
}

func TestExportThenSummarize(t *testing.T) {
	fake := &testutil.FakeGitHub{
		Org:         "acme",
		PublicRepos: 2,
		Repos:       []testutil.Repo{{Name: "api"}, {Name: "old", Archived: true}},
		SBOMs: map[string][]testutil.Package{
			"api": {
				{Name: "go:readline", License: testutil.License("GPL-3.0")},
				{Name: "go:gin", License: testutil.License("MIT")},
			},
		},
	}
	setEnv(t, map[string]string{
		"GITHUB_TOKEN":     "ghp_test",
		"GITHUB_ORG":       "acme",
		"GITHUB_API_URL":   fake.Start(t),
		"RATE_LIMIT_DELAY": "1ms",
	})

	out, err := execute(t, "export")
	require.NoError(t, err)
	assert.Contains(t, out, "✅ Successfully fetched SBOM for repo api (1/1)")
	assert.Contains(t, out, "Copyleft licensed tool found: go:readline with license: GPL-3.0")

	data, err := os.ReadFile(filepath.Join(".", config.ReportFileName("acme")))
	require.NoError(t, err)
	assert.Equal(t, "org,repo,dependency_name,license\nacme,api,go:readline,GPL-3.0\nacme,api,go:gin,MIT\n", string(data))

	out, err = execute(t, "copyleft", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"org":"acme","repo":"api","dependency_name":"go:readline","license":"GPL-3.0"}]`, out)

	out, err = execute(t, "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "Licensing Summary: acme")
	assert.Contains(t, out, "GPL-3.0")
}

func TestExportFlagsOverrideEnvironment(t *testing.T) {
	fake := &testutil.FakeGitHub{
		Org:         "acme",
		PublicRepos: 1,
		Repos:       []testutil.Repo{{Name: "api"}},
		SBOMs:       map[string][]testutil.Package{"api": {{Name: "go:gin", License: testutil.License("MIT")}}},
		Remaining:   []int{5000, 5, 5000},
	}
	setEnv(t, map[string]string{
		"GITHUB_TOKEN":     "ghp_test",
		"GITHUB_ORG":       "acme",
		"GITHUB_API_URL":   fake.Start(t),
		"OUTPUT_PATH":      "from-env.csv",
		"RATE_LIMIT_DELAY": "1h",
	})

	out, err := execute(t, "export", "--output", "custom.csv", "--threshold", "10", "--delay", "1ms")
	require.NoError(t, err)
	assert.Contains(t, out, "We have less than 10 GitHub API rate-limit tokens left, sleeping for 1ms")

	data, err := os.ReadFile("custom.csv")
	require.NoError(t, err)
	assert.Equal(t, "org,repo,dependency_name,license\nacme,api,go:gin,MIT\n", string(data))
	_, err = os.Stat("from-env.csv")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

// chdir changes the working directory for the test and restores it on cleanup
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
