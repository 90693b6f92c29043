package main

import (
    "bytes"
    "context"
    "os"
    "testing"

    "github.com/HamedShams/issue-sync/internal/domain"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
    cmd := rootCmd()
    var out bytes.Buffer
    cmd.SetOut(&out)
    cmd.SetArgs([]string{"version"})
    require.NoError(t, cmd.Execute())
    assert.Equal(t, "issue-sync dev\n", out.String())
}

func TestRunFailsWithoutCredentials(t *testing.T) {
    wd, err := os.Getwd()
    require.NoError(t, err)
    require.NoError(t, os.Chdir(t.TempDir()))
    t.Cleanup(func() { _ = os.Chdir(wd) })
    for _, k := range []string{"JIRA_BASE_URL", "JIRA_EMAIL", "JIRA_API_TOKEN"} {
        t.Setenv(k, "")
    }
    cmd := rootCmd()
    cmd.SetArgs([]string{"run", "--log-level", "error"})
    err = cmd.ExecuteContext(context.Background())
    var ce *domain.ConfigurationError
    require.ErrorAs(t, err, &ce)
    assert.Contains(t, err.Error(), "JIRA_BASE_URL")
}
