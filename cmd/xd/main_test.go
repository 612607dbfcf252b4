package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/xdash/internal/config"
	"github.com/ibeckermayer/xdash/internal/probe"
)

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.DBPath = filepath.Join(dir, "xdash.db")
	cfg.Storage.ImportDir = filepath.Join(dir, "import")
	cfg.Report.OutputDir = filepath.Join(dir, "reports")
	cfg.Report.Timezone = "UTC"
	cfg.Mock.Seed = 3
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, cfg.SaveFile(path))
	return path, dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { configPath = "" })
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"export", "report", "probe", "copy", "open", "import"} {
		assert.True(t, names[want], want)
	}
}

func TestExportCommand(t *testing.T) {
	cfgPath, dir := writeConfig(t)
	out, err := run(t, "--config", cfgPath, "export", "--account", "account_2")
	require.NoError(t, err)

	path := strings.TrimSpace(out)
	assert.Equal(t, filepath.Join(dir, "reports"), filepath.Dir(path))
	assert.FileExists(t, path)
}

func TestReportCommand_Raw(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	out, err := run(t, "--config", cfgPath, "report", "--raw", "--account", "all")
	require.NoError(t, err)
	assert.Contains(t, out, "全アカウント")
}

func TestImportCommand(t *testing.T) {
	cfgPath, dir := writeConfig(t)
	dump := filepath.Join(dir, "abtests.json")
	require.NoError(t, os.WriteFile(dump, []byte(`[{"name":"cta","variantA":"a","variantB":"b","resultA":"3","resultB":"5"}]`), 0600))

	out, err := run(t, "--config", cfgPath, "import", dump)
	require.NoError(t, err)
	assert.Contains(t, out, "abtests")

	_, err = run(t, "--config", cfgPath, "import", filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestOpenTarget(t *testing.T) {
	_, err := openTarget("cache")
	assert.ErrorContains(t, err, "unknown target")

	path, err := openTarget("config")
	require.NoError(t, err)
	assert.Equal(t, "config.toml", filepath.Base(path))
}

func TestProbeTable(t *testing.T) {
	rep := probe.Report{Results: []probe.Result{
		{Name: "メインアカウント", Status: probe.StatusOK, Latency: 12 * time.Millisecond},
		{Name: "sub", Status: probe.StatusSkipped, Detail: "no api url"},
	}}
	out := probeTable(rep)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "ACCOUNT")
	assert.Contains(t, lines[1], "12ms")
	assert.Contains(t, lines[2], "no api url")
}
