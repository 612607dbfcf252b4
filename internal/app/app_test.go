package app

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/xdash/internal/config"
	"github.com/ibeckermayer/xdash/internal/importer"
	"github.com/ibeckermayer/xdash/internal/notifier"
	"github.com/ibeckermayer/xdash/internal/probe"
	"github.com/ibeckermayer/xdash/internal/report"
	"github.com/ibeckermayer/xdash/internal/scheduler"
	"github.com/ibeckermayer/xdash/internal/state"
)

type recordingSender struct{ subjects []string }

func (r *recordingSender) Send(to, subject, htmlBody, plainBody string) error {
	r.subjects = append(r.subjects, subject)
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Storage.DBPath = filepath.Join(dir, "xdash.db")
	cfg.Storage.ImportDir = filepath.Join(dir, "import")
	cfg.Report.OutputDir = filepath.Join(dir, "reports")
	cfg.Report.Timezone = "UTC"
	cfg.Mock.Seed = 7
	cfg.Probe.Timeout = config.Duration{Duration: time.Second}
	return cfg
}

func newTestApp(t *testing.T) (*App, *[]string) {
	t.Helper()
	a, err := New(testConfig(t))
	require.NoError(t, err)
	var copied []string
	a.copyText = func(s string) error {
		copied = append(copied, s)
		return nil
	}
	t.Cleanup(func() { a.Shutdown(context.Background()) })
	return a, &copied
}

func TestNew_RejectsBadConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mock.DefaultRangeDays = 14
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Chart.Format = "gif"
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestExportCSV(t *testing.T) {
	a, _ := newTestApp(t)
	a.now = func() time.Time { return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC) }

	path, err := a.ExportCSV()
	require.NoError(t, err)
	assert.Equal(t, "report_2026-03-15.csv", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), report.BOM))
}

func TestWeeklyReport_SavesAndMails(t *testing.T) {
	a, _ := newTestApp(t)
	sender := &recordingSender{}
	a.notifier = notifier.New(sender, "me@example.com")

	w, err := a.WeeklyReport(context.Background())
	require.NoError(t, err)
	assert.Contains(t, w.Markdown, "全アカウント")
	assert.Equal(t, []string{w.Subject}, sender.subjects)

	latest, err := a.LatestWeeklyReport()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(latest), report.WeeklyPrefix))
}

func TestWeeklyReport_CanceledContext(t *testing.T) {
	a, _ := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.WeeklyReport(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCopyPost(t *testing.T) {
	a, copied := newTestApp(t)

	require.NoError(t, a.CopyPost(0))
	assert.Equal(t, []string{a.State().Snapshot().Posts[0].Text}, *copied)

	assert.ErrorIs(t, a.CopyPost(-1), state.ErrPostIndex)

	best, err := a.CopyBestPost()
	require.NoError(t, err)
	for _, p := range a.State().Snapshot().Posts {
		assert.LessOrEqual(t, p.Likes, best.Likes)
	}
	assert.Equal(t, best.Text, (*copied)[1])
}

func TestProbe_RecordsReport(t *testing.T) {
	a, _ := newTestApp(t)
	rep := a.Probe(context.Background())
	require.Len(t, rep.Results, 2)
	for _, r := range rep.Results {
		assert.Equal(t, probe.StatusSkipped, r.Status)
	}
	require.NotNil(t, a.Views().Settings().Probe)
}

func TestStartServeShutdown(t *testing.T) {
	a, err := New(testConfig(t))
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	require.NotEmpty(t, a.URL())

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	res, err := client.Get(a.URL() + "/api/state")
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), `"account":"all"`)

	names := make([]string, 0, 2)
	for _, j := range a.Jobs() {
		names = append(names, j.Name)
	}
	assert.ElementsMatch(t, []string{scheduler.JobWeeklyReport, scheduler.JobProbe}, names)
	require.NoError(t, a.RunJob(context.Background(), scheduler.JobProbe))
	assert.NotNil(t, a.Views().Settings().Probe)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Shutdown(ctx))
	assert.Empty(t, a.URL())
}

func TestImport(t *testing.T) {
	a, _ := newTestApp(t)
	path := filepath.Join(t.TempDir(), "notes.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"title":"legacy","category":"idea","content":"x","date":"2024/1/2 3:04:05"}]`), 0600))

	slot, err := a.Import(path)
	require.NoError(t, err)
	assert.Equal(t, "notes", string(slot))
	notes := a.State().Snapshot().Notes
	require.Len(t, notes, 1)
	assert.Equal(t, "legacy", notes[0].Title)
	assert.FileExists(t, path+importer.DoneSuffix)
}

func TestStart_BadProbeScheduleRegistersNothing(t *testing.T) {
	cfg := testConfig(t)
	cfg.Probe.Schedule = "every now and then"
	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Shutdown(context.Background()) })

	assert.Error(t, a.Start(context.Background()))
	assert.Empty(t, a.Jobs())
	assert.Empty(t, a.URL())
}
