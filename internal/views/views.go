// Package views turns the current state into the model of each dashboard
// page and draws that page's charts.
package views

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ibeckermayer/xdash/internal/analytics"
	"github.com/ibeckermayer/xdash/internal/chart"
	"github.com/ibeckermayer/xdash/internal/mockdata"
	"github.com/ibeckermayer/xdash/internal/probe"
	"github.com/ibeckermayer/xdash/internal/state"
	"github.com/ibeckermayer/xdash/internal/types"
)

// Chart slots
const (
	SlotSparkline  = "overview-sparkline"
	SlotFollowers  = "overview-followers"
	SlotEngagement = "overview-engagement"
	SlotTypes      = "analytics-types"
	SlotHours      = "analytics-hours"
	SlotRanks      = "analytics-ranks"
	SlotChars      = "analytics-chars"
	SlotFunnel     = "funnel-stages"
	SlotABTests    = "abtests-results"
)

// ChartSlots lists every slot the renderer draws into.
var ChartSlots = []string{
	SlotSparkline, SlotFollowers, SlotEngagement,
	SlotTypes, SlotHours, SlotRanks, SlotChars,
	SlotFunnel, SlotABTests,
}

const bestWorstN = 5

// Renderer builds view models from a state snapshot.
type Renderer struct {
	state  *state.Store
	charts *chart.Adapter
	now    func() time.Time

	mu    sync.RWMutex
	probe *probe.Report
}

// NewRenderer mounts every chart slot on the adapter.
func NewRenderer(st *state.Store, charts *chart.Adapter) *Renderer {
	charts.Mount(ChartSlots...)
	return &Renderer{state: st, charts: charts, now: time.Now}
}

// RecordProbe keeps the latest connectivity report for the settings page.
func (r *Renderer) RecordProbe(rep probe.Report) {
	r.mu.Lock()
	r.probe = &rep
	r.mu.Unlock()
}

// LastProbe returns the latest connectivity report, if any.
func (r *Renderer) LastProbe() (probe.Report, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.probe == nil {
		return probe.Report{}, false
	}
	return *r.probe, true
}

// Render records v as the current page and returns its model.
func (r *Renderer) Render(v types.View) (any, error) {
	if _, err := types.ParseView(string(v)); err != nil {
		return nil, err
	}
	r.state.SetView(v)

	switch v {
	case types.ViewOverview:
		return r.Overview(), nil
	case types.ViewPosts:
		return r.Posts(analytics.TableFilter{})
	case types.ViewAnalytics:
		return r.Analytics(), nil
	case types.ViewFunnel:
		return r.Funnel()
	case types.ViewABTests:
		return r.ABTests(), nil
	case types.ViewCalendar:
		return r.Calendar(), nil
	case types.ViewNotes:
		return r.Notes(), nil
	default:
		return r.Settings(), nil
	}
}

// draw renders into slot and reports whether an instance is live there.
// An empty data set clears the slot instead of failing the page.
func (r *Renderer) draw(slot string, spec chart.Spec) bool {
	_, err := r.charts.Render(slot, spec)
	if errors.Is(err, chart.ErrEmptySeries) {
		r.charts.Destroy(slot)
		return false
	}
	if err != nil {
		log.Printf("[views] %v", err)
		return false
	}
	return true
}

func (r *Renderer) sparkline(slot string, values []int) bool {
	inst, err := r.charts.Sparkline(slot, values)
	if err != nil {
		if !errors.Is(err, chart.ErrEmptySeries) {
			log.Printf("[views] %v", err)
		}
		r.charts.Destroy(slot)
		return false
	}
	return inst != nil
}

func accountName(snap state.Snapshot) string {
	if snap.Account == types.AllAccountsID {
		return "全アカウント"
	}
	for _, a := range snap.Accounts {
		if a.ID == snap.Account {
			return a.Name
		}
	}
	return snap.Account
}

// OverviewView is the KPI page.
type OverviewView struct {
	Account     string                  `json:"account"`
	AccountName string                  `json:"account_name"`
	Range       types.DateRange         `json:"range"`
	Stats       analytics.OverviewStats `json:"stats"`
	Best        []types.Post            `json:"best"`
	Worst       []types.Post            `json:"worst"`
	Charts      []string                `json:"charts"`
}

// Overview sums the loaded posts and draws the follower, engagement and
// sparkline charts.
func (r *Renderer) Overview() OverviewView {
	snap := r.state.Snapshot()
	followers := r.state.Generator().GenerateFollowers(int(snap.Range))
	stats := analytics.Overview(snap.Posts, followers)
	best, worst := analytics.BestWorst(snap.Posts, bestWorstN)

	v := OverviewView{
		Account:     snap.Account,
		AccountName: accountName(snap),
		Range:       snap.Range,
		Stats:       stats,
		Best:        best,
		Worst:       worst,
		Charts:      []string{},
	}

	if r.sparkline(SlotSparkline, stats.SparklineLikes) {
		v.Charts = append(v.Charts, SlotSparkline)
	}

	fLabels := make([]string, len(followers))
	fCounts := make([]float64, len(followers))
	for i, f := range followers {
		fLabels[i] = f.Date.Format("1/2")
		fCounts[i] = float64(f.Count)
	}
	if r.draw(SlotFollowers, chart.Spec{
		Kind:   chart.KindLine,
		Title:  "フォロワー推移",
		Labels: fLabels,
		Series: []chart.Series{{Name: "followers", Color: "#3b82f6", Y: fCounts}},
	}) {
		v.Charts = append(v.Charts, SlotFollowers)
	}

	series := analytics.EngagementSeries(snap.Posts)
	labels := make([]string, len(series))
	likes := make([]float64, len(series))
	rts := make([]float64, len(series))
	replies := make([]float64, len(series))
	for i, d := range series {
		labels[i] = d.Label
		likes[i] = float64(d.Likes)
		rts[i] = float64(d.Retweets)
		replies[i] = float64(d.Replies)
	}
	if r.draw(SlotEngagement, chart.Spec{
		Kind:   chart.KindLine,
		Title:  "エンゲージメント推移",
		Labels: labels,
		Series: []chart.Series{
			{Name: "いいね", Color: "#ec4899", Y: likes},
			{Name: "RT", Color: "#10b981", Y: rts},
			{Name: "リプライ", Color: "#3b82f6", Y: replies},
		},
		Options: chart.Options{ShowLegend: true},
	}) {
		v.Charts = append(v.Charts, SlotEngagement)
	}
	return v
}

// PostsView is the filterable post table.
type PostsView struct {
	Filter     analytics.TableFilter `json:"filter"`
	Table      analytics.TableResult `json:"table"`
	Total      int                   `json:"total"`
	Categories []string              `json:"categories"`
	Ranks      []types.Rank          `json:"ranks"`
}

// Posts filters the loaded set.
func (r *Renderer) Posts(f analytics.TableFilter) (PostsView, error) {
	snap := r.state.Snapshot()
	table, err := analytics.FilterTable(snap.Posts, f)
	if err != nil {
		return PostsView{}, err
	}
	return PostsView{
		Filter:     f,
		Table:      table,
		Total:      len(snap.Posts),
		Categories: mockdata.Categories,
		Ranks:      types.Ranks,
	}, nil
}

// AnalyticsView breaks engagement down by type, hour, rank and length.
type AnalyticsView struct {
	Types  []analytics.TypeAverage  `json:"types"`
	Hours  [24]analytics.HourBucket `json:"hours"`
	Ranks  []RankCount              `json:"ranks"`
	Charts []string                 `json:"charts"`
}

// RankCount is the number of posts in one rank.
type RankCount struct {
	Rank  types.Rank `json:"rank"`
	Color string     `json:"color"`
	Posts int        `json:"posts"`
}

// Analytics computes the breakdowns and draws their charts.
func (r *Renderer) Analytics() AnalyticsView {
	snap := r.state.Snapshot()
	v := AnalyticsView{
		Types:  analytics.TypeAverages(snap.Posts),
		Hours:  analytics.HourHistogram(snap.Posts),
		Charts: []string{},
	}

	counts := make(map[types.Rank]int)
	for _, p := range snap.Posts {
		counts[p.Rank]++
	}
	var rankLabels, rankColors []string
	var rankValues []float64
	for _, rk := range types.Ranks {
		color, err := rk.Color()
		if err != nil {
			log.Printf("[views] %v", err)
			continue
		}
		v.Ranks = append(v.Ranks, RankCount{Rank: rk, Color: color, Posts: counts[rk]})
		rankLabels = append(rankLabels, string(rk))
		rankColors = append(rankColors, color)
		rankValues = append(rankValues, float64(counts[rk]))
	}

	typeLabels := make([]string, len(v.Types))
	typeValues := make([]float64, len(v.Types))
	for i, t := range v.Types {
		typeLabels[i] = t.Category
		typeValues[i] = t.AvgLikes
	}

	hourLabels := make([]string, 24)
	hourValues := make([]float64, 24)
	for i, h := range v.Hours {
		hourLabels[i] = fmt.Sprintf("%d", h.Hour)
		hourValues[i] = float64(h.Likes)
	}

	chars := make([]float64, len(snap.Posts))
	likes := make([]float64, len(snap.Posts))
	for i, p := range snap.Posts {
		chars[i] = float64(p.Chars)
		likes[i] = float64(p.Likes)
	}

	draws := []struct {
		slot string
		spec chart.Spec
	}{
		{SlotTypes, chart.Spec{Kind: chart.KindBar, Title: "投稿タイプ別 平均いいね", Labels: typeLabels,
			Series: []chart.Series{{Color: "#6366f1", Y: typeValues}}}},
		{SlotHours, chart.Spec{Kind: chart.KindBar, Title: "時間帯別いいね", Labels: hourLabels,
			Series: []chart.Series{{Color: "#f59e0b", Y: hourValues}}}},
		{SlotRanks, chart.Spec{Kind: chart.KindDoughnut, Title: "ランク分布", Labels: rankLabels, Colors: rankColors,
			Series: []chart.Series{{Y: rankValues}}}},
		{SlotChars, chart.Spec{Kind: chart.KindScatter, Title: "文字数 × いいね",
			Series: []chart.Series{{Name: "posts", Color: "#a855f7", X: chars, Y: likes}}}},
	}
	for _, d := range draws {
		if r.draw(d.slot, d.spec) {
			v.Charts = append(v.Charts, d.slot)
		}
	}
	return v
}

// FunnelView is the conversion funnel page.
type FunnelView struct {
	Stages   []types.FunnelStage       `json:"stages"`
	Insights []analytics.FunnelInsight `json:"insights"`
	Charts   []string                  `json:"charts"`
}

// Funnel evaluates the fixed funnel.
func (r *Renderer) Funnel() (FunnelView, error) {
	stages := mockdata.GenerateFunnel()
	insights, err := analytics.FunnelInsights(stages)
	if err != nil {
		return FunnelView{}, err
	}
	v := FunnelView{Stages: stages, Insights: insights, Charts: []string{}}

	labels := make([]string, len(stages))
	colors := make([]string, len(stages))
	values := make([]float64, len(stages))
	for i, s := range stages {
		labels[i], colors[i], values[i] = s.Label, s.Color, float64(s.Value)
	}
	if r.draw(SlotFunnel, chart.Spec{Kind: chart.KindBar, Title: "ファネル", Labels: labels, Colors: colors,
		Series: []chart.Series{{Y: values}}}) {
		v.Charts = append(v.Charts, SlotFunnel)
	}
	return v, nil
}

// ABTestRow is one experiment with its winner.
type ABTestRow struct {
	Test   types.ABTest      `json:"test"`
	Winner analytics.Variant `json:"winner"`
}

// ABTestsView lists experiments.
type ABTestsView struct {
	Tests  []ABTestRow `json:"tests"`
	Charts []string    `json:"charts"`
}

// ABTests picks each experiment's winner and charts both variants.
func (r *Renderer) ABTests() ABTestsView {
	snap := r.state.Snapshot()
	v := ABTestsView{Tests: make([]ABTestRow, len(snap.ABTests)), Charts: []string{}}

	var labels, colors []string
	var values []float64
	for i, t := range snap.ABTests {
		v.Tests[i] = ABTestRow{Test: t, Winner: analytics.ABWinner(t)}
		labels = append(labels, t.Name+" A", t.Name+" B")
		colors = append(colors, "#94a3b8", "#3b82f6")
		values = append(values, t.ResultA, t.ResultB)
	}
	if r.draw(SlotABTests, chart.Spec{Kind: chart.KindBar, Title: "A/Bテスト結果", Labels: labels, Colors: colors,
		Series: []chart.Series{{Y: values}}}) {
		v.Charts = append(v.Charts, SlotABTests)
	}
	return v
}

// CalendarView is the month heatmap.
type CalendarView struct {
	Year    int                     `json:"year"`
	Month   time.Month              `json:"month"`
	Weekday time.Weekday            `json:"first_weekday"`
	Days    []analytics.CalendarDay `json:"days"`
}

// Calendar covers the current month.
func (r *Renderer) Calendar() CalendarView {
	snap := r.state.Snapshot()
	now := r.now()
	y, m, _ := now.Date()
	return CalendarView{
		Year:    y,
		Month:   m,
		Weekday: time.Date(y, m, 1, 0, 0, 0, 0, now.Location()).Weekday(),
		Days:    analytics.CalendarHeat(snap.Posts, now),
	}
}

// NotesView lists notes newest first.
type NotesView struct {
	Notes      []types.Note         `json:"notes"`
	Categories []types.NoteCategory `json:"categories"`
}

// Notes returns the persisted notes.
func (r *Renderer) Notes() NotesView {
	return NotesView{
		Notes:      r.state.Snapshot().Notes,
		Categories: []types.NoteCategory{types.NoteIdea, types.NoteAnalysis, types.NoteImprovement, types.NoteOther},
	}
}

// SettingsView lists accounts and their integration status.
type SettingsView struct {
	Current  string          `json:"current"`
	Accounts []types.Account `json:"accounts"`
	Probe    *probe.Report   `json:"probe,omitempty"`
}

// Settings returns the account list with the latest probe results.
func (r *Renderer) Settings() SettingsView {
	snap := r.state.Snapshot()
	v := SettingsView{Current: snap.Account, Accounts: snap.Accounts}
	if rep, ok := r.LastProbe(); ok {
		v.Probe = &rep
	}
	return v
}
