package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/ibeckermayer/xdash/internal/analytics"
	"github.com/ibeckermayer/xdash/internal/store"
	"github.com/ibeckermayer/xdash/internal/types"
)

// WeeklyPrefix names saved weekly reports.
const WeeklyPrefix = "weekly_report"

const weekDays = 7

// Builder renders weekly reports.
type Builder struct {
	markdown *texttemplate.Template
	html     *template.Template
	loc      *time.Location
}

// NewBuilder parses the report templates. Dates are shown in timezone.
func NewBuilder(timezone string) (*Builder, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
	}
	md, err := texttemplate.New("weekly.md").Parse(markdownTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	html, err := template.New("weekly.html").Parse(htmlTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &Builder{markdown: md, html: html, loc: loc}, nil
}

// Weekly is a rendered report ready to save or send.
type Weekly struct {
	Subject   string
	Markdown  string
	HTMLBody  string
	Summary   analytics.WeeklySummary
	Hints     []string
	CreatedAt time.Time
}

// WeeklyData is the template data structure
type WeeklyData struct {
	Account   string
	From      string
	To        string
	Summary   analytics.WeeklySummary
	Types     []analytics.TypeAverage
	Hints     []HintData
	Generated string
}

// HintData is one improvement line; OK marks the all-clear hint.
type HintData struct {
	Text string
	OK   bool
}

// Build summarizes the posts of the seven days up to now.
func (b *Builder) Build(account types.Account, posts []types.Post, now time.Time) (*Weekly, error) {
	now = now.In(b.loc)
	since := now.AddDate(0, 0, -weekDays)

	var week []types.Post
	for _, p := range posts {
		if !p.Timestamp.Before(since) && !p.Timestamp.After(now) {
			week = append(week, p)
		}
	}
	if len(week) == 0 {
		return nil, fmt.Errorf("no posts between %s and %s", since.Format("01/02"), now.Format("01/02"))
	}

	summary := analytics.Summary(week)
	hints := analytics.Hints(summary)
	data := WeeklyData{
		Account:   accountLabel(account),
		From:      since.Format("01/02"),
		To:        now.Format("01/02"),
		Summary:   summary,
		Types:     analytics.TypeAverages(week),
		Generated: now.Format("2006-01-02 15:04 MST"),
	}
	for _, h := range hints {
		data.Hints = append(data.Hints, HintData{Text: h, OK: strings.HasPrefix(h, "順調")})
	}

	var md, html bytes.Buffer
	if err := b.markdown.Execute(&md, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}
	if err := b.html.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	return &Weekly{
		Subject:   fmt.Sprintf("週次レポート — %s (%s〜%s)", data.Account, data.From, data.To),
		Markdown:  md.String(),
		HTMLBody:  html.String(),
		Summary:   summary,
		Hints:     hints,
		CreatedAt: now,
	}, nil
}

// Save writes the markdown report into dir and returns its path.
func (w *Weekly) Save(dir string) (string, error) {
	return store.SaveExport(dir, store.ExportName(WeeklyPrefix, w.CreatedAt, ".md"), []byte(w.Markdown))
}

func accountLabel(a types.Account) string {
	switch {
	case a.ID == types.AllAccountsID || a.ID == "":
		return "全アカウント"
	case a.Handle != "":
		return fmt.Sprintf("%s (%s)", a.Name, a.Handle)
	default:
		return a.Name
	}
}

const markdownTemplate = `# 📈 週次レポート — {{.Account}}

📅 期間: {{.From}} 〜 {{.To}}

## 📊 KPI サマリー

| 指標 | 値 |
|---|---|
| 投稿数 | {{.Summary.Posts}}本 |
| 平均いいね | {{.Summary.AvgLikes}} |
| 平均RT | {{.Summary.AvgRetweets}} |
| 平均リプライ | {{.Summary.AvgReplies}} |
| エンゲージメント率 | {{.Summary.EngagementRate}}% |
| 推定インプレッション | {{.Summary.Impressions}} |

## 🏆 ベスト投稿

> {{.Summary.BestText}}

👍 {{.Summary.BestLikes}}いいね

## 📋 投稿タイプ別パフォーマンス
{{range .Types}}
- {{.Category}}: 平均いいね {{.AvgLikes}} ({{.Posts}}本)
{{- end}}

## 💡 改善ポイント
{{range .Hints}}
- {{if .OK}}✅{{else}}⚠️{{end}} {{.Text}}
{{- end}}

---
_{{.Generated}}_
`

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>週次レポート — {{.Account}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        .container { background: white; border-radius: 8px; padding: 20px; }
        h1 { color: #3b82f6; margin-bottom: 5px; }
        .date { color: #666; margin-bottom: 20px; }
        table { border-collapse: collapse; width: 100%; }
        td { border-bottom: 1px solid #eee; padding: 6px 0; }
        .best { border-left: 3px solid #f59e0b; padding-left: 10px; margin: 10px 0; }
        .warn { color: #b45309; }
        .ok { color: #047857; }
        .footer { margin-top: 20px; padding-top: 15px; border-top: 1px solid #eee; color: #999; font-size: 12px; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <h1>週次レポート — {{.Account}}</h1>
        <div class="date">{{.From}} 〜 {{.To}}</div>

        <table>
            <tr><td>投稿数</td><td>{{.Summary.Posts}}本</td></tr>
            <tr><td>平均いいね</td><td>{{.Summary.AvgLikes}}</td></tr>
            <tr><td>平均RT</td><td>{{.Summary.AvgRetweets}}</td></tr>
            <tr><td>平均リプライ</td><td>{{.Summary.AvgReplies}}</td></tr>
            <tr><td>エンゲージメント率</td><td>{{.Summary.EngagementRate}}%</td></tr>
        </table>

        <div class="best">{{.Summary.BestText}}<br>👍 {{.Summary.BestLikes}}いいね</div>

        <ul>
        {{range .Types}}<li>{{.Category}}: 平均いいね {{.AvgLikes}}</li>{{end}}
        </ul>

        <ul>
        {{range .Hints}}<li class="{{if .OK}}ok{{else}}warn{{end}}">{{.Text}}</li>{{end}}
        </ul>

        <div class="footer">Generated {{.Generated}} · xdash</div>
    </div>
</body>
</html>`
