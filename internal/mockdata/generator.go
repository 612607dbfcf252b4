// Package mockdata produces the synthetic posts, follower series, funnel and
// A/B test records the dashboard is drawn from. Nothing it returns is persisted.
package mockdata

import (
	"math/rand/v2"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ibeckermayer/xdash/internal/types"
)

const (
	featuredBaseline = 150
	defaultBaseline  = 60
	allBaseline      = 100
	followerStart    = 42
	followerFloor    = 10
)

// Categories are the post types drawn by GeneratePosts.
var Categories = []string{"問題提起", "How to", "ストーリー", "共感", "引用RT"}

var texts = []string{
	"ぶっちゃけ、AIに投稿を任せてAI感丸出しになってる人多すぎる。",
	"GASで投稿を自動化する手順、全部公開する。",
	"正直、半年前は副業に1日3時間かけてた。",
	"「いかがでしたか」は全部NGワード。",
	"マスターデータで仕組み化したら30分で終わるようになった。",
	"これが複利。マジで。",
	"やり方知りたい人いる？",
	"コピペで動くコード付き。\"保存版\"です。",
}

// Generator draws mock data from a pseudo-random source. It is safe for
// concurrent use.
type Generator struct {
	mu       sync.Mutex
	rng      *rand.Rand
	now      func() time.Time
	featured string
}

// New creates a generator. A zero seed draws from the clock.
func New(seed int64, featuredAccount string) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		rng:      rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1)),
		now:      time.Now,
		featured: featuredAccount,
	}
}

// WithClock overrides the wall clock, mainly for tests.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Baseline is the reference like count for an account.
func (g *Generator) Baseline(accountID string) int {
	switch accountID {
	case g.featured:
		return featuredBaseline
	case types.AllAccountsID:
		return allBaseline
	default:
		return defaultBaseline
	}
}

// RankFor assigns a rank by comparing likes against the baseline thresholds.
func RankFor(likes, baseline int) types.Rank {
	l, b := float64(likes), float64(baseline)
	switch {
	case l > 2.5*b:
		return types.RankS
	case l > 1.5*b:
		return types.RankA
	case l > 0.8*b:
		return types.RankB
	default:
		return types.RankC
	}
}

// GeneratePosts returns days*2 posts, a morning and an evening slot per day
// walking backward from today, newest first.
func (g *Generator) GeneratePosts(accountID string, days int) []types.Post {
	if days <= 0 {
		return []types.Post{}
	}
	baseline := g.Baseline(accountID)
	g.mu.Lock()
	defer g.mu.Unlock()
	today := g.now()
	y, m, d := today.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, today.Location())

	posts := make([]types.Post, 0, days*2)
	for i := 0; i < days; i++ {
		day := midnight.AddDate(0, 0, -i)
		morning := day.Add(time.Duration(7+g.rng.IntN(3))*time.Hour + time.Duration(g.rng.IntN(60))*time.Minute)
		evening := day.Add(time.Duration(19+g.rng.IntN(4))*time.Hour + time.Duration(g.rng.IntN(60))*time.Minute)
		posts = append(posts, g.post(morning, baseline), g.post(evening, baseline))
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Timestamp.After(posts[j].Timestamp)
	})
	return posts
}

func (g *Generator) post(ts time.Time, baseline int) types.Post {
	likes := int(float64(baseline) * (0.2 + g.rng.Float64()*2.8))
	text := texts[g.rng.IntN(len(texts))]
	return types.Post{
		Timestamp: ts,
		Text:      text,
		Category:  Categories[g.rng.IntN(len(Categories))],
		Likes:     likes,
		Retweets:  int(float64(likes) * (0.05 + g.rng.Float64()*0.25)),
		Replies:   int(float64(likes) * (0.01 + g.rng.Float64()*0.09)),
		Rank:      RankFor(likes, baseline),
		Chars:     utf8.RuneCountInString(text),
	}
}

// GenerateFollowers returns a days+1 long random walk, oldest first.
func (g *Generator) GenerateFollowers(days int) []types.FollowerSample {
	if days < 0 {
		days = 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	today := g.now()
	samples := make([]types.FollowerSample, days+1)
	count := followerStart
	for i := 0; i <= days; i++ {
		if i > 0 {
			count += g.rng.IntN(10) - 3
			if count < followerFloor {
				count = followerFloor
			}
		}
		samples[i] = types.FollowerSample{
			Date:  today.AddDate(0, 0, i-days),
			Count: count,
		}
	}
	return samples
}

// GenerateFunnel returns the fixed six-stage conversion funnel.
func GenerateFunnel() []types.FunnelStage {
	return []types.FunnelStage{
		{Label: "インプレッション", Value: 45200, Color: "#3b82f6"},
		{Label: "プロフィール訪問", Value: 1280, Color: "#6366f1"},
		{Label: "リンククリック", Value: 384, Color: "#a855f7"},
		{Label: "LP閲覧", Value: 192, Color: "#ec4899"},
		{Label: "申込開始", Value: 96, Color: "#f59e0b"},
		{Label: "購入", Value: 12, Color: "#10b981"},
	}
}

// GenerateABTests returns the seed experiments shown on first run.
func GenerateABTests() []types.ABTest {
	return []types.ABTest{
		{
			Name:     "投稿時間テスト",
			Target:   "time",
			VariantA: "朝7時投稿",
			VariantB: "夜21時投稿",
			ResultA:  45,
			ResultB:  78,
			Memo:     "夜の方がいいね率が高い",
		},
		{
			Name:     "フック文テスト",
			Target:   "hook",
			VariantA: "数字で始める",
			VariantB: "問いかけで始める",
			ResultA:  62,
			ResultB:  41,
			Memo:     "数字フックが優勢",
		},
	}
}

// DefaultAccounts returns the accounts seeded on first run.
func DefaultAccounts() []types.Account {
	return []types.Account{
		{ID: "account_1", Name: "メインアカウント", Handle: "@main_account", Color: "#3b82f6"},
		{ID: "account_2", Name: "サブアカウント", Handle: "@sub_account", Color: "#10b981"},
	}
}
