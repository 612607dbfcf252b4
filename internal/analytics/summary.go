package analytics

import (
	"math"

	"github.com/ibeckermayer/xdash/internal/types"
)

const bestPostExcerpt = 80

// WeeklySummary is the KPI block of the weekly report.
type WeeklySummary struct {
	Posts          int     `json:"posts"`
	TotalLikes     int     `json:"total_likes"`
	TotalRetweets  int     `json:"total_retweets"`
	TotalReplies   int     `json:"total_replies"`
	Impressions    int     `json:"impressions"`
	AvgLikes       float64 `json:"avg_likes"`
	AvgRetweets    float64 `json:"avg_retweets"`
	AvgReplies     float64 `json:"avg_replies"`
	EngagementRate float64 `json:"engagement_rate"` // percent, two decimals
	BestText       string  `json:"best_text"`
	BestLikes      int     `json:"best_likes"`
}

// Summary aggregates a post set for the weekly report. The best post is the
// one with the highest likes + 3*retweets.
func Summary(posts []types.Post) WeeklySummary {
	var s WeeklySummary
	if len(posts) == 0 {
		return s
	}
	s.Posts = len(posts)
	best, bestScore := posts[0], -1
	for _, p := range posts {
		s.TotalLikes += p.Likes
		s.TotalRetweets += p.Retweets
		s.TotalReplies += p.Replies
		if score := p.Likes + 3*p.Retweets; score > bestScore {
			best, bestScore = p, score
		}
	}
	s.Impressions = Impressions(s.TotalLikes, s.TotalRetweets)
	n := float64(s.Posts)
	s.AvgLikes = round1(float64(s.TotalLikes) / n)
	s.AvgRetweets = round1(float64(s.TotalRetweets) / n)
	s.AvgReplies = round1(float64(s.TotalReplies) / n)
	if s.Impressions > 0 {
		rate := float64(s.TotalLikes+s.TotalRetweets+s.TotalReplies) / float64(s.Impressions) * 100
		s.EngagementRate = math.Round(rate*100) / 100
	}

	s.BestText = best.Text
	if r := []rune(best.Text); len(r) > bestPostExcerpt {
		s.BestText = string(r[:bestPostExcerpt])
	}
	s.BestLikes = best.Likes
	return s
}

// Hints returns rule-based improvement suggestions for a summary.
func Hints(s WeeklySummary) []string {
	var hints []string
	if s.AvgLikes < 5 {
		hints = append(hints, "平均いいねが少ない → フックを強化、数字を入れる")
	}
	if s.EngagementRate < 1.0 {
		hints = append(hints, "エンゲージメント率低い → CTA（問いかけ）を強化")
	}
	if s.AvgRetweets < 1 {
		hints = append(hints, "RTが少ない → 共感性のある「反常識」系を増やす")
	}
	if s.AvgReplies < 1 {
		hints = append(hints, "リプライが少ない → 「〜してる人いる？」系のCTA追加")
	}
	if s.AvgLikes >= 5 && s.EngagementRate >= 1.0 {
		hints = append(hints, "順調！現在の方針を継続")
	}
	return hints
}
