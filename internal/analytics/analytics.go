// Package analytics computes the aggregates shown on the dashboard views.
// Every function is pure: inputs are the loaded post set and the wall clock
// where one matters.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/ibeckermayer/xdash/internal/types"
)

const (
	impressionsPerLike    = 12
	impressionsPerRetweet = 25
	followerWindow        = 8
	sparklineLen          = 14
)

// OverviewStats feeds the KPI cards on the overview page.
type OverviewStats struct {
	Posts          int     `json:"posts"`
	Likes          int     `json:"likes"`
	Retweets       int     `json:"retweets"`
	Replies        int     `json:"replies"`
	AvgEngagement  float64 `json:"avg_engagement"`
	Impressions    int     `json:"impressions"`
	Followers      int     `json:"followers"`
	FollowerDelta  int     `json:"follower_delta"`
	SparklineLikes []int   `json:"sparkline_likes"`
}

// Impressions estimates reach from the like and retweet counters.
func Impressions(likes, retweets int) int {
	return likes*impressionsPerLike + retweets*impressionsPerRetweet
}

// Overview sums the loaded posts and the follower series.
func Overview(posts []types.Post, followers []types.FollowerSample) OverviewStats {
	var st OverviewStats
	st.Posts = len(posts)
	for _, p := range posts {
		st.Likes += p.Likes
		st.Retweets += p.Retweets
		st.Replies += p.Replies
	}
	if len(posts) > 0 {
		st.AvgEngagement = round1(float64(st.Likes+st.Retweets+st.Replies) / float64(len(posts)))
	}
	st.Impressions = Impressions(st.Likes, st.Retweets)

	if n := len(followers); n > 0 {
		last := followers[n-1].Count
		from := followers[0].Count
		if n >= followerWindow {
			from = followers[n-followerWindow].Count
		}
		st.Followers = last
		st.FollowerDelta = last - from
	}

	recent := newestFirst(posts)
	if len(recent) > sparklineLen {
		recent = recent[:sparklineLen]
	}
	st.SparklineLikes = make([]int, len(recent))
	for i, p := range recent {
		st.SparklineLikes[len(recent)-1-i] = p.Likes
	}
	return st
}

// DayBucket is one day of the engagement series.
type DayBucket struct {
	Date     time.Time `json:"date"`
	Label    string    `json:"label"`
	Likes    int       `json:"likes"`
	Retweets int       `json:"retweets"`
	Replies  int       `json:"replies"`
}

// EngagementSeries groups posts by calendar day, oldest day first.
// Days are keyed by full date so the same M/D in different years never merge.
func EngagementSeries(posts []types.Post) []DayBucket {
	ordered := oldestFirst(posts)
	index := make(map[time.Time]int)
	var buckets []DayBucket
	for _, p := range ordered {
		y, m, d := p.Timestamp.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, p.Timestamp.Location())
		i, ok := index[day]
		if !ok {
			i = len(buckets)
			index[day] = i
			buckets = append(buckets, DayBucket{Date: day, Label: day.Format("1/2")})
		}
		buckets[i].Likes += p.Likes
		buckets[i].Retweets += p.Retweets
		buckets[i].Replies += p.Replies
	}
	return buckets
}

// TypeAverage is the mean like count of one post category.
type TypeAverage struct {
	Category string  `json:"category"`
	Posts    int     `json:"posts"`
	AvgLikes float64 `json:"avg_likes"`
}

// TypeAverages returns per-category mean likes in first-seen order.
func TypeAverages(posts []types.Post) []TypeAverage {
	index := make(map[string]int)
	var out []TypeAverage
	sums := []int{}
	for _, p := range posts {
		i, ok := index[p.Category]
		if !ok {
			i = len(out)
			index[p.Category] = i
			out = append(out, TypeAverage{Category: p.Category})
			sums = append(sums, 0)
		}
		out[i].Posts++
		sums[i] += p.Likes
	}
	for i := range out {
		out[i].AvgLikes = round1(float64(sums[i]) / float64(out[i].Posts))
	}
	return out
}

// HourBucket is the like total of one hour of the day.
type HourBucket struct {
	Hour      int     `json:"hour"`
	Likes     int     `json:"likes"`
	Intensity float64 `json:"intensity"`
}

// HourHistogram sums likes per posting hour; intensity is relative to the busiest hour.
func HourHistogram(posts []types.Post) [24]HourBucket {
	var h [24]HourBucket
	for i := range h {
		h[i].Hour = i
	}
	for _, p := range posts {
		h[p.Timestamp.Hour()].Likes += p.Likes
	}
	max := 0
	for _, b := range h {
		if b.Likes > max {
			max = b.Likes
		}
	}
	if max == 0 {
		return h
	}
	for i := range h {
		h[i].Intensity = float64(h[i].Likes) / float64(max)
	}
	return h
}

// BestWorst returns the n most liked posts and the n least liked, lowest first.
func BestWorst(posts []types.Post, n int) (best, worst []types.Post) {
	if n <= 0 || len(posts) == 0 {
		return []types.Post{}, []types.Post{}
	}
	sorted := append([]types.Post(nil), posts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Likes > sorted[j].Likes
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	best = append([]types.Post(nil), sorted[:n]...)
	tail := sorted[len(sorted)-n:]
	worst = make([]types.Post, n)
	for i, p := range tail {
		worst[n-1-i] = p
	}
	return best, worst
}

func newestFirst(posts []types.Post) []types.Post {
	out := append([]types.Post(nil), posts...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func oldestFirst(posts []types.Post) []types.Post {
	out := append([]types.Post(nil), posts...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
