package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/xdash/internal/mockdata"
	"github.com/ibeckermayer/xdash/internal/types"
)

var base = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

func post(at time.Time, likes int) types.Post {
	return types.Post{Timestamp: at, Text: fmt.Sprintf("post %d", likes), Category: "共感", Likes: likes, Rank: types.RankC}
}

func TestOverview(t *testing.T) {
	posts := []types.Post{
		{Timestamp: base.Add(2 * time.Hour), Likes: 10, Retweets: 2, Replies: 1},
		{Timestamp: base.Add(1 * time.Hour), Likes: 20, Retweets: 4, Replies: 3},
	}
	followers := make([]types.FollowerSample, 10)
	for i := range followers {
		followers[i].Count = 40 + i
	}

	st := Overview(posts, followers)
	assert.Equal(t, 30, st.Likes)
	assert.Equal(t, 6, st.Retweets)
	assert.Equal(t, 4, st.Replies)
	assert.Equal(t, 20.0, st.AvgEngagement)
	assert.Equal(t, 30*12+6*25, st.Impressions)
	assert.Equal(t, 49, st.Followers)
	assert.Equal(t, 49-42, st.FollowerDelta)
	assert.Equal(t, []int{20, 10}, st.SparklineLikes)
}

func TestOverview_ShortFollowerSeries(t *testing.T) {
	followers := []types.FollowerSample{{Count: 42}, {Count: 40}, {Count: 47}}
	st := Overview(nil, followers)
	assert.Equal(t, 5, st.FollowerDelta)
	assert.Zero(t, st.AvgEngagement)
	assert.Empty(t, st.SparklineLikes)
}

func TestOverview_SparklineIsLatestFourteenChronological(t *testing.T) {
	var posts []types.Post
	for i := 0; i < 20; i++ {
		posts = append(posts, post(base.Add(time.Duration(i)*time.Hour), i))
	}
	st := Overview(posts, nil)
	require.Len(t, st.SparklineLikes, 14)
	assert.Equal(t, 6, st.SparklineLikes[0])
	assert.Equal(t, 19, st.SparklineLikes[13])
}

func TestEngagementSeries(t *testing.T) {
	posts := []types.Post{
		post(base.AddDate(0, 0, 1).Add(20*time.Hour), 5),
		post(base.Add(20*time.Hour), 3),
		post(base.Add(8*time.Hour), 2),
	}
	got := EngagementSeries(posts)
	require.Len(t, got, 2)
	assert.Equal(t, "3/15", got[0].Label)
	assert.Equal(t, 5, got[0].Likes)
	assert.Equal(t, "3/16", got[1].Label)
	assert.Equal(t, 5, got[1].Likes)
}

func TestEngagementSeries_SameLabelDifferentYear(t *testing.T) {
	posts := []types.Post{
		post(base, 1),
		post(base.AddDate(-1, 0, 0), 2),
	}
	got := EngagementSeries(posts)
	require.Len(t, got, 2)
	assert.Equal(t, got[0].Label, got[1].Label)
	assert.Equal(t, 2, got[0].Likes)
	assert.Equal(t, 1, got[1].Likes)
}

func TestTypeAverages(t *testing.T) {
	posts := []types.Post{
		{Category: "How to", Likes: 10},
		{Category: "共感", Likes: 3},
		{Category: "How to", Likes: 21},
	}
	want := []TypeAverage{
		{Category: "How to", Posts: 2, AvgLikes: 15.5},
		{Category: "共感", Posts: 1, AvgLikes: 3},
	}
	if diff := cmp.Diff(want, TypeAverages(posts)); diff != "" {
		t.Errorf("TypeAverages mismatch (-want +got):\n%s", diff)
	}
}

func TestHourHistogram(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		h := HourHistogram(nil)
		for i, b := range h {
			assert.Equal(t, i, b.Hour)
			assert.Zero(t, b.Intensity)
		}
	})

	t.Run("relative to max", func(t *testing.T) {
		h := HourHistogram([]types.Post{
			post(base.Add(7*time.Hour), 10),
			post(base.Add(21*time.Hour), 40),
			post(base.AddDate(0, 0, 1).Add(21*time.Hour), 40),
		})
		assert.Equal(t, 80, h[21].Likes)
		assert.Equal(t, 1.0, h[21].Intensity)
		assert.Equal(t, 0.125, h[7].Intensity)
		assert.Zero(t, h[12].Intensity)
	})
}

func TestBestWorst(t *testing.T) {
	var posts []types.Post
	for _, l := range []int{5, 50, 1, 30, 12} {
		posts = append(posts, post(base, l))
	}
	best, worst := BestWorst(posts, 2)
	assert.Equal(t, []int{50, 30}, likesOf(best))
	assert.Equal(t, []int{1, 5}, likesOf(worst))

	best, worst = BestWorst(posts[:1], 3)
	assert.Len(t, best, 1)
	assert.Len(t, worst, 1)

	best, worst = BestWorst(nil, 3)
	assert.Empty(t, best)
	assert.Empty(t, worst)
}

func likesOf(posts []types.Post) []int {
	out := make([]int, len(posts))
	for i, p := range posts {
		out[i] = p.Likes
	}
	return out
}

func TestFilterTable_Conjunctive(t *testing.T) {
	posts := []types.Post{
		{Text: "GASで自動化", Rank: types.RankS, Category: "How to", Likes: 1},
		{Text: "GASの話", Rank: types.RankA, Category: "How to", Likes: 2},
		{Text: "GASで自動化", Rank: types.RankS, Category: "共感", Likes: 3},
		{Text: "別の話", Rank: types.RankS, Category: "How to", Likes: 4},
	}

	res, err := FilterTable(posts, TableFilter{Query: "GAS", Rank: types.RankS, Category: "How to"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Matched)
	assert.Equal(t, 0, res.Rows[0].Index)

	res, err = FilterTable(posts, TableFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Matched)

	res, err = FilterTable(posts, TableFilter{Rank: types.RankS, Sort: SortLikes})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Matched)
	assert.Equal(t, 4, res.Rows[0].Post.Likes)
}

func TestFilterTable_CapsRows(t *testing.T) {
	gen := mockdata.New(7, "account_1")
	posts := gen.GeneratePosts("account_1", 90)

	res, err := FilterTable(posts, TableFilter{})
	require.NoError(t, err)
	assert.Equal(t, 180, res.Matched)
	assert.Len(t, res.Rows, MaxTableRows)
	for i := 1; i < len(res.Rows); i++ {
		assert.False(t, res.Rows[i].Post.Timestamp.After(res.Rows[i-1].Post.Timestamp))
	}
}

func TestFilterTable_Errors(t *testing.T) {
	_, err := FilterTable(nil, TableFilter{Sort: "chars"})
	assert.ErrorIs(t, err, ErrUnknownSortKey)
	_, err = FilterTable(nil, TableFilter{Rank: "Z"})
	assert.ErrorIs(t, err, types.ErrUnknownRank)
}

func TestFunnelInsights(t *testing.T) {
	got, err := FunnelInsights(mockdata.GenerateFunnel())
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, 2.8, got[0].Rate)
	assert.True(t, got[0].OK)
	assert.Equal(t, 30.0, got[1].Rate)
	assert.True(t, got[1].OK)
	assert.Equal(t, 12.5, got[2].Rate)
	assert.True(t, got[2].OK)

	_, err = FunnelInsights(mockdata.GenerateFunnel()[:5])
	assert.ErrorIs(t, err, ErrShortFunnel)
}

func TestFunnelInsights_BelowTarget(t *testing.T) {
	stages := mockdata.GenerateFunnel()
	stages[1].Value = 500
	got, err := FunnelInsights(stages)
	require.NoError(t, err)
	assert.Equal(t, 1.1, got[0].Rate)
	assert.False(t, got[0].OK)
}

func TestConversionRate_ZeroBase(t *testing.T) {
	assert.Zero(t, ConversionRate(0, 10))
}

func TestABWinner(t *testing.T) {
	tests := []struct {
		a, b float64
		want Variant
	}{
		{45, 78, VariantB},
		{62, 41, VariantA},
		{50, 50, VariantB},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v_vs_%v", tt.a, tt.b), func(t *testing.T) {
			assert.Equal(t, tt.want, ABWinner(types.ABTest{ResultA: tt.a, ResultB: tt.b}))
		})
	}
}

func TestCalendarHeat(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	posts := []types.Post{
		post(time.Date(2026, 2, 3, 8, 0, 0, 0, time.UTC), 30),
		post(time.Date(2026, 2, 3, 20, 0, 0, 0, time.UTC), 30),
		post(time.Date(2026, 2, 5, 20, 0, 0, 0, time.UTC), 500),
		post(time.Date(2026, 1, 3, 20, 0, 0, 0, time.UTC), 90),
	}
	days := CalendarHeat(posts, now)
	require.Len(t, days, 28)
	assert.Equal(t, 60, days[2].Likes)
	assert.Equal(t, 0.5, days[2].Intensity)
	assert.Equal(t, HeatColor(0.5), days[2].Color)
	assert.Equal(t, 1.0, days[4].Intensity)
	assert.Zero(t, days[0].Likes)
}

func TestHeatColor_Bands(t *testing.T) {
	assert.Equal(t, HeatColor(0), HeatColor(0.24))
	assert.NotEqual(t, HeatColor(0.24), HeatColor(0.25))
	assert.NotEqual(t, HeatColor(0.49), HeatColor(0.5))
	assert.NotEqual(t, HeatColor(0.74), HeatColor(0.75))
	assert.Equal(t, HeatColor(0.75), HeatColor(1))
}

func TestSummary(t *testing.T) {
	posts := []types.Post{
		{Text: "a", Likes: 10, Retweets: 1, Replies: 1},
		{Text: "b", Likes: 8, Retweets: 2, Replies: 0},
		{Text: "c", Likes: 3, Retweets: 0, Replies: 2},
	}
	s := Summary(posts)
	assert.Equal(t, 3, s.Posts)
	assert.Equal(t, 7.0, s.AvgLikes)
	assert.Equal(t, 1.0, s.AvgRetweets)
	assert.Equal(t, 1.0, s.AvgReplies)
	assert.Equal(t, "b", s.BestText)
	assert.Equal(t, 21*12+3*25, s.Impressions)
	assert.Equal(t, 8.26, s.EngagementRate)

	assert.Equal(t, WeeklySummary{}, Summary(nil))
}

func TestHints(t *testing.T) {
	assert.Equal(t, []string{"順調！現在の方針を継続"},
		Hints(WeeklySummary{AvgLikes: 50, EngagementRate: 7, AvgRetweets: 5, AvgReplies: 2}))

	hints := Hints(WeeklySummary{})
	assert.Len(t, hints, 4)
}
