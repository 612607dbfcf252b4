package analytics

import (
	"math"
	"time"

	"github.com/ibeckermayer/xdash/internal/types"
)

const calendarFullLikes = 120

var heatBands = []struct {
	below float64
	color string
}{
	{0.25, "#e0f2fe"},
	{0.5, "#7dd3fc"},
	{0.75, "#0ea5e9"},
	{math.Inf(1), "#0369a1"},
}

// CalendarDay is one cell of the month heatmap.
type CalendarDay struct {
	Day       int     `json:"day"`
	Likes     int     `json:"likes"`
	Intensity float64 `json:"intensity"`
	Color     string  `json:"color"`
}

// CalendarHeat covers every day of now's month. Posts count toward a cell when
// their day of month and month match it.
func CalendarHeat(posts []types.Post, now time.Time) []CalendarDay {
	y, m, _ := now.Date()
	days := time.Date(y, m+1, 0, 0, 0, 0, 0, now.Location()).Day()

	totals := make([]int, days+1)
	for _, p := range posts {
		if p.Timestamp.Month() != m {
			continue
		}
		if d := p.Timestamp.Day(); d <= days {
			totals[d] += p.Likes
		}
	}

	out := make([]CalendarDay, days)
	for d := 1; d <= days; d++ {
		intensity := math.Min(float64(totals[d])/calendarFullLikes, 1)
		out[d-1] = CalendarDay{
			Day:       d,
			Likes:     totals[d],
			Intensity: intensity,
			Color:     HeatColor(intensity),
		}
	}
	return out
}

// HeatColor maps an intensity in [0, 1] to its band color.
func HeatColor(intensity float64) string {
	for _, b := range heatBands {
		if intensity < b.below {
			return b.color
		}
	}
	return heatBands[len(heatBands)-1].color
}
