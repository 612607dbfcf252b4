package analytics

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ibeckermayer/xdash/internal/types"
)

// MaxTableRows caps the rows returned by FilterTable.
const MaxTableRows = 50

var ErrUnknownSortKey = errors.New("unknown sort key")

// SortKey orders the post table.
type SortKey string

const (
	SortDate     SortKey = "date"
	SortLikes    SortKey = "likes"
	SortRetweets SortKey = "retweets"
	SortReplies  SortKey = "replies"
)

// TableFilter holds the post table controls. Empty fields impose no constraint.
type TableFilter struct {
	Query    string     `form:"q" json:"q"`
	Rank     types.Rank `form:"rank" json:"rank"`
	Category string     `form:"category" json:"category"`
	Sort     SortKey    `form:"sort" json:"sort"`
}

// TableRow is a matched post with its index in the loaded set, so callers
// can address it for copy.
type TableRow struct {
	Index int        `json:"index"`
	Post  types.Post `json:"post"`
}

// TableResult is the capped row set plus the uncapped match count.
type TableResult struct {
	Rows    []TableRow `json:"rows"`
	Matched int        `json:"matched"`
}

// FilterTable applies every active filter, sorts and caps the result.
func FilterTable(posts []types.Post, f TableFilter) (TableResult, error) {
	less, err := sortFunc(f.Sort)
	if err != nil {
		return TableResult{}, err
	}
	if f.Rank != "" {
		if _, err := types.ParseRank(string(f.Rank)); err != nil {
			return TableResult{}, err
		}
	}

	rows := []TableRow{}
	for i, p := range posts {
		if f.Query != "" && !strings.Contains(p.Text, f.Query) {
			continue
		}
		if f.Rank != "" && p.Rank != f.Rank {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		rows = append(rows, TableRow{Index: i, Post: p})
	}

	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i].Post, rows[j].Post) })

	res := TableResult{Matched: len(rows), Rows: rows}
	if len(rows) > MaxTableRows {
		res.Rows = rows[:MaxTableRows]
	}
	return res, nil
}

func sortFunc(key SortKey) (func(a, b types.Post) bool, error) {
	switch key {
	case "", SortDate:
		return func(a, b types.Post) bool { return a.Timestamp.After(b.Timestamp) }, nil
	case SortLikes:
		return func(a, b types.Post) bool { return a.Likes > b.Likes }, nil
	case SortRetweets:
		return func(a, b types.Post) bool { return a.Retweets > b.Retweets }, nil
	case SortReplies:
		return func(a, b types.Post) bool { return a.Replies > b.Replies }, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSortKey, string(key))
}
