package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AllAccountsID is the pseudo-account that aggregates every configured account.
const AllAccountsID = "all"

var (
	ErrUnknownRank     = errors.New("unknown rank")
	ErrUnknownCategory = errors.New("unknown note category")
	ErrUnknownView     = errors.New("unknown view")
	ErrInvalidRange    = errors.New("invalid date range")

	ErrDuplicateAccount = errors.New("duplicate account id")
)

// Rank is the engagement tier of a post relative to its account baseline.
type Rank string

const (
	RankS Rank = "S"
	RankA Rank = "A"
	RankB Rank = "B"
	RankC Rank = "C"
)

// Ranks lists every rank from best to worst.
var Ranks = []Rank{RankS, RankA, RankB, RankC}

var rankColors = map[Rank]string{
	RankS: "#f59e0b",
	RankA: "#10b981",
	RankB: "#3b82f6",
	RankC: "#94a3b8",
}

// ParseRank validates a rank key such as "S".
func ParseRank(s string) (Rank, error) {
	r := Rank(s)
	if _, ok := rankColors[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRank, s)
	}
	return r, nil
}

// Color returns the badge color for the rank.
func (r Rank) Color() (string, error) {
	c, ok := rankColors[r]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRank, string(r))
	}
	return c, nil
}

// Post is a single generated post with its engagement counters
type Post struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
	Category  string    `json:"category"`
	Likes     int       `json:"likes"`
	Retweets  int       `json:"retweets"`
	Replies   int       `json:"replies"`
	Rank      Rank      `json:"rank"`
	Chars     int       `json:"chars"`
}

// Engagement is the sum of all interaction counters.
func (p Post) Engagement() int {
	return p.Likes + p.Retweets + p.Replies
}

// FollowerSample is one point of the follower series
type FollowerSample struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// FunnelStage is one step of the conversion funnel
type FunnelStage struct {
	Label string `json:"label"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

// ABTest is a user-entered experiment comparing two variants
type ABTest struct {
	Name     string  `json:"name"`
	Target   string  `json:"target"`
	VariantA string  `json:"variant_a"`
	VariantB string  `json:"variant_b"`
	ResultA  float64 `json:"result_a"`
	ResultB  float64 `json:"result_b"`
	Memo     string  `json:"memo"`
}

// NoteCategory classifies a user note.
type NoteCategory string

const (
	NoteIdea        NoteCategory = "idea"
	NoteAnalysis    NoteCategory = "analysis"
	NoteImprovement NoteCategory = "improvement"
	NoteOther       NoteCategory = "other"
)

// ParseNoteCategory validates a note category key.
func ParseNoteCategory(s string) (NoteCategory, error) {
	switch c := NoteCategory(s); c {
	case NoteIdea, NoteAnalysis, NoteImprovement, NoteOther:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Note is a free-text memo entered on the notes view
type Note struct {
	Title     string       `json:"title"`
	Category  NoteCategory `json:"category"`
	Body      string       `json:"body"`
	CreatedAt string       `json:"created_at"`
}

// Account is a tracked social-media account
type Account struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Handle string `json:"handle"`
	Color  string `json:"color"`
	APIURL string `json:"api_url,omitempty"`
}

// NewAccountID returns a time-ordered account identifier.
func NewAccountID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NormalizeAccounts assigns an ID to every account without one and rejects
// duplicate IDs and the reserved AllAccountsID. It edits accounts in place.
func NormalizeAccounts(accounts []Account) (changed bool, err error) {
	seen := make(map[string]bool, len(accounts))
	for i := range accounts {
		if accounts[i].ID == "" {
			if accounts[i].ID, err = NewAccountID(); err != nil {
				return changed, err
			}
			changed = true
		}
		id := accounts[i].ID
		if id == AllAccountsID || seen[id] {
			return changed, fmt.Errorf("%w: %s", ErrDuplicateAccount, id)
		}
		seen[id] = true
	}
	return changed, nil
}

// NormalizeNotes files notes with an unknown category under NoteOther.
func NormalizeNotes(notes []Note) (changed bool) {
	for i := range notes {
		if _, err := ParseNoteCategory(string(notes[i].Category)); err != nil {
			notes[i].Category = NoteOther
			changed = true
		}
	}
	return changed
}

// View names a dashboard page.
type View string

const (
	ViewOverview  View = "overview"
	ViewPosts     View = "posts"
	ViewAnalytics View = "analytics"
	ViewFunnel    View = "funnel"
	ViewABTests   View = "abtests"
	ViewCalendar  View = "calendar"
	ViewNotes     View = "notes"
	ViewSettings  View = "settings"
)

// Views lists every page in navigation order.
var Views = []View{ViewOverview, ViewPosts, ViewAnalytics, ViewFunnel, ViewABTests, ViewCalendar, ViewNotes, ViewSettings}

// ParseView validates a view name.
func ParseView(s string) (View, error) {
	for _, v := range Views {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}

// DateRange is the number of trailing days shown on the dashboard.
type DateRange int

const (
	Range7  DateRange = 7
	Range30 DateRange = 30
	Range90 DateRange = 90
)

// ParseRange accepts 7, 30 or 90.
func ParseRange(days int) (DateRange, error) {
	switch r := DateRange(days); r {
	case Range7, Range30, Range90:
		return r, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidRange, days)
}
