package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRank(t *testing.T) {
	for _, r := range Ranks {
		got, err := ParseRank(string(r))
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	_, err := ParseRank("X")
	assert.ErrorIs(t, err, ErrUnknownRank)
}

func TestRankColor(t *testing.T) {
	c, err := RankS.Color()
	require.NoError(t, err)
	assert.NotEmpty(t, c)

	_, err = Rank("Z").Color()
	assert.ErrorIs(t, err, ErrUnknownRank)
}

func TestParseNoteCategory(t *testing.T) {
	c, err := ParseNoteCategory("idea")
	require.NoError(t, err)
	assert.Equal(t, NoteIdea, c)

	_, err = ParseNoteCategory("misc")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestParseViewAndRange(t *testing.T) {
	v, err := ParseView("calendar")
	require.NoError(t, err)
	assert.Equal(t, ViewCalendar, v)

	_, err = ParseView("home")
	assert.ErrorIs(t, err, ErrUnknownView)

	r, err := ParseRange(90)
	require.NoError(t, err)
	assert.Equal(t, Range90, r)

	_, err = ParseRange(14)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestNormalizeAccounts(t *testing.T) {
	accounts := []Account{{ID: "a"}, {Name: "no id"}}
	changed, err := NormalizeAccounts(accounts)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotEmpty(t, accounts[1].ID)

	changed, err = NormalizeAccounts(accounts)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = NormalizeAccounts([]Account{{ID: "x"}, {ID: "x"}})
	assert.ErrorIs(t, err, ErrDuplicateAccount)
	_, err = NormalizeAccounts([]Account{{ID: AllAccountsID}})
	assert.ErrorIs(t, err, ErrDuplicateAccount)
}

func TestNormalizeNotes(t *testing.T) {
	notes := []Note{{Category: NoteIdea}, {Category: "bogus"}, {}}
	assert.True(t, NormalizeNotes(notes))
	assert.Equal(t, []NoteCategory{NoteIdea, NoteOther, NoteOther}, []NoteCategory{notes[0].Category, notes[1].Category, notes[2].Category})
	assert.False(t, NormalizeNotes(notes))
}
