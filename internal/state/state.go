// Package state owns the dashboard's view state: the current selection, the
// generated post set and the user-entered collections persisted through the
// slot store. It is created once by the composition root and passed to
// whatever needs it.
package state

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ibeckermayer/xdash/internal/mockdata"
	"github.com/ibeckermayer/xdash/internal/store"
	"github.com/ibeckermayer/xdash/internal/types"
)

var (
	ErrNoteIndex        = errors.New("note index out of range")
	ErrPostIndex        = errors.New("post index out of range")
	ErrUnknownAccount   = errors.New("unknown account")
	ErrDuplicateAccount = types.ErrDuplicateAccount
	ErrInvalidInput     = errors.New("invalid input")
)

// NoteTimeLayout formats note creation timestamps.
const NoteTimeLayout = "2006/01/02 15:04"

// SlotStore is the durable backing for the persisted collections.
type SlotStore interface {
	LoadSlot(slot store.Slot, dst any) error
	SaveSlot(slot store.Slot, v any) error
}

// Store holds the application state.
type Store struct {
	mu    sync.RWMutex
	slots SlotStore          // immutable after creation
	gen   *mockdata.Generator // immutable after creation
	now   func() time.Time

	// Mutable fields - use Snapshot() for concurrent access.
	account  string
	view     types.View
	dateRng  types.DateRange
	posts    []types.Post
	notes    []types.Note
	abTests  []types.ABTest
	accounts []types.Account
}

// Snapshot is a consistent, point-in-time copy of the state.
type Snapshot struct {
	Account  string
	View     types.View
	Range    types.DateRange
	Posts    []types.Post
	Notes    []types.Note
	ABTests  []types.ABTest
	Accounts []types.Account
}

// Load reads the persisted slots, seeding and writing back defaults for any
// slot that is absent, and generates the initial post set.
func Load(slots SlotStore, gen *mockdata.Generator, rng types.DateRange) (*Store, error) {
	if _, err := types.ParseRange(int(rng)); err != nil {
		return nil, err
	}

	s := &Store{
		slots:   slots,
		gen:     gen,
		now:     time.Now,
		account: types.AllAccountsID,
		view:    types.ViewOverview,
		dateRng: rng,
	}

	c, err := readCollections(slots)
	if err != nil {
		return nil, err
	}
	s.notes, s.abTests, s.accounts = c.notes, c.tests, c.accounts

	s.posts = gen.GeneratePosts(s.account, int(rng))
	return s, nil
}

type collections struct {
	notes    []types.Note
	tests    []types.ABTest
	accounts []types.Account
}

// readCollections loads every slot and enforces the collection rules on
// whatever was stored. Repaired collections are written back.
func readCollections(slots SlotStore) (collections, error) {
	var c collections
	if err := loadOrSeed(slots, store.SlotNotes, &c.notes, func() []types.Note { return []types.Note{} }); err != nil {
		return c, err
	}
	if err := loadOrSeed(slots, store.SlotABTests, &c.tests, mockdata.GenerateABTests); err != nil {
		return c, err
	}
	if err := loadOrSeed(slots, store.SlotAccounts, &c.accounts, mockdata.DefaultAccounts); err != nil {
		return c, err
	}

	if types.NormalizeNotes(c.notes) {
		log.Printf("[state] notes with unknown categories moved to %q", types.NoteOther)
		if err := slots.SaveSlot(store.SlotNotes, c.notes); err != nil {
			return c, err
		}
	}
	changed, err := types.NormalizeAccounts(c.accounts)
	if err != nil {
		return c, fmt.Errorf("stored accounts: %w", err)
	}
	if changed {
		log.Println("[state] assigned ids to stored accounts")
		if err := slots.SaveSlot(store.SlotAccounts, c.accounts); err != nil {
			return c, err
		}
	}
	return c, nil
}

func loadOrSeed[T any](slots SlotStore, slot store.Slot, dst *[]T, seed func() []T) error {
	err := slots.LoadSlot(slot, dst)
	if err == nil {
		if *dst == nil {
			*dst = []T{}
		}
		return nil
	}
	if !errors.Is(err, store.ErrSlotNotFound) {
		return err
	}

	log.Printf("[state] slot %s missing, seeding defaults", slot)
	*dst = seed()
	if err := slots.SaveSlot(slot, *dst); err != nil {
		return fmt.Errorf("failed to seed slot %s: %w", slot, err)
	}
	return nil
}

// Snapshot returns a copy of the state under read lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Account:  s.account,
		View:     s.view,
		Range:    s.dateRng,
		Posts:    append([]types.Post(nil), s.posts...),
		Notes:    append([]types.Note(nil), s.notes...),
		ABTests:  append([]types.ABTest(nil), s.abTests...),
		Accounts: append([]types.Account(nil), s.accounts...),
	}
}

// Generator exposes the mock data source for per-render series.
func (s *Store) Generator() *mockdata.Generator {
	return s.gen
}

// SwitchAccount selects an account and regenerates its posts.
func (s *Store) SwitchAccount(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != types.AllAccountsID && indexOfAccount(s.accounts, id) < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, id)
	}
	s.account = id
	s.view = types.ViewOverview
	s.posts = s.gen.GeneratePosts(id, int(s.dateRng))
	log.Printf("[state] switched to account %s (%d posts)", id, len(s.posts))
	return nil
}

// SetView records the current navigation target.
func (s *Store) SetView(v types.View) {
	s.mu.Lock()
	s.view = v
	s.mu.Unlock()
}

// SetRange changes the date range and regenerates posts for it.
func (s *Store) SetRange(days int) error {
	rng, err := types.ParseRange(days)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dateRng = rng
	s.posts = s.gen.GeneratePosts(s.account, int(rng))
	return nil
}

// PostText returns the full text of the post at index in the loaded set.
func (s *Store) PostText(index int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.posts) {
		return "", fmt.Errorf("%w: %d", ErrPostIndex, index)
	}
	return s.posts[index].Text, nil
}

// AddNote prepends a note (newest first) and persists the collection.
func (s *Store) AddNote(title string, category types.NoteCategory, body string) (types.Note, error) {
	if title == "" {
		return types.Note{}, fmt.Errorf("%w: note title is required", ErrInvalidInput)
	}
	if _, err := types.ParseNoteCategory(string(category)); err != nil {
		return types.Note{}, err
	}

	note := types.Note{
		Title:     title,
		Category:  category,
		Body:      body,
		CreatedAt: s.now().Format(NoteTimeLayout),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	notes := make([]types.Note, 0, len(s.notes)+1)
	notes = append(notes, note)
	notes = append(notes, s.notes...)
	if err := s.slots.SaveSlot(store.SlotNotes, notes); err != nil {
		return types.Note{}, err
	}
	s.notes = notes
	return note, nil
}

// DeleteNote removes the note at index and persists the remainder.
func (s *Store) DeleteNote(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.notes) {
		return fmt.Errorf("%w: %d", ErrNoteIndex, index)
	}

	notes := make([]types.Note, 0, len(s.notes)-1)
	notes = append(notes, s.notes[:index]...)
	notes = append(notes, s.notes[index+1:]...)
	if err := s.slots.SaveSlot(store.SlotNotes, notes); err != nil {
		return err
	}
	s.notes = notes
	return nil
}

// AddABTest appends an experiment and persists the collection.
func (s *Store) AddABTest(t types.ABTest) error {
	if t.Name == "" {
		return fmt.Errorf("%w: test name is required", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tests := append(append([]types.ABTest(nil), s.abTests...), t)
	if err := s.slots.SaveSlot(store.SlotABTests, tests); err != nil {
		return err
	}
	s.abTests = tests
	return nil
}

// AddAccount assigns a time-ordered ID when none is given and persists the collection.
func (s *Store) AddAccount(a types.Account) (types.Account, error) {
	if a.Name == "" || a.Handle == "" {
		return types.Account{}, fmt.Errorf("%w: account name and handle are required", ErrInvalidInput)
	}
	if a.ID == "" {
		id, err := types.NewAccountID()
		if err != nil {
			return types.Account{}, err
		}
		a.ID = id
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == types.AllAccountsID || indexOfAccount(s.accounts, a.ID) >= 0 {
		return types.Account{}, fmt.Errorf("%w: %s", ErrDuplicateAccount, a.ID)
	}

	accounts := append(append([]types.Account(nil), s.accounts...), a)
	if err := s.slots.SaveSlot(store.SlotAccounts, accounts); err != nil {
		return types.Account{}, err
	}
	s.accounts = accounts
	return a, nil
}

// Reload re-reads every persisted slot, e.g. after an import. If the selected
// account no longer exists the selection falls back to all accounts.
func (s *Store) Reload() error {
	c, err := readCollections(s.slots)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes, s.abTests, s.accounts = c.notes, c.tests, c.accounts
	if s.account != types.AllAccountsID && indexOfAccount(s.accounts, s.account) < 0 {
		log.Printf("[state] account %s removed, selecting all accounts", s.account)
		s.account = types.AllAccountsID
		s.view = types.ViewOverview
		s.posts = s.gen.GeneratePosts(s.account, int(s.dateRng))
	}
	return nil
}

func indexOfAccount(accounts []types.Account, id string) int {
	for i, a := range accounts {
		if a.ID == id {
			return i
		}
	}
	return -1
}
