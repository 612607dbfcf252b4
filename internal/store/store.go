package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ibeckermayer/xdash/internal/types"
)

var (
	ErrSlotNotFound   = errors.New("slot not found")
	ErrUnknownSlot    = errors.New("unknown slot")
	ErrUnknownVersion = errors.New("unknown slot version")
)

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// a single writer keeps whole-slot rewrites serialized
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS slots (
		name TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		payload TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// LoadSlot decodes the named slot into dst, upgrading older envelope
// versions on the way. Returns ErrSlotNotFound when the slot was never written.
func (s *Store) LoadSlot(slot Slot, dst any) error {
	if !slot.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownSlot, slot)
	}

	var payload string
	err := s.db.QueryRow(`SELECT payload FROM slots WHERE name = ?`, string(slot)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	if err != nil {
		return fmt.Errorf("failed to read slot %s: %w", slot, err)
	}

	var env Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return fmt.Errorf("failed to decode slot %s envelope: %w", slot, err)
	}

	data, err := upgrade(slot, env.Version, env.Data)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode slot %s: %w", slot, err)
	}
	return nil
}

// SaveSlot serializes the whole collection into the slot at the current version.
func (s *Store) SaveSlot(slot Slot, v any) error {
	if !slot.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownSlot, slot)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal slot %s: %w", slot, err)
	}
	return s.write(slot, data)
}

// ImportLegacy stores a raw collection as exported from browser local
// storage, upgrading it from version 0.
func (s *Store) ImportLegacy(slot Slot, raw []byte) error {
	if !slot.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownSlot, slot)
	}

	data, err := upgrade(slot, 0, raw)
	if err != nil {
		return err
	}
	if data, err = checkImported(slot, data); err != nil {
		return fmt.Errorf("rejected %s import: %w", slot, err)
	}
	return s.write(slot, data)
}

// checkImported applies the same rules a live mutation would: accounts get
// IDs and must be unique, notes fall back to the "other" category.
func checkImported(slot Slot, data json.RawMessage) (json.RawMessage, error) {
	switch slot {
	case SlotAccounts:
		var accounts []types.Account
		if err := json.Unmarshal(data, &accounts); err != nil {
			return nil, err
		}
		if _, err := types.NormalizeAccounts(accounts); err != nil {
			return nil, err
		}
		return marshalList(accounts)
	case SlotNotes:
		var notes []types.Note
		if err := json.Unmarshal(data, &notes); err != nil {
			return nil, err
		}
		types.NormalizeNotes(notes)
		return marshalList(notes)
	}
	return data, nil
}

func marshalList[T any](items []T) (json.RawMessage, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

// SlotVersion returns the envelope version currently stored in a slot.
func (s *Store) SlotVersion(slot Slot) (int, error) {
	var version int
	err := s.db.QueryRow(`SELECT version FROM slots WHERE name = ?`, string(slot)).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	return version, err
}

func (s *Store) write(slot Slot, data []byte) error {
	payload, err := json.Marshal(Envelope{Version: CurrentVersion, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal slot %s envelope: %w", slot, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO slots (name, version, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			version = excluded.version,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, string(slot), CurrentVersion, string(payload), time.Now())
	if err != nil {
		return fmt.Errorf("failed to write slot %s: %w", slot, err)
	}
	return nil
}
