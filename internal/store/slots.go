package store

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Slot names one persisted collection.
type Slot string

const (
	SlotNotes    Slot = "notes"
	SlotABTests  Slot = "abtests"
	SlotAccounts Slot = "accounts"
)

// Slots lists every persisted collection.
var Slots = []Slot{SlotNotes, SlotABTests, SlotAccounts}

// Valid reports whether the slot is one of the known collections.
func (s Slot) Valid() bool {
	for _, known := range Slots {
		if s == known {
			return true
		}
	}
	return false
}

// CurrentVersion is the envelope version written by this build.
const CurrentVersion = 1

// Envelope wraps every stored collection with its shape version.
// Version 0 is the bare array the browser dashboard kept in local storage.
type Envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// Migration upgrades a slot payload from one version to the next.
type Migration func(data json.RawMessage) (json.RawMessage, error)

// migrations maps slot -> from-version -> upgrade step.
var migrations = map[Slot]map[int]Migration{
	SlotNotes: {
		0: renameKeys(map[string]string{"content": "body", "date": "created_at", "createdAt": "created_at"}),
	},
	SlotABTests: {
		0: chain(
			renameKeys(map[string]string{
				"variantA": "variant_a",
				"variantB": "variant_b",
				"resultA":  "result_a",
				"resultB":  "result_b",
			}),
			numericFields("result_a", "result_b"),
		),
	},
	SlotAccounts: {
		0: renameKeys(map[string]string{"apiUrl": "api_url"}),
	},
}

// upgrade walks a payload from version up to CurrentVersion.
func upgrade(slot Slot, version int, data json.RawMessage) (json.RawMessage, error) {
	if version > CurrentVersion || version < 0 {
		return nil, fmt.Errorf("%w: slot %s has version %d (max %d)", ErrUnknownVersion, slot, version, CurrentVersion)
	}
	for v := version; v < CurrentVersion; v++ {
		step, ok := migrations[slot][v]
		if !ok {
			return nil, fmt.Errorf("%w: no migration for slot %s from version %d", ErrUnknownVersion, slot, v)
		}
		out, err := step(data)
		if err != nil {
			return nil, fmt.Errorf("failed to migrate slot %s from version %d: %w", slot, v, err)
		}
		data = out
	}
	return data, nil
}

func chain(steps ...Migration) Migration {
	return func(data json.RawMessage) (json.RawMessage, error) {
		var err error
		for _, step := range steps {
			if data, err = step(data); err != nil {
				return nil, err
			}
		}
		return data, nil
	}
}

// renameKeys rewrites object keys in a JSON array of objects.
func renameKeys(renames map[string]string) Migration {
	return eachObject(func(obj map[string]any) error {
		for from, to := range renames {
			v, ok := obj[from]
			if !ok {
				continue
			}
			delete(obj, from)
			if _, exists := obj[to]; !exists {
				obj[to] = v
			}
		}
		return nil
	})
}

// numericFields converts form-entered strings such as "45" into numbers.
func numericFields(keys ...string) Migration {
	return eachObject(func(obj map[string]any) error {
		for _, k := range keys {
			str, ok := obj[k].(string)
			if !ok {
				continue
			}
			if str == "" {
				obj[k] = 0
				continue
			}
			f, err := strconv.ParseFloat(str, 64)
			if err != nil {
				return fmt.Errorf("field %s: %w", k, err)
			}
			obj[k] = f
		}
		return nil
	})
}

func eachObject(fn func(map[string]any) error) Migration {
	return func(data json.RawMessage) (json.RawMessage, error) {
		var items []map[string]any
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		for _, item := range items {
			if err := fn(item); err != nil {
				return nil, err
			}
		}
		if items == nil {
			items = []map[string]any{}
		}
		return json.Marshal(items)
	}
}
