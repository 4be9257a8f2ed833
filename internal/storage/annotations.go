package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mitsukabu/screener/internal/models"
	"github.com/mitsukabu/screener/pkg/logger"
)

// Annotation record schema versions.
const (
	CodeSetVersion = "1.0.0"
	NotesVersion   = "1.0.0"
)

// MaxNoteLength bounds a per-stock note, in characters: notes are mostly
// Japanese text, so the limit must not shrink with multibyte encoding.
const MaxNoteLength = 500

type codeSetRecord struct {
	Codes      []string `json:"codes"`
	LastUpdate string   `json:"lastUpdate"`
	Version    string   `json:"version"`
}

type notesRecord struct {
	Notes      map[string]string `json:"notes"`
	LastUpdate string            `json:"lastUpdate"`
	Version    string            `json:"version"`
}

// CodeSet is a persisted set of stock codes (favorites, holdings,
// considering). Every mutation re-reads the medium first and merges the
// single change under a lock, so concurrent call sites never clobber each
// other's writes.
type CodeSet struct {
	mu     sync.Mutex
	medium Medium
	key    string
}

// NewCodeSet creates a code set persisted under the given record key
func NewCodeSet(medium Medium, key string) *CodeSet {
	return &CodeSet{medium: medium, key: key}
}

// load reads the current persisted membership. Version mismatch or corrupt
// data evicts the record and yields an empty set.
func (c *CodeSet) load() []string {
	raw, ok, err := c.medium.Get(c.key)
	if err != nil || !ok {
		return nil
	}

	var record codeSetRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		logger.Warn("evicting corrupt annotation record",
			logger.String("key", c.key),
			logger.ErrorField(err),
		)
		_ = c.medium.Delete(c.key)
		return nil
	}
	if record.Version != CodeSetVersion {
		logger.Warn("evicting annotation record with unsupported version",
			logger.String("key", c.key),
			logger.String("version", record.Version),
		)
		_ = c.medium.Delete(c.key)
		return nil
	}
	return record.Codes
}

func (c *CodeSet) save(codes []string) error {
	record := codeSetRecord{
		Codes:      codes,
		LastUpdate: time.Now().Format(time.RFC3339),
		Version:    CodeSetVersion,
	}
	encoded, err := json.Marshal(&record)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.key, err)
	}
	if err := c.medium.Set(c.key, string(encoded)); err != nil {
		return fmt.Errorf("persist %s: %w", c.key, err)
	}
	return nil
}

// Add inserts a code; adding an existing member is a no-op
func (c *CodeSet) Add(code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.add(code)
}

func (c *CodeSet) add(code string) error {
	codes := c.load()
	for _, existing := range codes {
		if existing == code {
			return nil
		}
	}
	return c.save(append(codes, code))
}

// Remove deletes a code; removing a non-member is a no-op
func (c *CodeSet) Remove(code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remove(code)
}

func (c *CodeSet) remove(code string) error {
	codes := c.load()
	kept := codes[:0]
	for _, existing := range codes {
		if existing != code {
			kept = append(kept, existing)
		}
	}
	if len(kept) == len(codes) {
		return nil
	}
	return c.save(kept)
}

// Contains reports membership
func (c *CodeSet) Contains(code string) bool {
	for _, existing := range c.load() {
		if existing == code {
			return true
		}
	}
	return false
}

// Toggle flips membership. The check and the mutation happen under one
// lock so two concurrent toggles cannot both observe the same state.
func (c *CodeSet) Toggle(code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.load() {
		if existing == code {
			return c.remove(code)
		}
	}
	return c.add(code)
}

// List returns the members in insertion order
func (c *CodeSet) List() []string {
	return c.load()
}

// Count returns the number of members
func (c *CodeSet) Count() int {
	return len(c.load())
}

// SortedByCode returns the members ordered by numeric code ascending.
func (c *CodeSet) SortedByCode() []string {
	codes := c.load()
	sort.Slice(codes, func(i, j int) bool {
		a, _ := strconv.Atoi(codes[i])
		b, _ := strconv.Atoi(codes[j])
		return a < b
	})
	return codes
}

// NoteStore maps stock codes to free-text notes, persisted as one versioned
// record with the same locked read-merge-write discipline as CodeSet.
type NoteStore struct {
	mu     sync.Mutex
	medium Medium
}

// NewNoteStore creates a note store over the given medium
func NewNoteStore(medium Medium) *NoteStore {
	return &NoteStore{medium: medium}
}

func (n *NoteStore) load() map[string]string {
	raw, ok, err := n.medium.Get(KeyNotes)
	if err != nil || !ok {
		return map[string]string{}
	}

	var record notesRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil || record.Version != NotesVersion {
		logger.Warn("evicting corrupt notes record")
		_ = n.medium.Delete(KeyNotes)
		return map[string]string{}
	}
	if record.Notes == nil {
		return map[string]string{}
	}
	return record.Notes
}

func (n *NoteStore) save(notes map[string]string) error {
	record := notesRecord{
		Notes:      notes,
		LastUpdate: time.Now().Format(time.RFC3339),
		Version:    NotesVersion,
	}
	encoded, err := json.Marshal(&record)
	if err != nil {
		return fmt.Errorf("encode notes: %w", err)
	}
	if err := n.medium.Set(KeyNotes, string(encoded)); err != nil {
		return fmt.Errorf("persist notes: %w", err)
	}
	return nil
}

// Get returns the note for a code, or "" when none is stored
func (n *NoteStore) Get(code string) string {
	return n.load()[code]
}

// Set stores the note for a code. A blank note deletes the entry.
func (n *NoteStore) Set(code, note string) error {
	if utf8.RuneCountInString(note) > MaxNoteLength {
		return models.ErrNoteTooLong
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	notes := n.load()
	if strings.TrimSpace(note) == "" {
		delete(notes, code)
	} else {
		notes[code] = note
	}
	return n.save(notes)
}

// Delete removes the note for a code
func (n *NoteStore) Delete(code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	notes := n.load()
	if _, ok := notes[code]; !ok {
		return nil
	}
	delete(notes, code)
	return n.save(notes)
}

// All returns a copy of every stored note
func (n *NoteStore) All() map[string]string {
	notes := n.load()
	out := make(map[string]string, len(notes))
	for code, note := range notes {
		out[code] = note
	}
	return out
}
