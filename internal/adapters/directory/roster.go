// Package directory resolves player ids against a roster of known players.
package directory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// ErrInvalidRoster is returned when a roster source cannot be parsed.
var ErrInvalidRoster = errors.New("invalid roster")

// Roster is an in-memory player directory. It is safe for concurrent use.
type Roster struct {
	mu      sync.RWMutex
	players map[string]string
}

// NewRoster returns a roster seeded with id to display name pairs.
func NewRoster(players map[string]string) *Roster {
	r := &Roster{players: make(map[string]string, len(players))}
	for id, name := range players {
		r.Add(id, name)
	}
	return r
}

// Add registers a player. An empty display name falls back to the id.
func (r *Roster) Add(id, displayName string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = id
	}
	r.mu.Lock()
	r.players[id] = displayName
	r.mu.Unlock()
}

// Exists reports whether id is on the roster.
func (r *Roster) Exists(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.players[id]
	return ok, nil
}

// DisplayName returns the player's display name, or "" when unknown.
func (r *Roster) DisplayName(_ context.Context, id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.players[id]
}

// Len returns the number of players on the roster.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// LoadFile reads a CSV roster from path. See LoadCSV.
func (r *Roster) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open roster %s: %w", path, err)
	}
	defer f.Close()

	n, err := r.LoadCSV(f)
	if err != nil {
		return n, fmt.Errorf("load roster %s: %w", path, err)
	}
	return n, nil
}

// LoadCSV adds every row of a CSV document with a header row naming a
// player_id column and an optional display_name column. It returns the
// number of players added.
func (r *Roster) LoadCSV(reader io.Reader) (int, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true

	records, err := csvReader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("%w: read csv: %v", ErrInvalidRoster, err)
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("%w: missing header row", ErrInvalidRoster)
	}

	headers := make(map[string]int, len(records[0]))
	for idx, col := range records[0] {
		headers[strings.ToLower(strings.TrimSpace(col))] = idx
	}
	idCol, ok := headers["player_id"]
	if !ok {
		return 0, fmt.Errorf("%w: missing required column %q", ErrInvalidRoster, "player_id")
	}
	nameCol, hasName := headers["display_name"]

	added := 0
	for i, record := range records[1:] {
		id := strings.TrimSpace(readValue(record, idCol))
		if id == "" {
			return added, fmt.Errorf("%w: line %d: empty player_id", ErrInvalidRoster, i+2)
		}
		name := ""
		if hasName {
			name = readValue(record, nameCol)
		}
		r.Add(id, name)
		added++
	}
	return added, nil
}

func readValue(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}
