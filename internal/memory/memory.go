// Package memory implements the persisted translation memory, a CSV
// file keyed by product id. The file is the durable cache of the
// translation stage; every write rewrites it as a clean, duplicate-free
// snapshot.
package memory

import (
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jdboer/grocery-cli/internal/model"
)

// Memory is the in-process view of the translation memory file.
// Entries keep file order; a re-added id moves to the end, so the last
// writer both wins and sits last in the file.
type Memory struct {
	path  string
	order []string
	byID  map[string]model.TranslationEntry
}

// Load reads the memory file at path. A missing file is created empty.
// Duplicate ids are collapsed keep-last on load and, when any were
// found, the cleaned version is written back immediately.
func Load(path string) (*Memory, error) {
	m := &Memory{
		path: path,
		byID: make(map[string]model.TranslationEntry),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		zap.L().Info("memory: no file found, creating", zap.String("path", path))
		if err := m.flush(); err != nil {
			return nil, err
		}
		return m, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "memory: read file")
	}

	var rows []model.TranslationEntry
	if len(data) > 0 {
		if err := csvutil.Unmarshal(data, &rows); err != nil {
			return nil, eris.Wrap(err, "memory: parse file")
		}
	}

	for _, row := range rows {
		m.put(row)
	}

	if len(m.order) < len(rows) {
		zap.L().Info("memory: cleaned duplicate ids",
			zap.Int("removed", len(rows)-len(m.order)),
			zap.String("path", path),
		)
		if err := m.flush(); err != nil {
			return nil, err
		}
	}

	zap.L().Info("memory: loaded", zap.Int("entries", len(m.order)), zap.String("path", path))
	return m, nil
}

// Lookup returns the cached English title for an id.
func (m *Memory) Lookup(id string) (string, bool) {
	e, ok := m.byID[id]
	if !ok {
		return "", false
	}
	return e.EnglishTitle, true
}

// Len reports the number of unique entries.
func (m *Memory) Len() int { return len(m.order) }

// Entries returns all entries in file order.
func (m *Memory) Entries() []model.TranslationEntry {
	out := make([]model.TranslationEntry, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out
}

// Merge applies new entries on top of the current state, last write
// wins per id, and rewrites the whole file. Merging the same entries
// twice leaves the file unchanged.
func (m *Memory) Merge(entries []model.TranslationEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		m.put(e)
	}
	if err := m.flush(); err != nil {
		return err
	}
	zap.L().Info("memory: updated",
		zap.Int("entries", len(m.order)),
		zap.Int("merged", len(entries)),
	)
	return nil
}

// put inserts keep-last: an existing id is removed from its slot and
// re-appended at the end.
func (m *Memory) put(e model.TranslationEntry) {
	if _, exists := m.byID[e.ID]; exists {
		for i, id := range m.order {
			if id == e.ID {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	m.byID[e.ID] = e
	m.order = append(m.order, e.ID)
}

// flush rewrites the file from scratch. The header row is always
// written, even for an empty memory.
func (m *Memory) flush() error {
	data, err := csvutil.Marshal(m.Entries())
	if err != nil {
		return eris.Wrap(err, "memory: encode entries")
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return eris.Wrap(err, "memory: write file")
	}
	return nil
}
