package memory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdboer/grocery-cli/internal/model"
)

func memPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "product_translation_memory.csv")
}

func TestLoadCreatesMissingFile(t *testing.T) {
	path := memPath(t)

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,dutch_title,english_title\n", string(data))
}

func TestLoadSelfHealsDuplicates(t *testing.T) {
	path := memPath(t)
	raw := "id,dutch_title,english_title\n" +
		"1,Melk,Milk\n" +
		"2,Kaas,Cheese\n" +
		"1,Melk,Whole Milk\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	// Last occurrence wins
	en, ok := m.Lookup("1")
	require.True(t, ok)
	assert.Equal(t, "Whole Milk", en)

	// Cleaned version was written back
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,dutch_title,english_title\n2,Kaas,Cheese\n1,Melk,Whole Milk\n", string(data))
}

func TestLoadCleanFileNotRewritten(t *testing.T) {
	path := memPath(t)
	raw := "id,dutch_title,english_title\n1,Melk,Milk\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))
	before, err := os.Stat(path)
	require.NoError(t, err)

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestMergeLastWriteWins(t *testing.T) {
	path := memPath(t)
	m, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, m.Merge([]model.TranslationEntry{
		{ID: "1", DutchTitle: "Melk", EnglishTitle: "Milk"},
		{ID: "2", DutchTitle: "Kaas", EnglishTitle: "Cheese"},
	}))
	require.NoError(t, m.Merge([]model.TranslationEntry{
		{ID: "1", DutchTitle: "Melk", EnglishTitle: "Whole Milk"},
	}))

	assert.Equal(t, 2, m.Len())
	en, _ := m.Lookup("1")
	assert.Equal(t, "Whole Milk", en)

	// Reload sees the same state
	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Len())
	en, _ = reloaded.Lookup("1")
	assert.Equal(t, "Whole Milk", en)
}

func TestMergeIsIdempotent(t *testing.T) {
	path := memPath(t)
	m, err := Load(path)
	require.NoError(t, err)

	entries := []model.TranslationEntry{
		{ID: "1", DutchTitle: "Melk", EnglishTitle: "Milk"},
		{ID: "2", DutchTitle: "Kaas", EnglishTitle: "Cheese"},
	}
	require.NoError(t, m.Merge(entries))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, m.Merge(entries))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, 2, m.Len())
}

func TestMergeSkipsEmptyIDs(t *testing.T) {
	path := memPath(t)
	m, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, m.Merge([]model.TranslationEntry{
		{ID: "", DutchTitle: "Naamloos", EnglishTitle: "Nameless"},
		{ID: "1", DutchTitle: "Melk", EnglishTitle: "Milk"},
	}))
	assert.Equal(t, 1, m.Len())
}

func TestMergeEmptyIsNoop(t *testing.T) {
	path := memPath(t)
	m, err := Load(path)
	require.NoError(t, err)
	before, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, m.Merge(nil))

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestEntriesPreserveOrder(t *testing.T) {
	path := memPath(t)
	m, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, m.Merge([]model.TranslationEntry{
		{ID: "1", DutchTitle: "Melk", EnglishTitle: "Milk"},
		{ID: "2", DutchTitle: "Kaas", EnglishTitle: "Cheese"},
		{ID: "3", DutchTitle: "Brood", EnglishTitle: "Bread"},
	}))
	// Re-adding id 1 moves it to the end
	require.NoError(t, m.Merge([]model.TranslationEntry{
		{ID: "1", DutchTitle: "Melk", EnglishTitle: "Semi-skimmed Milk"},
	}))

	entries := m.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "2", entries[0].ID)
	assert.Equal(t, "3", entries[1].ID)
	assert.Equal(t, "1", entries[2].ID)
}
