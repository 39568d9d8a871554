package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "halfvolle melk", normalize("Halfvolle Melk 1L"))
	assert.Equal(t, "ah scharreleieren", normalize("AH Scharreleieren 10 stuks"))
	assert.Equal(t, "cola zero", normalize("Cola (zero) 1,5l"))
	assert.Equal(t, "roomboter croissants", normalize("Roomboter-croissants 4x"))
	assert.Equal(t, "", normalize("500g"))
}

func TestTitleScorer_SizeSuffixIsIgnored(t *testing.T) {
	s := NewTitleScorer()
	assert.Equal(t, 100, s.Score("Halfvolle melk", "Halfvolle Melk 1L"))
	assert.Equal(t, 100, s.Score("halfvolle melk", "Halfvolle melk"))
}

func TestTitleScorer_WordOrder(t *testing.T) {
	s := NewTitleScorer()
	assert.GreaterOrEqual(t, s.Score("melk halfvolle", "halfvolle melk"), 95)
}

func TestTitleScorer_CloseVariantsScoreHigh(t *testing.T) {
	s := NewTitleScorer()
	assert.GreaterOrEqual(t, s.Score("AH Halfvolle melk", "Halfvolle melk"), 80)
}

func TestTitleScorer_UnrelatedScoresLow(t *testing.T) {
	s := NewTitleScorer()
	assert.Less(t, s.Score("Halfvolle melk", "Wasmiddel color"), 60)
}

func TestTitleScorer_EmptyInput(t *testing.T) {
	s := NewTitleScorer()
	assert.Equal(t, 0, s.Score("", "Halfvolle melk"))
	assert.Equal(t, 0, s.Score("Halfvolle melk", ""))
	assert.Equal(t, 0, s.Score("1L", "Halfvolle melk"))
}
