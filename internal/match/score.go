// Package match maps free-form purchase descriptions onto catalog ids.
// Matching is two-staged: exact hits against already-mapped ledger rows,
// then fuzzy scoring against the translation memory.
package match

import (
	"regexp"
	"sort"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// Scorer rates how well a query matches a candidate title, 0 to 100.
type Scorer interface {
	Score(query, candidate string) int
}

// sizeToken matches quantity tokens like "1l", "500g", "6x", "0,5" that
// shoppers leave out of their own notes.
var sizeToken = regexp.MustCompile(`^\d+([.,]\d+)?(g|gr|kg|ml|cl|l|liter|st|stuks|x)?$`)

var punct = strings.NewReplacer(
	",", " ", ".", " ", "-", " ", "_", " ",
	"(", " ", ")", " ", "/", " ", "'", "", "&", " ",
)

// normalize lowercases, strips punctuation and drops size tokens so
// "Halfvolle Melk 1L" and "halfvolle melk" compare equal.
func normalize(s string) string {
	s = punct.Replace(strings.ToLower(s))
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if sizeToken.MatchString(f) {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

func tokenSort(s string) string {
	fields := strings.Fields(s)
	sort.Strings(fields)
	return strings.Join(fields, " ")
}

// TitleScorer is the default Scorer. It takes the best of plain edit
// similarity, token-sorted edit similarity and bigram overlap on the
// normalized strings, like a weighted-ratio comparator.
type TitleScorer struct {
	lev  *metrics.Levenshtein
	dice *metrics.SorensenDice
}

// NewTitleScorer creates the default scorer.
func NewTitleScorer() *TitleScorer {
	lev := metrics.NewLevenshtein()
	lev.CaseSensitive = false
	dice := metrics.NewSorensenDice()
	dice.CaseSensitive = false
	return &TitleScorer{lev: lev, dice: dice}
}

func (t *TitleScorer) Score(query, candidate string) int {
	q, c := normalize(query), normalize(candidate)
	if q == "" || c == "" {
		return 0
	}
	if q == c {
		return 100
	}

	best := strutil.Similarity(q, c, t.lev)
	if s := strutil.Similarity(tokenSort(q), tokenSort(c), t.lev); s > best {
		best = s
	}
	if s := strutil.Similarity(q, c, t.dice); s > best {
		best = s
	}

	return int(best*100 + 0.5)
}
