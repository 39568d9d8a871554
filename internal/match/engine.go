package match

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jdboer/grocery-cli/internal/ledger"
	"github.com/jdboer/grocery-cli/internal/model"
)

// Candidate is one scored catalog entry.
type Candidate struct {
	ID    string
	Title string
	Score int
}

// Outcome summarizes one mapping run.
type Outcome struct {
	Processed int
	History   int
	Fuzzy     int
	NoMatch   int
	Updates   []ledger.Update
}

// Engine resolves unmapped purchase rows. Acceptance is inclusive at
// the threshold; rows with no candidate at or above it get the no-match
// marker in the ids column and keep an empty id.
type Engine struct {
	scorer        Scorer
	threshold     int
	maxCandidates int
	storeLabel    string
}

// NewEngine creates a mapping engine.
func NewEngine(scorer Scorer, threshold, maxCandidates int, storeLabel string) *Engine {
	if maxCandidates <= 0 {
		maxCandidates = 3
	}
	return &Engine{
		scorer:        scorer,
		threshold:     threshold,
		maxCandidates: maxCandidates,
		storeLabel:    strings.ToLower(storeLabel),
	}
}

// Run fetches the ledger, maps every eligible row and applies all cell
// updates in one batch at the end. A run with nothing to do applies
// nothing.
func (e *Engine) Run(ctx context.Context, led ledger.Ledger, entries []model.TranslationEntry) (*Outcome, error) {
	rows, err := led.Rows(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, eris.New("match: translation memory is empty")
	}

	outcome := e.mapRows(rows, entries)
	zap.L().Info("match: mapping done",
		zap.Int("processed", outcome.Processed),
		zap.Int("history", outcome.History),
		zap.Int("fuzzy", outcome.Fuzzy),
		zap.Int("no_match", outcome.NoMatch),
	)

	if len(outcome.Updates) > 0 {
		if err := led.Apply(ctx, outcome.Updates); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}

// mapRows is the pure mapping pass over one ledger snapshot.
func (e *Engine) mapRows(rows []model.PurchaseRow, entries []model.TranslationEntry) *Outcome {
	choices := choicesFromMemory(entries)
	known := historyFromRows(rows)
	zap.L().Info("match: learned exact mappings from history", zap.Int("count", len(known)))

	outcome := &Outcome{}
	for _, row := range rows {
		if !e.eligible(row) {
			continue
		}
		name := row.ProductOriginal
		if name == "" {
			continue
		}
		outcome.Processed++

		// Exact hit against already-mapped rows.
		if prior, ok := known[name]; ok {
			outcome.History++
			outcome.Updates = append(outcome.Updates,
				ledger.Update{RowIndex: row.Index, Column: ledger.ColumnID, Value: prior.id},
				ledger.Update{RowIndex: row.Index, Column: ledger.ColumnIDs, Value: prior.ids},
			)
			continue
		}

		candidates := e.topCandidates(name, choices)
		if len(candidates) == 0 {
			outcome.NoMatch++
			outcome.Updates = append(outcome.Updates,
				ledger.Update{RowIndex: row.Index, Column: ledger.ColumnIDs, Value: model.NoMatchMarker},
			)
			continue
		}

		outcome.Fuzzy++
		best := candidates[0]
		idsStr := annotate(candidates)
		outcome.Updates = append(outcome.Updates,
			ledger.Update{RowIndex: row.Index, Column: ledger.ColumnID, Value: best.ID},
			ledger.Update{RowIndex: row.Index, Column: ledger.ColumnIDs, Value: idsStr},
		)

		// Later rows with the same description reuse this resolution
		// without re-scoring.
		known[name] = priorMapping{id: best.ID, ids: idsStr}
	}
	return outcome
}

// eligible selects rows for the configured store that have no id yet.
func (e *Engine) eligible(row model.PurchaseRow) bool {
	return strings.Contains(strings.ToLower(row.Store), e.storeLabel) && row.ID == ""
}

// topCandidates scores the query against every memory title and keeps
// the best ones that clear the threshold.
func (e *Engine) topCandidates(query string, choices []choice) []Candidate {
	scored := make([]Candidate, 0, 8)
	for _, ch := range choices {
		s := e.scorer.Score(query, ch.title)
		if s < e.threshold {
			continue
		}
		scored = append(scored, Candidate{ID: ch.id, Title: ch.title, Score: s})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Title < scored[j].Title
	})

	if len(scored) > e.maxCandidates {
		scored = scored[:e.maxCandidates]
	}
	return scored
}

// annotate renders candidates as "id (score%)" joined by the aisle
// separator.
func annotate(candidates []Candidate) string {
	parts := make([]string, len(candidates))
	for i, c := range candidates {
		parts[i] = fmt.Sprintf("%s (%d%%)", c.ID, c.Score)
	}
	return strings.Join(parts, model.AisleSeparator)
}

type choice struct {
	title string
	id    string
}

// choicesFromMemory builds the scoring pool, one entry per distinct
// Dutch title, last occurrence winning.
func choicesFromMemory(entries []model.TranslationEntry) []choice {
	byTitle := make(map[string]int)
	var out []choice
	for _, e := range entries {
		if e.DutchTitle == "" || e.ID == "" {
			continue
		}
		if i, seen := byTitle[e.DutchTitle]; seen {
			out[i].id = e.ID
			continue
		}
		byTitle[e.DutchTitle] = len(out)
		out = append(out, choice{title: e.DutchTitle, id: e.ID})
	}
	return out
}

type priorMapping struct {
	id  string
	ids string
}

// historyFromRows learns description-to-id pairs from rows that were
// mapped in earlier runs. Later rows override earlier ones.
func historyFromRows(rows []model.PurchaseRow) map[string]priorMapping {
	known := make(map[string]priorMapping)
	for _, row := range rows {
		if row.ProductOriginal == "" || row.ID == "" {
			continue
		}
		known[row.ProductOriginal] = priorMapping{id: row.ID, ids: row.IDs}
	}
	return known
}
