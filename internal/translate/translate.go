// Package translate implements the batch translation stage: a batching
// layer over a translation provider, and a service that applies the
// persisted translation memory to catalog records.
package translate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jdboer/grocery-cli/internal/memory"
	"github.com/jdboer/grocery-cli/internal/model"
)

// Translator translates one batch of texts, preserving order and length.
type Translator interface {
	TranslateBatch(ctx context.Context, texts []string) ([]string, error)
}

// Batcher splits work into fixed-size batches with a pause between
// them. A failed batch falls back to identity for its members; the run
// never aborts on a provider error.
type Batcher struct {
	tr        Translator
	batchSize int
	pause     time.Duration
}

// NewBatcher creates a Batcher over a provider.
func NewBatcher(tr Translator, batchSize int, pause time.Duration) *Batcher {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Batcher{tr: tr, batchSize: batchSize, pause: pause}
}

// TranslateAll translates every text in the input. Distinct non-empty
// values are translated once; the result has the same length as the
// input, untranslated values passing through unchanged.
func (b *Batcher) TranslateAll(ctx context.Context, texts []string) []string {
	unique := make([]string, 0, len(texts))
	seen := make(map[string]struct{}, len(texts))
	for _, t := range texts {
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		unique = append(unique, t)
	}

	if len(unique) == 0 {
		return texts
	}

	zap.L().Info("translate: unique terms to translate", zap.Int("count", len(unique)))
	translated := b.translateUnique(ctx, unique)

	out := make([]string, len(texts))
	for i, t := range texts {
		if en, ok := translated[t]; ok {
			out[i] = en
		} else {
			out[i] = t
		}
	}
	return out
}

// translateUnique runs the batched provider calls and builds the
// original-to-translated map.
func (b *Batcher) translateUnique(ctx context.Context, unique []string) map[string]string {
	translated := make(map[string]string, len(unique))

	for start := 0; start < len(unique); start += b.batchSize {
		end := start + b.batchSize
		if end > len(unique) {
			end = len(unique)
		}
		batch := unique[start:end]

		results, err := b.tr.TranslateBatch(ctx, batch)
		if err != nil || len(results) != len(batch) {
			// Identity fallback for this batch only.
			zap.L().Warn("translate: batch failed, keeping originals",
				zap.Int("size", len(batch)),
				zap.Error(err),
			)
			for _, t := range batch {
				translated[t] = t
			}
			continue
		}

		for i, t := range batch {
			translated[t] = results[i]
		}
		zap.L().Info("translate: batch done",
			zap.Int("translated", end),
			zap.Int("total", len(unique)),
		)

		if end < len(unique) && b.pause > 0 {
			select {
			case <-ctx.Done():
				// Remaining texts fall back to identity via the map default.
				return translated
			case <-time.After(b.pause):
			}
		}
	}

	return translated
}

// Service fills the English columns of catalog data, consulting and
// feeding the translation memory for id-keyed records.
type Service struct {
	mem     *memory.Memory
	batcher *Batcher
}

// NewService creates a translation service.
func NewService(mem *memory.Memory, batcher *Batcher) *Service {
	return &Service{mem: mem, batcher: batcher}
}

// TranslateCatalog fills TitleEN and AisleEN in place. Only ids absent
// from the memory are sent to the provider; fresh translations are
// merged back so later runs reuse them. Records whose id stays
// untranslated fall back to the Dutch title.
func (s *Service) TranslateCatalog(ctx context.Context, records []model.ProductRecord) error {
	fresh := s.newEntries(records)

	if len(fresh) > 0 {
		zap.L().Info("translate: new items to translate", zap.Int("count", len(fresh)))

		titles := make([]string, len(fresh))
		for i, e := range fresh {
			titles[i] = e.DutchTitle
		}
		english := s.batcher.TranslateAll(ctx, titles)
		for i := range fresh {
			fresh[i].EnglishTitle = english[i]
		}
		if err := s.mem.Merge(fresh); err != nil {
			return err
		}
	}

	for i := range records {
		if en, ok := s.mem.Lookup(records[i].ID); ok && en != "" {
			records[i].TitleEN = en
		} else {
			records[i].TitleEN = records[i].Title
		}
	}

	aisles := make([]string, len(records))
	for i, r := range records {
		aisles[i] = r.Aisle
	}
	aislesEN := s.batcher.TranslateAll(ctx, aisles)
	for i := range records {
		records[i].AisleEN = aislesEN[i]
	}

	return nil
}

// newEntries collects one memory entry per unseen id, first occurrence
// wins within the run.
func (s *Service) newEntries(records []model.ProductRecord) []model.TranslationEntry {
	var fresh []model.TranslationEntry
	seen := make(map[string]struct{})
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		if _, ok := s.mem.Lookup(r.ID); ok {
			continue
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		fresh = append(fresh, model.TranslationEntry{ID: r.ID, DutchTitle: r.Title})
	}
	return fresh
}

// TranslateTitles fills TitleEN directly from the provider, no memory.
// Used for listings without stable product ids.
func (s *Service) TranslateTitles(ctx context.Context, records []model.ProductRecord) {
	titles := make([]string, len(records))
	for i, r := range records {
		titles[i] = r.Title
	}
	english := s.batcher.TranslateAll(ctx, titles)
	for i := range records {
		records[i].TitleEN = english[i]
	}
}

// TranslateSummary fills AisleEN on per-aisle summary lines.
func (s *Service) TranslateSummary(ctx context.Context, summary []model.CategorySummary) {
	aisles := make([]string, len(summary))
	for i, s := range summary {
		aisles[i] = s.Aisle
	}
	english := s.batcher.TranslateAll(ctx, aisles)
	for i := range summary {
		summary[i].AisleEN = english[i]
	}
}
