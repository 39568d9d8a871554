// Package pipeline sequences the scrape, translate, and purchase-mapping
// stages and records each run in the store. A failed stage is logged and
// recorded; later stages run on whatever inputs earlier stages produced.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jdboer/grocery-cli/internal/export"
	"github.com/jdboer/grocery-cli/internal/ledger"
	"github.com/jdboer/grocery-cli/internal/match"
	"github.com/jdboer/grocery-cli/internal/memory"
	"github.com/jdboer/grocery-cli/internal/model"
	"github.com/jdboer/grocery-cli/internal/scrape"
	"github.com/jdboer/grocery-cli/internal/store"
	"github.com/jdboer/grocery-cli/internal/translate"
)

// Pipeline owns the stage dependencies. Stages whose dependencies were
// not provided are recorded as skipped.
type Pipeline struct {
	store store.Store
	exp   *export.Exporter

	ah     scrape.Scraper
	lidl   scrape.Scraper
	svc    *translate.Service
	engine *match.Engine
	led    ledger.Ledger
	mem    *memory.Memory

	now func() time.Time
}

// Option configures optional pipeline stages.
type Option func(*Pipeline)

// WithAlbertHeijn enables the catalog scrape stage.
func WithAlbertHeijn(s scrape.Scraper) Option {
	return func(p *Pipeline) { p.ah = s }
}

// WithLidl enables the offers scrape stage.
func WithLidl(s scrape.Scraper) Option {
	return func(p *Pipeline) { p.lidl = s }
}

// WithTranslator enables the translate stage.
func WithTranslator(svc *translate.Service) Option {
	return func(p *Pipeline) { p.svc = svc }
}

// WithMapper enables the purchase-mapping stage. The memory supplies the
// candidate catalog.
func WithMapper(engine *match.Engine, led ledger.Ledger, mem *memory.Memory) Option {
	return func(p *Pipeline) {
		p.engine = engine
		p.led = led
		p.mem = mem
	}
}

// New creates a Pipeline. The store and exporter are always required;
// stages come in via options.
func New(st store.Store, exp *export.Exporter, opts ...Option) *Pipeline {
	p := &Pipeline{
		store: st,
		exp:   exp,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes every configured stage in order and persists the run
// record. The returned run reflects the final status; Run itself only
// errors when the store refuses the bookkeeping.
func (p *Pipeline) Run(ctx context.Context) (*model.Run, error) {
	log := zap.L()
	log.Info("pipeline: starting run")

	run, err := p.store.CreateRun(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	var stages []model.StageInfo
	trackStage := func(name string, enabled bool, fn func() (int, error)) {
		info := model.StageInfo{Name: name}
		if !enabled {
			info.Status = model.StageStatusSkipped
			log.Info("pipeline: stage skipped", zap.String("stage", name))
			stages = append(stages, info)
			return
		}

		start := p.now()
		items, fnErr := fn()
		info.Items = items
		info.DurationMS = time.Since(start).Milliseconds()

		if fnErr != nil {
			info.Status = model.StageStatusFailed
			info.Error = fnErr.Error()
			log.Error("pipeline: stage failed",
				zap.String("stage", name),
				zap.Int64("duration_ms", info.DurationMS),
				zap.Error(fnErr),
			)
		} else {
			info.Status = model.StageStatusOK
			log.Info("pipeline: stage complete",
				zap.String("stage", name),
				zap.Int("items", items),
				zap.Int64("duration_ms", info.DurationMS),
			)
		}
		stages = append(stages, info)
	}

	trackStage("scrape-lidl", p.lidl != nil, func() (int, error) {
		return p.ScrapeLidl(ctx, run.ID)
	})
	trackStage("scrape-ah", p.ah != nil, func() (int, error) {
		return p.ScrapeAH(ctx, run.ID)
	})
	trackStage("translate", p.svc != nil, func() (int, error) {
		return p.Translate(ctx)
	})
	trackStage("map", p.engine != nil, func() (int, error) {
		return p.MapPurchases(ctx)
	})

	status := runStatus(stages)
	if err := p.store.FinishRun(ctx, run.ID, status, stages); err != nil {
		return nil, eris.Wrap(err, "pipeline: finish run")
	}
	run.Status = status
	run.Stages = stages

	log.Info("pipeline: run finished",
		zap.String("run_id", run.ID),
		zap.String("status", string(status)),
	)
	return run, nil
}

// runStatus folds the stage outcomes into a run status: every executed
// stage ok means complete, every executed stage failed means failed,
// anything in between is partial.
func runStatus(stages []model.StageInfo) model.RunStatus {
	ok, failed := 0, 0
	for _, s := range stages {
		switch s.Status {
		case model.StageStatusOK:
			ok++
		case model.StageStatusFailed:
			failed++
		}
	}
	switch {
	case failed == 0:
		return model.RunStatusComplete
	case ok == 0:
		return model.RunStatusFailed
	default:
		return model.RunStatusPartial
	}
}

// ScrapeLidl fetches the weekly offers, writes the dated export, and
// snapshots the records under the run.
func (p *Pipeline) ScrapeLidl(ctx context.Context, runID string) (int, error) {
	records, err := p.lidl.Scrape(ctx)
	if err != nil {
		return 0, err
	}
	day := p.now()
	if err := p.exp.WriteProducts(p.exp.Path(export.BaseLidl, day), records); err != nil {
		return 0, err
	}
	if _, err := p.store.SaveSnapshots(ctx, runID, p.lidl.Name(), records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// ScrapeAH walks the catalog, writes the per-aisle summary from the raw
// rows, then the merged full export, and snapshots the merged records.
func (p *Pipeline) ScrapeAH(ctx context.Context, runID string) (int, error) {
	raw, err := p.ah.Scrape(ctx)
	if err != nil {
		return 0, err
	}
	day := p.now()

	summary := scrape.Summarize(raw)
	if err := p.exp.WriteSummary(p.exp.Path(export.BaseAHSummary, day), summary); err != nil {
		return 0, err
	}

	merged := model.MergeSnapshots(raw)
	if err := p.exp.WriteProducts(p.exp.Path(export.BaseAHFull, day), merged); err != nil {
		return 0, err
	}
	if _, err := p.store.SaveSnapshots(ctx, runID, p.ah.Name(), merged); err != nil {
		return 0, err
	}
	return len(merged), nil
}

// Translate enriches today's exports with English columns. Each export
// file is optional; a missing file is logged and the others still run.
func (p *Pipeline) Translate(ctx context.Context) (int, error) {
	day := p.now()
	translated := 0
	attempted := 0

	// AH catalog, through the id-keyed memory.
	attempted++
	if records, err := p.exp.ReadProducts(p.exp.Path(export.BaseAHFull, day)); err != nil {
		zap.L().Warn("pipeline: catalog export unavailable", zap.Error(err))
		attempted--
	} else {
		if err := p.svc.TranslateCatalog(ctx, records); err != nil {
			return translated, err
		}
		if err := p.exp.WriteProducts(p.exp.TranslatedPath(export.BaseAHFull, day), records); err != nil {
			return translated, err
		}
		translated += len(records)
	}

	// Aisle summary.
	attempted++
	if summary, err := p.exp.ReadSummary(p.exp.Path(export.BaseAHSummary, day)); err != nil {
		zap.L().Warn("pipeline: summary export unavailable", zap.Error(err))
		attempted--
	} else {
		p.svc.TranslateSummary(ctx, summary)
		if err := p.exp.WriteSummary(p.exp.TranslatedPath(export.BaseAHSummary, day), summary); err != nil {
			return translated, err
		}
	}

	// Lidl offers, no stable ids so the memory is bypassed.
	attempted++
	if offers, err := p.exp.ReadProducts(p.exp.Path(export.BaseLidl, day)); err != nil {
		zap.L().Warn("pipeline: offers export unavailable", zap.Error(err))
		attempted--
	} else {
		p.svc.TranslateTitles(ctx, offers)
		if err := p.exp.WriteProducts(p.exp.TranslatedPath(export.BaseLidl, day), offers); err != nil {
			return translated, err
		}
		translated += len(offers)
	}

	if attempted == 0 {
		return 0, eris.New("pipeline: no exports found to translate")
	}
	return translated, nil
}

// MapPurchases resolves unmapped ledger rows against the translation
// memory catalog.
func (p *Pipeline) MapPurchases(ctx context.Context) (int, error) {
	outcome, err := p.engine.Run(ctx, p.led, p.mem.Entries())
	if err != nil {
		return 0, err
	}
	return outcome.Processed, nil
}
