package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"

	"github.com/jdboer/grocery-cli/internal/export"
	"github.com/jdboer/grocery-cli/internal/ledger"
	"github.com/jdboer/grocery-cli/internal/match"
	"github.com/jdboer/grocery-cli/internal/memory"
	"github.com/jdboer/grocery-cli/internal/store"
	"github.com/jdboer/grocery-cli/internal/translate"
	"github.com/jdboer/grocery-cli/pkg/claude"
	"github.com/jdboer/grocery-cli/pkg/gtranslate"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "grocery.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initExporter() *export.Exporter {
	return export.New(cfg.Export.Dir)
}

// initTranslator builds the configured provider. Language codes are
// validated as BCP 47 tags before they reach the provider.
func initTranslator() (translate.Translator, error) {
	source, err := language.Parse(cfg.Translate.SourceLang)
	if err != nil {
		return nil, eris.Wrapf(err, "parse source language %q", cfg.Translate.SourceLang)
	}
	target, err := language.Parse(cfg.Translate.TargetLang)
	if err != nil {
		return nil, eris.Wrapf(err, "parse target language %q", cfg.Translate.TargetLang)
	}

	switch cfg.Translate.Provider {
	case "google":
		var opts []gtranslate.Option
		if cfg.Translate.BaseURL != "" {
			opts = append(opts, gtranslate.WithBaseURL(cfg.Translate.BaseURL))
		}
		return translate.NewGoogle(gtranslate.NewClient(opts...), source.String(), target.String()), nil
	case "anthropic":
		var opts []claude.Option
		if cfg.Translate.Model != "" {
			opts = append(opts, claude.WithModel(cfg.Translate.Model))
		}
		if cfg.Translate.BaseURL != "" {
			opts = append(opts, claude.WithBaseURL(cfg.Translate.BaseURL))
		}
		return translate.NewClaude(claude.NewClient(cfg.Translate.AnthropicKey, opts...), source.String(), target.String()), nil
	default:
		return nil, eris.Errorf("unsupported translate provider: %s", cfg.Translate.Provider)
	}
}

// initTranslateService opens the translation memory and wraps the
// provider in the batching layer.
func initTranslateService() (*translate.Service, *memory.Memory, error) {
	tr, err := initTranslator()
	if err != nil {
		return nil, nil, err
	}
	mem, err := memory.Load(cfg.Memory.Path)
	if err != nil {
		return nil, nil, err
	}
	batcher := translate.NewBatcher(tr, cfg.Translate.BatchSize, time.Duration(cfg.Translate.PauseMS)*time.Millisecond)
	return translate.NewService(mem, batcher), mem, nil
}

func initLedger(ctx context.Context) (ledger.Ledger, error) {
	switch cfg.Ledger.Backend {
	case "sheets":
		return ledger.NewSheets(ctx, cfg.Ledger.CredentialsFile, cfg.Ledger.SpreadsheetID, cfg.Ledger.Tab)
	case "xlsx":
		return ledger.NewXLSX(cfg.Ledger.XLSXPath, cfg.Ledger.Tab), nil
	default:
		return nil, eris.Errorf("unsupported ledger backend: %s", cfg.Ledger.Backend)
	}
}

func initEngine() *match.Engine {
	return match.NewEngine(
		match.NewTitleScorer(),
		cfg.Mapping.Threshold,
		cfg.Mapping.MaxCandidates,
		cfg.Mapping.StoreLabel,
	)
}
