package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jdboer/grocery-cli/internal/memory"
	"github.com/jdboer/grocery-cli/internal/pipeline"
	"github.com/jdboer/grocery-cli/internal/scrape"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: scrape, translate, map",
	Long:  "Runs every stage in sequence. A stage whose configuration is incomplete is skipped with a warning; a stage that fails at runtime is recorded and the rest still run.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		var opts []pipeline.Option

		if err := cfg.Validate("scrape"); err != nil {
			zap.L().Warn("scrape stages skipped", zap.Error(err))
		} else {
			opts = append(opts,
				pipeline.WithLidl(scrape.NewLidl(cfg.Lidl)),
				pipeline.WithAlbertHeijn(scrape.NewAlbertHeijn(cfg.AH)),
			)
		}

		var mem *memory.Memory
		if err := cfg.Validate("translate"); err != nil {
			zap.L().Warn("translate stage skipped", zap.Error(err))
		} else {
			svc, m, svcErr := initTranslateService()
			if svcErr != nil {
				zap.L().Warn("translate stage skipped", zap.Error(svcErr))
			} else {
				mem = m
				opts = append(opts, pipeline.WithTranslator(svc))
			}
		}

		if err := cfg.Validate("map"); err != nil {
			zap.L().Warn("mapping stage skipped", zap.Error(err))
		} else {
			led, ledErr := initLedger(ctx)
			if ledErr != nil {
				zap.L().Warn("mapping stage skipped", zap.Error(ledErr))
			} else {
				if mem == nil {
					m, memErr := memory.Load(cfg.Memory.Path)
					if memErr != nil {
						zap.L().Warn("mapping stage skipped", zap.Error(memErr))
					} else {
						mem = m
					}
				}
				if mem != nil {
					opts = append(opts, pipeline.WithMapper(initEngine(), led, mem))
				}
			}
		}

		p := pipeline.New(st, initExporter(), opts...)
		run, err := p.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
