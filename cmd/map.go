package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jdboer/grocery-cli/internal/memory"
	"github.com/jdboer/grocery-cli/internal/model"
	"github.com/jdboer/grocery-cli/internal/pipeline"
)

var mapCmd = &cobra.Command{
	Use:   "map-purchases",
	Short: "Resolve unmapped ledger rows against the catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("map"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		led, err := initLedger(ctx)
		if err != nil {
			return err
		}
		mem, err := memory.Load(cfg.Memory.Path)
		if err != nil {
			return err
		}

		p := pipeline.New(st, initExporter(), pipeline.WithMapper(initEngine(), led, mem))
		run, err := p.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "map purchases")
		}
		if run.Status == model.RunStatusFailed {
			return eris.New("map purchases: stage failed")
		}

		zap.L().Info("mapping finished", zap.String("run_id", run.ID))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mapCmd)
}
