package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jdboer/grocery-cli/internal/model"
	"github.com/jdboer/grocery-cli/internal/pipeline"
	"github.com/jdboer/grocery-cli/internal/scrape"
)

var scrapeCmd = &cobra.Command{
	Use:       "scrape [ah|lidl|all]",
	Short:     "Fetch retailer catalogs and write the dated CSV exports",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"ah", "lidl", "all"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("scrape"); err != nil {
			return err
		}

		target := "all"
		if len(args) == 1 {
			target = args[0]
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		var opts []pipeline.Option
		if target == "ah" || target == "all" {
			opts = append(opts, pipeline.WithAlbertHeijn(scrape.NewAlbertHeijn(cfg.AH)))
		}
		if target == "lidl" || target == "all" {
			opts = append(opts, pipeline.WithLidl(scrape.NewLidl(cfg.Lidl)))
		}

		p := pipeline.New(st, initExporter(), opts...)
		run, err := p.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "scrape")
		}
		if run.Status == model.RunStatusFailed {
			return eris.New("scrape: every stage failed")
		}

		zap.L().Info("scrape finished",
			zap.String("run_id", run.ID),
			zap.String("status", string(run.Status)),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}
