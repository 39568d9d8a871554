package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jdboer/grocery-cli/internal/model"
	"github.com/jdboer/grocery-cli/internal/pipeline"
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Enrich today's exports with English titles via the translation memory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("translate"); err != nil {
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

		svc, _, err := initTranslateService()
		if err != nil {
			return err
		}

		p := pipeline.New(st, initExporter(), pipeline.WithTranslator(svc))
		run, err := p.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "translate")
		}
		if run.Status == model.RunStatusFailed {
			return eris.New("translate: stage failed")
		}

		zap.L().Info("translate finished", zap.String("run_id", run.ID))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)
}
