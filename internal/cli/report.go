package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/report"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/store"
)

func (a *App) newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report <recipe>",
		Short: "Build a weighted report from a recipe",
		Long: `Build a report from a YAML or JSON recipe.

A recipe names the report and lists weighted sources, each either a stored
analysis or an earlier report:

  metadata:
    id: english
    name: English
    languages: [en]
    version: 1.0.0
  sources:
    - id: eng_news_2020_1M
      type: analysis
      weight: 2
      strip_punctuation: true
    - id: eng_wikipedia_2016_1M
      type: analysis
      weight: 1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recipe, err := report.LoadRecipe(args[0])
			if err != nil {
				return err
			}
			return a.withSession(cmd, func(ctx context.Context, rt *session) error {
				r, err := rt.reports.Build(ctx, recipe)
				if err != nil {
					return fmt.Errorf("building report %s: %w", recipe.Metadata.ID, err)
				}
				if err := rt.reports.Save(r); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "%s\t%d sources\t%s\n",
					r.Metadata.ID, len(r.Sources), rt.store.Path(store.KindReport, r.Metadata.ID))
				return nil
			})
		},
	}
}
