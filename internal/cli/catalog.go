package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/store"
)

func (a *App) newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect stored analyses and reports",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List catalogued analyses and stored reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, rt *session) error {
				entries, err := rt.analyses.List(ctx)
				if err != nil {
					return err
				}
				reports, err := rt.store.List(store.KindReport)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "KIND\tID\tRUN\tLANGUAGE\tMAX N\tSKIPGRAMS\tSENTENCES\tCREATED")
				for _, e := range entries {
					fmt.Fprintf(tw, "analysis\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
						e.CorpusID, e.RunID, e.Language, e.MaxN, e.Skipgrams, e.Sentences,
						e.CreatedAt.Format(time.DateTime))
				}
				for _, id := range reports {
					fmt.Fprintf(tw, "report\t%s\t-\t-\t-\t-\t-\t-\n", id)
				}
				return tw.Flush()
			})
		},
	})
	return cmd
}
