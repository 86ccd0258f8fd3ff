package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/ngram"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/errors"
)

type showOptions struct {
	n         int
	limit     int
	groups    []string
	skipgrams bool
	filtered  bool
}

func (a *App) newShowCmd() *cobra.Command {
	opts := &showOptions{}
	cmd := &cobra.Command{
		Use:   "show <corpus-id>",
		Short: "Print the most frequent n-grams of an analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, rt *session) error {
				return a.runShow(ctx, rt, opts, args[0])
			})
		},
	}

	cmd.Flags().IntVarP(&opts.n, "n", "n", 1, "N-gram length, or skip distance with --skipgrams")
	cmd.Flags().IntVarP(&opts.limit, "limit", "l", 20, "Rows to print, 0 for all")
	cmd.Flags().StringSliceVarP(&opts.groups, "groups", "g", nil, "Character groups to keep (default analyser.allowGroups)")
	cmd.Flags().BoolVar(&opts.skipgrams, "skipgrams", false, "Show skipgrams instead of n-grams")
	cmd.Flags().BoolVar(&opts.filtered, "filtered", false, "Show the characters removed by the allow-list instead")
	return cmd
}

func (a *App) runShow(ctx context.Context, rt *session, opts *showOptions, corpusID string) error {
	an, err := rt.analyses.Load(ctx, corpusID)
	if err != nil {
		return fmt.Errorf("loading analysis: %w", err)
	}
	groups := opts.groups
	if len(groups) == 0 {
		groups = rt.cfg.Analyser.AllowGroups
	}
	allow, err := ngram.AllowListFromGroups(groups)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	if opts.filtered {
		tally := an.NGrams.Filter(allow).FilteredChars()
		table := ngram.NewTable(1)
		for r, c := range tally {
			table.Add(string(r), c)
		}
		for _, e := range limitEntries(table.Entries(), opts.limit) {
			fmt.Fprintf(tw, "%s\t%d\n", strconv.Quote(e.Seq), e.Count)
		}
		return nil
	}

	set, kind := an.NGrams, "n-gram"
	if opts.skipgrams {
		set, kind = an.Skipgrams, "skipgram"
	}
	if set == nil || set.Table(opts.n) == nil {
		return apperrors.Newf(apperrors.ErrInvalidInput, 0, "%s has no %s table for n=%d", corpusID, kind, opts.n)
	}
	kept, _ := set.Table(opts.n).Filter(allow)
	freqs := kept.Frequencies()
	if opts.limit > 0 {
		freqs = freqs.Top(opts.limit)
	}
	for _, f := range freqs {
		fmt.Fprintf(tw, "%s\t%d\t%.6f\n", strconv.Quote(f.Seq), kept.Count(f.Seq), f.Value)
	}
	return nil
}

func limitEntries(entries []ngram.Entry, limit int) []ngram.Entry {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}
