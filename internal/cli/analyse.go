package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/analysis"
)

type analyseOptions struct {
	ngramN     int
	skipgramN  int
	lower      bool
	language   string
	shards     int
	force      bool
	name       string
	license    string
	originID   string
	originName string
	originURL  string
}

func (a *App) newAnalyseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyse",
		Short: "Count n-grams in a corpus",
	}
	cmd.AddCommand(a.newAnalyseWortschatzCmd())
	return cmd
}

func (a *App) newAnalyseWortschatzCmd() *cobra.Command {
	opts := &analyseOptions{}
	cmd := &cobra.Command{
		Use:   "wortschatz <archive>...",
		Short: "Analyse Wortschatz Leipzig sentence archives",
		Long: `Analyse one or more Wortschatz Leipzig corpus archives (.tar.gz).

Each archive is stored as an analysis named after the archive, for example
deu_news_2020_1M.tar.gz becomes deu_news_2020_1M. Archives whose hash
matches the stored analysis are skipped unless --force is given.

Examples:
  corporalyser analyse wortschatz deu_news_2020_1M.tar.gz
  corporalyser analyse wortschatz -n 4 -k 2 --shards 8 *.tar.gz`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, rt *session) error {
				return a.runAnalyse(ctx, cmd, rt, opts, args)
			})
		},
	}

	cmd.Flags().IntVarP(&opts.ngramN, "ngram-n", "n", 0, "Longest n-gram to count (default analyser.maxN)")
	cmd.Flags().IntVarP(&opts.skipgramN, "skipgram-n", "k", 0, "Largest skipgram distance, 0 disables (default analyser.skipgrams)")
	cmd.Flags().BoolVar(&opts.lower, "lower", true, "Fold text to lower case before counting (default analyser.lower)")
	cmd.Flags().StringVar(&opts.language, "language", "", "BCP 47 language used for case folding (default analyser.language)")
	cmd.Flags().IntVar(&opts.shards, "shards", 0, "Parallel counting shards (default analyser.shards)")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Re-analyse archives even when unchanged")
	cmd.Flags().StringVar(&opts.name, "name", "", "Display name for the catalog (single archive only)")
	cmd.Flags().StringVar(&opts.license, "license", "", "License of the source text")
	cmd.Flags().StringVar(&opts.originID, "origin-id", "", "Source identifier (default wortschatz)")
	cmd.Flags().StringVar(&opts.originName, "origin-name", "", "Source display name")
	cmd.Flags().StringVar(&opts.originURL, "origin-url", "", "Source URL")
	return cmd
}

func (a *App) runAnalyse(ctx context.Context, cmd *cobra.Command, rt *session, opts *analyseOptions, archives []string) error {
	if opts.name != "" && len(archives) > 1 {
		return fmt.Errorf("--name can only be used with a single archive")
	}
	flags := cmd.Flags()
	acfg := rt.cfg.Analyser
	req := analysis.Request{
		Name:      opts.name,
		Force:     opts.force,
		MaxN:      acfg.MaxN,
		Skipgrams: acfg.Skipgrams,
		Lower:     acfg.Lower,
		Language:  acfg.Language,
		Shards:    acfg.Shards,
		Source:    analysis.WortschatzSource(),
	}
	if flags.Changed("ngram-n") {
		req.MaxN = opts.ngramN
	}
	if flags.Changed("skipgram-n") {
		req.Skipgrams = opts.skipgramN
	}
	if flags.Changed("lower") {
		req.Lower = opts.lower
	}
	if flags.Changed("language") {
		req.Language = opts.language
	}
	if flags.Changed("shards") {
		req.Shards = opts.shards
	}
	if opts.originID != "" {
		req.Source = analysis.Source{OriginID: opts.originID}
	}
	if opts.originName != "" {
		req.Source.OriginName = opts.originName
	}
	if opts.originURL != "" {
		req.Source.OriginURL = opts.originURL
	}
	if opts.license != "" {
		req.Source.License = opts.license
	}

	for _, archive := range archives {
		req.ArchivePath = archive
		req.CorpusID = ""
		res, err := rt.analyses.AnalyseArchive(ctx, req)
		if err != nil {
			return fmt.Errorf("analysing %s: %w", archive, err)
		}
		an := res.Analysis
		if res.Skipped {
			fmt.Fprintf(a.stdout, "%s\tunchanged\trun %s\n", an.CorpusID, an.ID)
			continue
		}
		fmt.Fprintf(a.stdout, "%s\tanalysed\trun %s\t%d sentences\t%d characters\t%s\n",
			an.CorpusID, an.ID, an.Sentences, an.Runes, an.Metadata.Duration)
	}
	return nil
}
