package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/export"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/ngram"
)

func (a *App) newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export reports and analyses for other tools",
	}
	cmd.AddCommand(a.newExportOxeylyzerCmd(), a.newExportCorpusCmd())
	return cmd
}

func (a *App) newExportOxeylyzerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "oxeylyzer <report-id>",
		Short: "Export a report as oxeylyzer language data",
		Long: `Export a report as an oxeylyzer language data file. The report must
contain n-grams up to length 3 and skipgrams up to distance 3.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, rt *session) error {
				r, err := rt.reports.Load(args[0])
				if err != nil {
					return fmt.Errorf("loading report: %w", err)
				}
				ox, err := export.NewOxeylyzer(r)
				if err != nil {
					return err
				}
				path, err := export.Save(rt.store, export.FormatOxeylyzer, r.Metadata.ID, ox)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, path)
				return nil
			})
		},
	}
}

type corpusExportOptions struct {
	name          string
	version       string
	language      string
	license       string
	url           string
	sourceName    string
	sourceVersion string
	groups        []string
}

func (a *App) newExportCorpusCmd() *cobra.Command {
	opts := &corpusExportOptions{}
	cmd := &cobra.Command{
		Use:   "corpus <corpus-id>",
		Short: "Export an analysis as a validated corpus record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, rt *session) error {
				an, err := rt.analyses.Load(ctx, args[0])
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
				language := opts.language
				if language == "" {
					language = an.Metadata.Language
				}
				rec, err := export.CorpusRecord(an, corpus.Meta{
					Name:     opts.name,
					Language: language,
					Version:  opts.version,
					Source: corpus.Source{
						Name:    opts.sourceName,
						URL:     opts.url,
						Version: opts.sourceVersion,
						License: opts.license,
					},
				}, allow)
				if err != nil {
					return err
				}
				path, err := export.Save(rt.store, export.FormatCorpus, rec.ID, rec)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, path)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "Corpus display name (required)")
	cmd.Flags().StringVar(&opts.version, "version", "1.0.0", "Corpus version (major.minor.patch)")
	cmd.Flags().StringVar(&opts.language, "language", "", "Corpus language (default: the analysis language)")
	cmd.Flags().StringVar(&opts.license, "license", "", "Source license, ideally an SPDX identifier (default: the analysis license)")
	cmd.Flags().StringVar(&opts.url, "url", "", "Source URL (default: the analysis origin URL)")
	cmd.Flags().StringVar(&opts.sourceName, "source-name", "", "Source name (default: the analysis origin name)")
	cmd.Flags().StringVar(&opts.sourceVersion, "source-version", "", "Source version (default: derived from the source date)")
	cmd.Flags().StringSliceVar(&opts.groups, "groups", nil, "Character groups to keep (default analyser.allowGroups)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
