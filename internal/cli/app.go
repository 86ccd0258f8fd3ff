// Package cli implements the corporalyser command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/events"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/report"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/store"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/metrics"
)

// App is the corporalyser command tree.
type App struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer

	configPath string
	workDir    string
	logLevel   string
}

func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "corporalyser",
		Short: "Character n-gram frequencies for keyboard layout optimisation",
		Long: `corporalyser counts character n-grams and skipgrams in text corpora,
combines analyses into weighted reports and exports them for layout
analysers such as oxeylyzer.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	app.root.PersistentFlags().StringVar(&app.configPath, "config", "", "Path to a YAML config file")
	app.root.PersistentFlags().StringVarP(&app.workDir, "working-directory", "w", "", "Directory for analyses, reports and exports (overrides storage.dataDir)")
	app.root.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "Log level (overrides logging.level)")

	app.root.AddCommand(
		app.newAnalyseCmd(),
		app.newReportCmd(),
		app.newExportCmd(),
		app.newShowCmd(),
		app.newCatalogCmd(),
	)
	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// Execute runs the command line, cancelling on SIGINT or SIGTERM.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments.
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// session holds the collaborators shared by commands.
type session struct {
	cfg      *config.Config
	store    *store.Store
	catalog  catalog.Catalog
	analyses *analysis.Service
	reports  *report.Builder
	metrics  *metrics.Metrics
	closers  []func() error
}

func (s *session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// open loads configuration and wires the store, catalog and optional
// event publisher.
func (a *App) open(ctx context.Context) (*session, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if a.workDir != "" {
		cfg.Storage.DataDir = a.workDir
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	logger.SetupWriter(a.stderr, cfg.Logging.Level, cfg.Logging.Format)

	rt := &session{cfg: cfg, store: store.New(cfg.Storage.DataDir)}
	reg := prometheus.NewRegistry()
	rt.metrics = metrics.New(reg)
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, reg)
		rt.closers = append(rt.closers, func() error { return shutdown(context.Background()) })
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		rt.Close()
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	cat, err := catalog.Open(ctx, cfg)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	rt.catalog = cat
	rt.closers = append(rt.closers, cat.Close)

	opts := []analysis.Option{
		analysis.WithMetrics(rt.metrics),
		analysis.WithCatalogTimeout(cfg.Catalog.Timeout),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		pub := events.NewKafkaPublisher(kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalysisComplete), rt.metrics)
		rt.closers = append(rt.closers, pub.Close)
		opts = append(opts, analysis.WithPublisher(pub))
	}
	rt.analyses = analysis.NewService(rt.store, cat, opts...)
	rt.reports = report.NewBuilder(rt.store, rt.analyses, rt.metrics)
	return rt, nil
}

// withSession opens a session for the duration of fn.
func (a *App) withSession(cmd *cobra.Command, fn func(ctx context.Context, rt *session) error) (err error) {
	ctx := cmd.Context()
	rt, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, rt)
}
