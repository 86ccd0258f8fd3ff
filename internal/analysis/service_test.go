package analysis

import (
	"archive/tar"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/events"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/metrics"
)

type recordingPublisher struct {
	events []events.AnalysisCompleted
}

func (p *recordingPublisher) PublishAnalysisCompleted(_ context.Context, evt events.AnalysisCompleted) error {
	p.events = append(p.events, evt)
	return nil
}

func writeArchive(t *testing.T, dir, name, sentences string) string {
	t.Helper()
	path := filepath.Join(dir, name+".tar.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	tw := tar.NewWriter(zw)
	entry := name + "/" + name + "-sentences.txt"
	if err := tw.WriteHeader(&tar.Header{Name: entry, Mode: 0o644, Size: int64(len(sentences)), Typeflag: tar.TypeReg}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write([]byte(sentences)); err != nil {
		t.Fatal(err)
	}
	tw.Close()
	zw.Close()
	f.Close()
	return path
}

type fixture struct {
	svc     *Service
	pub     *recordingPublisher
	metrics *metrics.Metrics
	dir     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	cat, err := catalog.OpenSQLite(filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { cat.Close() })
	pub := &recordingPublisher{}
	m := metrics.New(prometheus.NewRegistry())
	svc := NewService(store.New(dir), cat, WithPublisher(pub), WithMetrics(m))
	return &fixture{svc: svc, pub: pub, metrics: m, dir: dir}
}

func TestAnalyseArchive(t *testing.T) {
	f := newFixture(t)
	archive := writeArchive(t, f.dir, "deu_test_10", "1\tAbc abc.\n2\tABC!\n")

	res, err := f.svc.AnalyseArchive(context.Background(), Request{
		ArchivePath: archive,
		MaxN:        3,
		Skipgrams:   1,
		Lower:       true,
		Language:    "de",
		Shards:      2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped {
		t.Fatal("first analysis should not be skipped")
	}
	a := res.Analysis
	if a.CorpusID != "deu_test_10" || a.Sentences != 2 {
		t.Errorf("analysis = %s with %d sentences", a.CorpusID, a.Sentences)
	}
	if got := a.NGrams.Table(3).Count("abc"); got != 3 {
		t.Errorf("Count(abc) = %d, want 3", got)
	}
	if a.Source.OriginID != "wortschatz" || a.Source.Hash == "" {
		t.Errorf("source = %+v", a.Source)
	}

	loaded, err := f.svc.Load(context.Background(), "deu_test_10")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ID != a.ID || loaded.NGrams.Table(3).Count("abc") != 3 || loaded.Skipgrams == nil {
		t.Errorf("loaded analysis differs: %+v", loaded)
	}

	entry, err := f.svc.Entry(context.Background(), "deu_test_10")
	if err != nil {
		t.Fatal(err)
	}
	if entry.RunID != a.ID || entry.Language != "de" {
		t.Errorf("catalog entry = %+v", entry)
	}
	if len(f.pub.events) != 1 || f.pub.events[0].RunID != a.ID {
		t.Errorf("events = %+v", f.pub.events)
	}
	if got := testutil.ToFloat64(f.metrics.AnalysesTotal.WithLabelValues("completed")); got != 1 {
		t.Errorf("completed analyses = %v", got)
	}
}

func TestAnalyseArchiveSkipsUnchanged(t *testing.T) {
	f := newFixture(t)
	archive := writeArchive(t, f.dir, "eng_test", "1\thello\n")
	req := Request{ArchivePath: archive, MaxN: 2, Shards: 1}

	first, err := f.svc.AnalyseArchive(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.svc.AnalyseArchive(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Skipped || second.Analysis.ID != first.Analysis.ID {
		t.Errorf("second run skipped=%v id=%s, want reuse of %s", second.Skipped, second.Analysis.ID, first.Analysis.ID)
	}

	req.Force = true
	third, err := f.svc.AnalyseArchive(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if third.Skipped || third.Analysis.ID == first.Analysis.ID {
		t.Error("forced run should produce a new analysis")
	}
	if len(f.pub.events) != 2 {
		t.Errorf("published %d events, want 2", len(f.pub.events))
	}
}

func TestAnalyseArchiveReanalysesChangedSettings(t *testing.T) {
	f := newFixture(t)
	archive := writeArchive(t, f.dir, "eng_test", "1\tHello world\n")
	ctx := context.Background()

	first, err := f.svc.AnalyseArchive(ctx, Request{ArchivePath: archive, MaxN: 2, Shards: 1})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		req  Request
	}{
		{"max n", Request{MaxN: 4}},
		{"skipgrams", Request{MaxN: 4, Skipgrams: 2}},
		{"lower", Request{MaxN: 4, Skipgrams: 2, Lower: true}},
		{"language", Request{MaxN: 4, Skipgrams: 2, Lower: true, Language: "en"}},
	}
	prev := first.Analysis
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			req.ArchivePath = archive
			res, err := f.svc.AnalyseArchive(ctx, req)
			if err != nil {
				t.Fatal(err)
			}
			if res.Skipped || res.Analysis.ID == prev.ID {
				t.Fatalf("changed %s reused run %s", tt.name, prev.ID)
			}
			m := res.Analysis.Metadata
			if m.MaxN != req.MaxN || m.Skipgrams != req.Skipgrams || m.Lower != req.Lower {
				t.Errorf("metadata = %+v, want settings of %+v", m, req)
			}
			prev = res.Analysis
		})
	}

	a := prev
	if a.NGrams.MaxN() != 4 || a.Skipgrams == nil || a.NGrams.Table(1).Count("h") != 1 {
		t.Errorf("final analysis did not use the new settings: maxN=%d", a.NGrams.MaxN())
	}

	again, err := f.svc.AnalyseArchive(ctx, Request{ArchivePath: archive, MaxN: 4, Skipgrams: 2, Lower: true, Language: "en", Shards: 3})
	if err != nil {
		t.Fatal(err)
	}
	if !again.Skipped || again.Analysis.ID != a.ID {
		t.Error("identical settings with a different shard count should reuse the analysis")
	}
}

func TestAnalyseRejectsBadLanguage(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Analyse(context.Background(), Request{CorpusID: "x", MaxN: 1, Language: "not a tag!"}, "H", []string{"a"})
	if !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestLoadMissing(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Load(context.Background(), "nothing"); !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCorpusIDFromPath(t *testing.T) {
	tests := map[string]string{
		"/data/deu_news_2020_1M.tar.gz": "deu_news_2020_1M",
		"eng.tgz":                       "eng",
		"plain":                         "plain",
	}
	for in, want := range tests {
		if got := CorpusIDFromPath(in); got != want {
			t.Errorf("CorpusIDFromPath(%q) = %q, want %q", in, got, want)
		}
	}
}
