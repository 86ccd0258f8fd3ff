package cli

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/errors"
)

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
	for _, c := range []interface{ Close() error }{tw, zw, f} {
		if err := c.Close(); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func run(t *testing.T, workDir string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)
	err := app.ExecuteWithArgs(context.Background(), append([]string{"--working-directory", workDir, "--log-level", "error"}, args...))
	return stdout.String(), err
}

func TestEndToEnd(t *testing.T) {
	dir := t.TempDir()
	work := filepath.Join(dir, "corpora")
	archive := writeArchive(t, dir, "eng_test_10", "1\tThe cat sat.\n2\tthe hat.\n")

	out, err := run(t, work, "analyse", "wortschatz", archive, "-n", "3", "-k", "3", "--shards", "2")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "eng_test_10") || !strings.Contains(out, "analysed") {
		t.Errorf("analyse output = %q", out)
	}

	out, err = run(t, work, "analyse", "wortschatz", archive)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "unchanged") {
		t.Errorf("second analyse output = %q", out)
	}

	out, err = run(t, work, "show", "eng_test_10", "--n", "3", "--limit", "1", "--groups", "latin")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, `"the"`) {
		t.Errorf("show output = %q, want \"the\" first", out)
	}

	out, err = run(t, work, "show", "eng_test_10", "--filtered", "--groups", "latin")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `" "`) || !strings.Contains(out, `"."`) {
		t.Errorf("filtered output = %q", out)
	}

	out, err = run(t, work, "catalog", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "eng_test_10") {
		t.Errorf("catalog output = %q", out)
	}

	recipe := filepath.Join(dir, "english.yaml")
	recipeBody := `metadata:
  id: english
  name: English
  languages: [en]
  version: 1.0.0
sources:
  - id: eng_test_10
    type: analysis
    weight: 1
    strip_punctuation: true
`
	if err := os.WriteFile(recipe, []byte(recipeBody), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, work, "report", recipe); err != nil {
		t.Fatal(err)
	}

	out, err = run(t, work, "export", "oxeylyzer", "english")
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(strings.TrimSpace(out))
	if err != nil {
		t.Fatal(err)
	}
	var ox map[string]json.RawMessage
	if err := json.Unmarshal(data, &ox); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"language", "characters", "bigrams", "trigrams", "skipgrams", "skipgrams2", "skipgrams3"} {
		if _, ok := ox[key]; !ok {
			t.Errorf("oxeylyzer export missing %s", key)
		}
	}
	if strings.Contains(string(ox["characters"]), `"."`) {
		t.Error("punctuation survived strip_punctuation")
	}

	out, err = run(t, work, "export", "corpus", "eng_test_10", "--name", "English test", "--language", "en")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(strings.TrimSpace(out)); err != nil {
		t.Errorf("corpus export not written: %v", err)
	}
}

func TestAnalyseRequiresArchive(t *testing.T) {
	if _, err := run(t, t.TempDir(), "analyse", "wortschatz"); err == nil {
		t.Error("expected an error without archives")
	}
}

func TestShowMissingCorpus(t *testing.T) {
	_, err := run(t, t.TempDir(), "show", "nothing")
	if !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestExportOxeylyzerNeedsTrigrams(t *testing.T) {
	dir := t.TempDir()
	work := filepath.Join(dir, "corpora")
	archive := writeArchive(t, dir, "eng_short", "1\tab\n")
	if _, err := run(t, work, "analyse", "wortschatz", archive, "-n", "2", "-k", "0"); err != nil {
		t.Fatal(err)
	}
	recipe := filepath.Join(dir, "r.json")
	if err := os.WriteFile(recipe, []byte(`{"metadata":{"id":"short"},"sources":[{"id":"eng_short","type":"analysis","weight":1}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, work, "report", recipe); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, work, "export", "oxeylyzer", "short"); !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}
