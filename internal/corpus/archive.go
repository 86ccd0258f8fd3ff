// Package corpus reads sentence corpora from disk and describes their
// provenance.
package corpus

import (
	"archive/tar"
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/errors"
)

// SentencesSuffix marks the tar entry holding the sentence list in a
// Wortschatz archive.
const SentencesSuffix = "-sentences.txt"

const maxLineBytes = 1 << 20

// LoadWortschatzArchive reads a Wortschatz .tar.gz archive and returns the
// text of every sentence in file order.
func LoadWortschatzArchive(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.Newf(apperrors.ErrNotFound, 0, "archive %s does not exist", path)
		}
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(bufio.NewReader(f))
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, 0, "archive %s is not gzip compressed: %v", path, err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar entry in %s: %w", path, err)
		}
		if hdr.Typeflag != tar.TypeReg || !strings.HasSuffix(hdr.Name, SentencesSuffix) {
			continue
		}
		sentences, err := ReadSentences(tr)
		if err != nil {
			return nil, fmt.Errorf("reading %s in %s: %w", hdr.Name, path, err)
		}
		return sentences, nil
	}
	return nil, apperrors.Newf(apperrors.ErrNotFound, 0, "no *%s entry in archive %s", SentencesSuffix, path)
}

// ReadSentences parses "<id>\t<sentence>" lines. Lines without a tab are
// skipped.
func ReadSentences(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	var sentences []string
	for scanner.Scan() {
		_, sentence, ok := strings.Cut(scanner.Text(), "\t")
		if !ok {
			continue
		}
		sentences = append(sentences, sentence)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return sentences, nil
}
