package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type fakeInvalidator struct {
	calls []string
	err   error
}

func (f *fakeInvalidator) Invalidate(_ context.Context, corpusID string) (int64, error) {
	f.calls = append(f.calls, corpusID)
	return 3, f.err
}

func TestHandleAnalysisCompleted(t *testing.T) {
	inv := &fakeInvalidator{}
	h := HandleAnalysisCompleted(inv)

	value, err := json.Marshal(AnalysisCompleted{CorpusID: "deu", RunID: "01J", MaxN: 3, CompletedAt: time.Now()})
	if err != nil {
		t.Fatal(err)
	}
	if err := h(context.Background(), []byte("deu"), value); err != nil {
		t.Fatal(err)
	}
	if len(inv.calls) != 1 || inv.calls[0] != "deu" {
		t.Errorf("invalidations = %v", inv.calls)
	}
}

func TestHandleAnalysisCompletedSkipsEmptyID(t *testing.T) {
	inv := &fakeInvalidator{}
	if err := HandleAnalysisCompleted(inv)(context.Background(), nil, []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	if len(inv.calls) != 0 {
		t.Errorf("invalidated %v for an event without corpus id", inv.calls)
	}
}

func TestHandleAnalysisCompletedPropagatesError(t *testing.T) {
	inv := &fakeInvalidator{err: errors.New("redis down")}
	err := HandleAnalysisCompleted(inv)(context.Background(), nil, []byte(`{"corpus_id":"deu"}`))
	if err == nil {
		t.Error("expected error so the message is not committed")
	}
}
