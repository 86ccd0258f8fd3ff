package ngram

import "testing"

func TestWindow(t *testing.T) {
	w := NewWindow(3)
	if _, ok := w.Last(1); ok {
		t.Fatal("empty window returned a sequence")
	}
	for _, r := range "abcd" {
		w.Push(r)
	}
	if w.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", w.Len())
	}
	tests := []struct {
		n    int
		want string
		ok   bool
	}{
		{1, "d", true},
		{2, "cd", true},
		{3, "bcd", true},
		{4, "", false},
		{0, "", false},
	}
	for _, tt := range tests {
		got, ok := w.Last(tt.n)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Last(%d) = %q, %v; want %q, %v", tt.n, got, ok, tt.want, tt.ok)
		}
	}
	first, last, ok := w.Span(3)
	if !ok || first != 'b' || last != 'd' {
		t.Errorf("Span(3) = %q %q %v", first, last, ok)
	}

	w.Reset()
	if w.Len() != 0 {
		t.Errorf("Len() after Reset = %d", w.Len())
	}
	w.Push('x')
	if got, _ := w.Last(1); got != "x" {
		t.Errorf("Last(1) after Reset = %q", got)
	}
}
