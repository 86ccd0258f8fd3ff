package ngram

// Window is a fixed-capacity ring buffer holding the most recent runes.
type Window struct {
	buf  []rune
	head int
	size int
}

// NewWindow creates a window holding up to capacity runes, at least one.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]rune, capacity)}
}

// Push appends r, evicting the oldest rune once the buffer is full.
func (w *Window) Push(r rune) {
	w.buf[w.head] = r
	w.head = (w.head + 1) % len(w.buf)
	if w.size < len(w.buf) {
		w.size++
	}
}

// Len returns the number of runes held.
func (w *Window) Len() int {
	return w.size
}

// Reset empties the window without releasing the buffer.
func (w *Window) Reset() {
	w.head = 0
	w.size = 0
}

// at returns the rune i positions back from the newest, where 0 is newest.
func (w *Window) at(i int) rune {
	idx := (w.head - 1 - i + len(w.buf)) % len(w.buf)
	return w.buf[idx]
}

// Last returns the newest n runes in arrival order.
func (w *Window) Last(n int) (string, bool) {
	if n < 1 || n > w.size {
		return "", false
	}
	rs := make([]rune, n)
	for i := range n {
		rs[n-1-i] = w.at(i)
	}
	return string(rs), true
}

// Span returns the first and last rune of the newest n runes.
func (w *Window) Span(n int) (first, last rune, ok bool) {
	if n < 1 || n > w.size {
		return 0, 0, false
	}
	return w.at(n - 1), w.at(0), true
}
