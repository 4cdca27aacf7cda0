package indicator

// Window is a fixed-capacity trailing buffer of values. Once full, each Push
// drops the oldest value.
type Window struct {
	values []float64
	size   int
}

// NewWindow creates a window holding at most size values.
func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{
		values: make([]float64, 0, size),
		size:   size,
	}
}

// Push appends v, evicting the oldest value when full.
func (w *Window) Push(v float64) {
	if len(w.values) == w.size {
		copy(w.values, w.values[1:])
		w.values = w.values[:w.size-1]
	}
	w.values = append(w.values, v)
}

// Len returns the number of buffered values.
func (w *Window) Len() int {
	return len(w.values)
}

// Cap returns the window capacity.
func (w *Window) Cap() int {
	return w.size
}

// Full reports whether the window holds Cap values.
func (w *Window) Full() bool {
	return len(w.values) == w.size
}

// Values returns a copy of the buffered values, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, len(w.values))
	copy(out, w.values)
	return out
}

// Mean returns the mean of the most recent n values. It returns false when
// fewer than n values are buffered.
func (w *Window) Mean(n int) (float64, bool) {
	if n <= 0 || n > len(w.values) {
		return 0, false
	}
	var sum float64
	for _, v := range w.values[len(w.values)-n:] {
		sum += v
	}
	return sum / float64(n), true
}

// Reset empties the window.
func (w *Window) Reset() {
	w.values = w.values[:0]
}
