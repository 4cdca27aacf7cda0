package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindow_PushEvicts(t *testing.T) {
	w := NewWindow(3)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		w.Push(v)
	}

	assert.True(t, w.Full())
	assert.Equal(t, 3, w.Len())
	assert.Equal(t, []float64{3, 4, 5}, w.Values())
}

func TestWindow_Mean(t *testing.T) {
	w := NewWindow(4)
	_, ok := w.Mean(2)
	assert.False(t, ok, "empty window has no mean")

	w.Push(10)
	w.Push(20)
	w.Push(30)

	m, ok := w.Mean(2)
	assert.True(t, ok)
	assert.Equal(t, 25.0, m)

	m, ok = w.Mean(3)
	assert.True(t, ok)
	assert.Equal(t, 20.0, m)

	_, ok = w.Mean(4)
	assert.False(t, ok)
}

func TestWindow_ValuesIsCopy(t *testing.T) {
	w := NewWindow(2)
	w.Push(1)
	vals := w.Values()
	vals[0] = 99
	assert.Equal(t, []float64{1}, w.Values())
}

func TestWindow_Reset(t *testing.T) {
	w := NewWindow(2)
	w.Push(1)
	w.Push(2)
	w.Reset()
	assert.Equal(t, 0, w.Len())
	assert.Equal(t, 2, w.Cap())
}

func TestNewWindow_MinimumSize(t *testing.T) {
	w := NewWindow(0)
	assert.Equal(t, 1, w.Cap())
}
