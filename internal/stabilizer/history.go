package stabilizer

// History is a bounded, ordered record of recently accepted frequencies.
// Pushing onto a full history drops the oldest entry.
type History struct {
	values   []float64
	capacity int
}

// NewHistory creates an empty history holding at most capacity entries.
func NewHistory(capacity int) *History {
	return &History{
		values:   make([]float64, 0, capacity),
		capacity: capacity,
	}
}

// Push appends f, evicting the oldest entry on overflow.
func (h *History) Push(f float64) {
	if len(h.values) == h.capacity {
		copy(h.values, h.values[1:])
		h.values = h.values[:len(h.values)-1]
	}
	h.values = append(h.values, f)
}

// Clear empties the history.
func (h *History) Clear() {
	h.values = h.values[:0]
}

// Len returns the number of entries.
func (h *History) Len() int { return len(h.values) }

// Cap returns the capacity.
func (h *History) Cap() int { return h.capacity }

// Full reports whether the history holds capacity entries.
func (h *History) Full() bool { return len(h.values) == h.capacity }

// Values returns the entries oldest first. The slice is only valid until the
// next Push or Clear.
func (h *History) Values() []float64 { return h.values }
