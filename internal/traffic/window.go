package traffic

// Window is a fixed-capacity FIFO ring of samples. Appending to a full
// window evicts the oldest point.
type Window struct {
	buf   []Sample
	start int
	count int
}

const defaultCapacity = 120

func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Window{buf: make([]Sample, capacity)}
}

func (w *Window) Append(s Sample) {
	if w.count < len(w.buf) {
		w.buf[(w.start+w.count)%len(w.buf)] = s
		w.count++
		return
	}
	w.buf[w.start] = s
	w.start = (w.start + 1) % len(w.buf)
}

func (w *Window) Len() int { return w.count }

func (w *Window) Cap() int { return len(w.buf) }

// Snapshot copies the window contents oldest first.
func (w *Window) Snapshot() []Sample {
	out := make([]Sample, w.count)
	for i := 0; i < w.count; i++ {
		out[i] = w.buf[(w.start+i)%len(w.buf)]
	}
	return out
}

func (w *Window) Clear() {
	w.start = 0
	w.count = 0
}
