package sensitivedata

import (
	"io"
	"sync"
)

// Scrubber removes sensitive values from text.
type Scrubber interface {
	ScrubString(string) string
}

// Writer wraps an io.Writer and scrubs all data before writing.
// Thread-safe: can be used concurrently by multiple goroutines.
type Writer struct {
	underlying io.Writer
	scrubbers  []Scrubber
	mu         sync.Mutex
}

// NewWriter creates a scrubbing writer. Nil scrubbers are skipped.
func NewWriter(w io.Writer, scrubbers ...Scrubber) *Writer {
	out := &Writer{underlying: w}
	for _, s := range scrubbers {
		if s != nil {
			out.scrubbers = append(out.scrubbers, s)
		}
	}
	return out
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (n int, err error) {
	data := p
	if len(w.scrubbers) > 0 {
		s := string(p)
		for _, sc := range w.scrubbers {
			s = sc.ScrubString(s)
		}
		data = []byte(s)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	n, err = w.underlying.Write(data)

	// io.Writer contract expects len(p) even when the scrubbed length differs
	if err == nil {
		n = len(p)
	}
	return n, err
}
