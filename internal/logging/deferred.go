package logging

import (
	"bytes"
	"io"
	"sync"
)

// DeferredWriter holds log lines in memory until Flush. Log output would
// otherwise corrupt a full-screen terminal UI.
type DeferredWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *DeferredWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

// Flush writes every buffered line to out and empties the buffer. zerolog
// emits one JSON object per Write, so each line is passed on separately
// for writers such as zerolog.ConsoleWriter that expect whole events.
func (w *DeferredWriter) Flush(out io.Writer) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for {
		line, err := w.buf.ReadBytes('\n')
		if len(line) > 0 {
			if _, werr := out.Write(line); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			break
		}
	}
	w.buf.Reset()
	return nil
}

// Len returns the number of buffered bytes.
func (w *DeferredWriter) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Len()
}
