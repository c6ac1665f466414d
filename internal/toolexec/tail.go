package toolexec

import "strings"

const tailLimit = 8 * 1024

// tailWriter keeps the last tailLimit bytes written through it.
type tailWriter struct {
	buf []byte
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	if len(w.buf) > tailLimit {
		w.buf = w.buf[len(w.buf)-tailLimit:]
	}
	return len(p), nil
}

func (w *tailWriter) String() string {
	s := string(w.buf)
	// Drop a partial leading line after truncation.
	if len(w.buf) == tailLimit {
		if idx := strings.IndexByte(s, '\n'); idx >= 0 && idx < len(s)-1 {
			s = s[idx+1:]
		}
	}
	return strings.TrimRight(s, "\n")
}
