//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"bytes"
	"io"
	"sync"
)

// Indent is prepended to every line of command output.
const Indent = "       "

// IndentWriter prefixes each line written through it with Indent.
// Partial lines are written immediately; the prefix goes out with the first byte of a line.
type IndentWriter struct {
	mu          sync.Mutex
	w           io.Writer
	atLineStart bool
}

// NewIndentWriter wraps w.
func NewIndentWriter(w io.Writer) *IndentWriter {
	return &IndentWriter{
		w:           w,
		atLineStart: true,
	}
}

// Write implements io.Writer.
func (iw *IndentWriter) Write(p []byte) (int, error) {
	iw.mu.Lock()
	defer iw.mu.Unlock()

	written := 0

	for len(p) > 0 {
		if iw.atLineStart {
			if _, err := io.WriteString(iw.w, Indent); err != nil {
				return written, err
			}

			iw.atLineStart = false
		}

		line := p
		if i := bytes.IndexByte(p, '\n'); i >= 0 {
			line = p[:i+1]
			iw.atLineStart = true
		}

		n, err := iw.w.Write(line)
		written += n

		if err != nil {
			return written, err
		}

		p = p[len(line):]
	}

	return written, nil
}
