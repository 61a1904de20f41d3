package utils

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// DeferredWriter holds log output while the terminal belongs to a full
// screen program and replays it once the program exits. When Limit is
// positive the oldest whole lines are dropped to stay under it. Safe for
// concurrent use.
type DeferredWriter struct {
	Limit int

	mu      sync.Mutex
	buf     bytes.Buffer
	dropped int
}

// Write stores p, trimming old lines when over Limit.
func (d *DeferredWriter) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.buf.Write(p)
	if err != nil {
		return n, err
	}
	for d.Limit > 0 && d.buf.Len() > d.Limit {
		i := bytes.IndexByte(d.buf.Bytes(), '\n')
		if i < 0 || i == d.buf.Len()-1 {
			break
		}
		d.buf.Next(i + 1)
		d.dropped++
	}
	return n, nil
}

// Len returns the number of buffered bytes.
func (d *DeferredWriter) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buf.Len()
}

// Flush writes the buffered output to w and clears the buffer. A note is
// written first if lines were dropped.
func (d *DeferredWriter) Flush(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dropped > 0 {
		if _, err := fmt.Fprintf(w, "(%d earlier lines dropped)\n", d.dropped); err != nil {
			return err
		}
		d.dropped = 0
	}
	if d.buf.Len() == 0 {
		return nil
	}

	_, err := d.buf.WriteTo(w)
	return err
}
