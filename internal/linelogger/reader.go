package linelogger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// maxLine bounds an unterminated line; a longer run without a newline is
// returned as a line of its own.
const maxLine = 64 * 1024

// lineReader splits the byte stream from the port into lines. It never
// blocks longer than one port read plus one poll interval, so the caller can
// check for cancellation between calls.
type lineReader struct {
	port        io.Reader
	scratch     []byte
	pending     []byte
	since       time.Time
	poll        time.Duration
	lineTimeout time.Duration
	maxLine     int
	now         func() time.Time
}

func newLineReader(port io.Reader, poll, lineTimeout time.Duration) *lineReader {
	return &lineReader{
		port:        port,
		scratch:     make([]byte, 4096),
		poll:        poll,
		lineTimeout: lineTimeout,
		maxLine:     maxLine,
		now:         time.Now,
	}
}

// next returns the next raw line including its newline, or nil if no line
// is ready yet. A line left unterminated for longer than lineTimeout is
// returned without a newline.
func (r *lineReader) next(ctx context.Context) ([]byte, error) {
	if line := r.cut(); line != nil {
		return line, nil
	}

	n, err := r.port.Read(r.scratch)
	if n > 0 {
		if len(r.pending) == 0 {
			r.since = r.now()
		}
		r.pending = append(r.pending, r.scratch[:n]...)
		if line := r.cut(); line != nil {
			return line, nil
		}
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read serial: %w", err)
	}

	if len(r.pending) >= r.maxLine {
		line := append([]byte(nil), r.pending[:r.maxLine]...)
		r.pending = append(r.pending[:0], r.pending[r.maxLine:]...)
		r.since = r.now()
		return line, nil
	}
	if len(r.pending) > 0 && r.lineTimeout > 0 && r.now().Sub(r.since) >= r.lineTimeout {
		line := append([]byte(nil), r.pending...)
		r.pending = r.pending[:0]
		return line, nil
	}
	if n == 0 {
		sleep(ctx, r.poll)
	}
	return nil, nil
}

func (r *lineReader) cut() []byte {
	i := bytes.IndexByte(r.pending, '\n')
	if i < 0 {
		return nil
	}
	line := append([]byte(nil), r.pending[:i+1]...)
	r.pending = append(r.pending[:0], r.pending[i+1:]...)
	if len(r.pending) > 0 {
		r.since = r.now()
	}
	return line
}

// discard drops an unterminated line and reports its length.
func (r *lineReader) discard() int {
	n := len(r.pending)
	r.pending = r.pending[:0]
	return n
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
