// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

const maxFrameBytes = 1 << 20

// ErrFrameTooLarge reports a frame that exceeded maxFrameBytes. The frame
// has been consumed up to its blank line; the stream stays usable.
var ErrFrameTooLarge = errors.New("stream: frame too large")

// Frame is one dispatched server-sent event.
type Frame struct {
	ID    string
	Event string
	Data  string
}

// Reader splits a text/event-stream body into frames.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 4096)}
}

// Next blocks until a complete frame is available. It returns io.EOF when
// the stream ends; a trailing frame without its blank line is discarded.
// An oversized frame yields ErrFrameTooLarge and the next call continues
// with the following frame.
func (r *Reader) Next() (Frame, error) {
	var (
		f      Frame
		data   []string
		size   int
		seen   bool
		tooBig bool
	)
	for {
		line, overflow, err := r.readLine()
		if err != nil {
			return Frame{}, err
		}
		if overflow {
			tooBig = true
			continue
		}
		if line == "" {
			if tooBig {
				return Frame{}, ErrFrameTooLarge
			}
			if !seen {
				continue
			}
			f.Data = strings.Join(data, "\n")
			return f, nil
		}
		if tooBig || strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			f.Event = value
			seen = true
		case "data":
			if size += len(value); size > maxFrameBytes {
				tooBig = true
				continue
			}
			data = append(data, value)
			seen = true
		case "id":
			f.ID = value
			seen = true
		case "retry":
			// Reconnect pacing is owned by the client's backoff.
		}
	}
}

// readLine returns one line without its terminator. A line longer than
// maxFrameBytes is read to its end and reported as overflow.
func (r *Reader) readLine() (string, bool, error) {
	var (
		buf      []byte
		overflow bool
	)
	for {
		chunk, err := r.br.ReadSlice('\n')
		if !overflow {
			if len(buf)+len(chunk) > maxFrameBytes+2 {
				overflow, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil {
			return "", false, err
		}
		if overflow {
			return "", true, nil
		}
		line := strings.TrimSuffix(string(buf), "\n")
		return strings.TrimSuffix(line, "\r"), false, nil
	}
}
