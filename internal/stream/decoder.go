// Copyright (c) 2025 Capskiller
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes the backend's SSE chat stream into typed events.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"io"
)

// doneSentinel is the literal payload that terminates the stream.
const doneSentinel = "[DONE]"

// defaultFrameKind is the SSE event type used when none is given.
const defaultFrameKind = "message"

// =============================================================================
// FRAME
// =============================================================================

// Frame is one decoded unit of the wire stream, prior to JSON interpretation.
type Frame struct {
	// Kind is the SSE event type ("content", "tool_call", ...). The backend
	// sets it redundantly with the payload's type field; payloads without an
	// event line get "message".
	Kind string

	// Data is the frame payload: the joined remainders of the frame's
	// data-prefixed lines.
	Data string
}

// =============================================================================
// DECODER
// =============================================================================

// Decoder turns a chunk-delivered byte stream into discrete frames.
//
// Framing is line-oriented: lines starting with "data:" contribute their
// trimmed remainder to the current frame, a blank line ends the frame, and a
// literal "[DONE]" payload ends the stream. bufio carries any trailing
// partial line across chunk boundaries, so arbitrary chunking (including
// splits inside a multi-byte character) cannot corrupt frames.
type Decoder struct {
	reader *bufio.Reader
	done   bool
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{reader: bufio.NewReader(r)}
}

// Next returns the next complete frame. It returns io.EOF once the stream
// terminates, either via the "[DONE]" sentinel or end of input. Any other
// error comes from the underlying transport.
func (d *Decoder) Next() (Frame, error) {
	if d.done {
		return Frame{}, io.EOF
	}

	kind := defaultFrameKind
	var dataLines [][]byte

	flush := func() (Frame, bool) {
		if len(dataLines) == 0 {
			return Frame{}, false
		}
		data := string(bytes.Join(dataLines, []byte("\n")))
		if data == doneSentinel {
			d.done = true
			return Frame{}, false
		}
		return Frame{Kind: kind, Data: data}, true
	}

	for {
		line, err := d.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				// Process a trailing unterminated line, then flush.
				d.consumeLine(bytes.TrimRight(line, "\r\n"), &kind, &dataLines)
				d.done = true
				if frame, ok := flush(); ok {
					return frame, nil
				}
				return Frame{}, io.EOF
			}
			return Frame{}, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Blank line ends the current frame.
		if len(line) == 0 {
			if frame, ok := flush(); ok {
				return frame, nil
			}
			if d.done {
				return Frame{}, io.EOF
			}
			// Blank line with no pending data produces nothing.
			kind = defaultFrameKind
			dataLines = nil
			continue
		}

		d.consumeLine(line, &kind, &dataLines)
		if d.done {
			return Frame{}, io.EOF
		}
	}
}

// consumeLine folds one wire line into the frame being assembled.
func (d *Decoder) consumeLine(line []byte, kind *string, dataLines *[][]byte) {
	switch {
	case len(line) == 0:
	case bytes.HasPrefix(line, []byte("data:")):
		data := bytes.TrimSpace(line[len("data:"):])
		if bytes.Equal(data, []byte(doneSentinel)) && len(*dataLines) == 0 {
			d.done = true
			return
		}
		*dataLines = append(*dataLines, data)
	case bytes.HasPrefix(line, []byte("event:")):
		*kind = string(bytes.TrimSpace(line[len("event:"):]))
	}
	// Other SSE fields (id:, retry:, ": comment") are ignored.
}

// Process reads frames until the stream ends, interpreting each payload and
// calling fn for every recognized event, in arrival order. It returns nil on
// clean termination and the transport error otherwise. The context is
// checked between frames so a cancelled stream stops promptly.
func (d *Decoder) Process(ctx context.Context, fn func(Event)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := d.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		if ev := ParseEvent(frame.Data); ev != nil {
			fn(ev)
		}
	}
}
