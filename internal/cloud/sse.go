// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// dataPrefix starts every payload line.
	dataPrefix = "data: "

	// doneSentinel ends a stream.
	doneSentinel = "[DONE]"
)

// streamChunk is one decoded data frame.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// content returns the first choice's delta content.
func (c *streamChunk) content() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// =============================================================================
// FRAME READER
// =============================================================================

// frameReader yields the payload of each "data: " line of an SSE body.
// Bytes are buffered until a full line arrives, so multi-byte characters
// split across network reads are reassembled before decoding.
type frameReader struct {
	scanner *bufio.Scanner
}

func newFrameReader(r io.Reader) *frameReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), MaxFrameSize)
	return &frameReader{scanner: s}
}

// Next returns the next data payload. Blank lines, comments, other fields
// (event:, id:, retry:) and "data:" lines without the space are skipped. A
// final line without a newline is still returned. io.EOF marks the end of
// the body.
func (f *frameReader) Next() (string, error) {
	for f.scanner.Scan() {
		line := strings.TrimRight(f.scanner.Text(), "\r")
		if payload, ok := strings.CutPrefix(line, dataPrefix); ok {
			return payload, nil
		}
	}
	if err := f.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return "", fmt.Errorf("stream frame exceeds %d bytes: %w", MaxFrameSize, err)
		}
		return "", err
	}
	return "", io.EOF
}
