// Package protocol frames and deframes line-delimited JSON: one UTF-8 JSON
// object per message, terminated by a single line-feed byte, in both
// directions.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrLineTooLong reports that the accumulated partial line exceeded the
// reader's limit. The reader discards the oversized data and keeps working,
// so the connection survives a runaway peer.
var ErrLineTooLong = errors.New("protocol: line exceeds maximum length")

// LineReader accumulates socket reads into a growable buffer, splits on
// line-feed, and retains any trailing partial segment for the next read.
// It is not safe for concurrent use; each connection owns one reader.
type LineReader struct {
	buf     []byte
	maxLine int
}

// NewLineReader returns a reader that tolerates partial lines up to maxLine
// bytes. A non-positive limit disables the length check.
func NewLineReader(maxLine int) *LineReader {
	return &LineReader{maxLine: maxLine}
}

// Feed appends data and returns every complete line segment it finishes,
// with the trailing LF stripped. Blank segments (including lone CR from
// CRLF peers) are dropped. When the retained partial exceeds the limit the
// buffered data is discarded and ErrLineTooLong is returned alongside any
// segments completed before the overflow.
func (r *LineReader) Feed(data []byte) ([][]byte, error) {
	r.buf = append(r.buf, data...)

	var lines [][]byte
	for {
		idx := bytes.IndexByte(r.buf, '\n')
		if idx < 0 {
			break
		}
		segment := bytes.TrimRight(r.buf[:idx], "\r")
		r.buf = r.buf[idx+1:]
		if len(bytes.TrimSpace(segment)) == 0 {
			continue
		}
		line := make([]byte, len(segment))
		copy(line, segment)
		lines = append(lines, line)
	}

	if r.maxLine > 0 && len(r.buf) > r.maxLine {
		r.buf = nil
		return lines, ErrLineTooLong
	}
	return lines, nil
}

// Pending reports how many bytes of a partial line are currently buffered.
func (r *LineReader) Pending() int {
	return len(r.buf)
}

// Encode marshals a message and appends the terminating line feed.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
