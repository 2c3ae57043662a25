package link

import (
	"bytes"
	"strings"
)

const maxLineLength = 4096

// lineDecoder splits a byte stream into trimmed text lines. Invalid UTF-8 is
// dropped and blank lines are suppressed.
type lineDecoder struct {
	buf bytes.Buffer
}

func (d *lineDecoder) feed(chunk []byte) []string {
	d.buf.Write(chunk)

	var lines []string
	for {
		i := bytes.IndexByte(d.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		lines = appendLine(lines, d.buf.Next(i+1))
	}

	if d.buf.Len() >= maxLineLength {
		lines = appendLine(lines, d.buf.Next(d.buf.Len()))
	}

	return lines
}

func appendLine(lines []string, raw []byte) []string {
	text := strings.TrimSpace(strings.ToValidUTF8(string(raw), ""))
	if text == "" {
		return lines
	}
	return append(lines, text)
}
