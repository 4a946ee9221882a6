package linelogger

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Record is what observers receive after a line has been written and
// flushed.
type Record struct {
	Seq  uint64    `json:"seq"`
	Time time.Time `json:"time"`
	Name string    `json:"name"`
	Port string    `json:"port"`
	Line string    `json:"line"`
}

// Decode turns raw bytes off the wire into a trimmed line of text. Invalid
// UTF-8 sequences are dropped; degraded reports whether any were.
func Decode(raw []byte) (text string, degraded bool) {
	degraded = !utf8.Valid(raw)
	text = string(raw)
	if degraded {
		text = strings.ToValidUTF8(text, "")
	}
	return strings.TrimSpace(text), degraded
}
