package linelogger

import (
	"time"

	"github.com/sasha-s/go-deadlock"
)

type Stats struct {
	Port     string    `json:"port"`
	Baud     int       `json:"baud"`
	Output   string    `json:"output"`
	Started  time.Time `json:"started"`
	LastLine time.Time `json:"last_line"`
	Lines    uint64    `json:"lines"`
	Bytes    uint64    `json:"bytes"`
	Skipped  uint64    `json:"skipped"`
	Degraded uint64    `json:"degraded"`
}

type statsBox struct {
	mx deadlock.RWMutex
	s  Stats
}

func (b *statsBox) snapshot() Stats {
	b.mx.RLock()
	defer b.mx.RUnlock()
	return b.s
}

func (b *statsBox) skipped() {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.s.Skipped++
}

// written records one line and returns its sequence number.
func (b *statsBox) written(at time.Time, n int, degraded bool) uint64 {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.s.Lines++
	b.s.Bytes += uint64(n)
	b.s.LastLine = at
	if degraded {
		b.s.Degraded++
	}
	return b.s.Lines
}
