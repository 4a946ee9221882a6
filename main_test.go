package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/Fishwaldo/LineLogger/internal/serialport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionString(t *testing.T) {
	tests := []struct {
		summary string
		want    string
	}{
		{"0.0.0", "0.0.0"},
		{"v1.2.3", "1.2.3"},
		{"1.2.3-rc1", "1.2.3-rc1"},
		{"1.2.3-rc1+abcdef", "1.2.3-rc1-abcdef"},
		{"garbage", "0.0.0"},
	}
	prev := VersionSummary
	defer func() { VersionSummary = prev }()
	for _, tt := range tests {
		VersionSummary = tt.summary
		assert.Equal(t, tt.want, versionString(), tt.summary)
	}
}

func TestRunMissingPortExitsWithoutOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("COM4 may exist on windows")
	}
	out := filepath.Join(t.TempDir(), "output.txt")
	t.Setenv("LINELOGGER_SERIAL_PORT", "COM4")
	t.Setenv("LINELOGGER_OUTPUT_PATH", out)

	assert.Equal(t, 1, run(context.Background()))
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

// scriptedPort sends one reading, then calls done on the first idle read.
type scriptedPort struct {
	mu     sync.Mutex
	data   []byte
	done   func()
	closed bool
}

func (p *scriptedPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.data) > 0 {
		n := copy(b, p.data)
		p.data = p.data[n:]
		return n, nil
	}
	p.done()
	return 0, io.EOF
}

func (p *scriptedPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func TestRunCancelledExitsCleanly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	port := &scriptedPort{data: []byte("23.5,60.1\n"), done: cancel}
	serialport.RegisterDriver("scripted", func(serialport.Options) (serialport.Port, error) {
		return port, nil
	})

	out := filepath.Join(t.TempDir(), "output.txt")
	t.Setenv("LINELOGGER_SERIAL_DRIVER", "scripted")
	t.Setenv("LINELOGGER_OUTPUT_PATH", out)
	t.Setenv("LINELOGGER_OUTPUT_CONSOLE", "false")
	t.Setenv("LINELOGGER_PERF_ENABLED", "false")

	assert.Equal(t, 0, run(ctx))
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "23.5,60.1\n", string(b))
	assert.True(t, port.closed)
}
