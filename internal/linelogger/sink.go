package linelogger

import (
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
)

// sink is the append-only output file plus the optional console mirror.
type sink struct {
	file    *os.File
	console io.Writer
	log     logr.Logger
}

func openSink(path string, console io.Writer, log logr.Logger) (*sink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &sink{file: f, console: console, log: log}, nil
}

// write prints line, appends it with a newline in a single write and syncs
// the file. It returns the number of bytes appended. A console that fails is
// reported once and then dropped; the file keeps being written.
func (s *sink) write(line string) (int, error) {
	if s.console != nil {
		if _, err := fmt.Fprintln(s.console, line); err != nil {
			s.log.Error(err, "Console Write Failed, no longer mirroring lines")
			s.console = nil
		}
	}
	n, err := s.file.WriteString(line + "\n")
	if err != nil {
		return n, fmt.Errorf("write %s: %w", s.file.Name(), err)
	}
	if err := s.file.Sync(); err != nil {
		return n, fmt.Errorf("sync %s: %w", s.file.Name(), err)
	}
	return n, nil
}

func (s *sink) close() error {
	return s.file.Close()
}
