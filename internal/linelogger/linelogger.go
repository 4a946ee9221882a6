// Package linelogger reads newline-terminated text from a serial sensor and
// appends every non-empty line to a file, mirroring it on the console.
//
// The loop is single-threaded. Each line is written and synced before the
// next read starts, and both the port and the file are released on every
// exit path.
package linelogger

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Fishwaldo/LineLogger/internal"
	"github.com/Fishwaldo/LineLogger/internal/serialport"
	"github.com/go-logr/logr"
	"github.com/sasha-s/go-deadlock"
	"github.com/spf13/viper"
)

func init() {
	viper.SetDefault("serial.poll", "10ms")
	viper.SetDefault("serial.linetimeout", "1s")
	viper.SetDefault("output.path", "output.txt")
	viper.SetDefault("output.console", true)
}

type Options struct {
	Name        string
	Serial      serialport.Options
	Output      string
	Console     io.Writer
	Poll        time.Duration
	LineTimeout time.Duration
}

// OptionsFromConfig builds Options from config. The console mirror goes to
// stdout unless output.console is off.
func OptionsFromConfig() Options {
	opts := Options{
		Name:        viper.GetString("name"),
		Serial:      serialport.OptionsFromConfig(),
		Output:      viper.GetString("output.path"),
		Poll:        viper.GetDuration("serial.poll"),
		LineTimeout: viper.GetDuration("serial.linetimeout"),
	}
	if viper.GetBool("output.console") {
		opts.Console = os.Stdout
	}
	return opts
}

var openPort = serialport.Open

type Logger struct {
	opts   Options
	log    logr.Logger
	port   serialport.Port
	out    *sink
	reader *lineReader
	stats  statsBox

	mx     deadlock.Mutex
	closed bool
}

// Open acquires the serial port, then the output file. When the port can't
// be opened the file is left untouched and a *serialport.ConnectionError is
// returned.
func Open(opts Options, log logr.Logger) (*Logger, error) {
	port, err := openPort(opts.Serial)
	if err != nil {
		return nil, err
	}
	out, err := openSink(opts.Output, opts.Console, log)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("can't open output file: %w", err)
	}
	l := &Logger{
		opts:   opts,
		log:    log,
		port:   port,
		out:    out,
		reader: newLineReader(port, opts.Poll, opts.LineTimeout),
	}
	l.stats.s = Stats{
		Port:    opts.Serial.Port,
		Baud:    opts.Serial.Baud,
		Output:  opts.Output,
		Started: time.Now(),
	}
	l.log.Info("Listening", "port", opts.Serial.Port, "baud", opts.Serial.Baud, "output", opts.Output)
	return l, nil
}

// Run reads lines until ctx is cancelled, which returns nil. Any read or
// write fault ends the loop and is returned. The port and file are closed
// before Run returns.
func (l *Logger) Run(ctx context.Context) (err error) {
	defer func() {
		if cerr := l.Close(); err == nil {
			err = cerr
		}
	}()
	for {
		select {
		case <-ctx.Done():
			// complete lines already read off the port are still written
			for raw := l.reader.cut(); raw != nil; raw = l.reader.cut() {
				if err := l.handle(raw); err != nil {
					return err
				}
			}
			if n := l.reader.discard(); n > 0 {
				l.log.V(1).Info("Dropped unterminated line", "bytes", n)
			}
			l.log.Info("Stopped by user")
			return nil
		default:
		}

		raw, err := l.reader.next(ctx)
		if err != nil {
			return err
		}
		if raw == nil {
			continue
		}
		if err := l.handle(raw); err != nil {
			return err
		}
	}
}

func (l *Logger) handle(raw []byte) error {
	text, degraded := Decode(raw)
	if text == "" {
		l.stats.skipped()
		return nil
	}
	if degraded {
		l.log.V(1).Info("Dropped undecodable bytes", "line", text)
	}
	n, err := l.out.write(text)
	if err != nil {
		return err
	}
	now := time.Now()
	seq := l.stats.written(now, n, degraded)
	internal.ProcessUpdate("line", Record{
		Seq:  seq,
		Time: now,
		Name: l.opts.Name,
		Port: l.opts.Serial.Port,
		Line: text,
	})
	return nil
}

// Close releases the port and the file. It is safe to call more than once.
func (l *Logger) Close() error {
	l.mx.Lock()
	defer l.mx.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	perr := l.port.Close()
	ferr := l.out.close()
	if perr != nil {
		return fmt.Errorf("close port %s: %w", l.opts.Serial.Port, perr)
	}
	if ferr != nil {
		return fmt.Errorf("close %s: %w", l.opts.Output, ferr)
	}
	return nil
}

func (l *Logger) Stats() Stats {
	return l.stats.snapshot()
}

// Heartbeat logs the counters. It runs on the scheduler.
func (l *Logger) Heartbeat(ctx context.Context) {
	s := l.Stats()
	l.log.Info("Heartbeat", "lines", s.Lines, "bytes", s.Bytes, "skipped", s.Skipped, "degraded", s.Degraded, "last", s.LastLine)
}
