// Package serialport opens the sensor's serial connection through one of two
// drivers and reports open failures with the port and baud rate attached.
package serialport

import (
	"fmt"
	"io"
	"runtime"
	"sort"
	"time"

	jserial "github.com/jacobsa/go-serial/serial"
	"github.com/spf13/viper"
	bserial "go.bug.st/serial"
)

func init() {
	if runtime.GOOS == "windows" {
		viper.SetDefault("serial.port", "COM4")
	} else {
		viper.SetDefault("serial.port", "/dev/ttyUSB0")
	}
	viper.SetDefault("serial.baud", 115200)
	viper.SetDefault("serial.driver", DriverJacobsa)
	viper.SetDefault("serial.readtimeout", "100ms")
}

const (
	DriverJacobsa = "jacobsa"
	DriverBugst   = "bugst"
)

// Port is an open serial connection. Read returns after at most the
// configured read timeout; an idle line yields zero bytes, with either a nil
// error or io.EOF depending on the driver.
type Port interface {
	io.ReadCloser
}

type Options struct {
	Port        string
	Baud        int
	Driver      string
	ReadTimeout time.Duration
}

// OptionsFromConfig builds Options from the serial.* keys.
func OptionsFromConfig() Options {
	return Options{
		Port:        viper.GetString("serial.port"),
		Baud:        viper.GetInt("serial.baud"),
		Driver:      viper.GetString("serial.driver"),
		ReadTimeout: viper.GetDuration("serial.readtimeout"),
	}
}

// Opener opens a port for one driver.
type Opener func(Options) (Port, error)

var drivers = map[string]Opener{
	DriverJacobsa: openJacobsa,
	DriverBugst:   openBugst,
}

// RegisterDriver makes open available under name for serial.driver.
func RegisterDriver(name string, open Opener) {
	drivers[name] = open
}

// Open opens the port with the driver named in opts. Any failure to acquire
// the port is returned as a *ConnectionError.
func Open(opts Options) (Port, error) {
	if opts.Driver == "" {
		opts.Driver = DriverJacobsa
	}
	open, ok := drivers[opts.Driver]
	if !ok {
		return nil, fmt.Errorf("unknown serial driver %q", opts.Driver)
	}
	p, err := open(opts)
	if err != nil {
		return nil, &ConnectionError{Port: opts.Port, Baud: opts.Baud, Err: err}
	}
	return p, nil
}

func openJacobsa(opts Options) (Port, error) {
	// VTIME is in tenths of a second, so round up to a whole multiple of 100ms.
	ms := uint((opts.ReadTimeout + 99*time.Millisecond) / time.Millisecond)
	ms -= ms % 100
	if ms == 0 {
		ms = 100
	}
	options := jserial.OpenOptions{
		PortName:              opts.Port,
		BaudRate:              uint(opts.Baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       0,
		InterCharacterTimeout: ms,
	}
	return jserial.Open(options)
}

func openBugst(opts Options) (Port, error) {
	mode := &bserial.Mode{
		BaudRate: opts.Baud,
		DataBits: 8,
		Parity:   bserial.NoParity,
		StopBits: bserial.OneStopBit,
	}
	p, err := bserial.Open(opts.Port, mode)
	if err != nil {
		return nil, err
	}
	if err := p.SetReadTimeout(opts.ReadTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return p, nil
}

// AvailablePorts lists the serial ports present on this machine. Errors from
// enumeration are swallowed; the list only decorates failure reports.
func AvailablePorts() []string {
	ports, err := bserial.GetPortsList()
	if err != nil {
		return nil
	}
	sort.Strings(ports)
	return ports
}
