package serialport

import "fmt"

// ConnectionError reports a port that could not be opened: missing, busy or
// not permitted.
type ConnectionError struct {
	Port string
	Baud int
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("could not open port %s at %d baud: %v", e.Port, e.Baud, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
