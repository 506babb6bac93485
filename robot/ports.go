package robot

import (
	"errors"
	"fmt"
	"sort"

	"go.bug.st/serial"
)

// ErrNoPorts means no serial ports were found on this machine.
var ErrNoPorts = errors.New("no serial ports found")

// ListPorts enumerates the serial ports available for the connect dropdown.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("error listing serial ports: %w", err)
	}
	if len(ports) == 0 {
		return nil, ErrNoPorts
	}
	sort.Strings(ports)
	return ports, nil
}
