package link

import "go.bug.st/serial"

// ListPorts enumerates the serial devices present on the system. Intended
// for tooling; the link itself opens whatever path it is given.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}
