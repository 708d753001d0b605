// Package netutil holds small socket helpers used at startup.
package netutil

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// Default probe range.
const (
	DefaultPortRangeStart = 8000
	DefaultPortRangeEnd   = 9000
)

// ErrNoFreePort is returned when every port in the probed range is taken.
var ErrNoFreePort = errors.New("no free ports available")

// FreePort returns the first port in [start, end) that can be bound on
// 127.0.0.1. The probe listener is closed before returning, so another
// process may claim the port before the caller binds it. Callers that need
// a guarantee should keep a listener open instead.
func FreePort(start, end int) (int, error) {
	if start < 1 || end > 65536 || start >= end {
		return 0, fmt.Errorf("invalid port range [%d, %d)", start, end)
	}
	for port := start; port < end; port++ {
		ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		if err != nil {
			continue
		}
		_ = ln.Close()
		return port, nil
	}
	return 0, fmt.Errorf("%w in range [%d, %d)", ErrNoFreePort, start, end)
}
