package local

import (
	"errors"
	"fmt"
	"net"
)

// ErrNoFreePort is returned when every port in the configured range is taken.
var ErrNoFreePort = errors.New("no free port in range")

// listenInRange binds the first free port in [minPort, maxPort].
// With an empty range (0, 0) the OS picks the port.
func listenInRange(minPort, maxPort int) (net.Listener, error) {
	if minPort == 0 && maxPort == 0 {
		return net.Listen("tcp", ":0")
	}

	// Port 0 would let the OS pick a port outside the range.
	for port := max(minPort, 1); port <= maxPort; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			return ln, nil
		}
	}
	return nil, fmt.Errorf("%w [%d, %d]", ErrNoFreePort, minPort, maxPort)
}

// detectHost returns the first non-loopback IPv4 address of this machine.
func detectHost() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "127.0.0.1"
}
