// Package transport provides the datagram adapters a discovery node sends
// and receives through: a UDP socket for real networks and an in-memory hub
// for tests and embedding.
package transport

import (
	"fmt"
	"net"
	"strconv"
)

// Addr is an IP/port pair identifying a datagram endpoint.
type Addr struct {
	IP   string
	Port int
}

func (a Addr) String() string {
	return net.JoinHostPort(a.IP, strconv.Itoa(a.Port))
}

// ParseAddr parses a "host:port" string into an Addr.
func ParseAddr(s string) (Addr, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Addr{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Addr{}, fmt.Errorf("invalid port in %q: %w", s, err)
	}
	return Addr{IP: host, Port: int(port)}, nil
}

// Handler receives one inbound datagram. Adapters call it from a single
// goroutine, in arrival order.
type Handler func(payload []byte, from Addr)

// MaxDatagramSize is the largest UDP payload carried over IPv4.
const MaxDatagramSize = 65507
