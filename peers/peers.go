package peers

import (
	"fmt"
	"net"
	"strconv"
)

// Peer is the address of a single peer, as carried by a magnet link's x.pe
type Peer struct {
	IP   net.IP
	Port uint16
}

// ParseAddr parses an ip:port or [ipv6]:port peer address. Host names are
// rejected since resolving them would need the network.
func ParseAddr(s string) (Peer, error) {
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return Peer{}, err
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return Peer{}, fmt.Errorf("peer host %q is not an ip address", host)
	}
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}

	p, err := strconv.ParseUint(port, 10, 16)
	if err != nil || p == 0 {
		return Peer{}, fmt.Errorf("invalid peer port %q", port)
	}
	return Peer{IP: ip, Port: uint16(p)}, nil
}

func (p Peer) String() string {
	return net.JoinHostPort(p.IP.String(), fmt.Sprintf("%v", p.Port))
}
