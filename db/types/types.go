package types

import (
	"net"
	"strconv"
	"time"
)

// ProbeTarget carries issued credentials and the coordinates of the backend
// they were issued for so a connectivity probe can try them out
type ProbeTarget struct {
	Backend  string
	Username string
	Password string
	Database string
	Hosts    []string
	Port     int
	URI      string
	TLSCA    string
	Timeout  time.Duration
}

// HostPort splits a host that may carry its own port, falling back to the
// target default when it does not
func (t ProbeTarget) HostPort(host string) (string, int) {
	h, p, err := net.SplitHostPort(host)
	if err != nil {
		return host, t.Port
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return host, t.Port
	}
	return h, port
}

// Addr returns host:port for a single host
func (t ProbeTarget) Addr(host string) string {
	h, p := t.HostPort(host)
	return net.JoinHostPort(h, strconv.Itoa(p))
}

// Addrs returns host:port for every host
func (t ProbeTarget) Addrs() []string {
	addrs := make([]string, 0, len(t.Hosts))
	for _, host := range t.Hosts {
		addrs = append(addrs, t.Addr(host))
	}
	return addrs
}
