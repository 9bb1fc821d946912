package transport

import (
	"fmt"
	"net"

	log "github.com/sirupsen/logrus"
)

// DefaultPort is the TCP port SDSIO listens on when none is given.
const DefaultPort = 5050

// TCPListener serves one client connection at a time: while a client
// is connected, Accept blocks new clients out until the current one
// disconnects, matching SDSIO's single-peer session model.
type TCPListener struct {
	ln net.Listener
}

// ListenTCP binds host:port. An empty host resolves to the machine's
// primary IPv4 address via the net package, mirroring the supplemented
// --interface selection described alongside this transport.
func ListenTCP(host string, port int) (*TCPListener, error) {
	if port == 0 {
		port = DefaultPort
	}
	if host == "" {
		var err error
		host, err = primaryIPv4()
		if err != nil {
			return nil, fmt.Errorf("transport: resolve bind address: %w", err)
		}
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen on %s: %w", addr, err)
	}
	if tl, ok := ln.(*net.TCPListener); ok {
		tuneListener(tl)
	}
	log.Infof("tcp transport: listening on %s", addr)
	return &TCPListener{ln: ln}, nil
}

// Accept blocks for the next client. Callers are expected to serve the
// returned Session to completion (or until it errors) before calling
// Accept again, since only one client is served at a time.
func (l *TCPListener) Accept() (Session, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tuneConn(tc)
	}
	log.Infof("tcp transport: client connected from %s", conn.RemoteAddr())
	return conn, nil
}

func (l *TCPListener) Close() error {
	return l.ln.Close()
}

// primaryIPv4 returns the first non-loopback IPv4 address found among
// the host's network interfaces, used as the TCP bind address when the
// caller does not name one explicitly.
func primaryIPv4() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.IsLoopback() {
				continue
			}
			if ip4 := ipNet.IP.To4(); ip4 != nil {
				return ip4.String(), nil
			}
		}
	}
	return "0.0.0.0", nil
}

// ByInterface resolves the first IPv4 address bound to the named
// network interface (e.g. "eth0"), for the --interface flag.
func ByInterface(name string) (string, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return "", fmt.Errorf("transport: interface %q: %w", name, err)
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return "", err
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String(), nil
		}
	}
	return "", fmt.Errorf("transport: interface %q has no IPv4 address", name)
}
