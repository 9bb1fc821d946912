//go:build !linux && !darwin

package transport

import "net"

// tuneListener and tuneConn are no-ops on platforms without the
// SO_REUSEADDR/TCP_NODELAY wiring in tcp_unix.go.
func tuneListener(*net.TCPListener) {}

func tuneConn(*net.TCPConn) {}
