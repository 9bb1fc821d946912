//go:build linux || darwin

package transport

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"

	log "github.com/sirupsen/logrus"
)

// tuneListener sets SO_REUSEADDR on the listening socket so a restarted
// server can rebind the same port while the previous connection is
// still draining through TIME_WAIT.
func tuneListener(tl *net.TCPListener) {
	raw, err := tl.SyscallConn()
	if err != nil {
		log.Warnf("tcp transport: could not tune listener: %v", err)
		return
	}
	ctrlErr := raw.Control(func(fd uintptr) {
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			log.Warnf("tcp transport: SO_REUSEADDR: %v", err)
		}
	})
	if ctrlErr != nil {
		log.Warnf("tcp transport: could not tune listener: %v", ctrlErr)
	}
}

// tuneConn disables Nagle's algorithm on the accepted connection so
// small SDSIO frames are not delayed waiting to coalesce.
func tuneConn(tc *net.TCPConn) {
	raw, err := tc.SyscallConn()
	if err != nil {
		log.Warnf("tcp transport: could not tune connection: %v", err)
		return
	}
	ctrlErr := raw.Control(func(fd uintptr) {
		if err := unix.SetsockoptInt(int(fd), syscall.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
			log.Warnf("tcp transport: TCP_NODELAY: %v", err)
		}
	})
	if ctrlErr != nil {
		log.Warnf("tcp transport: could not tune connection: %v", ctrlErr)
	}
}
