// Package transport implements the byte-level carriers SDSIO can run
// over: TCP, a serial port, and USB bulk endpoints. Every carrier
// exposes the same io.ReadWriteCloser surface so pkg/dispatch can drive
// any of them without knowing which one it was handed.
package transport

import "io"

// Session is a single connected peer: a io.ReadWriteCloser the
// dispatcher reads requests from and writes responses to.
type Session = io.ReadWriteCloser

// Listener accepts Sessions one at a time. TCP has a natural listener;
// Serial and USB wrap their single persistent connection in a
// Listener that blocks until open succeeds, then hands it out once per
// physical reconnect.
type Listener interface {
	Accept() (Session, error)
	Close() error
}
