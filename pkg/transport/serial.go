package transport

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

const serialRetryPeriod = 500 * time.Millisecond

// SerialListener opens a single named serial port, retrying the open
// every 500ms until it succeeds or an optional connect timeout elapses.
// Accept hands that one connection out once; a second Accept call
// blocks until the port is reopened (the caller closed or it dropped).
//
// The connect timeout only bounds the very first open: that failure is
// a fatal startup error the caller is expected to exit on. Once a
// connection has been established at least once, later reconnects
// (after the port drops) retry forever — a transient disconnect should
// not bring the server down just because it takes longer to replug the
// cable than the original startup timeout allowed.
type SerialListener struct {
	portName  string
	mode      *serial.Mode
	timeout   time.Duration // 0 means retry forever
	connected bool
}

// NewSerialListener describes a serial port to dial; nothing is opened
// until Accept is called.
func NewSerialListener(portName string, baud int, connectTimeout time.Duration) *SerialListener {
	return &SerialListener{
		portName: portName,
		mode:     &serial.Mode{BaudRate: baud},
		timeout:  connectTimeout,
	}
}

// Accept opens the serial port, retrying every 500ms. A zero connect
// timeout retries indefinitely; a non-zero one bounds only the first
// call — later calls (reconnecting after a drop) always retry forever.
func (l *SerialListener) Accept() (Session, error) {
	deadline := time.Time{}
	if l.timeout > 0 && !l.connected {
		deadline = time.Now().Add(l.timeout)
	}

	for {
		port, err := serial.Open(l.portName, l.mode)
		if err == nil {
			log.Infof("serial transport: opened %s", l.portName)
			l.connected = true
			return port, nil
		}
		log.Warnf("serial transport: open %s failed, retrying: %v", l.portName, err)

		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, fmt.Errorf("transport: timed out opening %s: %w", l.portName, err)
		}
		time.Sleep(serialRetryPeriod)
	}
}

func (l *SerialListener) Close() error {
	return nil
}
