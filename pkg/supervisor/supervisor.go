// Package supervisor restarts a transport's serve loop on error and
// reports background stream activity, following the same
// start/monitor/restart shape the CANopen stack used to drive its node
// processes.
package supervisor

import (
	"time"

	log "github.com/sirupsen/logrus"
)

const restartDelay = 1 * time.Second

// Cleaner is satisfied by stream.Manager; it is the only thing the
// supervisor needs in order to drop every open stream after a session
// ends, whether cleanly or in error.
type Cleaner interface {
	Clean()
}

// Run calls serve in a loop for as long as stop is open. Each call is
// expected to run one transport session to completion (one client
// connect through disconnect) and return the error that ended it. After
// every call Run cleans up open streams; a nil error calls serve again
// at once, a non-nil error is logged and serve is called again after
// restartDelay.
func Run(stop <-chan struct{}, mgr Cleaner, serve func() error) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		err := serve()
		mgr.Clean()
		if err == nil {
			continue
		}

		log.Warnf("supervisor: session ended with error, restarting in %s: %v", restartDelay, err)
		select {
		case <-stop:
			return
		case <-time.After(restartDelay):
		}
	}
}
