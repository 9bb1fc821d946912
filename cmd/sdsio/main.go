// Command sdsio serves the SDSIO protocol over TCP, a serial port, or
// USB bulk endpoints, backed by a directory of .sds stream files.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/samsamfire/sdsio/pkg/config"
	"github.com/samsamfire/sdsio/pkg/dispatch"
	"github.com/samsamfire/sdsio/pkg/stream"
	"github.com/samsamfire/sdsio/pkg/supervisor"
	"github.com/samsamfire/sdsio/pkg/transport"
)

const defaultBaud = 115200

func main() {
	log.SetLevel(log.InfoLevel)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "socket":
		runSocket(os.Args[2:])
	case "serial":
		runSerial(os.Args[2:])
	case "usb":
		runUSB(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: sdsio <socket|serial|usb> [flags]")
}

func runSocket(args []string) {
	fs := flag.NewFlagSet("socket", flag.ExitOnError)
	workDir := fs.String("workdir", ".", "directory holding sdsio.yml and stream files")
	host := fs.String("host", "", "bind address (default: machine's primary IPv4)")
	iface := fs.String("interface", "", "bind to this network interface's IPv4 address instead of --host")
	port := fs.Int("port", transport.DefaultPort, "TCP port to listen on")
	fs.Parse(args)

	mgr := openManager(*workDir)

	bindHost := *host
	if *iface != "" {
		resolved, err := transport.ByInterface(*iface)
		if err != nil {
			fatal(err)
		}
		bindHost = resolved
	}

	ln, err := transport.ListenTCP(bindHost, *port)
	if err != nil {
		fatal(err)
	}
	defer ln.Close()

	serve(mgr, func() error { return acceptAndDispatch(ln, mgr) })
}

func runSerial(args []string) {
	fs := flag.NewFlagSet("serial", flag.ExitOnError)
	workDir := fs.String("workdir", ".", "directory holding sdsio.yml and stream files")
	port := fs.String("port", "", "serial device path, e.g. /dev/ttyUSB0 or COM3")
	baud := fs.Int("baud", defaultBaud, "baud rate")
	connectTimeout := fs.Duration("connect-timeout", 0, "give up opening the port after this long (0 = retry forever)")
	fs.Parse(args)

	if *port == "" {
		fatal(fmt.Errorf("serial: --port is required"))
	}

	mgr := openManager(*workDir)
	ln := transport.NewSerialListener(*port, *baud, *connectTimeout)

	// The connect-timeout only governs this first open: failing to ever
	// see the port at startup is a fatal error, not something the
	// supervisor should treat as a transient session drop to restart
	// from. Every later reconnect goes through ln.Accept inside serve,
	// which by then retries forever regardless of connect-timeout.
	first, err := ln.Accept()
	if err != nil {
		fatal(err)
	}

	serveFirst := true
	serve(mgr, func() error {
		if serveFirst {
			serveFirst = false
			sess := first
			defer sess.Close()
			return dispatch.Run(sess, sess, mgr)
		}
		return acceptAndDispatch(ln, mgr)
	})
}

func runUSB(args []string) {
	fs := flag.NewFlagSet("usb", flag.ExitOnError)
	workDir := fs.String("workdir", ".", "directory holding sdsio.yml and stream files")
	fs.Parse(args)

	mgr := openManager(*workDir)
	ln := transport.NewUSBListener()
	defer ln.Close()

	serve(mgr, func() error { return acceptAndDispatch(ln, mgr) })
}

func openManager(workDir string) *stream.Manager {
	cfg := config.Load(workDir)
	mgr, err := stream.NewManager(cfg)
	if err != nil {
		fatal(err)
	}
	return mgr
}

func acceptAndDispatch(ln transport.Listener, mgr *stream.Manager) error {
	sess, err := ln.Accept()
	if err != nil {
		return err
	}
	defer sess.Close()
	return dispatch.Run(sess, sess, mgr)
}

// serve drives mgr's transport loop under the supervisor until SIGINT
// or SIGTERM, reporting activity dots for as long as it runs.
func serve(mgr *stream.Manager, accept func() error) {
	stop := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("sdsio: shutting down")
		close(stop)
		// supervisor.Run only sees stop between sessions, and the current
		// session may be blocked in Accept or a transport read, so close
		// every stream and exit here instead of waiting for it to return.
		mgr.Clean()
		os.Exit(0)
	}()

	status := supervisor.NewStatus()
	mgr.OnActivity = status.Mark
	go status.Start()

	supervisor.Run(stop, mgr, accept)
	status.Stop()

	select {
	case <-stop:
		os.Exit(0)
	default:
		os.Exit(1)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
