/*************************************************************************
 * Copyright 2026 CoreDaemon Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 *************************************************************************/

// Command dmndemo is a minimal host binary exercising the dmn package's full
// phase sequence end to end. It plays the role the spec assigns entirely to
// the host: command-line verb parsing, choosing what to do with the result
// of Status/Stop/Signal, and registering the one privileged action a real
// service might need (rewriting a root-owned file after privdrop).
package main

import (
	"flag"
	"fmt"
	"os"
	"syscall"

	"github.com/coredaemon/dmn/dmn"
)

func main() {
	var (
		debug      = flag.Bool("debug", false, "enable debug logging")
		foreground = flag.Bool("foreground", false, "do not background the process")
		stderrInfo = flag.Bool("stderr-info", false, "show info-level messages on stderr")
		restart    = flag.Bool("restart", false, "terminate a running instance before starting")
		pidDir     = flag.String("pid-dir", "/var/run/dmndemo", "absolute directory for the pidfile")
		chroot     = flag.String("chroot", "", "absolute path to chroot into")
		username   = flag.String("username", "", "account to drop privileges to")
	)
	flag.Parse()

	verb := "start"
	if flag.NArg() > 0 {
		verb = flag.Arg(0)
	}

	h := dmn.New()
	h.Init1("dmndemo", *debug, *foreground, *stderrInfo)
	h.Init2(*pidDir, *chroot)
	h.Init3(*username, *restart)

	switch verb {
	case "status":
		pid := h.Status()
		if pid == 0 {
			fmt.Println("not running")
			os.Exit(1)
		}
		fmt.Printf("running, pid %d\n", pid)
		os.Exit(0)
	case "stop":
		if pid := h.Stop(); pid != 0 {
			os.Exit(1)
		}
		os.Exit(0)
	case "signal":
		sig := syscall.SIGHUP
		if flag.NArg() > 1 && flag.Arg(1) == "usr1" {
			sig = syscall.SIGUSR1
		}
		os.Exit(h.Signal(sig))
	case "start":
		runStart(h)
	default:
		fmt.Fprintf(os.Stderr, "unknown verb %q\n", verb)
		os.Exit(2)
	}
}

// runStart registers the demo's one privileged action -- touching a
// root-owned marker file -- then walks the daemon through the remaining
// phases. After a background start this function runs again inside the
// re-exec'd final-role process; only that invocation reaches Finish.
func runStart(h *dmn.Handle) {
	h.AddAction(func() {
		f, err := os.OpenFile("/etc/dmndemo.marker", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			h.Errorf("privileged action failed: %s", dmn.Errno(err))
			return
		}
		fmt.Fprintf(f, "started by pid %d\n", os.Getpid())
		f.Close()
	})

	h.Fork()
	h.Secure()
	h.AcquirePidfile()

	if h.Username() != "" {
		h.InvokeAction(0)
	}

	h.Infof("dmndemo is up, debug=%v foreground=%v", h.Debug(), h.Foreground())
	h.Finish()

	select {}
}
