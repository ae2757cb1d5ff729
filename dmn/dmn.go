/*************************************************************************
 * Copyright 2026 CoreDaemon Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 *************************************************************************/

// Package dmn implements the daemonization core of a long-running network
// service: a phase-guarded state machine that takes a process launched from
// a terminal or service manager and turns it into a properly backgrounded
// daemon with dropped privileges, an optional chroot jail, and an exclusive
// pidfile lock, plus lifecycle control over an already-running instance and
// a privilege-preserving helper RPC mechanism.
package dmn

import (
	"fmt"
	"os"
	"sync"
)

// Handle is the single owning value for one daemon identity: the phase
// machine, the resolved parameters, the logging state, and the helper pipe
// endpoints. Spec section 9 calls for exactly this redesign -- process-global
// C statics become a value created once by Init1 and threaded through every
// subsequent call instead of package-level mutable state.
type Handle struct {
	phaseVal int32

	params   Params
	logState logState

	onceInit2   uniqueGuard
	onceInit3   uniqueGuard
	onceFork    uniqueGuard
	onceSecure  uniqueGuard
	onceAcquire uniqueGuard
	onceFinish  uniqueGuard

	actionsMtx sync.Mutex
	actions    []Action

	fdToHelper   *os.File
	fdFromHelper *os.File
	helperCmd    helperWaiter
}

// helperWaiter is satisfied by *exec.Cmd; kept as an interface so dmn.go
// doesn't need to import os/exec for a field only daemonize.go populates.
type helperWaiter interface {
	Wait() error
}

// New returns a fresh, UNINIT handle. Every other method on *Handle requires
// Init1 to have been called first.
func New() *Handle {
	return &Handle{}
}

// Init1 is the only legal call against a freshly constructed Handle. It
// records the debug/foreground/stderr-info flags and the daemon's name,
// points the logger at standard error, and advances to INIT1. Matches
// dmn_init1's role exactly: establish enough state for the logger to work
// before anything else runs.
func (h *Handle) Init1(name string, debug, foreground, stderrInfo bool) {
	if h.phase() != Uninit {
		be := &BugError{Msg: "Init1() must be called exactly once, before any other dmn function!"}
		fmt.Fprintln(os.Stderr, be.Error())
		os.Exit(2)
	}
	if name == "" {
		be := &BugError{Msg: "Init1() requires a non-empty name!"}
		fmt.Fprintln(os.Stderr, be.Error())
		os.Exit(2)
	}

	h.params.Name = name
	h.params.Debug = debug
	h.params.Foreground = foreground
	h.params.StderrInfo = stderrInfo

	h.logState.stderrOut = os.Stderr
	h.logState.name = name

	h.setPhase(Init1Phase)
	h.logPlatformBanner()
}

// Init2 resolves the caller's privilege level and computes the pre-chroot
// and post-chroot pidfile paths. Legal once, between INIT1 and INIT3.
func (h *Handle) Init2(pidDir, chroot string) {
	h.phaseCheck("Init2()", Init1Phase, Init3Phase, &h.onceInit2)

	h.params.InvokedAsRoot = os.Geteuid() == 0
	h.computePaths(pidDir, chroot)

	h.setPhase(Init2Phase)
}

// Init3 resolves the optional privilege-drop account and validates the
// chroot/privdrop/restart combination. Legal once, between INIT2 and FORKED.
func (h *Handle) Init3(username string, restart bool) {
	h.phaseCheck("Init3()", Init2Phase, ForkedPhase, &h.onceInit3)

	h.params.Restart = restart
	h.params.Username = username

	if h.params.ChrootPath != "" && username == "" {
		ce := &ConfigError{Msg: "chroot() requires a username to drop privileges to!"}
		h.Fatalf("%s", ce.Error())
	}
	if username != "" && h.params.InvokedAsRoot {
		h.params.WillPrivdrop = true
		h.params.UID, h.params.GID = h.resolveUser(username)
	}
	if h.params.ChrootPath != "" && !h.params.WillPrivdrop {
		ce := &ConfigError{Msg: "chroot() requires running as root so privileges can be dropped!"}
		h.Fatalf("%s", ce.Error())
	}

	h.provisionPIDDir()

	h.setPhase(Init3Phase)
}

// Finish completes the startup handshake with the helper, if one exists,
// and advances to FINISHED. Legal once, at PIDLOCKED.
func (h *Handle) Finish() {
	h.phaseCheck("Finish()", PidlockedPhase, Uninit, &h.onceFinish)

	if h.fdToHelper == nil {
		h.setPhase(FinishedPhase)
		return
	}

	if err := writeByte(h.fdToHelper, reqSuccess); err != nil {
		se := &SystemError{Op: "write startup-success byte to helper", Err: err}
		h.Fatalf("%s", se.Error())
	}
	resp, err := readByte(h.fdFromHelper)
	if err != nil {
		se := &SystemError{Op: "read startup-success response from helper", Err: err}
		h.Fatalf("%s", se.Error())
	}
	if resp != reqSuccess|respBit {
		be := &BugError{Msg: fmt.Sprintf("invalid startup-success response '%d' from helper!", resp)}
		h.Fatalf("%s", be.Error())
	}

	h.fdToHelper.Close()
	h.fdFromHelper.Close()
	h.fdToHelper = nil
	h.fdFromHelper = nil

	if h.logState.closeable != nil {
		h.logState.closeable.Close()
		h.logState.closeable = nil
	}

	h.setPhase(FinishedPhase)
}
