/*************************************************************************
 * Copyright 2026 CoreDaemon Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 *************************************************************************/

package dmn

import (
	"fmt"
	"os"
	"sync/atomic"
)

// Phase is a strictly-increasing position in the daemonization lifecycle.
// Callers never construct one directly; it only ever advances, one step
// at a time, via the phase-transition entry points on *Handle.
type Phase int

const (
	Uninit Phase = iota
	Init1Phase
	Init2Phase
	Init3Phase
	ForkedPhase
	SecuredPhase
	PidlockedPhase
	FinishedPhase
)

var phaseActor = [...]string{
	Uninit:         "",
	Init1Phase:     "Init1()",
	Init2Phase:     "Init2()",
	Init3Phase:     "Init3()",
	ForkedPhase:    "Fork()",
	SecuredPhase:   "Secure()",
	PidlockedPhase: "AcquirePidfile()",
	FinishedPhase:  "Finish()",
}

func (p Phase) String() string {
	switch {
	case p >= Uninit && int(p) < len(phaseActor):
		if phaseActor[p] == "" {
			return "UNINIT"
		}
		return phaseActor[p]
	default:
		return "INVALID"
	}
}

// uniqueGuard is a per-entry-point atomic call counter, the equivalent of
// dmn.c's "static unsigned _call_count" inside the phase_check macro.
type uniqueGuard struct {
	n int32
}

func (g *uniqueGuard) check(h *Handle, fn string) {
	if atomic.AddInt32(&g.n, 1) > 1 {
		be := &BugError{Msg: fmt.Sprintf("%s can only be called once and was already called!", fn)}
		h.Fatalf("%s", be.Error())
	}
}

// phaseCheck enforces the (after, before, unique) contract every exported
// entry point declares, mirroring dmn.c's phase_check macro exactly. A call
// while the handle is still Uninit bypasses the logger entirely (it is not
// safe to use before Init1) and aborts the process directly on stderr.
func (h *Handle) phaseCheck(fn string, after, before Phase, guard *uniqueGuard) {
	if h.phase() == Uninit {
		be := &BugError{Msg: "Init1() must be called before any other dmn function!"}
		fmt.Fprintln(os.Stderr, be.Error())
		os.Exit(2)
	}
	if guard != nil {
		guard.check(h, fn)
	}
	if after != Uninit && h.phase() < after {
		be := &BugError{Msg: fmt.Sprintf("%s must be called after %s", fn, after)}
		h.Fatalf("%s", be.Error())
	}
	if before != Uninit && h.phase() >= before {
		be := &BugError{Msg: fmt.Sprintf("%s must be called before %s", fn, before)}
		h.Fatalf("%s", be.Error())
	}
}

func (h *Handle) phase() Phase {
	return Phase(atomic.LoadInt32(&h.phaseVal))
}

func (h *Handle) setPhase(p Phase) {
	atomic.StoreInt32(&h.phaseVal, int32(p))
}
