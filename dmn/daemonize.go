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
	"os/exec"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// dmnRoleEnv carries the re-exec'd process's role across exec(). It is a
// private implementation detail of this package: never read if absent, never
// part of the public API (see SPEC_FULL.md section 6).
const dmnRoleEnv = "_DMN_ROLE"

const (
	roleHelper       = "helper"
	roleIntermediate = "intermediate"
	roleFinal        = "final"
)

// Fork implements the daemonization engine. The Go runtime is always
// multi-threaded, so a raw fork() without an immediate exec() would leave
// the child's runtime corrupted; this engine re-executes the current binary
// to stand up each role instead, dispatching on dmnRoleEnv, while preserving
// every role, ordering constraint, and exit-code contract the spec
// describes for the classic double-fork (see SPEC_FULL.md 4.7). Legal once,
// between INIT3 and SECURED.
func (h *Handle) Fork() {
	h.phaseCheck("Fork()", Init3Phase, SecuredPhase, &h.onceFork)

	switch os.Getenv(dmnRoleEnv) {
	case roleFinal:
		h.forkFinalRole()
		return
	case roleIntermediate:
		h.forkIntermediateRole() // exits, never returns
	case roleHelper:
		h.forkHelperRole() // exits, never returns
	}

	h.params.NeedHelper = h.computeNeedHelper()
	if !h.params.NeedHelper {
		h.setPhase(ForkedPhase)
		return
	}
	if h.params.Foreground {
		h.forkForegroundHelper()
		return
	}
	h.forkBackground() // exits, never returns
}

// computeNeedHelper matches spec section 3's derived-parameter formula:
// always true when backgrounding, true in foreground only when privileges
// will be dropped and at least one action was registered.
func (h *Handle) computeNeedHelper() bool {
	if !h.params.Foreground {
		return true
	}
	h.actionsMtx.Lock()
	n := len(h.actions)
	h.actionsMtx.Unlock()
	return h.params.WillPrivdrop && n > 0
}

func (h *Handle) snapshotActions() []Action {
	h.actionsMtx.Lock()
	defer h.actionsMtx.Unlock()
	out := make([]Action, len(h.actions))
	copy(out, h.actions)
	return out
}

func mustPipe(h *Handle) (r, w *os.File) {
	r, w, err := os.Pipe()
	if err != nil {
		se := &SystemError{Op: "pipe()", Err: err}
		h.Fatalf("%s", se.Error())
	}
	return r, w
}

// reexec launches a copy of the running binary with the given role and
// extra pipe descriptors inherited as fd 3, 4, ... in ExtraFiles order.
func (h *Handle) reexec(role string, extraFiles []*os.File) *exec.Cmd {
	exe, err := os.Executable()
	if err != nil {
		se := &SystemError{Op: "resolve own executable path for re-exec", Err: err}
		h.Fatalf("%s", se.Error())
	}
	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), dmnRoleEnv+"="+role)
	cmd.ExtraFiles = extraFiles
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		se := &SystemError{Op: fmt.Sprintf("re-exec (role=%s)", role), Err: err}
		h.Fatalf("%s", se.Error())
	}
	return cmd
}

// forkForegroundHelper covers "foreground, helper needed": one pipe pair,
// one re-exec'd helper, the current process becomes the daemon directly.
func (h *Handle) forkForegroundHelper() {
	toHelperR, toHelperW := mustPipe(h)
	fromHelperR, fromHelperW := mustPipe(h)

	cmd := h.reexec(roleHelper, []*os.File{toHelperR, fromHelperW})
	toHelperR.Close()
	fromHelperW.Close()

	h.fdToHelper = toHelperW
	h.fdFromHelper = fromHelperR
	h.helperCmd = cmd

	h.setPhase(ForkedPhase)
}

// forkBackground covers the full double-fork-equivalent backgrounding
// sequence. This process becomes the retained helper: it keeps its
// controlling-terminal relationship and blocks on the helper loop so the
// invoking shell doesn't return until the real daemon (two re-exec
// generations down: intermediate, then final) reports startup success or
// dies.
func (h *Handle) forkBackground() {
	r1, w1 := mustPipe(h) // daemon writes w1, helper reads r1
	r2, w2 := mustPipe(h) // helper writes w2, daemon reads r2

	cmd := h.reexec(roleIntermediate, []*os.File{w1, r2})
	w1.Close()
	r2.Close()

	code := runHelperLoop(r1, w2, h.snapshotActions())
	_, _ = cmd.Process.Wait()
	os.Exit(code)
}

// forkHelperRole is the entry point of a re-exec'd "foreground, helper
// needed" child: fds 3 and 4 are its ends of the request/response pipes. It
// runs the helper loop to completion and exits with the accumulated status,
// matching "on loop exit, terminate immediately without cleanup handlers."
func (h *Handle) forkHelperRole() {
	readFd := os.NewFile(3, "dmn-helper-read")
	writeFd := os.NewFile(4, "dmn-helper-write")
	code := runHelperLoop(readFd, writeFd, h.snapshotActions())
	os.Exit(code)
}

// forkIntermediateRole is the middle generation of the backgrounding
// sequence: detach from the controlling terminal, ignore the two signals a
// newly-headless process shouldn't die to, then re-exec once more as the
// final role and exit immediately -- "the intermediate parent exits
// immediately" realized as "the intermediate re-exec's caller exits
// immediately," since there is no fork() to simply return from.
func (h *Handle) forkIntermediateRole() {
	if _, err := unix.Setsid(); err != nil {
		se := &SystemError{Op: "setsid()", Err: err}
		h.Fatalf("%s", se.Error())
	}
	signal.Ignore(syscall.SIGHUP, syscall.SIGPIPE)

	w1 := os.NewFile(3, "dmn-to-helper")
	r2 := os.NewFile(4, "dmn-from-helper")

	h.reexec(roleFinal, []*os.File{w1, r2})
	os.Exit(0)
}

// forkFinalRole is the final daemon generation: set a permissive umask,
// duplicate stderr aside so logging keeps working once the real stdio fds
// are redirected to /dev/null, reopen stdin/stdout/stderr, and pick up the
// inherited helper pipe as fd 3/4. Execution returns to the caller from
// here -- this is the process that goes on to call Secure, AcquirePidfile,
// and Finish.
func (h *Handle) forkFinalRole() {
	if dup, err := unix.Dup(2); err == nil {
		f := os.NewFile(uintptr(dup), "dmn-dup-stderr")
		h.logState.mtx.Lock()
		h.logState.stderrOut = f
		h.logState.closeable = f
		h.logState.mtx.Unlock()
	}

	unix.Umask(0o022)

	if devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0); err == nil {
		unix.Dup2(int(devnull.Fd()), 0)
		unix.Dup2(int(devnull.Fd()), 1)
		unix.Dup2(int(devnull.Fd()), 2)
		devnull.Close()
	}

	h.fdToHelper = os.NewFile(3, "dmn-to-helper")
	h.fdFromHelper = os.NewFile(4, "dmn-from-helper")
	h.params.NeedHelper = true

	h.setPhase(ForkedPhase)
	h.Infof("Final daemon process running as pid %d", os.Getpid())
}
