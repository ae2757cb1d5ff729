/*************************************************************************
 * Copyright 2026 CoreDaemon Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 *************************************************************************/

package dmn

import "fmt"

// The spec's error taxonomy (section 7) has no propagation machinery: every
// recoverable case is inspected at its call site and either retried locally
// or escalated to a fatal log-and-exit. These types exist only so the fatal
// call sites can tag *which* class of failure is being reported, the way
// dmn.c's messages make the taxonomy visible in text ("BUG:", "bug?", plain
// configuration prose).

// BugError marks a violated API contract: phase ordering, a "unique" entry
// point called twice, more than 64 registered actions, or helper-protocol
// desync. Always fatal.
type BugError struct{ Msg string }

func (e *BugError) Error() string { return "BUG: " + e.Msg }

// ConfigError marks a caller-supplied configuration problem: a non-absolute
// path, a chroot target that's missing or not a directory, chroot without a
// username, an unknown username, or a username whose uid/gid is 0. Always
// fatal with a human-readable message.
type ConfigError struct{ Msg string }

func (e *ConfigError) Error() string { return e.Msg }

// SystemError wraps a syscall failure during fork/pipe/open/chroot/set*id/
// lock, with the OS error string attached.
type SystemError struct {
	Op  string
	Err error
}

func (e *SystemError) Error() string { return fmt.Sprintf("%s: %s", e.Op, e.Err) }
func (e *SystemError) Unwrap() error { return e.Err }

// ContentionError marks a pidfile already locked by another instance.
// Restart mode distinguishes its message from a plain second-instance
// collision; both are always fatal.
type ContentionError struct {
	PIDFile string
	Holder  int
	Restart bool
}

func (e *ContentionError) Error() string {
	if e.Restart {
		return fmt.Sprintf("restart: failed, cannot shut down previous instance and/or acquire pidfile lock (pidfile: %s, pid: %d)", e.PIDFile, e.Holder)
	}
	return fmt.Sprintf("start: failed, another instance of this daemon is already running (pidfile: %s, pid: %d)", e.PIDFile, e.Holder)
}
