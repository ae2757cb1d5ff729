/*************************************************************************
 * Copyright 2026 CoreDaemon Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 *************************************************************************/

package dmn

import "os"

// Params holds everything the caller supplies across phases 1-3 plus the
// values derived from it. Init1-Init3 set every field except NeedHelper,
// which Fork sets; it is immutable once Fork returns, so reading it
// afterward is safe for any goroutine since nothing ever writes to it again.
type Params struct {
	Debug       bool
	Foreground  bool
	StderrInfo  bool
	Restart     bool
	Name        string
	Username    string // optional
	ChrootPath  string // optional, absolute

	// derived during Init2/Init3 (NeedHelper: during Fork)
	InvokedAsRoot bool
	WillPrivdrop  bool
	WillChroot    bool
	NeedHelper    bool
	UID           uint32
	GID           uint32

	PIDDirPreChroot   string
	PIDFilePreChroot  string
	PIDFilePostChroot string
}

// Debug reports whether debug-level logging was requested at Init1.
// Grounded on dmn_get_debug(): a read-only accessor the original exposes
// so a host doesn't need to remember values it already handed the library.
func (h *Handle) Debug() bool {
	h.phaseCheck("Debug()", Init1Phase, Uninit, nil)
	return h.params.Debug
}

// Foreground reports whether backgrounding was suppressed at Init1.
// Grounded on dmn_get_foreground().
func (h *Handle) Foreground() bool {
	h.phaseCheck("Foreground()", Init1Phase, Uninit, nil)
	return h.params.Foreground
}

// Username returns the privilege-drop account name, or "" if none was
// supplied. Grounded on dmn_get_username().
func (h *Handle) Username() string {
	h.phaseCheck("Username()", Init1Phase, Uninit, nil)
	return h.params.Username
}

func isAbs(p string) bool {
	return p != "" && os.IsPathSeparator(p[0])
}
