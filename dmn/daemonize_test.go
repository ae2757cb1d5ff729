/*************************************************************************
 * Copyright 2026 CoreDaemon Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 *************************************************************************/

package dmn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeNeedHelperBackgroundAlwaysNeedsHelper(t *testing.T) {
	h := New()
	h.Init1("forktest", false, false, false)
	h.params.WillPrivdrop = false

	require.True(t, h.computeNeedHelper())
}

func TestComputeNeedHelperForegroundNoPrivdropNoHelper(t *testing.T) {
	h := New()
	h.Init1("forktest", false, true, false)
	h.params.WillPrivdrop = false
	h.AddAction(func() {})

	require.False(t, h.computeNeedHelper())
}

func TestComputeNeedHelperForegroundPrivdropNoActionsNoHelper(t *testing.T) {
	h := New()
	h.Init1("forktest", false, true, false)
	h.params.WillPrivdrop = true

	require.False(t, h.computeNeedHelper())
}

func TestComputeNeedHelperForegroundPrivdropWithActionsNeedsHelper(t *testing.T) {
	h := New()
	h.Init1("forktest", false, true, false)
	h.params.WillPrivdrop = true
	h.AddAction(func() {})

	require.True(t, h.computeNeedHelper())
}

// Fork()'s foreground-no-helper-needed branch sets NeedHelper false and
// advances straight to FORKED without touching the filesystem or spawning
// anything, so it's exercisable without a real re-exec the same way
// helper_test.go exercises the pipe protocol without forking a real child.
func TestForkForegroundNoPrivdropSkipsHelper(t *testing.T) {
	h := New()
	h.Init1("forktest", false, true, false)
	h.params.InvokedAsRoot = false
	h.setPhase(Init3Phase)

	h.Fork()

	require.Equal(t, ForkedPhase, h.phase())
	require.False(t, h.params.NeedHelper)
	require.Nil(t, h.fdToHelper)
	require.Nil(t, h.fdFromHelper)
	require.Nil(t, h.helperCmd)
}

func TestSnapshotActionsCopiesRegisteredActions(t *testing.T) {
	h := New()
	h.Init1("forktest", false, true, false)
	h.AddAction(func() {})
	h.AddAction(func() {})

	snap := h.snapshotActions()
	require.Len(t, snap, 2)

	// Mutating the snapshot must not alias the handle's own slice.
	snap[0] = nil
	require.Len(t, h.actions, 2)
	require.NotNil(t, h.actions[0])
}
