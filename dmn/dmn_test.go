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

func TestInit1SetsAccessors(t *testing.T) {
	h := New()
	h.Init1("svc", true, false, true)

	require.True(t, h.Debug())
	require.False(t, h.Foreground())
	require.Equal(t, Init1Phase, h.phase())
}

func TestInit3NoPrivdropWithoutUsername(t *testing.T) {
	h := New()
	h.Init1("svc", false, true, false)
	h.params.InvokedAsRoot = true
	h.Init2("/var/run/svc", "")

	h.Init3("", false)

	require.False(t, h.params.WillPrivdrop)
	require.Equal(t, Init3Phase, h.phase())
	require.Equal(t, "", h.Username())
}

func TestFinishWithoutHelperAdvancesPhase(t *testing.T) {
	h := New()
	h.Init1("svc", false, true, false)
	h.setPhase(PidlockedPhase)

	h.Finish()

	require.Equal(t, FinishedPhase, h.phase())
}
