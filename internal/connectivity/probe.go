// Package connectivity classifies the device's network reachability as a
// two-variant state and exposes it as a one-shot probe and as a push
// subscription seeded with the current state.
package connectivity

import (
	"connwatch/internal/models"
	"connwatch/internal/platform"
)

// Probe answers whether an internet-capable network is currently active.
// Absence of an active network or of internet capability is an ordinary
// StateUnavailable result; Probe never fails.
func Probe(api platform.API) models.ConnectivityState {
	n, ok := api.ActiveNetwork()
	if !ok {
		return models.StateUnavailable
	}
	return models.StateOf(api.HasInternetCapability(n))
}
