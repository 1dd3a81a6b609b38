// SPDX-License-Identifier: MPL-2.0

package stack

import "context"

// Inspection is a point-in-time observation of the target's stack, gathered
// without mutating anything.
type Inspection struct {
	// Binaries maps each component binary name to its presence in the
	// target's bin directory.
	Binaries map[string]bool
	// ConfigPresent reports whether the engine configuration document
	// exists.
	ConfigPresent bool
	// ServiceActive reports whether the user-level API socket unit is
	// active.
	ServiceActive bool
	// EngineResponding reports whether the engine answers at all.
	EngineResponding bool
	// EngineHealthy reports whether the engine describes a working host.
	EngineHealthy bool
}

// Installed reports whether every binary and the configuration are present.
func (i Inspection) Installed() bool {
	for _, present := range i.Binaries {
		if !present {
			return false
		}
	}
	return i.ConfigPresent
}

// Inspect observes the current state of the target's stack. Probes are
// single-shot here; only the install phases poll.
func (s *Stack) Inspect(ctx context.Context) (Inspection, error) {
	in := Inspection{Binaries: make(map[string]bool, len(s.components()))}

	for _, c := range s.components() {
		path, err := s.priv.HomePath(s.binFragment(c.Binary))
		if err != nil {
			return Inspection{}, err
		}
		present, err := s.priv.Exists(ctx, path)
		if err != nil {
			return Inspection{}, err
		}
		in.Binaries[c.Binary] = present
	}

	conf, err := s.priv.HomePath(containersConfFragment + "/containers.conf")
	if err != nil {
		return Inspection{}, err
	}
	if in.ConfigPresent, err = s.priv.Exists(ctx, conf); err != nil {
		return Inspection{}, err
	}

	in.ServiceActive = s.serviceActive(ctx)
	in.EngineResponding = s.engineRunning(ctx)
	if in.EngineResponding {
		in.EngineHealthy = s.engineHealthy(ctx)
	}
	return in, nil
}
