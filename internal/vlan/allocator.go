// Package vlan computes conflict-free transport VLAN identifiers for each
// hop of a realised flow, grounded on the teacher's VLANAllocator but
// re-targeted from per-router VLAN pools to the per-(switch,port,match)
// busy-set query GraphStore exposes.
package vlan

import (
	"context"

	"domain-orchestrator/internal/config"
	"domain-orchestrator/internal/nffg"
)

// BusyLookup is the GraphStore capability the allocator needs: the set of
// VLAN ids already in use for a (switch, port_in, non-vlan match-tuple).
type BusyLookup interface {
	BusyVlansOn(ctx context.Context, switchID, portIn string, match nffg.Match) (map[int]bool, error)
}

// Allocator computes free VLAN ids from the configured allowed ranges.
type Allocator struct {
	ranges []config.VlanRange
	store  BusyLookup
}

// New constructs an Allocator over the given allowed ranges and busy-set
// lookup.
func New(ranges []config.VlanRange, store BusyLookup) *Allocator {
	return &Allocator{ranges: ranges, store: store}
}

// FreeVlanOn implements the algorithm from the component design:
//  1. busy <- GraphStore.busyVlansOn(switch, port_in, match)
//  2. if preferred is set and not busy, return preferred
//  3. else return the first free vid in the configured ranges
//  4. nil if none
func (a *Allocator) FreeVlanOn(ctx context.Context, switchID, portIn string, match nffg.Match, preferred *int) (*int, error) {
	busy, err := a.store.BusyVlansOn(ctx, switchID, portIn, match)
	if err != nil {
		return nil, err
	}

	if preferred != nil && !busy[*preferred] {
		v := *preferred
		return &v, nil
	}

	for _, r := range a.ranges {
		for vid := r.Low; vid <= r.High; vid++ {
			if !busy[vid] {
				v := vid
				return &v, nil
			}
		}
	}
	return nil, nil
}
