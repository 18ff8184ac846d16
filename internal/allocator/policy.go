package allocator

import (
	"tenant-sim/internal/pool"
	"tenant-sim/internal/registry"
)

// Policy holds the SLA and fairness decision rules consulted by the engine.
// It has no mutable state; the same policy value can serve any number of
// concurrent allocations.
type Policy struct {
	// MinServiceRatio judges SLA compliance for tenants without a
	// reservation floor: met iff granted >= requested * ratio. A ratio of
	// zero means the tier carries no guarantee and is always reported met.
	MinServiceRatio map[registry.Tier]float64
}

// DefaultPolicy reports tenants without reservations as always compliant:
// no floor configured means no guarantee was made.
func DefaultPolicy() *Policy {
	return &Policy{
		MinServiceRatio: map[registry.Tier]float64{
			registry.TierCritical:   0,
			registry.TierStandard:   0,
			registry.TierBestEffort: 0,
		},
	}
}

// Floor returns the reserved amount for a tenant in one dimension. It is
// evaluated against the current capacity on every call so it stays correct
// if capacity ever becomes dynamic.
func (p *Policy) Floor(t registry.Tenant, dim pool.Dimension, capacity float64) float64 {
	return t.Reservation(dim) * capacity
}

// SLAMet decides the per-tenant compliance flag for one tick.
//
// Tenants with a reservation are compliant when, in every reserved
// dimension, they received at least min(requested, floor): a tenant asking
// less than its floor keeps its guarantee by receiving its full ask.
// Tenants without any reservation are judged against the tier's minimum
// service ratio.
func (p *Policy) SLAMet(t registry.Tenant, pl *pool.Pool, requested, granted map[pool.Dimension]float64) bool {
	if t.HasReservation() {
		for dim, fraction := range t.Reservations {
			if fraction <= 0 {
				continue
			}
			floor := p.Floor(t, dim, pl.Capacity(dim))
			entitled := min(requested[dim], floor)
			if granted[dim] < entitled-epsilon {
				return false
			}
		}
		return true
	}

	ratio := p.MinServiceRatio[t.Tier]
	if ratio <= 0 {
		return true
	}
	for dim, req := range requested {
		if granted[dim] < req*ratio-epsilon {
			return false
		}
	}
	return true
}

// Less is the water-filling iteration order: ascending residual demand per
// weight, ties broken by ascending tenant id for determinism.
func (p *Policy) Less(aID string, aResidual, aWeight float64, bID string, bResidual, bWeight float64) bool {
	an := aResidual / aWeight
	bn := bResidual / bWeight
	if an != bn {
		return an < bn
	}
	return aID < bID
}
