package allocator

import "tenant-sim/internal/pool"

// Demand maps tenant id -> dimension -> requested amount for one tick. It is
// produced by the demand model and treated as read-only by the engine.
type Demand map[string]map[pool.Dimension]float64

// TenantAllocation is the per-tenant outcome of one tick.
type TenantAllocation struct {
	TenantID  string
	Requested map[pool.Dimension]float64
	Granted   map[pool.Dimension]float64
	Unmet     map[pool.Dimension]float64
	SLAMet    bool
}

// WarningKind classifies non-fatal input problems the engine tolerates.
type WarningKind string

const (
	WarningUnknownTenant   WarningKind = "unknown_tenant"
	WarningMalformedDemand WarningKind = "malformed_demand"
	WarningZeroCapacity    WarningKind = "zero_capacity"
)

// Warning reports a tolerated input problem. Warnings are values carried in
// the result, never panics or hidden log-only events.
type Warning struct {
	Kind      WarningKind
	TenantID  string
	Dimension pool.Dimension
	Value     float64
}

// Result is the complete outcome of one allocation decision. It is built
// fresh each tick and never mutated afterwards.
type Result struct {
	Allocations map[string]TenantAllocation
	Warnings    []Warning
}

// Granted returns the granted amount for a tenant and dimension, zero if the
// tenant is not part of the result.
func (r *Result) Granted(tenantID string, dim pool.Dimension) float64 {
	return r.Allocations[tenantID].Granted[dim]
}

// TotalGranted sums grants across all tenants for one dimension.
func (r *Result) TotalGranted(dim pool.Dimension) float64 {
	total := 0.0
	for _, a := range r.Allocations {
		total += a.Granted[dim]
	}
	return total
}
