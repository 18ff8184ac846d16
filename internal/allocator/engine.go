package allocator

import (
	"fmt"
	"math"
	"sort"

	"tenant-sim/internal/pool"
	"tenant-sim/internal/registry"
)

// epsilon absorbs float64 rounding in the water-filling loop and in the
// feasibility checks.
const epsilon = 1e-9

// Allocate converts one tick's demand into a feasible allocation.
//
// It is a pure function: no state survives between calls and identical
// inputs produce identical results. Per dimension it grants reservation
// floors first, then distributes the remaining capacity by weighted max-min
// water-filling. Unknown tenants and malformed demand entries are tolerated
// and reported as warnings in the result.
func Allocate(demand Demand, pl *pool.Pool, reg *registry.Registry, policy *Policy) (*Result, error) {
	if policy == nil {
		policy = DefaultPolicy()
	}

	cleaned, warnings := sanitize(demand, reg)

	tenants := reg.Tenants()
	grants := make(map[string]map[pool.Dimension]float64, len(tenants))
	for _, t := range tenants {
		grants[t.ID] = make(map[pool.Dimension]float64, len(pl.Dimensions()))
	}

	for _, dim := range pl.Dimensions() {
		capacity := pl.Capacity(dim)
		if capacity <= 0 {
			warnings = append(warnings, Warning{Kind: WarningZeroCapacity, Dimension: dim})
			continue
		}
		dimGrants, err := allocateDimension(dim, capacity, tenants, cleaned, policy)
		if err != nil {
			return nil, err
		}
		for id, g := range dimGrants {
			grants[id][dim] = g
		}
	}

	result := &Result{
		Allocations: make(map[string]TenantAllocation, len(tenants)),
		Warnings:    warnings,
	}
	for _, t := range tenants {
		requested := make(map[pool.Dimension]float64, len(pl.Dimensions()))
		unmet := make(map[pool.Dimension]float64, len(pl.Dimensions()))
		for _, dim := range pl.Dimensions() {
			req := cleaned[t.ID][dim]
			requested[dim] = req
			if gap := req - grants[t.ID][dim]; gap > epsilon {
				unmet[dim] = gap
			}
		}
		result.Allocations[t.ID] = TenantAllocation{
			TenantID:  t.ID,
			Requested: requested,
			Granted:   grants[t.ID],
			Unmet:     unmet,
			SLAMet:    policy.SLAMet(t, pl, requested, grants[t.ID]),
		}
	}
	return result, nil
}

// sanitize drops demand for unregistered tenants and clamps negative or
// non-finite entries to zero, reporting both as warnings. Registered tenants
// missing from the demand vector are treated as zero demand.
func sanitize(demand Demand, reg *registry.Registry) (map[string]map[pool.Dimension]float64, []Warning) {
	var warnings []Warning

	unknown := make([]string, 0)
	for id := range demand {
		if _, ok := reg.Get(id); !ok {
			unknown = append(unknown, id)
		}
	}
	sort.Strings(unknown)
	for _, id := range unknown {
		warnings = append(warnings, Warning{Kind: WarningUnknownTenant, TenantID: id})
	}

	cleaned := make(map[string]map[pool.Dimension]float64, reg.Len())
	for _, t := range reg.Tenants() {
		entry := make(map[pool.Dimension]float64)
		for _, dim := range pool.AllDimensions {
			v, ok := demand[t.ID][dim]
			if !ok {
				continue
			}
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				warnings = append(warnings, Warning{Kind: WarningMalformedDemand, TenantID: t.ID, Dimension: dim, Value: v})
				v = 0
			}
			entry[dim] = v
		}
		cleaned[t.ID] = entry
	}
	return cleaned, warnings
}

type contender struct {
	id       string
	weight   float64
	residual float64
}

// allocateDimension runs the two-pass allocation for one dimension.
func allocateDimension(dim pool.Dimension, capacity float64, tenants []registry.Tenant, demand map[string]map[pool.Dimension]float64, policy *Policy) (map[string]float64, error) {
	grants := make(map[string]float64, len(tenants))

	// Reservation pass: floors first, capped at the tenant's own ask.
	granted := 0.0
	for _, t := range tenants {
		floor := policy.Floor(t, dim, capacity)
		if floor <= 0 {
			continue
		}
		g := min(demand[t.ID][dim], floor)
		grants[t.ID] = g
		granted += g
	}
	if granted > capacity+epsilon {
		return nil, fmt.Errorf("%w: reservation floors for %s exceed capacity (%.4f > %.4f)",
			registry.ErrInfeasibleConfiguration, dim, granted, capacity)
	}

	// Weighted max-min water-filling over the residual. Saturated tenants
	// leave the pool each round and their unused share is redistributed.
	var active []contender
	for _, t := range tenants {
		if residual := demand[t.ID][dim] - grants[t.ID]; residual > epsilon {
			active = append(active, contender{id: t.ID, weight: t.Weight, residual: residual})
		}
	}

	residualCap := capacity - granted
	for residualCap > epsilon && len(active) > 0 {
		sort.Slice(active, func(i, j int) bool {
			return policy.Less(active[i].id, active[i].residual, active[i].weight,
				active[j].id, active[j].residual, active[j].weight)
		})

		totalWeight := 0.0
		for _, c := range active {
			totalWeight += c.weight
		}
		perWeight := residualCap / totalWeight

		used := 0.0
		next := active[:0]
		for _, c := range active {
			give := min(perWeight*c.weight, c.residual)
			grants[c.id] += give
			used += give
			if c.residual-give > epsilon {
				c.residual -= give
				next = append(next, c)
			}
		}
		residualCap -= used
		if used <= epsilon {
			break
		}
		active = next
	}

	return grants, nil
}
