package accounting

import (
	"sort"

	"tenant-sim/internal/allocator"
	"tenant-sim/internal/pool"
)

// tickHours converts per-hour unit prices to a one-minute tick.
const tickHours = 1.0 / 60.0

// Prices holds the per-dimension unit price in currency per unit-hour.
type Prices map[pool.Dimension]float64

// CostRecord is the per-tenant cost of one tick. Derived from an allocation
// result and never mutated afterwards.
type CostRecord struct {
	Tick         int
	TenantID     string
	Cost         float64
	PerDimension map[pool.Dimension]float64
}

// BreachEvent reports an SLA violation for one tenant and dimension.
type BreachEvent struct {
	Tick      int
	TenantID  string
	Dimension pool.Dimension
	Requested float64
	Granted   float64
	Shortfall float64
}

// Account turns one tick's allocation result into cost records and breach
// events. Pure bookkeeping: the result is already decided and immutable.
// Records are ordered by ascending tenant id.
func Account(tick int, result *allocator.Result, prices Prices) ([]CostRecord, []BreachEvent) {
	ids := make([]string, 0, len(result.Allocations))
	for id := range result.Allocations {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	records := make([]CostRecord, 0, len(ids))
	var breaches []BreachEvent

	for _, id := range ids {
		alloc := result.Allocations[id]

		record := CostRecord{
			Tick:         tick,
			TenantID:     id,
			PerDimension: make(map[pool.Dimension]float64, len(alloc.Granted)),
		}
		for dim, granted := range alloc.Granted {
			cost := granted * prices[dim] * tickHours
			record.PerDimension[dim] = cost
			record.Cost += cost
		}
		records = append(records, record)

		if alloc.SLAMet {
			continue
		}
		for _, dim := range pool.AllDimensions {
			shortfall := alloc.Unmet[dim]
			if shortfall <= 0 {
				continue
			}
			breaches = append(breaches, BreachEvent{
				Tick:      tick,
				TenantID:  id,
				Dimension: dim,
				Requested: alloc.Requested[dim],
				Granted:   alloc.Granted[dim],
				Shortfall: shortfall,
			})
		}
	}

	return records, breaches
}

// JainIndex computes Jain's fairness index over a set of allocations.
// Returns 1.0 for an empty or all-zero set (nothing was contested).
func JainIndex(values []float64) float64 {
	if len(values) == 0 {
		return 1.0
	}
	sum := 0.0
	sumSquares := 0.0
	for _, v := range values {
		sum += v
		sumSquares += v * v
	}
	if sum == 0 {
		return 1.0
	}
	return (sum * sum) / (float64(len(values)) * sumSquares)
}
