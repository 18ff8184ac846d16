package accounting

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"tenant-sim/internal/pool"
)

// TenantSummary aggregates one tenant's outcome over a whole run.
type TenantSummary struct {
	TenantID  string  `json:"tenant_id"`
	TotalCost float64 `json:"total_cost"`
	Breaches  int     `json:"breaches"`
}

// DimensionSummary aggregates one dimension's utilization and fairness over
// a whole run.
type DimensionSummary struct {
	Dimension         pool.Dimension `json:"dimension"`
	MeanUtilization   float64        `json:"mean_utilization"`
	StdDevUtilization float64        `json:"stddev_utilization"`
	MeanFairness      float64        `json:"mean_fairness"`
}

// RunSummary is the run-level rollup written to the database and the spool
// artifact after the last tick.
type RunSummary struct {
	TotalCost  float64            `json:"total_cost"`
	Tenants    []TenantSummary    `json:"tenants"`
	Dimensions []DimensionSummary `json:"dimensions"`
}

// Summarize rolls up per-tick cost records, breach events and the
// per-dimension utilization/fairness series into a run summary. Entries are
// ordered by tenant id and canonical dimension order.
func Summarize(records []CostRecord, breaches []BreachEvent, utilization, fairness map[pool.Dimension][]float64) *RunSummary {
	costByTenant := make(map[string]float64)
	breachByTenant := make(map[string]int)
	total := 0.0

	for _, rec := range records {
		costByTenant[rec.TenantID] += rec.Cost
		total += rec.Cost
	}
	for _, b := range breaches {
		breachByTenant[b.TenantID]++
	}

	ids := make([]string, 0, len(costByTenant))
	for id := range costByTenant {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	summary := &RunSummary{TotalCost: total}
	for _, id := range ids {
		summary.Tenants = append(summary.Tenants, TenantSummary{
			TenantID:  id,
			TotalCost: costByTenant[id],
			Breaches:  breachByTenant[id],
		})
	}

	for _, dim := range pool.AllDimensions {
		util, ok := utilization[dim]
		if !ok || len(util) == 0 {
			continue
		}
		ds := DimensionSummary{
			Dimension:       dim,
			MeanUtilization: stat.Mean(util, nil),
		}
		if len(util) > 1 {
			ds.StdDevUtilization = stat.StdDev(util, nil)
		}
		if f := fairness[dim]; len(f) > 0 {
			ds.MeanFairness = stat.Mean(f, nil)
		}
		summary.Dimensions = append(summary.Dimensions, ds)
	}

	return summary
}
