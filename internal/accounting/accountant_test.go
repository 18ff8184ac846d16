package accounting

import (
	"math"
	"testing"

	"tenant-sim/internal/allocator"
	"tenant-sim/internal/pool"
)

func TestAccount_CostPerTick(t *testing.T) {
	result := &allocator.Result{
		Allocations: map[string]allocator.TenantAllocation{
			"a": {
				TenantID:  "a",
				Requested: map[pool.Dimension]float64{pool.CPU: 10, pool.Memory: 8},
				Granted:   map[pool.Dimension]float64{pool.CPU: 10, pool.Memory: 8},
				Unmet:     map[pool.Dimension]float64{},
				SLAMet:    true,
			},
		},
	}
	prices := Prices{pool.CPU: 0.04, pool.Memory: 0.005}

	records, breaches := Account(7, result, prices)
	if len(breaches) != 0 {
		t.Fatalf("expected no breaches, got %v", breaches)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	// 10 vCPU * $0.04/h + 8 GB * $0.005/h, for one minute.
	want := (10*0.04 + 8*0.005) / 60.0
	if math.Abs(records[0].Cost-want) > 1e-9 {
		t.Fatalf("expected cost %f, got %f", want, records[0].Cost)
	}
	if records[0].Tick != 7 {
		t.Fatalf("expected tick 7, got %d", records[0].Tick)
	}
}

func TestAccount_BreachEvents(t *testing.T) {
	result := &allocator.Result{
		Allocations: map[string]allocator.TenantAllocation{
			"starved": {
				TenantID:  "starved",
				Requested: map[pool.Dimension]float64{pool.CPU: 20, pool.Memory: 10},
				Granted:   map[pool.Dimension]float64{pool.CPU: 5, pool.Memory: 10},
				Unmet:     map[pool.Dimension]float64{pool.CPU: 15},
				SLAMet:    false,
			},
			"served": {
				TenantID:  "served",
				Requested: map[pool.Dimension]float64{pool.CPU: 30},
				Granted:   map[pool.Dimension]float64{pool.CPU: 12},
				Unmet:     map[pool.Dimension]float64{pool.CPU: 18},
				SLAMet:    true, // shortfall without an obligation is not a breach
			},
		},
	}

	_, breaches := Account(3, result, Prices{pool.CPU: 0.04, pool.Memory: 0.005})
	if len(breaches) != 1 {
		t.Fatalf("expected exactly 1 breach, got %v", breaches)
	}
	b := breaches[0]
	if b.TenantID != "starved" || b.Dimension != pool.CPU {
		t.Fatalf("unexpected breach %+v", b)
	}
	if b.Requested != 20 || b.Granted != 5 || b.Shortfall != 15 {
		t.Fatalf("breach amounts wrong: %+v", b)
	}
	if b.Tick != 3 {
		t.Fatalf("expected tick 3, got %d", b.Tick)
	}
}

func TestAccount_RecordOrderStable(t *testing.T) {
	result := &allocator.Result{
		Allocations: map[string]allocator.TenantAllocation{
			"c": {TenantID: "c", Granted: map[pool.Dimension]float64{pool.CPU: 1}, SLAMet: true},
			"a": {TenantID: "a", Granted: map[pool.Dimension]float64{pool.CPU: 1}, SLAMet: true},
			"b": {TenantID: "b", Granted: map[pool.Dimension]float64{pool.CPU: 1}, SLAMet: true},
		},
	}
	records, _ := Account(0, result, Prices{pool.CPU: 1})
	for i, want := range []string{"a", "b", "c"} {
		if records[i].TenantID != want {
			t.Fatalf("records not ordered by tenant id: %v", records)
		}
	}
}

func TestJainIndex(t *testing.T) {
	cases := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 1.0},
		{"all zero", []float64{0, 0, 0}, 1.0},
		{"perfectly fair", []float64{5, 5, 5, 5}, 1.0},
		{"one takes all", []float64{10, 0, 0, 0}, 0.25},
		{"two tenants", []float64{40, 60}, (100.0 * 100.0) / (2 * (1600.0 + 3600.0))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := JainIndex(tc.values); math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("expected %f, got %f", tc.want, got)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	records := []CostRecord{
		{Tick: 0, TenantID: "a", Cost: 1.5},
		{Tick: 0, TenantID: "b", Cost: 0.5},
		{Tick: 1, TenantID: "a", Cost: 2.5},
		{Tick: 1, TenantID: "b", Cost: 0.5},
	}
	breaches := []BreachEvent{
		{Tick: 1, TenantID: "b", Dimension: pool.CPU, Shortfall: 3},
	}
	utilization := map[pool.Dimension][]float64{
		pool.CPU: {0.5, 1.0},
	}
	fairness := map[pool.Dimension][]float64{
		pool.CPU: {1.0, 0.8},
	}

	s := Summarize(records, breaches, utilization, fairness)
	if math.Abs(s.TotalCost-5.0) > 1e-9 {
		t.Fatalf("expected total cost 5, got %f", s.TotalCost)
	}
	if len(s.Tenants) != 2 || s.Tenants[0].TenantID != "a" || s.Tenants[1].TenantID != "b" {
		t.Fatalf("unexpected tenant summaries: %+v", s.Tenants)
	}
	if s.Tenants[0].TotalCost != 4.0 || s.Tenants[1].Breaches != 1 {
		t.Fatalf("unexpected tenant rollup: %+v", s.Tenants)
	}
	if len(s.Dimensions) != 1 {
		t.Fatalf("expected one dimension summary, got %+v", s.Dimensions)
	}
	if math.Abs(s.Dimensions[0].MeanUtilization-0.75) > 1e-9 {
		t.Fatalf("expected mean utilization 0.75, got %f", s.Dimensions[0].MeanUtilization)
	}
	if math.Abs(s.Dimensions[0].MeanFairness-0.9) > 1e-9 {
		t.Fatalf("expected mean fairness 0.9, got %f", s.Dimensions[0].MeanFairness)
	}
}
