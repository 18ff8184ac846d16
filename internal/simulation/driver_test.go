package simulation

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"tenant-sim/internal/config"
	"tenant-sim/internal/pool"
)

func testConfig() *config.SimulationConfig {
	return &config.SimulationConfig{
		Simulation: config.SimulationInfo{
			Name:  "driver-test",
			Ticks: 90,
			Seed:  42,
		},
		Pool:   map[string]float64{"cpu": 32, "memory": 64},
		Prices: map[string]float64{"cpu": 0.04, "memory": 0.005},
		Tenants: map[string]config.TenantConfig{
			"shop": {
				Tier:         "critical",
				Weight:       1,
				Reservations: map[string]float64{"cpu": 0.22, "memory": 0.14},
				Demand: config.DemandConfig{
					Kind: "burst",
					Base: map[string]config.ProfileConfig{
						"cpu":    {Mean: 10, Sigma: 2},
						"memory": {Mean: 8, Sigma: 1.5},
					},
					Peak: map[string]config.ProfileConfig{
						"cpu":    {Mean: 24, Sigma: 3},
						"memory": {Mean: 16, Sigma: 2},
					},
					From:   30,
					Until:  45,
					Jitter: true,
				},
				Boost: &config.BoostConfig{Weight: 1.6, From: 27, Until: 43},
			},
			"analytics": {
				Tier: "best-effort",
				Demand: config.DemandConfig{
					Kind: "batch",
					Base: map[string]config.ProfileConfig{
						"cpu":    {Mean: 13, Sigma: 1.5},
						"memory": {Mean: 12, Sigma: 1.5},
					},
					From:  60,
					Until: 90,
				},
			},
		},
	}
}

func TestDriver_RunInvariants(t *testing.T) {
	driver, err := NewDriver(testConfig())
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	frames, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(frames.Rows) != 90*2 {
		t.Fatalf("expected one row per tenant per tick, got %d", len(frames.Rows))
	}
	if frames.Summary == nil {
		t.Fatalf("expected a run summary")
	}

	// Feasibility and no over-grant must hold for every tick.
	totals := make(map[int]map[pool.Dimension]float64)
	for _, row := range frames.Rows {
		if totals[row.Tick] == nil {
			totals[row.Tick] = make(map[pool.Dimension]float64)
		}
		for dim, granted := range row.Granted {
			totals[row.Tick][dim] += granted
			if granted > row.Requested[dim]+1e-6 {
				t.Fatalf("tick %d tenant %s %s: granted %f above request %f",
					row.Tick, row.TenantID, dim, granted, row.Requested[dim])
			}
		}
	}
	capacities := map[pool.Dimension]float64{pool.CPU: 32, pool.Memory: 64}
	for tick, perDim := range totals {
		for dim, total := range perDim {
			if total > capacities[dim]+1e-6 {
				t.Fatalf("tick %d %s: total granted %f exceeds capacity", tick, dim, total)
			}
		}
	}
}

func TestDriver_Reproducible(t *testing.T) {
	run := func() interface{} {
		driver, err := NewDriver(testConfig())
		if err != nil {
			t.Fatalf("new driver: %v", err)
		}
		frames, err := driver.Run(context.Background())
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		// Wall-clock timestamps differ between runs; everything decided by
		// the engine must not.
		return []interface{}{frames.Rows, frames.Fairness, frames.Breaches, frames.Summary}
	}

	if !reflect.DeepEqual(run(), run()) {
		t.Fatalf("same config and seed produced different runs")
	}
}

func TestDriver_ChecksumStable(t *testing.T) {
	d1, err := NewDriver(testConfig())
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	d2, err := NewDriver(testConfig())
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	if d1.Checksum() == "" || d1.Checksum() != d2.Checksum() {
		t.Fatalf("expected stable checksum, got %q vs %q", d1.Checksum(), d2.Checksum())
	}
}

func TestDriver_CancelStopsBetweenTicks(t *testing.T) {
	driver, err := NewDriver(testConfig())
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	frames, err := driver.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if frames == nil || len(frames.Rows) != 0 {
		t.Fatalf("expected no completed ticks after immediate cancel")
	}
}
