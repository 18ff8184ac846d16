package config

import "testing"

func checksumConfig() *SimulationConfig {
	return &SimulationConfig{
		Simulation: SimulationInfo{Name: "t", Ticks: 100, Seed: 42},
		Pool:       map[string]float64{"cpu": 32, "memory": 64},
		Prices:     map[string]float64{"cpu": 0.04},
		Tenants: map[string]TenantConfig{
			"a": {
				Tier:         "critical",
				Weight:       1,
				Reservations: map[string]float64{"cpu": 0.2},
				Demand: DemandConfig{
					Kind: "steady",
					Base: map[string]ProfileConfig{"cpu": {Mean: 10, Sigma: 2}},
				},
			},
			"b": {
				Tier: "best-effort",
				Demand: DemandConfig{
					Kind: "batch",
					Base: map[string]ProfileConfig{"cpu": {Mean: 13, Sigma: 1}},
					From: 60, Until: 100,
				},
			},
		},
	}
}

func TestTraceChecksum_Stable(t *testing.T) {
	c1, err := TraceChecksum(checksumConfig())
	if err != nil {
		t.Fatalf("checksum: %v", err)
	}
	c2, err := TraceChecksum(checksumConfig())
	if err != nil {
		t.Fatalf("checksum: %v", err)
	}
	if c1 != c2 {
		t.Fatalf("checksum not stable: %q vs %q", c1, c2)
	}
	if len(c1) != 6 {
		t.Fatalf("expected 6 hex chars, got %q", c1)
	}
}

func TestTraceChecksum_SensitiveToTrace(t *testing.T) {
	base, _ := TraceChecksum(checksumConfig())

	seeded := checksumConfig()
	seeded.Simulation.Seed = 7
	changed, _ := TraceChecksum(seeded)
	if changed == base {
		t.Fatalf("seed change must change the checksum")
	}

	resized := checksumConfig()
	resized.Pool["cpu"] = 64
	changed, _ = TraceChecksum(resized)
	if changed == base {
		t.Fatalf("pool change must change the checksum")
	}
}

func TestTraceChecksum_IgnoresSinksAndPrices(t *testing.T) {
	base, _ := TraceChecksum(checksumConfig())

	repriced := checksumConfig()
	repriced.Prices["cpu"] = 99.0
	repriced.Simulation.Data.CSV = "elsewhere.csv"
	changed, _ := TraceChecksum(repriced)
	if changed != base {
		t.Fatalf("prices and sinks must not affect the trace checksum")
	}
}

func TestTraceChecksum_DefaultWeightCanonical(t *testing.T) {
	implicit := checksumConfig()
	implicit.Tenants["b"] = TenantConfig{
		Tier:   "best-effort",
		Weight: 0, // defaults to 1.0
		Demand: implicit.Tenants["b"].Demand,
	}
	explicit := checksumConfig()
	bt := explicit.Tenants["b"]
	bt.Weight = 1.0
	explicit.Tenants["b"] = bt

	c1, _ := TraceChecksum(implicit)
	c2, _ := TraceChecksum(explicit)
	if c1 != c2 {
		t.Fatalf("default and explicit weight 1.0 must hash identically")
	}
}
