package allocator

import (
	"testing"

	"tenant-sim/internal/pool"
	"tenant-sim/internal/registry"
)

func TestPolicy_Floor(t *testing.T) {
	p := DefaultPolicy()
	tenant := registry.Tenant{
		ID:           "a",
		Tier:         registry.TierCritical,
		Weight:       1,
		Reservations: map[pool.Dimension]float64{pool.CPU: 0.3},
	}

	if got := p.Floor(tenant, pool.CPU, 100); got != 30 {
		t.Fatalf("expected floor 30, got %f", got)
	}
	if got := p.Floor(tenant, pool.Memory, 100); got != 0 {
		t.Fatalf("unreserved dimension must have zero floor, got %f", got)
	}
	// Floors follow capacity, not a cached value.
	if got := p.Floor(tenant, pool.CPU, 50); got != 15 {
		t.Fatalf("expected floor 15 at half capacity, got %f", got)
	}
}

func TestPolicy_SLAMet(t *testing.T) {
	pl := pool.New(map[pool.Dimension]float64{pool.CPU: 100})
	p := DefaultPolicy()

	reserved := registry.Tenant{
		ID:           "r",
		Tier:         registry.TierCritical,
		Weight:       1,
		Reservations: map[pool.Dimension]float64{pool.CPU: 0.3},
	}
	unreserved := registry.Tenant{ID: "u", Tier: registry.TierBestEffort, Weight: 1}

	cases := []struct {
		name      string
		tenant    registry.Tenant
		requested float64
		granted   float64
		want      bool
	}{
		{"floor honored", reserved, 80, 30, true},
		{"floor violated", reserved, 80, 20, false},
		{"ask below floor fully served", reserved, 10, 10, true},
		{"ask below floor shorted", reserved, 10, 5, false},
		{"zero demand", reserved, 0, 0, true},
		{"best effort starved", unreserved, 80, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := map[pool.Dimension]float64{pool.CPU: tc.requested}
			grant := map[pool.Dimension]float64{pool.CPU: tc.granted}
			if got := p.SLAMet(tc.tenant, pl, req, grant); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestPolicy_MinServiceRatio(t *testing.T) {
	pl := pool.New(map[pool.Dimension]float64{pool.CPU: 100})
	p := &Policy{MinServiceRatio: map[registry.Tier]float64{registry.TierStandard: 0.5}}
	tenant := registry.Tenant{ID: "s", Tier: registry.TierStandard, Weight: 1}

	req := map[pool.Dimension]float64{pool.CPU: 40}
	if !p.SLAMet(tenant, pl, req, map[pool.Dimension]float64{pool.CPU: 20}) {
		t.Fatalf("half service meets a 0.5 ratio")
	}
	if p.SLAMet(tenant, pl, req, map[pool.Dimension]float64{pool.CPU: 10}) {
		t.Fatalf("quarter service must miss a 0.5 ratio")
	}
}

func TestPolicy_LessTieBreak(t *testing.T) {
	p := DefaultPolicy()
	if !p.Less("a", 10, 1, "b", 10, 1) {
		t.Fatalf("equal normalized demand must break ties by ascending id")
	}
	if !p.Less("z", 5, 1, "a", 10, 1) {
		t.Fatalf("smaller residual per weight must order first")
	}
	if !p.Less("a", 20, 4, "b", 10, 1) {
		t.Fatalf("weight must normalize residual demand")
	}
}
