package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validConfig = `
simulation:
  name: flash-sale
  description: two tenant contention run
  ticks: 120
  seed: 42
  log_level: info
  data:
    csv: sim_output.csv
    spool: spool
pool:
  cpu: 32
  memory: 64
prices:
  cpu: 0.04
  memory: 0.005
tenants:
  shop:
    tier: critical
    weight: 1.0
    reservations:
      cpu: 0.22
      memory: 0.14
    demand:
      kind: burst
      base:
        cpu: {mean: 10, sigma: 2}
        memory: {mean: 8, sigma: 1.5}
      peak:
        cpu: {mean: 24, sigma: 3}
        memory: {mean: 16, sigma: 2}
      from: 30
      until: 45
      jitter: true
    boost:
      weight: 1.6
      from: 27
      until: 43
  analytics:
    tier: best-effort
    demand:
      kind: batch
      base:
        cpu: {mean: 13, sigma: 1.5}
        memory: {mean: 12, sigma: 1.5}
      from: 60
      until: 120
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sim.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Simulation.Name != "flash-sale" {
		t.Fatalf("unexpected name %q", cfg.Simulation.Name)
	}
	if cfg.Simulation.Ticks != 120 {
		t.Fatalf("unexpected ticks %d", cfg.Simulation.Ticks)
	}
	if len(cfg.Tenants) != 2 {
		t.Fatalf("expected 2 tenants, got %d", len(cfg.Tenants))
	}
	shop := cfg.Tenants["shop"]
	if shop.Boost == nil || shop.Boost.Weight != 1.6 {
		t.Fatalf("boost not parsed: %+v", shop.Boost)
	}

	reg, err := cfg.BuildRegistry()
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	analytics, ok := reg.Get("analytics")
	if !ok {
		t.Fatalf("analytics tenant missing from registry")
	}
	if analytics.Weight != 1.0 {
		t.Fatalf("weight must default to 1.0, got %f", analytics.Weight)
	}

	if _, err := cfg.BuildPool(); err != nil {
		t.Fatalf("build pool: %v", err)
	}
	if _, err := cfg.BuildDemandModel(); err != nil {
		t.Fatalf("build demand model: %v", err)
	}
	prices, err := cfg.BuildPrices()
	if err != nil {
		t.Fatalf("build prices: %v", err)
	}
	if len(prices) != 2 {
		t.Fatalf("expected 2 prices, got %d", len(prices))
	}
}

func TestLoadConfig_ExpandsEnvVars(t *testing.T) {
	t.Setenv("SIM_TEST_NAME", "from-env")
	content := strings.Replace(validConfig, "name: flash-sale", "name: ${SIM_TEST_NAME}", 1)

	cfg, err := LoadConfig(writeConfig(t, content))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Simulation.Name != "from-env" {
		t.Fatalf("env var not expanded: %q", cfg.Simulation.Name)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(string) string
		errPart string
	}{
		{
			"missing name",
			func(s string) string { return strings.Replace(s, "name: flash-sale", "name: \"\"", 1) },
			"name is required",
		},
		{
			"zero ticks",
			func(s string) string { return strings.Replace(s, "ticks: 120", "ticks: 0", 1) },
			"ticks",
		},
		{
			"bad tier",
			func(s string) string { return strings.Replace(s, "tier: critical", "tier: platinum", 1) },
			"tier",
		},
		{
			"reservation out of range",
			func(s string) string { return strings.Replace(s, "cpu: 0.22", "cpu: 1.5", 1) },
			"[0,1]",
		},
		{
			"bad demand kind",
			func(s string) string { return strings.Replace(s, "kind: burst", "kind: sawtooth", 1) },
			"demand pattern",
		},
		{
			"bad dimension",
			func(s string) string { return strings.Replace(s, "memory: 64", "gpu: 64", 1) },
			"dimension",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.mutate(validConfig)))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.errPart) {
				t.Fatalf("expected error containing %q, got: %v", tc.errPart, err)
			}
		})
	}
}

func TestLoadConfig_InfeasibleReservations(t *testing.T) {
	content := strings.Replace(validConfig, "cpu: 0.22", "cpu: 0.8", 1)
	content = strings.Replace(content, "tier: best-effort", "tier: critical\n    reservations:\n      cpu: 0.3", 1)

	_, err := LoadConfig(writeConfig(t, content))
	if err == nil {
		t.Fatalf("expected infeasible reservation error")
	}
	if !strings.Contains(err.Error(), "sum") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadConfig_IncompleteDatabase(t *testing.T) {
	content := strings.Replace(validConfig, "    csv: sim_output.csv", `    db:
      host: http://localhost:8086
      name: simdata
    csv: sim_output.csv`, 1)

	_, err := LoadConfig(writeConfig(t, content))
	if err == nil || !strings.Contains(err.Error(), "database") {
		t.Fatalf("expected incomplete database error, got: %v", err)
	}
}
