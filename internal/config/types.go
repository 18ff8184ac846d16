package config

import (
	"fmt"

	"tenant-sim/internal/accounting"
	"tenant-sim/internal/demand"
	"tenant-sim/internal/pool"
	"tenant-sim/internal/registry"
)

type SimulationConfig struct {
	Simulation SimulationInfo          `yaml:"simulation"`
	Pool       map[string]float64      `yaml:"pool"`
	Prices     map[string]float64      `yaml:"prices"`
	Tenants    map[string]TenantConfig `yaml:"tenants"`
}

type SimulationInfo struct {
	Name              string     `yaml:"name"`
	Description       string     `yaml:"description"`
	Ticks             int        `yaml:"ticks"`
	Seed              int64      `yaml:"seed"`
	LogLevel          string     `yaml:"log_level"`
	AllocatorLogLevel string     `yaml:"allocator_log_level,omitempty"`
	Data              DataConfig `yaml:"data"`
}

type DataConfig struct {
	DB    *DatabaseConfig `yaml:"db,omitempty"`
	CSV   string          `yaml:"csv,omitempty"`
	Spool string          `yaml:"spool,omitempty"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Org      string `yaml:"org"`
}

type TenantConfig struct {
	Tier         string             `yaml:"tier"`
	Weight       float64            `yaml:"weight,omitempty"`
	Reservations map[string]float64 `yaml:"reservations,omitempty"`
	Demand       DemandConfig       `yaml:"demand"`
	Boost        *BoostConfig       `yaml:"boost,omitempty"`
}

type DemandConfig struct {
	Kind   string                   `yaml:"kind"`
	Base   map[string]ProfileConfig `yaml:"base,omitempty"`
	Peak   map[string]ProfileConfig `yaml:"peak,omitempty"`
	From   int                      `yaml:"from,omitempty"`
	Until  int                      `yaml:"until,omitempty"`
	Jitter bool                     `yaml:"jitter,omitempty"`
}

type ProfileConfig struct {
	Mean  float64 `yaml:"mean"`
	Sigma float64 `yaml:"sigma"`
}

type BoostConfig struct {
	Weight float64 `yaml:"weight"`
	From   int     `yaml:"from"`
	Until  int     `yaml:"until"`
}

// BuildPool converts the configured capacities into a resource pool.
func (c *SimulationConfig) BuildPool() (*pool.Pool, error) {
	capacity := make(map[pool.Dimension]float64, len(c.Pool))
	for name, v := range c.Pool {
		dim, err := pool.ParseDimension(name)
		if err != nil {
			return nil, err
		}
		capacity[dim] = v
	}
	return pool.New(capacity), nil
}

// BuildRegistry converts the configured tenants into an immutable registry.
// Registration-time invariants (reservation sums, weights) are enforced by
// the registry itself.
func (c *SimulationConfig) BuildRegistry() (*registry.Registry, error) {
	tenants := make([]registry.Tenant, 0, len(c.Tenants))
	for id, tc := range c.Tenants {
		tier, err := registry.ParseTier(tc.Tier)
		if err != nil {
			return nil, fmt.Errorf("tenant %s: %w", id, err)
		}
		weight := tc.Weight
		if weight == 0 {
			weight = 1.0
		}
		reservations := make(map[pool.Dimension]float64, len(tc.Reservations))
		for name, fraction := range tc.Reservations {
			dim, err := pool.ParseDimension(name)
			if err != nil {
				return nil, fmt.Errorf("tenant %s: %w", id, err)
			}
			reservations[dim] = fraction
		}
		tenants = append(tenants, registry.Tenant{
			ID:           id,
			Tier:         tier,
			Weight:       weight,
			Reservations: reservations,
		})
	}
	return registry.New(tenants)
}

// BuildDemandModel converts the configured demand patterns and weight boosts
// into the seeded demand model.
func (c *SimulationConfig) BuildDemandModel() (*demand.Model, error) {
	patterns := make(map[string]demand.Pattern, len(c.Tenants))
	boosts := make(map[string]demand.Boost)

	for id, tc := range c.Tenants {
		kind, err := demand.ParseKind(tc.Demand.Kind)
		if err != nil {
			return nil, fmt.Errorf("tenant %s: %w", id, err)
		}
		base, err := buildProfiles(tc.Demand.Base)
		if err != nil {
			return nil, fmt.Errorf("tenant %s: %w", id, err)
		}
		peak, err := buildProfiles(tc.Demand.Peak)
		if err != nil {
			return nil, fmt.Errorf("tenant %s: %w", id, err)
		}
		patterns[id] = demand.Pattern{
			Kind:   kind,
			Base:   base,
			Peak:   peak,
			From:   tc.Demand.From,
			Until:  tc.Demand.Until,
			Jitter: tc.Demand.Jitter,
		}
		if tc.Boost != nil {
			boosts[id] = demand.Boost{
				Weight: tc.Boost.Weight,
				From:   tc.Boost.From,
				Until:  tc.Boost.Until,
			}
		}
	}
	return demand.NewModel(c.Simulation.Seed, patterns, boosts), nil
}

func buildProfiles(in map[string]ProfileConfig) (map[pool.Dimension]demand.Profile, error) {
	if in == nil {
		return nil, nil
	}
	out := make(map[pool.Dimension]demand.Profile, len(in))
	for name, p := range in {
		dim, err := pool.ParseDimension(name)
		if err != nil {
			return nil, err
		}
		out[dim] = demand.Profile{Mean: p.Mean, Sigma: p.Sigma}
	}
	return out, nil
}

// BuildPrices converts the configured unit prices.
func (c *SimulationConfig) BuildPrices() (accounting.Prices, error) {
	prices := make(accounting.Prices, len(c.Prices))
	for name, v := range c.Prices {
		dim, err := pool.ParseDimension(name)
		if err != nil {
			return nil, err
		}
		prices[dim] = v
	}
	return prices, nil
}
