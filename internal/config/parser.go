package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"tenant-sim/internal/demand"
	"tenant-sim/internal/logging"
	"tenant-sim/internal/pool"
	"tenant-sim/internal/registry"

	"gopkg.in/yaml.v3"
)

func LoadConfig(filepath string) (*SimulationConfig, error) {
	config, _, err := LoadConfigWithContent(filepath)
	return config, err
}

// LoadConfigWithContent loads and validates a simulation config and also
// returns the raw file content, which is archived with the run results.
func LoadConfigWithContent(filepath string) (*SimulationConfig, string, error) {
	logger := logging.GetLogger()

	data, err := os.ReadFile(filepath)
	if err != nil {
		logger.WithField("filepath", filepath).WithError(err).Error("Failed to read config file")
		return nil, "", err
	}

	originalContent := string(data)

	// Expand environment variables
	expanded := expandEnvVars(originalContent)

	var config SimulationConfig
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		logger.WithField("filepath", filepath).WithError(err).Error("Failed to parse config file")
		return nil, "", err
	}

	if err := validateConfig(&config); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}

	return &config, originalContent, nil
}

func expandEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(content, func(match string) string {
		envVar := strings.Trim(match, "${}")
		if value := os.Getenv(envVar); value != "" {
			return value
		}
		return match
	})
}

func validateConfig(config *SimulationConfig) error {
	logger := logging.GetLogger()

	if config.Simulation.Name == "" {
		return fmt.Errorf("simulation name is required")
	}
	if config.Simulation.Ticks <= 0 {
		return fmt.Errorf("ticks must be greater than 0")
	}

	if len(config.Pool) == 0 {
		return fmt.Errorf("at least one pool dimension must be configured")
	}
	for name, capacity := range config.Pool {
		if _, err := pool.ParseDimension(name); err != nil {
			return err
		}
		if capacity < 0 {
			return fmt.Errorf("pool %s: capacity must not be negative", name)
		}
		if capacity == 0 {
			logger.WithField("dimension", name).Warn("Pool dimension has zero capacity, all grants will be zero")
		}
	}

	for name := range config.Prices {
		if _, err := pool.ParseDimension(name); err != nil {
			return err
		}
	}

	if len(config.Tenants) == 0 {
		return fmt.Errorf("at least one tenant must be defined")
	}

	reserved := make(map[string]float64)
	for id, tenant := range config.Tenants {
		if _, err := registry.ParseTier(tenant.Tier); err != nil {
			return fmt.Errorf("tenant %s: %w", id, err)
		}
		if tenant.Weight < 0 {
			return fmt.Errorf("tenant %s: weight must not be negative", id)
		}
		for name, fraction := range tenant.Reservations {
			if _, err := pool.ParseDimension(name); err != nil {
				return fmt.Errorf("tenant %s: %w", id, err)
			}
			if fraction < 0 || fraction > 1 {
				return fmt.Errorf("tenant %s: reservation for %s must be in [0,1], got %f", id, name, fraction)
			}
			reserved[name] += fraction
		}
		if err := validateDemand(id, tenant.Demand, config.Simulation.Ticks); err != nil {
			return err
		}
		if tenant.Boost != nil && tenant.Boost.Weight <= 0 {
			return fmt.Errorf("tenant %s: boost weight must be positive", id)
		}
	}
	for name, total := range reserved {
		if total > 1.0 {
			return fmt.Errorf("reservation fractions for %s sum to %.4f, pool can guarantee at most 1.0", name, total)
		}
	}

	if db := config.Simulation.Data.DB; db != nil {
		if db.Host == "" || db.Name == "" || db.User == "" || db.Password == "" || db.Org == "" {
			return fmt.Errorf("incomplete database configuration")
		}
	}

	return nil
}

func validateDemand(id string, d DemandConfig, ticks int) error {
	kind, err := demand.ParseKind(d.Kind)
	if err != nil {
		return fmt.Errorf("tenant %s: %w", id, err)
	}
	if len(d.Base) == 0 {
		return fmt.Errorf("tenant %s: demand base profile is required", id)
	}
	for _, profiles := range []map[string]ProfileConfig{d.Base, d.Peak} {
		for name, p := range profiles {
			if _, err := pool.ParseDimension(name); err != nil {
				return fmt.Errorf("tenant %s: %w", id, err)
			}
			if p.Mean < 0 || p.Sigma < 0 {
				return fmt.Errorf("tenant %s: demand profile for %s must be non-negative", id, name)
			}
		}
	}
	switch kind {
	case demand.KindBurst:
		if len(d.Peak) == 0 {
			return fmt.Errorf("tenant %s: burst demand requires a peak profile", id)
		}
		fallthrough
	case demand.KindBatch:
		if d.From < 0 || d.Until <= d.From || d.From >= ticks {
			return fmt.Errorf("tenant %s: demand window [%d,%d) invalid for %d ticks", id, d.From, d.Until, ticks)
		}
	}
	return nil
}
