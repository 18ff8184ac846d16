package simulation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"tenant-sim/internal/accounting"
	"tenant-sim/internal/allocator"
	"tenant-sim/internal/config"
	"tenant-sim/internal/demand"
	"tenant-sim/internal/logging"
	"tenant-sim/internal/pool"
	"tenant-sim/internal/registry"
	"tenant-sim/internal/results"
)

// Driver owns the tick loop. Ticks are processed strictly sequentially; the
// engine itself is stateless, so the only cross-tick state lives here in the
// collected frames and the advancing demand streams.
type Driver struct {
	config   *config.SimulationConfig
	pool     *pool.Pool
	registry *registry.Registry
	model    *demand.Model
	prices   accounting.Prices
	policy   *allocator.Policy
	checksum string

	logger          *logrus.Logger
	allocatorLogger *logrus.Logger
}

func NewDriver(cfg *config.SimulationConfig) (*Driver, error) {
	pl, err := cfg.BuildPool()
	if err != nil {
		return nil, fmt.Errorf("failed to build pool: %w", err)
	}
	reg, err := cfg.BuildRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to build registry: %w", err)
	}
	model, err := cfg.BuildDemandModel()
	if err != nil {
		return nil, fmt.Errorf("failed to build demand model: %w", err)
	}
	prices, err := cfg.BuildPrices()
	if err != nil {
		return nil, fmt.Errorf("failed to build prices: %w", err)
	}
	checksum, err := config.TraceChecksum(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to compute trace checksum: %w", err)
	}

	return &Driver{
		config:          cfg,
		pool:            pl,
		registry:        reg,
		model:           model,
		prices:          prices,
		policy:          allocator.DefaultPolicy(),
		checksum:        checksum,
		logger:          logging.GetLogger(),
		allocatorLogger: logging.GetAllocatorLogger(),
	}, nil
}

// Checksum identifies the effective trace of this run.
func (d *Driver) Checksum() string {
	return d.checksum
}

// Run executes the configured number of ticks and returns the collected
// frames. Cancelling the context stops the run between ticks; the frames
// collected so far are returned with the error.
func (d *Driver) Run(ctx context.Context) (*results.RunFrames, error) {
	ticks := d.config.Simulation.Ticks
	dims := d.pool.Dimensions()

	frames := &results.RunFrames{
		Name:       d.config.Simulation.Name,
		Checksum:   d.checksum,
		Ticks:      ticks,
		Dimensions: dims,
		StartedAt:  time.Now().UTC(),
	}

	utilization := make(map[pool.Dimension][]float64, len(dims))
	fairness := make(map[pool.Dimension][]float64, len(dims))

	d.logger.WithFields(logrus.Fields{
		"name":     frames.Name,
		"ticks":    ticks,
		"tenants":  d.registry.Len(),
		"checksum": d.checksum,
	}).Debug("Tick loop starting")

	for tick := 0; tick < ticks; tick++ {
		select {
		case <-ctx.Done():
			frames.FinishedAt = time.Now().UTC()
			return frames, ctx.Err()
		default:
		}

		// Scheduled weight boosts apply between ticks, never mid-allocation.
		reg := d.registry.WithWeights(d.model.WeightOverrides(tick))
		demandVec := d.model.Sample(tick)

		result, err := allocator.Allocate(demandVec, d.pool, reg, d.policy)
		if err != nil {
			return frames, fmt.Errorf("tick %d: %w", tick, err)
		}

		for _, w := range result.Warnings {
			d.allocatorLogger.WithFields(logrus.Fields{
				"tick":      tick,
				"kind":      w.Kind,
				"tenant":    w.TenantID,
				"dimension": w.Dimension,
			}).Warn("Demand input problem tolerated")
			frames.Warnings = append(frames.Warnings, results.TickWarning{Tick: tick, Warning: w})
		}

		records, breaches := accounting.Account(tick, result, d.prices)
		frames.Records = append(frames.Records, records...)
		frames.Breaches = append(frames.Breaches, breaches...)
		for _, b := range breaches {
			d.allocatorLogger.WithFields(logrus.Fields{
				"tick":      b.Tick,
				"tenant":    b.TenantID,
				"dimension": b.Dimension,
				"requested": b.Requested,
				"granted":   b.Granted,
				"shortfall": b.Shortfall,
			}).Warn("SLA breach")
		}

		costByTenant := make(map[string]float64, len(records))
		for _, rec := range records {
			costByTenant[rec.TenantID] = rec.Cost
		}

		ids := make([]string, 0, len(result.Allocations))
		for id := range result.Allocations {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			a := result.Allocations[id]
			frames.Rows = append(frames.Rows, results.TenantTick{
				Tick:      tick,
				TenantID:  id,
				Requested: a.Requested,
				Granted:   a.Granted,
				Unmet:     a.Unmet,
				SLAMet:    a.SLAMet,
				Cost:      costByTenant[id],
			})
		}

		for _, dim := range dims {
			grants := make([]float64, 0, len(ids))
			for _, id := range ids {
				grants = append(grants, result.Allocations[id].Granted[dim])
			}
			jain := accounting.JainIndex(grants)
			util := 0.0
			if capacity := d.pool.Capacity(dim); capacity > 0 {
				util = result.TotalGranted(dim) / capacity
			}
			frames.Fairness = append(frames.Fairness, results.FairnessPoint{
				Tick:        tick,
				Dimension:   dim,
				Jain:        jain,
				Utilization: util,
			})
			utilization[dim] = append(utilization[dim], util)
			fairness[dim] = append(fairness[dim], jain)
		}
	}

	frames.FinishedAt = time.Now().UTC()
	frames.Summary = accounting.Summarize(frames.Records, frames.Breaches, utilization, fairness)

	d.logger.WithFields(logrus.Fields{
		"ticks":      ticks,
		"rows":       len(frames.Rows),
		"breaches":   len(frames.Breaches),
		"total_cost": frames.Summary.TotalCost,
	}).Info("Simulation finished")

	return frames, nil
}
