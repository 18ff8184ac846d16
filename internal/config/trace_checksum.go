package config

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sort"
)

type traceChecksumEntry struct {
	ID           string                   `json:"id"`
	Tier         string                   `json:"tier"`
	Weight       float64                  `json:"weight"`
	Reservations map[string]float64       `json:"reservations,omitempty"`
	DemandKind   string                   `json:"demand_kind"`
	Base         map[string]ProfileConfig `json:"base,omitempty"`
	Peak         map[string]ProfileConfig `json:"peak,omitempty"`
	From         int                      `json:"from"`
	Until        int                      `json:"until"`
	Jitter       bool                     `json:"jitter"`
	BoostWeight  float64                  `json:"boost_weight,omitempty"`
	BoostFrom    int                      `json:"boost_from,omitempty"`
	BoostUntil   int                      `json:"boost_until,omitempty"`
}

type traceChecksumPayload struct {
	Seed    int64                `json:"seed"`
	Ticks   int                  `json:"ticks"`
	Pool    map[string]float64   `json:"pool"`
	Tenants []traceChecksumEntry `json:"tenants"`
}

// TraceChecksum returns a short, stable checksum identifying the effective
// trace of a run (tenant set, demand patterns, seed, pool), independent of
// sink configuration and prices.
//
// It computes MD5 over a canonical JSON representation and returns the first
// 6 hex characters.
func TraceChecksum(cfg *SimulationConfig) (string, error) {
	if cfg == nil {
		return "", nil
	}

	entries := make([]traceChecksumEntry, 0, len(cfg.Tenants))
	for id, t := range cfg.Tenants {
		weight := t.Weight
		if weight == 0 {
			weight = 1.0
		}
		entry := traceChecksumEntry{
			ID:           id,
			Tier:         t.Tier,
			Weight:       weight,
			Reservations: t.Reservations,
			DemandKind:   t.Demand.Kind,
			Base:         t.Demand.Base,
			Peak:         t.Demand.Peak,
			From:         t.Demand.From,
			Until:        t.Demand.Until,
			Jitter:       t.Demand.Jitter,
		}
		if t.Boost != nil {
			entry.BoostWeight = t.Boost.Weight
			entry.BoostFrom = t.Boost.From
			entry.BoostUntil = t.Boost.Until
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ID < entries[j].ID
	})

	payload := traceChecksumPayload{
		Seed:    cfg.Simulation.Seed,
		Ticks:   cfg.Simulation.Ticks,
		Pool:    cfg.Pool,
		Tenants: entries,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	sum := md5.Sum(b)
	hexStr := hex.EncodeToString(sum[:])
	if len(hexStr) > 6 {
		hexStr = hexStr[:6]
	}
	return hexStr, nil
}
