package demand

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"

	"tenant-sim/internal/allocator"
	"tenant-sim/internal/pool"
)

// Kind selects the shape of a tenant's synthetic demand trace.
type Kind string

const (
	// KindSteady samples around a fixed baseline for the whole run.
	KindSteady Kind = "steady"
	// KindBurst is a steady baseline with an elevated window, e.g. a
	// flash-sale spike.
	KindBurst Kind = "burst"
	// KindBatch is zero outside its window and steady inside, e.g. a
	// scheduled analytics job.
	KindBatch Kind = "batch"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindSteady, KindBurst, KindBatch:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown demand pattern %q", s)
}

// Profile is a gaussian demand level for one dimension.
type Profile struct {
	Mean  float64
	Sigma float64
}

// Pattern describes one tenant's demand trace. From/Until bound the burst or
// batch window in ticks, half-open [From, Until).
type Pattern struct {
	Kind   Kind
	Base   map[pool.Dimension]Profile
	Peak   map[pool.Dimension]Profile
	From   int
	Until  int
	Jitter bool
}

// Boost is a scheduled fairness-weight override for one tenant, applied by
// the driver between ticks, half-open [From, Until).
type Boost struct {
	Weight float64
	From   int
	Until  int
}

type tenantTrace struct {
	id      string
	pattern Pattern
	rng     *rand.Rand
}

// Model produces one demand vector per tick. Each tenant owns its own seeded
// random stream, so a trace is reproducible for a given seed and adding a
// tenant never perturbs the others.
type Model struct {
	traces []*tenantTrace
	boosts map[string]Boost
}

func NewModel(seed int64, patterns map[string]Pattern, boosts map[string]Boost) *Model {
	ids := make([]string, 0, len(patterns))
	for id := range patterns {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	m := &Model{boosts: boosts}
	for _, id := range ids {
		m.traces = append(m.traces, &tenantTrace{
			id:      id,
			pattern: patterns[id],
			rng:     rand.New(rand.NewSource(seed ^ tenantSeed(id))),
		})
	}
	return m
}

func tenantSeed(id string) int64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	return int64(h.Sum64())
}

// Sample returns the demand vector for one tick. Ticks must be sampled in
// order; the random streams advance with each call.
func (m *Model) Sample(tick int) allocator.Demand {
	demand := make(allocator.Demand, len(m.traces))
	for _, tr := range m.traces {
		demand[tr.id] = tr.sample(tick)
	}
	return demand
}

func (tr *tenantTrace) sample(tick int) map[pool.Dimension]float64 {
	profiles := tr.profilesFor(tick)
	out := make(map[pool.Dimension]float64, len(profiles))
	if profiles == nil {
		return out
	}
	for _, dim := range pool.AllDimensions {
		p, ok := profiles[dim]
		if !ok {
			continue
		}
		v := tr.rng.NormFloat64()*p.Sigma + p.Mean
		if tr.pattern.Jitter {
			// small integer jitter so traces are not perfectly smooth
			v += [4]float64{0, 0, 1, -1}[tr.rng.Intn(4)]
		}
		if v < 0 {
			v = 0
		}
		out[dim] = v
	}
	return out
}

func (tr *tenantTrace) profilesFor(tick int) map[pool.Dimension]Profile {
	inWindow := tick >= tr.pattern.From && tick < tr.pattern.Until
	switch tr.pattern.Kind {
	case KindBurst:
		if inWindow && tr.pattern.Peak != nil {
			return tr.pattern.Peak
		}
		return tr.pattern.Base
	case KindBatch:
		if !inWindow {
			return nil
		}
		return tr.pattern.Base
	default:
		return tr.pattern.Base
	}
}

// WeightOverrides returns the scheduled per-tenant weight overrides active at
// the given tick, nil if none.
func (m *Model) WeightOverrides(tick int) map[string]float64 {
	var overrides map[string]float64
	for id, b := range m.boosts {
		if tick >= b.From && tick < b.Until {
			if overrides == nil {
				overrides = make(map[string]float64)
			}
			overrides[id] = b.Weight
		}
	}
	return overrides
}
