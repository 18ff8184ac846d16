package registry

import (
	"errors"
	"fmt"
	"sort"

	"tenant-sim/internal/pool"
)

// ErrInfeasibleConfiguration marks a tenant setup whose guarantees cannot be
// honored by the pool, e.g. reservation fractions summing above 1.0 for a
// dimension. It is surfaced at registration time, before any tick runs.
var ErrInfeasibleConfiguration = errors.New("infeasible configuration")

// Tier is the SLA class of a tenant.
type Tier string

const (
	TierCritical   Tier = "critical"
	TierStandard   Tier = "standard"
	TierBestEffort Tier = "best-effort"
)

func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierCritical, TierStandard, TierBestEffort:
		return Tier(s), nil
	}
	return "", fmt.Errorf("unknown SLA tier %q", s)
}

// Tenant holds the static attributes of one registered tenant.
type Tenant struct {
	ID           string
	Tier         Tier
	Weight       float64
	Reservations map[pool.Dimension]float64 // fraction of pool capacity, [0,1]
}

// Reservation returns the reserved capacity fraction for dim, zero if none.
func (t Tenant) Reservation(dim pool.Dimension) float64 {
	return t.Reservations[dim]
}

// HasReservation reports whether the tenant carries any reservation floor.
func (t Tenant) HasReservation() bool {
	for _, f := range t.Reservations {
		if f > 0 {
			return true
		}
	}
	return false
}

// Registry is the immutable set of tenants competing for the pool. It is
// built once before a run starts; mid-run tenant changes are modeled as a
// new registry between ticks.
type Registry struct {
	tenants map[string]Tenant
	order   []string
}

func New(tenants []Tenant) (*Registry, error) {
	r := &Registry{tenants: make(map[string]Tenant, len(tenants))}

	reserved := make(map[pool.Dimension]float64)
	for _, t := range tenants {
		if t.ID == "" {
			return nil, fmt.Errorf("%w: tenant with empty id", ErrInfeasibleConfiguration)
		}
		if _, exists := r.tenants[t.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate tenant id %q", ErrInfeasibleConfiguration, t.ID)
		}
		if t.Weight <= 0 {
			return nil, fmt.Errorf("%w: tenant %q has non-positive weight %f", ErrInfeasibleConfiguration, t.ID, t.Weight)
		}
		for dim, fraction := range t.Reservations {
			if fraction < 0 || fraction > 1 {
				return nil, fmt.Errorf("%w: tenant %q reservation for %s out of range: %f", ErrInfeasibleConfiguration, t.ID, dim, fraction)
			}
			reserved[dim] += fraction
		}
		r.tenants[t.ID] = t
		r.order = append(r.order, t.ID)
	}

	for dim, total := range reserved {
		if total > 1.0 {
			return nil, fmt.Errorf("%w: reservation fractions for %s sum to %.4f (max 1.0)", ErrInfeasibleConfiguration, dim, total)
		}
	}

	sort.Strings(r.order)
	return r, nil
}

func (r *Registry) Get(id string) (Tenant, bool) {
	t, ok := r.tenants[id]
	return t, ok
}

// Tenants returns all tenants ordered by ascending id. The order is the
// engine's tie-break order, so it must be stable.
func (r *Registry) Tenants() []Tenant {
	out := make([]Tenant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tenants[id])
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.order)
}

// WithWeights returns a copy of the registry with the given per-tenant weight
// overrides applied. Unknown ids are ignored. The receiver is not modified;
// the driver uses this to apply scheduled weight boosts between ticks.
func (r *Registry) WithWeights(overrides map[string]float64) *Registry {
	if len(overrides) == 0 {
		return r
	}
	out := &Registry{
		tenants: make(map[string]Tenant, len(r.tenants)),
		order:   append([]string(nil), r.order...),
	}
	for id, t := range r.tenants {
		if w, ok := overrides[id]; ok && w > 0 {
			t.Weight = w
		}
		out.tenants[id] = t
	}
	return out
}
