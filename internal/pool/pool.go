package pool

import "fmt"

// Dimension identifies one resource axis of the shared pool.
type Dimension string

const (
	CPU     Dimension = "cpu"
	Memory  Dimension = "memory"
	Storage Dimension = "storage"
)

// AllDimensions lists every dimension in canonical order. Iteration over a
// pool always follows this order so results are reproducible.
var AllDimensions = []Dimension{CPU, Memory, Storage}

func ParseDimension(s string) (Dimension, error) {
	switch Dimension(s) {
	case CPU, Memory, Storage:
		return Dimension(s), nil
	}
	return "", fmt.Errorf("unknown resource dimension %q", s)
}

// Pool holds the fixed capacity of the shared pool per dimension. Capacities
// never change for the lifetime of a run.
type Pool struct {
	capacity map[Dimension]float64
}

func New(capacity map[Dimension]float64) *Pool {
	c := make(map[Dimension]float64, len(capacity))
	for dim, v := range capacity {
		c[dim] = v
	}
	return &Pool{capacity: c}
}

// Capacity returns the configured capacity for dim, zero if unconfigured.
func (p *Pool) Capacity(dim Dimension) float64 {
	return p.capacity[dim]
}

// Dimensions returns the configured dimensions in canonical order.
func (p *Pool) Dimensions() []Dimension {
	dims := make([]Dimension, 0, len(p.capacity))
	for _, dim := range AllDimensions {
		if _, ok := p.capacity[dim]; ok {
			dims = append(dims, dim)
		}
	}
	return dims
}
