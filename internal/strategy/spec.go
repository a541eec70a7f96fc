package strategy

import (
	"fmt"

	"github.com/newthinker/replay/internal/core"
)

// Spec is the serialized form of a Config. Exactly one of the variant fields
// is set, matching Kind.
type Spec struct {
	Kind      Kind       `json:"kind"`
	Crossover *Crossover `json:"crossover,omitempty"`
	Threshold *Threshold `json:"threshold,omitempty"`
}

// SpecOf converts a Config to its serialized form
func SpecOf(c Config) Spec {
	switch v := c.(type) {
	case Crossover:
		return Spec{Kind: KindCrossover, Crossover: &v}
	case Threshold:
		return Spec{Kind: KindThreshold, Threshold: &v}
	}
	return Spec{}
}

// Config converts the spec back into a Config
func (s Spec) Config() (Config, error) {
	switch s.Kind {
	case KindCrossover:
		if s.Crossover == nil {
			return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("crossover parameters missing"))
		}
		return *s.Crossover, nil
	case KindThreshold:
		if s.Threshold == nil {
			return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("threshold parameters missing"))
		}
		t := *s.Threshold
		t.Signal = core.ParseAction(string(t.Signal))
		return t, nil
	case "":
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("strategy kind missing"))
	}
	return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown strategy kind %q", s.Kind))
}

// Clone returns a copy of s sharing no pointers with it
func (s Spec) Clone() Spec {
	c := Spec{Kind: s.Kind}
	if s.Crossover != nil {
		v := *s.Crossover
		c.Crossover = &v
	}
	if s.Threshold != nil {
		v := *s.Threshold
		v.EntryPrice = clonePrice(v.EntryPrice)
		v.ExitPrice = clonePrice(v.ExitPrice)
		c.Threshold = &v
	}
	return c
}

func clonePrice(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
