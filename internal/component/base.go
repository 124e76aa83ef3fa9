package component

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/gridplan/internal/lp"
	"github.com/vk/gridplan/internal/reactive"
	"github.com/vk/gridplan/internal/timeseries"
)

// Base is embedded by every element and segment.
type Base struct {
	env         Env
	name        string
	params      *reactive.Params
	constraints []*reactive.Computation[[]lp.Constraint]
	costs       []*reactive.Computation[*lp.Expr]
}

// NewBase creates the shared state for a component called name.
func NewBase(env Env, name string) Base {
	return Base{env: env, name: name, params: reactive.NewParams(name)}
}

// Name returns the component name.
func (b *Base) Name() string { return b.name }

// Env returns the environment the component was built in.
func (b *Base) Env() Env { return b.env }

// Params returns the tracked parameter registry.
func (b *Base) Params() *reactive.Params { return b.params }

// Bind assigns the initial values. Unknown keys and required keys with
// neither a value nor a deferred placeholder are errors.
func (b *Base) Bind(values map[string]any) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, k := range keys {
		if err := b.params.Set(k, values[k]); err != nil {
			errs = append(errs, err)
		}
	}
	for _, k := range b.params.Keys() {
		c, _ := b.params.Lookup(k)
		if !c.Required() || c.Ready() {
			continue
		}
		if _, deferred := c.Deferred(); !deferred {
			errs = append(errs, fmt.Errorf("%s: missing required parameter %q", b.name, k))
		}
	}
	return errors.Join(errs...)
}

// Update applies updates atomically: if validate rejects the new state, every
// touched parameter is restored.
func (b *Base) Update(updates map[string]any, validate func() error) error {
	return b.params.Apply(updates, validate)
}

// Constraints concatenates every cached constraint group, skipping disabled
// (nil) groups.
func (b *Base) Constraints() []lp.Constraint {
	var out []lp.Constraint
	for _, c := range b.constraints {
		out = append(out, c.Get()...)
	}
	return out
}

// Cost sums the cached cost terms. It returns nil when none contributes.
func (b *Base) Cost() *lp.Expr {
	var total *lp.Expr
	for _, c := range b.costs {
		e := c.Get()
		if e == nil {
			continue
		}
		if total == nil {
			total = &lp.Expr{}
		}
		total.Add(*e, 1)
	}
	return total
}

// Evaluations returns how often the cached group called method has run.
func (b *Base) Evaluations(method string) int {
	suffix := "/" + method
	for _, c := range b.constraints {
		if strings.HasSuffix(c.Label(), suffix) {
			return c.Evaluations()
		}
	}
	for _, c := range b.costs {
		if strings.HasSuffix(c.Label(), suffix) {
			return c.Evaluations()
		}
	}
	return -1
}

// Release detaches every cached group from its sources.
func (b *Base) Release() {
	for _, c := range b.constraints {
		c.Release()
	}
	for _, c := range b.costs {
		c.Release()
	}
}

// SeriesParam registers a per-period param.
func SeriesParam(b *Base, key string, opts ...reactive.ParamOption[timeseries.Series]) *reactive.Param[timeseries.Series] {
	opts = append([]reactive.ParamOption[timeseries.Series]{
		reactive.WithEqual(timeseries.Series.Equal),
		reactive.WithConvert(timeseries.From),
	}, opts...)
	p := reactive.NewParam(b.env.Tracker, key, opts...)
	b.params.Register(p)
	return p
}

// FloatParam registers a scalar param.
func FloatParam(b *Base, key string, opts ...reactive.ParamOption[float64]) *reactive.Param[float64] {
	opts = append([]reactive.ParamOption[float64]{
		reactive.WithEqual(reactive.Comparable[float64]),
		reactive.WithConvert(toFloat),
	}, opts...)
	p := reactive.NewParam(b.env.Tracker, key, opts...)
	b.params.Register(p)
	return p
}

// BoolParam registers a flag param.
func BoolParam(b *Base, key string) *reactive.Param[bool] {
	p := reactive.NewParam(b.env.Tracker, key,
		reactive.WithEqual(reactive.Comparable[bool]),
		reactive.WithConvert(toBool),
	)
	b.params.Register(p)
	return p
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, timeseries.Finite(x)
	case int:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

func toBool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("expected a bool, got %T", v)
}
