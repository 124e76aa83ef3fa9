package element

import (
	"fmt"
	"slices"

	"github.com/vk/gridplan/internal/component"
	"github.com/vk/gridplan/internal/lp"
	"github.com/vk/gridplan/internal/reactive"
)

// Kind names an element type.
type Kind string

const (
	KindBattery       Kind = "battery"
	KindGrid          Kind = "grid"
	KindLoad          Kind = "load"
	KindPhotovoltaics Kind = "photovoltaics"
	KindNode          Kind = "node"
)

// Kinds lists every supported kind.
func Kinds() []Kind {
	return []Kind{KindBattery, KindGrid, KindLoad, KindPhotovoltaics, KindNode}
}

// Element is implemented by the element types of this package only.
type Element interface {
	Name() string
	Kind() Kind
	Params() *reactive.Params
	// Validate checks the current parameter values.
	Validate() error
	// Update pushes new parameter values, rolling them back if Validate
	// rejects the result.
	Update(updates map[string]any) error
	Constraints() []lp.Constraint
	// Cost returns nil when the element adds nothing to the objective.
	Cost() *lp.Expr
	// Injection is the power the element puts into the network in period t;
	// negative when it draws power.
	Injection(t int) lp.Expr
	Variables() []lp.Var
	// Evaluations reports how often the cached group called method has run,
	// or -1 if there is no such group.
	Evaluations(method string) int
	Release()

	sealed()
}

// New builds an element of the given kind, binds its initial parameter
// values and validates them.
func New(env component.Env, kind Kind, name string, values map[string]any) (Element, error) {
	var e Element
	switch kind {
	case KindBattery:
		e = newBattery(env, name)
	case KindGrid:
		e = newGrid(env, name)
	case KindLoad:
		e = newLoad(env, name)
	case KindPhotovoltaics:
		e = newPhotovoltaics(env, name)
	case KindNode:
		e = newNode(env, name)
	default:
		return nil, fmt.Errorf("element %q: unknown kind %q", name, kind)
	}
	if err := bind(e, values); err != nil {
		e.Release()
		return nil, err
	}
	return e, nil
}

// common is embedded by every element type.
type common struct {
	component.Base
}

func newCommon(env component.Env, name string) common {
	return common{Base: component.NewBase(env, name)}
}

// Release detaches the cached groups and retires the element's variables.
func (c *common) Release() {
	c.Base.Release()
	c.Env().Problem.Release(c.Name())
}

func (c *common) sealed() {}

type binder interface {
	Bind(values map[string]any) error
}

func bind(e Element, values map[string]any) error {
	if err := e.(binder).Bind(values); err != nil {
		return err
	}
	return e.Validate()
}

// Methods returns the cached method descriptors of kind, for introspection.
func Methods(kind Kind) []reactive.Descriptor {
	switch kind {
	case KindBattery:
		return []reactive.Descriptor{batteryInitial, batteryContinuity, batterySOCBounds, batteryPowerLimits, batteryIncentive}
	case KindGrid:
		return []reactive.Descriptor{gridLimits, gridCost}
	case KindLoad:
		return []reactive.Descriptor{loadDemand}
	case KindPhotovoltaics:
		return []reactive.Descriptor{pvOutput, pvCost}
	default:
		return nil
	}
}

// seriesVars concatenates variable slices.
func seriesVars(groups ...[]lp.Var) []lp.Var {
	return slices.Concat(groups...)
}
