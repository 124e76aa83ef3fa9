package segment

import (
	"fmt"

	"github.com/vk/gridplan/internal/address"
	"github.com/vk/gridplan/internal/component"
	"github.com/vk/gridplan/internal/lp"
	"github.com/vk/gridplan/internal/reactive"
	"github.com/vk/gridplan/internal/timeseries"
)

// Kind names a segment type.
type Kind string

const (
	KindPassthrough    Kind = "passthrough"
	KindPowerLimit     Kind = "power_limit"
	KindPricing        Kind = "pricing"
	KindDemandPricing  Kind = "demand_pricing"
	KindEfficiency     Kind = "efficiency"
	KindSocPricing     Kind = "soc_pricing"
	KindBatteryBalance Kind = "battery_balance"
)

// Kinds lists every supported kind.
func Kinds() []Kind {
	return []Kind{KindPassthrough, KindPowerLimit, KindPricing, KindDemandPricing, KindEfficiency, KindSocPricing, KindBatteryBalance}
}

// Flows holds the per-period flow variables on one side of a segment.
type Flows struct {
	Forward []lp.Var
	Reverse []lp.Var
}

// Endpoint is the read-only view a segment gets of a connection endpoint.
type Endpoint interface {
	Name() string
}

// Storage is an endpoint that stores energy, such as a battery.
type Storage interface {
	Endpoint
	// StoredEnergy returns one variable per period boundary.
	StoredEnergy() []lp.Var
	// Capacity returns the capacity per period boundary. Reading it inside a
	// cached group makes the group depend on it.
	Capacity() timeseries.Series
}

// Context is what a segment is built from.
type Context struct {
	Env component.Env
	// Connection owns every variable the segment creates.
	Connection string
	// Name is the segment's name within the connection.
	Name   string
	Source Endpoint
	Target Endpoint
}

// Scope returns the address prefix of the segment's variables and rows.
func (c Context) Scope() string { return address.New(c.Connection).Child(c.Name).String() }

// Segment is implemented by the segment types of this package only.
type Segment interface {
	Name() string
	Kind() Kind
	Params() *reactive.Params
	Validate() error
	Update(updates map[string]any) error
	SourceSide() Flows
	TargetSide() Flows
	Constraints() []lp.Constraint
	Cost() *lp.Expr
	Evaluations(method string) int
	Release()

	sealed()
}

// New builds a segment of the given kind, binds its initial parameter values
// and validates them.
func New(ctx Context, kind Kind, values map[string]any) (Segment, error) {
	var (
		s   Segment
		err error
	)
	switch kind {
	case KindPassthrough:
		s = newPassthrough(ctx)
	case KindPowerLimit:
		s = newPowerLimit(ctx)
	case KindPricing:
		s = newPricing(ctx)
	case KindDemandPricing:
		s = newDemandPricing(ctx)
	case KindEfficiency:
		s = newEfficiency(ctx)
	case KindSocPricing:
		s, err = newSocPricing(ctx)
	case KindBatteryBalance:
		s, err = newBatteryBalance(ctx)
	default:
		err = fmt.Errorf("unknown kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("segment %s: %w", ctx.Scope(), err)
	}
	if err := s.(binder).Bind(values); err != nil {
		s.Release()
		return nil, err
	}
	if err := s.Validate(); err != nil {
		s.Release()
		return nil, err
	}
	return s, nil
}

type binder interface {
	Bind(values map[string]any) error
}

// Methods returns the cached method descriptors of kind, for introspection.
func Methods(kind Kind) []reactive.Descriptor {
	switch kind {
	case KindPowerLimit:
		return []reactive.Descriptor{powerLimitBounds, powerLimitCoupling}
	case KindPricing:
		return []reactive.Descriptor{pricingCost}
	case KindDemandPricing:
		return []reactive.Descriptor{demandPeaks, demandCost}
	case KindEfficiency:
		return []reactive.Descriptor{efficiencyLoss}
	case KindSocPricing:
		return []reactive.Descriptor{socThresholds, socCost}
	case KindBatteryBalance:
		return []reactive.Descriptor{balanceDownward, balanceUpward, balanceCost}
	default:
		return nil
	}
}

// common is embedded by every segment type.
type common struct {
	component.Base
	ctx      Context
	kind     Kind
	source   Flows
	target   Flows
	validate func() error
}

func newCommon(ctx Context, kind Kind) common {
	return common{Base: component.NewBase(ctx.Env, ctx.Scope()), ctx: ctx, kind: kind}
}

// lossless creates one flow pair shared by both sides.
func (c *common) lossless() {
	n := c.ctx.Env.T()
	scope := c.ctx.Scope()
	f := Flows{
		Forward: c.ctx.Env.Problem.NewVars(c.ctx.Connection, scope, "forward", n, 0, lp.Inf),
		Reverse: c.ctx.Env.Problem.NewVars(c.ctx.Connection, scope, "reverse", n, 0, lp.Inf),
	}
	c.source, c.target = f, f
}

func (c *common) Kind() Kind        { return c.kind }
func (c *common) SourceSide() Flows { return c.source }
func (c *common) TargetSide() Flows { return c.target }
func (c *common) sealed()           {}

// Validate checks the current parameter values.
func (c *common) Validate() error {
	if c.validate == nil {
		return nil
	}
	return c.validate()
}

// Update pushes new values, rolling back if validation fails.
func (c *common) Update(updates map[string]any) error {
	return c.Base.Update(updates, c.Validate)
}

func (c *common) rowName(group string, t int) string {
	return address.Of(c.ctx.Scope(), group, t)
}

func (c *common) horizon() *timeseries.Horizon { return c.ctx.Env.Horizon }
