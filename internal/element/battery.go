package element

import (
	"math"

	"github.com/vk/gridplan/internal/component"
	"github.com/vk/gridplan/internal/lp"
	"github.com/vk/gridplan/internal/reactive"
	"github.com/vk/gridplan/internal/timeseries"
)

// Battery stores energy between periods. energy has T+1 entries, one per
// period boundary; charge and discharge are per-period powers in kW.
type Battery struct {
	common

	capacity             *reactive.Param[timeseries.Series]
	initialCharge        *reactive.Param[float64]
	minSOC               *reactive.Param[float64]
	maxSOC               *reactive.Param[float64]
	efficiency           *reactive.Param[float64]
	maxChargePower       *reactive.Param[timeseries.Series]
	maxDischargePower    *reactive.Param[timeseries.Series]
	earlyChargeIncentive *reactive.Param[float64]

	energy    []lp.Var
	charge    []lp.Var
	discharge []lp.Var
}

var (
	batteryInitial = component.CachedConstraint("initial_energy", func(b *Battery) []lp.Constraint {
		return []lp.Constraint{
			lp.Eq(b.rowName("initial_energy", 0), lp.Sum(b.energy[0]), lp.Const(b.initialCharge.Get())),
		}
	})

	batteryContinuity = component.CachedConstraint("soc_continuity", func(b *Battery) []lp.Constraint {
		eta := math.Sqrt(b.efficiency.Get())
		h := b.Env().Horizon
		out := make([]lp.Constraint, len(b.charge))
		for t := range b.charge {
			dt := h.Dt(t)
			next := lp.Sum(b.energy[t])
			next.AddTerm(b.charge[t], eta*dt)
			next.AddTerm(b.discharge[t], -dt/eta)
			out[t] = lp.Eq(b.rowName("soc_continuity", t), lp.Sum(b.energy[t+1]), next)
		}
		return out
	})

	batterySOCBounds = component.CachedConstraint("soc_bounds", func(b *Battery) []lp.Constraint {
		capacity := b.capacity.Get()
		lo, hi := b.minSOC.Get(), b.maxSOC.Get()
		var out []lp.Constraint
		for t := 1; t < len(b.energy); t++ {
			c := capacity.At(t)
			out = append(out,
				lp.Ge(b.rowName("soc_min", t), lp.Sum(b.energy[t]), lp.Const(lo*c)),
				lp.Le(b.rowName("soc_max", t), lp.Sum(b.energy[t]), lp.Const(hi*c)),
			)
		}
		return out
	})

	batteryPowerLimits = component.CachedConstraint("power_limits", func(b *Battery) []lp.Constraint {
		var out []lp.Constraint
		if limit, ok := b.maxChargePower.Lookup(); ok {
			for t, v := range b.charge {
				out = append(out, lp.Le(b.rowName("max_charge", t), lp.Sum(v), lp.Const(limit.At(t))))
			}
		}
		if limit, ok := b.maxDischargePower.Lookup(); ok {
			for t, v := range b.discharge {
				out = append(out, lp.Le(b.rowName("max_discharge", t), lp.Sum(v), lp.Const(limit.At(t))))
			}
		}
		return out
	})

	// batteryIncentive is a tie-breaker: charging costs more the later it
	// happens and discharging costs more the earlier it happens. Every weight
	// is non-negative, so it never pays to charge and discharge at once.
	batteryIncentive = component.CachedCost("early_charge_incentive", func(b *Battery) *lp.Expr {
		inc, ok := b.earlyChargeIncentive.Lookup()
		if !ok || inc == 0 {
			return nil
		}
		h := b.Env().Horizon
		n := float64(h.T())
		var e lp.Expr
		for t := range b.charge {
			dt := h.Dt(t)
			e.AddTerm(b.charge[t], inc*float64(t)/n*dt)
			e.AddTerm(b.discharge[t], inc*(n-1-float64(t))/n*dt)
		}
		return &e
	})
)

func newBattery(env component.Env, name string) *Battery {
	b := &Battery{common: newCommon(env, name)}
	base := &b.Base
	b.capacity = component.SeriesParam(base, "capacity", reactive.Required[timeseries.Series]())
	b.initialCharge = component.FloatParam(base, "initial_charge", reactive.Required[float64]())
	b.minSOC = component.FloatParam(base, "min_soc")
	b.maxSOC = component.FloatParam(base, "max_soc")
	b.efficiency = component.FloatParam(base, "efficiency")
	b.maxChargePower = component.SeriesParam(base, "max_charge_power")
	b.maxDischargePower = component.SeriesParam(base, "max_discharge_power")
	b.earlyChargeIncentive = component.FloatParam(base, "early_charge_incentive")
	b.minSOC.Set(0)
	b.maxSOC.Set(1)
	b.efficiency.Set(1)

	n := env.T()
	b.energy = env.Problem.NewVars(name, name, "energy", n+1, 0, lp.Inf)
	b.charge = env.Problem.NewVars(name, name, "charge", n, 0, lp.Inf)
	b.discharge = env.Problem.NewVars(name, name, "discharge", n, 0, lp.Inf)

	component.BindConstraints(base, b, batteryInitial, batteryContinuity, batterySOCBounds, batteryPowerLimits)
	component.BindCosts(base, b, batteryIncentive)
	return b
}

// Kind implements Element.
func (b *Battery) Kind() Kind { return KindBattery }

// Validate implements Element.
func (b *Battery) Validate() error {
	n := b.Env().T()
	c := component.NewChecker(b.Name())
	c.Fits(b.capacity, n+1)
	c.SeriesRange(b.capacity, n+1, 0, math.Inf(1))
	c.Range(b.minSOC, 0, 1)
	c.Range(b.maxSOC, 0, 1)
	if lo, hi := peek(b.minSOC), peek(b.maxSOC); lo > hi {
		c.Failf("min_soc %g is above max_soc %g", lo, hi)
	}
	if eff, ok := b.efficiency.Peek(); ok && (eff <= 0 || eff > 1) {
		c.Failf("efficiency %g must be in (0, 1]", eff)
	}
	if ic, ok := b.initialCharge.Peek(); ok {
		capacity, set := b.capacity.Peek()
		switch {
		case ic < 0:
			c.Failf("initial_charge %g is negative", ic)
		case set && capacity.Fits(n+1) == nil && ic > capacity.At(0):
			c.Failf("initial_charge %g exceeds capacity %g", ic, capacity.At(0))
		}
	}
	c.Fits(b.maxChargePower, n)
	c.SeriesRange(b.maxChargePower, n, 0, math.Inf(1))
	c.Fits(b.maxDischargePower, n)
	c.SeriesRange(b.maxDischargePower, n, 0, math.Inf(1))
	c.Range(b.earlyChargeIncentive, 0, math.Inf(1))
	return c.Err()
}

// Update implements Element.
func (b *Battery) Update(updates map[string]any) error {
	return b.Base.Update(updates, b.Validate)
}

// Injection implements Element.
func (b *Battery) Injection(t int) lp.Expr {
	return lp.Sum(b.discharge[t]).Minus(lp.Sum(b.charge[t]))
}

// Variables implements Element.
func (b *Battery) Variables() []lp.Var {
	return seriesVars(b.energy, b.charge, b.discharge)
}

// StoredEnergy returns the energy variables, one per period boundary.
func (b *Battery) StoredEnergy() []lp.Var { return b.energy }

// Capacity returns the capacity series, recording the read in the calling
// computation.
func (b *Battery) Capacity() timeseries.Series { return b.capacity.Get() }

func (b *Battery) rowName(group string, t int) string {
	return rowName(b.Name(), group, t)
}
