package segment

import (
	"math"

	"github.com/vk/gridplan/internal/component"
	"github.com/vk/gridplan/internal/lp"
	"github.com/vk/gridplan/internal/reactive"
	"github.com/vk/gridplan/internal/timeseries"
)

// DemandPricing bills the highest block-average power in each direction.
// The horizon is cut into blocks of block_duration hours; a block's average
// weighs each period by how many of its hours fall inside the block. The
// optional window scales each period's contribution, so blocks entirely
// outside the window can never set the peak. Prices are per kW per day.
type DemandPricing struct {
	common

	blockDuration      *reactive.Param[float64]
	billingDays        *reactive.Param[float64]
	forwardPrice       *reactive.Param[float64]
	reversePrice       *reactive.Param[float64]
	window             *reactive.Param[timeseries.Series]
	currentPeakForward *reactive.Param[float64]
	currentPeakReverse *reactive.Param[float64]

	peakForward lp.Var
	peakReverse lp.Var
}

// block is one demand block: its position in the horizon and the weight of
// every period that overlaps it.
type block struct {
	index   int
	weights map[int]float64
}

// blocks cuts h into blocks of length d hours and applies window. Blocks
// with no weight are dropped.
func blocks(h *timeseries.Horizon, d float64, window timeseries.Series) []block {
	var out []block
	for k := 0; float64(k)*d < h.Length()-1e-9; k++ {
		from := float64(k) * d
		to := math.Min(from+d, h.Length())
		covered := 0.0
		overlap := make(map[int]float64)
		for t := 0; t < h.T(); t++ {
			if o := h.Overlap(t, from, to); o > 0 {
				overlap[t] = o
				covered += o
			}
		}
		b := block{index: k, weights: make(map[int]float64)}
		for t, o := range overlap {
			if w := window.At(t) * o / covered; w > 0 {
				b.weights[t] = w
			}
		}
		if len(b.weights) > 0 {
			out = append(out, b)
		}
	}
	return out
}

var (
	demandPeaks = component.CachedConstraint("peak", func(s *DemandPricing) []lp.Constraint {
		h := s.horizon()
		window := timeseries.Scalar(1)
		if w, ok := s.window.Lookup(); ok {
			window = w
		}
		bs := blocks(h, s.blockDuration.Get(), window)

		var out []lp.Constraint
		direction := func(group string, price *reactive.Param[float64], current *reactive.Param[float64], peak lp.Var, flows []lp.Var) {
			if !price.IsSet() {
				return
			}
			for _, b := range bs {
				var avg lp.Expr
				for t := 0; t < h.T(); t++ {
					if w, ok := b.weights[t]; ok {
						avg.AddTerm(flows[t], w)
					}
				}
				out = append(out, lp.Ge(s.rowName(group, b.index), lp.Sum(peak), avg).WithDual())
			}
			if floor, ok := current.Lookup(); ok {
				out = append(out, lp.Ge(s.rowName(group+"_floor", 0), lp.Sum(peak), lp.Const(floor)))
			}
		}
		direction("peak_forward", s.forwardPrice, s.currentPeakForward, s.peakForward, s.source.Forward)
		direction("peak_reverse", s.reversePrice, s.currentPeakReverse, s.peakReverse, s.source.Reverse)
		return out
	})

	demandCost = component.CachedCost("cost", func(s *DemandPricing) *lp.Expr {
		fwd, okF := s.forwardPrice.Lookup()
		rev, okR := s.reversePrice.Lookup()
		if !okF && !okR {
			return nil
		}
		days := s.billingDays.Get()
		var e lp.Expr
		if okF {
			e.AddTerm(s.peakForward, fwd*days)
		}
		if okR {
			e.AddTerm(s.peakReverse, rev*days)
		}
		return &e
	})
)

func newDemandPricing(ctx Context) *DemandPricing {
	s := &DemandPricing{common: newCommon(ctx, KindDemandPricing)}
	base := &s.Base
	s.blockDuration = component.FloatParam(base, "block_duration", reactive.Required[float64]())
	s.billingDays = component.FloatParam(base, "billing_days")
	s.forwardPrice = component.FloatParam(base, "forward_price")
	s.reversePrice = component.FloatParam(base, "reverse_price")
	s.window = component.SeriesParam(base, "window")
	s.currentPeakForward = component.FloatParam(base, "current_peak_forward")
	s.currentPeakReverse = component.FloatParam(base, "current_peak_reverse")
	s.billingDays.Set(1)
	s.lossless()

	p, scope := ctx.Env.Problem, ctx.Scope()
	s.peakForward = p.NewVar(ctx.Connection, scope+".peak_forward", 0, lp.Inf)
	s.peakReverse = p.NewVar(ctx.Connection, scope+".peak_reverse", 0, lp.Inf)

	s.validate = func() error {
		n := ctx.Env.T()
		c := component.NewChecker(s.Name())
		if d, ok := s.blockDuration.Peek(); ok && d <= 0 {
			c.Failf("block_duration %g must be positive", d)
		}
		c.Range(s.billingDays, 0, math.Inf(1))
		c.Range(s.forwardPrice, 0, math.Inf(1))
		c.Range(s.reversePrice, 0, math.Inf(1))
		c.Fits(s.window, n)
		c.SeriesRange(s.window, n, 0, 1)
		c.Range(s.currentPeakForward, 0, math.Inf(1))
		c.Range(s.currentPeakReverse, 0, math.Inf(1))
		return c.Err()
	}
	component.BindConstraints(base, s, demandPeaks)
	component.BindCosts(base, s, demandCost)
	return s
}

// Peaks returns the peak variables, forward first.
func (s *DemandPricing) Peaks() (lp.Var, lp.Var) { return s.peakForward, s.peakReverse }
