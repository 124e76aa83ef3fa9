package lp

import (
	"math"

	"github.com/vk/gridplan/internal/address"
)

// Inf is the bound used for an unbounded side of a variable.
var Inf = math.Inf(1)

// Var is an index into a Problem's variable arena.
type Var int

// VarInfo describes one decision variable.
type VarInfo struct {
	Name    string
	Lower   float64
	Upper   float64
	Owner   string
	Retired bool
}

// Problem owns every variable of a network. Variables are never reused: a
// removed owner's variables are retired in place so existing indices stay
// valid.
type Problem struct {
	vars []VarInfo
}

// NewProblem creates an empty arena.
func NewProblem() *Problem {
	return &Problem{}
}

// NewVar appends a variable and returns its index.
func (p *Problem) NewVar(owner, name string, lower, upper float64) Var {
	p.vars = append(p.vars, VarInfo{Name: name, Lower: lower, Upper: upper, Owner: owner})
	return Var(len(p.vars) - 1)
}

// NewVars appends n variables named scope.name[t].
func (p *Problem) NewVars(owner, scope, name string, n int, lower, upper float64) []Var {
	out := make([]Var, n)
	for t := range out {
		out[t] = p.NewVar(owner, address.Of(scope, name, t), lower, upper)
	}
	return out
}

// Len returns the number of variables ever created, retired ones included.
func (p *Problem) Len() int { return len(p.vars) }

// Info returns the description of v.
func (p *Problem) Info(v Var) VarInfo { return p.vars[v] }

// Name returns the address of v.
func (p *Problem) Name(v Var) string { return p.vars[v].Name }

// Vars returns a copy of the arena.
func (p *Problem) Vars() []VarInfo {
	out := make([]VarInfo, len(p.vars))
	copy(out, p.vars)
	return out
}

// Release retires every variable owned by owner and returns how many were
// retired.
func (p *Problem) Release(owner string) int {
	n := 0
	for i := range p.vars {
		if p.vars[i].Owner == owner && !p.vars[i].Retired {
			p.vars[i].Retired = true
			n++
		}
	}
	return n
}
