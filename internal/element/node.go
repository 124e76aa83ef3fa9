package element

import (
	"github.com/vk/gridplan/internal/component"
	"github.com/vk/gridplan/internal/lp"
)

// Node is a lossless junction. It has no variables of its own; the network
// balance makes its inflows equal its outflows.
type Node struct {
	common
}

func newNode(env component.Env, name string) *Node {
	return &Node{common: newCommon(env, name)}
}

// Kind implements Element.
func (n *Node) Kind() Kind { return KindNode }

// Validate implements Element.
func (n *Node) Validate() error { return nil }

// Update implements Element.
func (n *Node) Update(updates map[string]any) error {
	return n.Base.Update(updates, n.Validate)
}

// Injection implements Element.
func (n *Node) Injection(int) lp.Expr { return lp.Expr{} }

// Variables implements Element.
func (n *Node) Variables() []lp.Var { return nil }
