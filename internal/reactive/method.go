package reactive

// Role tells what a cached method produces.
type Role string

const (
	RoleCost       Role = "cost"
	RoleConstraint Role = "constraint"
)

// Descriptor is the type-erased view of a Method, used for introspection.
type Descriptor interface {
	Name() string
	Role() Role
}

// Method describes a cached method at the type level: one Method value per
// method, bound to each instance that needs a memo of it.
type Method[O any, T any] struct {
	name string
	role Role
	fn   func(O) T
}

// NewMethod creates a descriptor for fn.
func NewMethod[O any, T any](name string, role Role, fn func(O) T) *Method[O, T] {
	return &Method[O, T]{name: name, role: role, fn: fn}
}

// Name returns the method name.
func (m *Method[O, T]) Name() string { return m.name }

// Role returns what the method produces.
func (m *Method[O, T]) Role() Role { return m.role }

// Bind creates the per-instance memo of m for owner.
func (m *Method[O, T]) Bind(tr *Tracker, label string, owner O) *Computation[T] {
	return NewComputation(tr, label+"/"+m.name, func() T { return m.fn(owner) })
}
