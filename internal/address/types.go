package address

// Segment is a single component of an address path, e.g. `name[index]`.
type Segment struct {
	Name  string
	Index int // -1 indicates no index is present.
}

// NewSegment creates a segment without an index.
func NewSegment(name string) Segment {
	return Segment{Name: name, Index: -1}
}

// NewIndexedSegment creates a segment that includes an index.
func NewIndexedSegment(name string, index int) Segment {
	return Segment{Name: name, Index: index}
}

// HasIndex reports whether the segment has an explicit index.
func (s Segment) HasIndex() bool {
	return s.Index != -1
}

// Address is the structured form of a variable or constraint name.
type Address struct {
	Path []Segment
}

// New builds an address from plain names.
func New(names ...string) *Address {
	a := &Address{Path: make([]Segment, len(names))}
	for i, n := range names {
		a.Path[i] = NewSegment(n)
	}
	return a
}

// Child returns a copy of a with a plain segment appended.
func (a *Address) Child(name string) *Address {
	return a.append(NewSegment(name))
}

// Index returns a copy of a with an indexed segment appended.
func (a *Address) Index(name string, index int) *Address {
	return a.append(NewIndexedSegment(name, index))
}

func (a *Address) append(s Segment) *Address {
	path := make([]Segment, 0, len(a.Path)+1)
	path = append(path, a.Path...)
	return &Address{Path: append(path, s)}
}

// Root returns the first segment name, which is the owning element.
func (a *Address) Root() string {
	if a == nil || len(a.Path) == 0 {
		return ""
	}
	return a.Path[0].Name
}
