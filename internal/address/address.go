package address

import (
	"fmt"
	"strings"
)

// String serializes the Address into its canonical path string representation.
func (a *Address) String() string {
	if a == nil {
		return ""
	}

	var sb strings.Builder
	for i, segment := range a.Path {
		if i > 0 {
			sb.WriteRune('.')
		}
		sb.WriteString(segment.Name)
		if segment.HasIndex() {
			fmt.Fprintf(&sb, "[%d]", segment.Index)
		}
	}

	return sb.String()
}

// Of formats owner.name[t] without building an Address.
func Of(owner, name string, t int) string {
	return (&Address{Path: []Segment{NewSegment(owner), NewIndexedSegment(name, t)}}).String()
}
