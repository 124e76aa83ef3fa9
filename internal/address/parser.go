package address

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// segmentRegex parses a single segment of a path, e.g. `name` or `name[1]`.
// Colons are allowed so generated names like `house:inverter` stay single
// segments.
var segmentRegex = regexp.MustCompile(`^([a-zA-Z0-9_:-]+)(?:\[(\d+)\])?$`)

// nameRegex matches a bare segment name.
var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_:-]+$`)

// isValidSegmentName checks for undesirable but technically valid names.
func isValidSegmentName(name string) bool {
	if name == "-" || name == ":" {
		return false
	}
	return true
}

// ValidName checks that name can be used as an element or connection name.
func ValidName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if !nameRegex.MatchString(name) || !isValidSegmentName(name) {
		return fmt.Errorf("invalid name %q: use letters, digits, '_', '-' or ':'", name)
	}
	return nil
}

// Parse creates a new Address by parsing its canonical string representation.
func Parse(raw string) (*Address, error) {
	if raw == "" {
		return nil, fmt.Errorf("address cannot be empty")
	}

	addr := &Address{}
	for _, segmentStr := range strings.Split(raw, ".") {
		if segmentStr == "" {
			return nil, fmt.Errorf("address path contains empty segment")
		}

		matches := segmentRegex.FindStringSubmatch(segmentStr)
		if matches == nil {
			return nil, fmt.Errorf("invalid path segment format: %q", segmentStr)
		}

		name := matches[1]
		if !isValidSegmentName(name) {
			return nil, fmt.Errorf("invalid segment name: %q", name)
		}

		segment := NewSegment(name)
		if matches[2] != "" {
			index, err := strconv.Atoi(matches[2])
			if err != nil {
				return nil, fmt.Errorf("internal error parsing index: %w", err)
			}
			segment.Index = index
		}
		addr.Path = append(addr.Path, segment)
	}

	return addr, nil
}
