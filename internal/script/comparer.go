package script

import (
	"fmt"
	"strings"
)

// NameComparer defines the total order and equality used for script names.
// The same comparer must drive both the candidate sort and the journal lookup.
type NameComparer interface {
	Compare(a, b string) int
	Equal(a, b string) bool
}

// Ordinal compares names byte by byte.
type Ordinal struct{}

func (Ordinal) Compare(a, b string) int { return strings.Compare(a, b) }

func (Ordinal) Equal(a, b string) bool { return a == b }

// OrdinalIgnoreCase compares names byte by byte after lower-casing them.
type OrdinalIgnoreCase struct{}

func (OrdinalIgnoreCase) Compare(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func (OrdinalIgnoreCase) Equal(a, b string) bool {
	return strings.ToLower(a) == strings.ToLower(b)
}

// NewComparer returns the comparer registered under name. An empty name selects Ordinal.
func NewComparer(name string) (NameComparer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "ordinal":
		return Ordinal{}, nil
	case "ignore_case", "ordinal_ignore_case":
		return OrdinalIgnoreCase{}, nil
	default:
		return nil, fmt.Errorf("unknown name comparison %q", name)
	}
}
