package enums

import (
	"fmt"
	"slices"
)

// member and parse back every string enum in this package. Each type keeps
// its allowed values in a package-level slice and delegates here.
func member[T ~string](v T, allowed []T) bool {
	return slices.Contains(allowed, v)
}

func parse[T ~string](kind, raw string, allowed []T) (T, error) {
	v := T(raw)
	if !member(v, allowed) {
		var zero T
		return zero, fmt.Errorf("invalid %s %q", kind, raw)
	}
	return v, nil
}
