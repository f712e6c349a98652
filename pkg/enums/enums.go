// Package enums holds the closed string sets stored in the database and
// accepted on the API.
package enums

import (
	"fmt"
	"slices"
)

func parse[T ~string](set []T, raw, what string) (T, error) {
	if i := slices.Index(set, T(raw)); i >= 0 {
		return set[i], nil
	}
	return "", fmt.Errorf("invalid %s %q", what, raw)
}
