package enums

import (
	"fmt"
	"slices"
)

// parseEnum returns the member of valid equal to raw, or an error naming kind.
func parseEnum[T ~string](valid []T, raw, kind string) (T, error) {
	if i := slices.Index(valid, T(raw)); i >= 0 {
		return valid[i], nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
