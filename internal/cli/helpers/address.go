package helpers

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseAddress parses a code address. A 0x prefix selects hex; bare digits
// containing a-f are read as hex too, matching what profilers print.
func ParseAddress(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty address")
	}
	base := 0
	if strings.ContainsAny(strings.ToLower(s), "abcdef") && !strings.HasPrefix(strings.ToLower(s), "0x") {
		base = 16
	}
	v, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return v, nil
}
