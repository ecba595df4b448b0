package progress

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	KiB = 1024
	MiB = KiB * 1024
	GiB = MiB * 1024
	TiB = GiB * 1024
)

// FormatBytes formats bytes as a human-readable string using IEC units.
func FormatBytes(b int64) string {
	units := []struct {
		size int64
		name string
	}{
		{TiB, "TiB"},
		{GiB, "GiB"},
		{MiB, "MiB"},
		{KiB, "KiB"},
	}

	for _, u := range units {
		if b >= u.size {
			v := float64(b) / float64(u.size)
			if v >= 100 {
				return fmt.Sprintf("%.0f %s", v, u.name)
			}
			return fmt.Sprintf("%.1f %s", v, u.name)
		}
	}
	return fmt.Sprintf("%d B", b)
}

// byteSuffixes is ordered so that longer suffixes are tried first.
var byteSuffixes = []struct {
	suffix     string
	multiplier float64
}{
	{"TiB", TiB},
	{"GiB", GiB},
	{"MiB", MiB},
	{"KiB", KiB},
	{"TB", 1e12},
	{"GB", 1e9},
	{"MB", 1e6},
	{"KB", 1e3},
	{"B", 1},
}

// ParseBytes parses a human-readable byte string such as "64KiB" or "1.5 MB".
// IEC suffixes are binary, SI suffixes are decimal; a bare number is bytes.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	num, multiplier := s, 1.0

	for _, bs := range byteSuffixes {
		if strings.HasSuffix(s, bs.suffix) {
			num = strings.TrimSpace(strings.TrimSuffix(s, bs.suffix))
			multiplier = bs.multiplier
			break
		}
	}

	value, err := strconv.ParseFloat(num, 64)
	if err != nil || value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("invalid byte string: %q", s)
	}
	return int64(value * multiplier), nil
}
