package index

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CompareVersions imposes a total order over version strings: 1 if a > b,
// -1 if a < b, 0 if equal. Versions that both parse as semver are
// compared semantically; otherwise a numeric-segment-aware comparison is
// used, falling back to lexicographic for non-numeric segments, so that
// "1.10" orders above "1.9".
func CompareVersions(a, b string) int {
	av, aerr := parseSemver(a)
	bv, berr := parseSemver(b)
	if aerr == nil && berr == nil {
		return av.Compare(bv)
	}
	return compareSegments(a, b)
}

// parseSemver strips a leading "v" and parses the version string.
func parseSemver(version string) (*semver.Version, error) {
	return semver.NewVersion(strings.TrimPrefix(version, "v"))
}

// compareSegments compares dot-separated segments pairwise. Two numeric
// segments compare as integers; anything else compares as strings. A
// missing segment orders below a present one ("1.2" < "1.2.1").
func compareSegments(a, b string) int {
	as := strings.Split(strings.TrimPrefix(a, "v"), ".")
	bs := strings.Split(strings.TrimPrefix(b, "v"), ".")

	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aok := atoi(as[i])
		bn, bok := atoi(bs[i])
		switch {
		case aok && bok:
			if an != bn {
				return sign(an - bn)
			}
		case aok != bok:
			// Numeric segments order above non-numeric ones.
			if aok {
				return 1
			}
			return -1
		default:
			if c := strings.Compare(as[i], bs[i]); c != 0 {
				return c
			}
		}
	}

	return sign(len(as) - len(bs))
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}
