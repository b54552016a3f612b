package update

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver"
)

// Comparator reports whether candidate is strictly newer than baseline.
type Comparator func(candidate, baseline string) bool

// NormalizeVersion strips a single leading "v" from a version string.
// Some maintainers register versions as "v1.2.3"; nothing else is rewritten.
func NormalizeVersion(s string) string {
	return strings.TrimPrefix(s, "v")
}

// IsNewerVersion reports whether candidate is strictly newer than baseline.
//
// Versions that both parse as semantic versions are compared as such, with
// pre-releases ordering before their release and missing minor or patch
// numbers reading as zero, so "1.2.0" and "1.2" are equal. Anything else
// falls back to a dotted segment comparison: numeric segments compare
// numerically, other segments lexically, and a candidate with more segments
// than an otherwise equal baseline is newer.
func IsNewerVersion(candidate, baseline string) bool {
	cv, cerr := semver.NewVersion(candidate)
	bv, berr := semver.NewVersion(baseline)
	if cerr == nil && berr == nil {
		return cv.GreaterThan(bv)
	}
	return segmentsNewer(candidate, baseline)
}

func segmentsNewer(candidate, baseline string) bool {
	cparts := strings.Split(candidate, ".")
	bparts := strings.Split(baseline, ".")
	for i, c := range cparts {
		if i >= len(bparts) {
			return true
		}
		b := bparts[i]
		if c == b {
			continue
		}
		cn, cerr := strconv.Atoi(c)
		bn, berr := strconv.Atoi(b)
		if cerr == nil && berr == nil {
			return cn > bn
		}
		return c > b
	}
	return false
}
