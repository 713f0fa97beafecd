// Package version compares release tags and installed versions.
//
// The comparison is coarse: only the numeric dot-separated
// segments are compared, so pre-release and build suffixes are ignored
// ("1.0.0-rc1" compares equal to "1.0.0").
package version

import (
	"regexp"
	"strconv"
	"strings"
)

var tagPattern = regexp.MustCompile(`v?([0-9][0-9A-Za-z.+-]*)`)

// Normalize extracts the version from a tag such as "v1.2.3" or
// "release-1.2.3". Tags without a digit are returned unchanged.
func Normalize(tag string) string {
	m := tagPattern.FindStringSubmatch(tag)
	if m == nil {
		return tag
	}
	return m[1]
}

// IsNewer reports whether remote is strictly newer than local.
func IsNewer(local, remote string) bool {
	l := segments(local)
	r := segments(remote)

	for len(l) < len(r) {
		l = append(l, 0)
	}
	for len(r) < len(l) {
		r = append(r, 0)
	}

	for i := range l {
		if r[i] > l[i] {
			return true
		}
		if r[i] < l[i] {
			return false
		}
	}
	return false
}

// segments keeps the numeric components of v and drops the rest.
func segments(v string) []uint64 {
	var out []uint64
	for _, s := range strings.Split(v, ".") {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}
