// Package semver checks IPC protocol versions against SemVer ranges.
package semver

import "strconv"

// IsMajorOnly reports whether rangeStr is a bare major version such as "3".
func IsMajorOnly(rangeStr string) bool {
	_, ok := parseMajor(rangeStr)
	return ok
}

// ExtractMajorFromRange returns the major version of a major-only range, or
// -1 for anything else.
func ExtractMajorFromRange(rangeStr string) int {
	major, ok := parseMajor(rangeStr)
	if !ok {
		return -1
	}
	return major
}

// parseMajor accepts only ASCII digits that fit in an int. Atoi alone would
// also take a sign.
func parseMajor(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
