package semver

import (
	"fmt"

	masterminds "github.com/Masterminds/semver/v3"
)

const logPrefix = "semver:protocol"

// ProtocolVersion is the IPC protocol version spoken by this module.
const ProtocolVersion = "1.0.0"

// SatisfiesRange checks if a version string satisfies a range. A
// major-only range ("1") matches any version with that major.
func SatisfiesRange(version, rangeStr string) bool {
	if IsMajorOnly(rangeStr) {
		sv, err := masterminds.NewVersion(version)
		if err != nil {
			return false
		}
		return int(sv.Major()) == ExtractMajorFromRange(rangeStr)
	}

	constraint, err := masterminds.NewConstraint(rangeStr)
	if err != nil {
		return false
	}

	sv, err := masterminds.NewVersion(version)
	if err != nil {
		return false
	}

	return constraint.Check(sv)
}

// ValidateRange reports whether rangeStr is a usable range.
func ValidateRange(rangeStr string) error {
	if IsMajorOnly(rangeStr) {
		return nil
	}
	if _, err := masterminds.NewConstraint(rangeStr); err != nil {
		return fmt.Errorf("%s - invalid protocol range %q: %w", logPrefix, rangeStr, err)
	}
	return nil
}

// CheckCompatible returns an error describing why version does not satisfy
// rangeStr, or nil.
func CheckCompatible(version, rangeStr string) error {
	if _, err := masterminds.NewVersion(version); err != nil {
		return fmt.Errorf("%s - invalid protocol version %q: %w", logPrefix, version, err)
	}
	if err := ValidateRange(rangeStr); err != nil {
		return err
	}
	if !SatisfiesRange(version, rangeStr) {
		return fmt.Errorf("%s - protocol version %s does not satisfy %s", logPrefix, version, rangeStr)
	}
	return nil
}
