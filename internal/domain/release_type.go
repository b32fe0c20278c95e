package domain

import (
	"fmt"
	"strings"
)

// ReleaseType selects which increment rule applies to the current version.
type ReleaseType string

const (
	ReleaseTypeMicro ReleaseType = "micro"
	ReleaseTypeMinor ReleaseType = "minor"
	ReleaseTypeMajor ReleaseType = "major"
	ReleaseTypeAlpha ReleaseType = "alpha"
	ReleaseTypeBeta  ReleaseType = "beta"
	ReleaseTypeRC    ReleaseType = "rc"
)

// ReleaseTypes lists every supported release type in CLI order.
var ReleaseTypes = []ReleaseType{
	ReleaseTypeMicro,
	ReleaseTypeMinor,
	ReleaseTypeMajor,
	ReleaseTypeAlpha,
	ReleaseTypeBeta,
	ReleaseTypeRC,
}

// ParseReleaseType converts s into a ReleaseType.
func ParseReleaseType(s string) (ReleaseType, error) {
	for _, rt := range ReleaseTypes {
		if string(rt) == s {
			return rt, nil
		}
	}
	return "", fmt.Errorf("%w: %q (expected one of: %s)", ErrUnsupportedReleaseType, s, ReleaseTypeNames())
}

// ReleaseTypeNames returns the supported release types as a comma separated list.
func ReleaseTypeNames() string {
	names := make([]string, len(ReleaseTypes))
	for i, rt := range ReleaseTypes {
		names[i] = string(rt)
	}
	return strings.Join(names, ", ")
}

// IsPreRelease reports whether the release type opens or advances a pre-release.
func (rt ReleaseType) IsPreRelease() bool {
	return rt == ReleaseTypeAlpha || rt == ReleaseTypeBeta || rt == ReleaseTypeRC
}

func (rt ReleaseType) String() string {
	return string(rt)
}
