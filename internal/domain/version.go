package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// VersionStyle is the textual syntax a version was written in.
type VersionStyle int

const (
	// StylePEP440 renders pre-releases as 1.2.3a1, 1.2.3b2, 1.2.3rc1.
	StylePEP440 VersionStyle = iota
	// StyleSemVer renders pre-releases as 1.2.3-alpha.1, 1.2.3-beta.2, 1.2.3-rc.1.
	StyleSemVer
)

var (
	pep440Regex     = regexp.MustCompile(`^(v?)(\d+)\.(\d+)(?:\.(\d+))?(?:(a|alpha|b|beta|c|rc|pre|preview)(\d+))?$`)
	preReleaseRegex = regexp.MustCompile(`^(alpha|beta|rc)(?:\.(\d+))?$`)
)

var pep440Labels = map[string]string{
	"a":       "alpha",
	"alpha":   "alpha",
	"b":       "beta",
	"beta":    "beta",
	"c":       "rc",
	"rc":      "rc",
	"pre":     "rc",
	"preview": "rc",
}

var shortLabels = map[string]string{
	"alpha": "a",
	"beta":  "b",
	"rc":    "rc",
}

// phaseRank orders pre-release phases; a bump may only move forward.
var phaseRank = map[string]int{
	"alpha": 1,
	"beta":  2,
	"rc":    3,
}

// Version wraps semver.Version and remembers how it was written.
type Version struct {
	*semver.Version
	style  VersionStyle
	prefix string
}

// NewVersion parses a PEP 440 style (1.2.3rc1) or SemVer style (1.2.3-rc.1) version.
// Pre-release labels other than alpha, beta and rc are rejected.
func NewVersion(s string) (*Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("invalid version: empty string")
	}
	if m := pep440Regex.FindStringSubmatch(s); m != nil {
		return newPEP440Version(m)
	}
	v, err := semver.NewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", s, err)
	}
	if pre := v.Prerelease(); pre != "" && !preReleaseRegex.MatchString(pre) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPreRelease, pre)
	}
	prefix := ""
	if strings.HasPrefix(s, "v") {
		prefix = "v"
	}
	return &Version{Version: v, style: StyleSemVer, prefix: prefix}, nil
}

func newPEP440Version(m []string) (*Version, error) {
	nums := make([]uint64, 3)
	for i, raw := range m[2:5] {
		if raw == "" {
			continue
		}
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid version component %q: %w", raw, err)
		}
		nums[i] = n
	}
	pre := ""
	if m[5] != "" {
		pre = pep440Labels[m[5]] + "." + m[6]
	}
	v := semver.New(nums[0], nums[1], nums[2], pre, "")
	return &Version{Version: v, style: StylePEP440, prefix: m[1]}, nil
}

// Style returns the syntax the version is rendered in.
func (v *Version) Style() VersionStyle {
	return v.style
}

// PreRelease returns the pre-release phase (alpha, beta, rc) and its counter.
// ok is false for final releases.
func (v *Version) PreRelease() (phase string, counter uint64, ok bool) {
	m := preReleaseRegex.FindStringSubmatch(v.Prerelease())
	if m == nil {
		return "", 0, false
	}
	if m[2] != "" {
		counter, _ = strconv.ParseUint(m[2], 10, 64)
	}
	return m[1], counter, true
}

// Next computes the version that follows v for the given release type.
func (v *Version) Next(rt ReleaseType) (*Version, error) {
	var next *semver.Version
	switch rt {
	case ReleaseTypeMicro:
		next = semver.New(v.Major(), v.Minor(), v.Patch()+1, "", "")
	case ReleaseTypeMinor:
		next = semver.New(v.Major(), v.Minor()+1, 0, "", "")
	case ReleaseTypeMajor:
		next = semver.New(v.Major()+1, 0, 0, "", "")
	case ReleaseTypeAlpha, ReleaseTypeBeta, ReleaseTypeRC:
		var err error
		next, err = v.nextPreRelease(string(rt))
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedReleaseType, string(rt))
	}
	out := &Version{Version: next, style: v.style, prefix: v.prefix}
	if !out.GreaterThan(v.Version) {
		return nil, fmt.Errorf("next version %s is not greater than %s", out, v)
	}
	return out, nil
}

func (v *Version) nextPreRelease(target string) (*semver.Version, error) {
	phase, counter, ok := v.PreRelease()
	switch {
	case !ok:
		return semver.New(v.Major(), v.Minor(), v.Patch()+1, target+".1", ""), nil
	case phase == target:
		pre := fmt.Sprintf("%s.%d", target, counter+1)
		return semver.New(v.Major(), v.Minor(), v.Patch(), pre, ""), nil
	case phaseRank[phase] < phaseRank[target]:
		return semver.New(v.Major(), v.Minor(), v.Patch(), target+".1", ""), nil
	default:
		return nil, fmt.Errorf("%w: %s to %s", ErrPreReleaseRegression, phase, target)
	}
}

// Compare compares two versions.
func (v *Version) Compare(other *Version) int {
	return v.Version.Compare(other.Version)
}

// String renders the version in its original style.
func (v *Version) String() string {
	if v.style == StyleSemVer {
		return v.prefix + v.Version.String()
	}
	base := fmt.Sprintf("%s%d.%d.%d", v.prefix, v.Major(), v.Minor(), v.Patch())
	phase, counter, ok := v.PreRelease()
	if !ok {
		return base
	}
	return fmt.Sprintf("%s%s%d", base, shortLabels[phase], counter)
}
