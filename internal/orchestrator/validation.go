package orchestrator

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// versionRegex matches PEP 440 (1.2.3rc1) and SemVer (1.2.3-rc.1) release versions
	versionRegex = regexp.MustCompile(`^v?\d+\.\d+\.\d+((a|b|rc)\d+|-(alpha|beta|rc)(\.\d+)?)?$`)
	// branchNameRegex matches valid git branch names
	branchNameRegex = regexp.MustCompile(`^[a-zA-Z0-9._/-]+$`)
)

// ValidateVersion validates a release version string.
func ValidateVersion(version string) error {
	if version == "" {
		return fmt.Errorf("version cannot be empty")
	}
	if !versionRegex.MatchString(version) {
		return fmt.Errorf("invalid version format: %s (expected: 1.2.3, 1.2.3rc1 or 1.2.3-rc.1)", version)
	}
	return nil
}

// ValidateBranchName validates a git branch name.
func ValidateBranchName(branch string) error {
	if branch == "" {
		return fmt.Errorf("branch name cannot be empty")
	}
	if len(branch) > 255 {
		return fmt.Errorf("branch name too long: %d characters (max: 255)", len(branch))
	}
	if strings.HasPrefix(branch, "/") || strings.HasSuffix(branch, "/") {
		return fmt.Errorf("branch name cannot start or end with slash: %s", branch)
	}
	if strings.Contains(branch, "..") {
		return fmt.Errorf("branch name cannot contain consecutive dots: %s", branch)
	}
	if strings.HasSuffix(branch, ".lock") {
		return fmt.Errorf("branch name cannot end with .lock: %s", branch)
	}
	if !branchNameRegex.MatchString(branch) {
		return fmt.Errorf("invalid branch name format: %s", branch)
	}
	return nil
}
