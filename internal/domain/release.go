package domain

// Release holds everything known about the release being prepared.
type Release struct {
	Type        ReleaseType
	Current     *Version
	Next        *Version
	BranchName  string
	VersionFile string
}

// CommitMessage returns the message of the release commit.
func (r *Release) CommitMessage() string {
	return "Preparing release for the version: " + r.Next.String()
}
