package app

// GenerateRequest carries the configuration surface for one run.
type GenerateRequest struct {
	// GraphPath locates the dependency-graph export from the build tool.
	GraphPath string
	// OutputFile is where the sources list is written. Required.
	OutputFile string
	// DownloadDirectory is the destination prefix for the dest field.
	// Defaults to "offline-repository"; a trailing slash is appended
	// when missing.
	DownloadDirectory string
	// Include restricts which dependency groups participate. Empty
	// means all groups.
	Include []string
	// Exclude removes groups after inclusion.
	Exclude []string
	// Workers bounds the resolution pool. Zero selects the default.
	Workers int
}

// GenerateResult reports what a run produced.
type GenerateResult struct {
	OutputFile string
	Entries    int
	Resolved   int
	Skipped    int
}
