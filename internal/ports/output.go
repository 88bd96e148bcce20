package ports

import "gradle-sources-list/internal/types"

// SourcesWriterPort serializes the final manifest. Implementations
// must never leave a partially written file behind on failure.
type SourcesWriterPort interface {
	Write(path string, entries []types.ManifestEntry) error
}
