package types

// ManifestEntry is one download instruction in the emitted sources
// list. Entries are keyed by dest + dest-filename; the manifest store
// treats repeated registrations of the same key as an upsert.
type ManifestEntry struct {
	Type         string `json:"type"`
	URL          string `json:"url"`
	SHA512       string `json:"sha512"`
	Dest         string `json:"dest"`
	DestFilename string `json:"dest-filename"`
}

// Key returns the deduplication and sort key for the entry.
func (e ManifestEntry) Key() string {
	return e.Dest + "/" + e.DestFilename
}
