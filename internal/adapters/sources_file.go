package adapters

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"gradle-sources-list/internal/ports"
	"gradle-sources-list/internal/types"
)

// SourcesFileAdapter writes the sources list. The file is written to
// a temporary sibling and renamed into place, so a failed run never
// leaves a truncated or invalid document at the configured path.
type SourcesFileAdapter struct{}

func NewSourcesFileAdapter() SourcesFileAdapter {
	return SourcesFileAdapter{}
}

func (a SourcesFileAdapter) Write(path string, entries []types.ManifestEntry) error {
	data, err := serializeEntries(entries)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create output directory").
			WithCause(err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*")
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create temporary output file").
			WithCause(err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write output file").
			WithCause(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to close output file").
			WithCause(err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to move output file into place").
			WithCause(err)
	}
	return nil
}

// serializeEntries renders the pretty-printed JSON array. Callers
// pass entries already sorted by key; an empty set keeps the
// conventional open-bracket/close-bracket framing.
func serializeEntries(entries []types.ManifestEntry) ([]byte, error) {
	if len(entries) == 0 {
		return []byte("[\n]\n"), nil
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to serialize sources list").
			WithCause(err)
	}
	return append(data, '\n'), nil
}

var _ ports.SourcesWriterPort = SourcesFileAdapter{}
