package types

import (
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// SnapshotMarker is the literal version suffix that marks a snapshot
// publication. Snapshot binary files are published under a resolved
// timestamp-build qualifier instead of the marker.
const SnapshotMarker = "SNAPSHOT"

const snapshotSuffix = "-" + SnapshotMarker

// Coordinate identifies one resolved dependency by its Maven
// coordinates. Values are immutable after ParseCoordinate.
type Coordinate struct {
	Group          string
	Name           string
	Version        string
	SnapshotDetail string
	IsSnapshot     bool
}

// ParseCoordinate splits a colon-delimited dependency identifier into
// group, name, version and an optional snapshot detail qualifier
// (format yyyymmdd.hhmmss-n).
func ParseCoordinate(id string) (Coordinate, error) {
	parts := strings.Split(id, ":")
	if len(parts) < 3 {
		return Coordinate{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("malformed dependency identifier: " + id)
	}
	detail := ""
	if len(parts) > 3 {
		detail = parts[3]
	}
	return Coordinate{
		Group:          parts[0],
		Name:           parts[1],
		Version:        parts[2],
		SnapshotDetail: detail,
		IsSnapshot:     strings.HasSuffix(parts[2], snapshotSuffix),
	}, nil
}

// Path returns the remote repository path for this coordinate: the
// group with dots replaced by slashes, joined with name and version.
func (c Coordinate) Path() string {
	return strings.ReplaceAll(c.Group, ".", "/") + "/" + c.Name + "/" + c.Version
}

// Filename returns the remote filename for the given extension.
// Snapshot versions substitute the resolved snapshot detail for the
// SNAPSHOT marker, except in description files (pom, module) which
// are always published under the literal marker.
func (c Coordinate) Filename(ext string) string {
	version := c.Version
	if c.IsSnapshot && !isDescriptionExt(ext) {
		version = strings.ReplaceAll(version, SnapshotMarker, c.SnapshotDetail)
	}
	return c.Name + "-" + version + "." + ext
}

func isDescriptionExt(ext string) bool {
	return ext == "pom" || ext == "module"
}
