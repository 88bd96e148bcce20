package ports

import "gradle-sources-list/internal/types"

// GraphPort loads the dependency-graph export produced by the host
// build tool.
type GraphPort interface {
	LoadGraph(path string) (types.Graph, error)
}
