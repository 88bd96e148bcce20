package adapters

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"gradle-sources-list/internal/ports"
	"gradle-sources-list/internal/types"
)

// GraphFileAdapter reads the dependency-graph export written by the
// build-tool side. Exports are JSON; YAML is accepted as well for
// hand-written fixtures.
type GraphFileAdapter struct{}

func NewGraphFileAdapter() GraphFileAdapter {
	return GraphFileAdapter{}
}

func (a GraphFileAdapter) LoadGraph(path string) (types.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Graph{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("graph export file not found").
			WithCause(err)
	}
	var graph types.Graph
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		if err := yaml.Unmarshal(data, &graph); err != nil {
			return types.Graph{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to parse graph export yaml").
				WithCause(err)
		}
		return graph, nil
	}
	if err := json.Unmarshal(data, &graph); err != nil {
		return types.Graph{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse graph export json").
			WithCause(err)
	}
	return graph, nil
}

var _ ports.GraphPort = GraphFileAdapter{}
