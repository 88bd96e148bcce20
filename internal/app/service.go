package app

import (
	"gradle-sources-list/internal/adapters"
	"gradle-sources-list/internal/ports"
)

// Service wires the external collaborators behind the resolution
// engine. The fetcher is constructed per run inside Generate so its
// memoization tables never leak between runs.
type Service struct {
	Graph      ports.GraphPort
	Sources    ports.SourcesWriterPort
	NewFetcher func() ports.FetcherPort
}

func NewService() Service {
	return Service{
		Graph:   adapters.NewGraphFileAdapter(),
		Sources: adapters.NewSourcesFileAdapter(),
		NewFetcher: func() ports.FetcherPort {
			return adapters.NewHTTPFetcher()
		},
	}
}
