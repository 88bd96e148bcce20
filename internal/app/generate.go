package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"gradle-sources-list/internal/core"
	"gradle-sources-list/internal/shared"
)

const defaultDownloadDirectory = "offline-repository"

// Generate runs one full manifest generation: load the graph export,
// resolve every dependency, and write the sorted sources list. The
// output file is only touched after every unit of work has completed
// successfully.
func (s Service) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	if s.Graph == nil || s.Sources == nil || s.NewFetcher == nil {
		return GenerateResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("service requires graph, sources and fetcher ports")
	}
	outputFile := strings.TrimSpace(req.OutputFile)
	if outputFile == "" {
		return GenerateResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("output file path is required")
	}
	graphPath := strings.TrimSpace(req.GraphPath)
	if graphPath == "" {
		return GenerateResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("graph export path is required")
	}

	graph, err := s.Graph.LoadGraph(graphPath)
	if err != nil {
		return GenerateResult{}, err
	}

	resolver := core.NewArtifactResolver(downloadDirectory(req.DownloadDirectory), s.NewFetcher(), core.NewDigestEngine())
	walker := core.NewWalker(resolver)
	walker.Include = req.Include
	walker.Exclude = req.Exclude
	if req.Workers > 0 {
		walker.Workers = req.Workers
	}

	walked, err := walker.Walk(ctx, graph)
	if err != nil {
		return GenerateResult{}, err
	}

	entries := resolver.Entries()
	if err := s.Sources.Write(outputFile, entries); err != nil {
		return GenerateResult{}, err
	}
	log.Ctx(ctx).Info().
		Int("entries", len(entries)).
		Int("resolved", walked.Resolved).
		Int("skipped", walked.Skipped).
		Str("output", outputFile).
		Msg("sources list written")
	return GenerateResult{
		OutputFile: outputFile,
		Entries:    len(entries),
		Resolved:   walked.Resolved,
		Skipped:    walked.Skipped,
	}, nil
}

// downloadDirectory fills in the default and appends the trailing
// slash the dest prefix requires.
func downloadDirectory(value string) string {
	dest := strings.TrimSpace(value)
	if dest == "" {
		dest = defaultDownloadDirectory
	}
	return shared.EnsureTrailingSlash(dest)
}
