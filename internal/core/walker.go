package core

import (
	"context"
	"strings"
	"sync"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"gradle-sources-list/internal/types"
)

// Units of work are I/O bound, so the pool is sized well above the
// core count.
const defaultWalkerWorkers = 100

// Local project dependencies carry this display-name prefix and have
// no remote artifacts.
const localProjectPrefix = "project "

// Walker iterates the full dependency set and drives per-dependency
// resolution on a bounded worker pool. Each unique dependency
// identifier is resolved exactly once per run, no matter how many
// groups declare it.
type Walker struct {
	Resolver *ArtifactResolver
	Workers  int
	Include  []string
	Exclude  []string

	mu   sync.Mutex
	seen map[string]struct{}
}

// WalkResult aggregates run statistics.
type WalkResult struct {
	Resolved int
	Skipped  int
}

func NewWalker(resolver *ArtifactResolver) *Walker {
	return &Walker{
		Resolver: resolver,
		Workers:  defaultWalkerWorkers,
		seen:     map[string]struct{}{},
	}
}

// Walk resolves every dependency in the graph in two passes: the
// build tool's own buildscript dependencies against the plugin
// repositories, then the project's dependency groups against the
// project repositories merged with the plugin repositories (a project
// dependency may itself be a plugin artifact). It blocks until every
// submitted unit completes; the first failure aborts the walk before
// any serialization can happen.
func (w *Walker) Walk(ctx context.Context, graph types.Graph) (WalkResult, error) {
	if w.Resolver == nil {
		return WalkResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("walker requires a resolver")
	}
	for _, group := range append(append([]types.DependencyGroup{}, graph.Buildscript...), graph.Configurations...) {
		assert.NotEmpty(ctx, group.Name, "dependency group name must be set")
	}

	pluginRepos := types.NewRepositoryList(graph.PluginRepositories, []string{types.PluginPortal})
	projectRepos := types.NewRepositoryList(graph.Repositories, graph.PluginRepositories, []string{types.PluginPortal})

	workers := w.Workers
	if workers <= 0 {
		workers = defaultWalkerWorkers
	}

	result := WalkResult{}
	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(workers)

	submit := func(group types.DependencyGroup, repositories []string) {
		if !w.groupSelected(group.Name) {
			log.Ctx(ctx).Debug().Str("group", group.Name).Msg("dependency group filtered out")
			return
		}
		for _, dependency := range group.Dependencies {
			if strings.HasPrefix(dependency.ID, localProjectPrefix) {
				continue
			}
			if !w.markSeen(dependency.ID) {
				continue
			}
			dep, err := types.ParseCoordinate(dependency.ID)
			if err != nil {
				// Reported, not fatal: one malformed identifier must
				// not abort an otherwise valid manifest.
				log.Ctx(ctx).Error().Err(err).Str("id", dependency.ID).Msg("skipping malformed dependency identifier")
				w.mu.Lock()
				result.Skipped++
				w.mu.Unlock()
				continue
			}
			artifacts := group.ArtifactsFor(dep.Group + ":" + dep.Name + ":" + dep.Version)
			grp.Go(func() error {
				log.Ctx(ctx).Debug().Str("id", dependency.ID).Str("variant", dependency.Variant).Msg("resolving dependency")
				if err := w.Resolver.ResolveDependency(ctx, dep, dependency.Variant, repositories, artifacts); err != nil {
					return err
				}
				w.mu.Lock()
				result.Resolved++
				w.mu.Unlock()
				return nil
			})
		}
	}

	for _, group := range graph.Buildscript {
		submit(group, pluginRepos)
	}
	for _, group := range graph.Configurations {
		submit(group, projectRepos)
	}

	if err := grp.Wait(); err != nil {
		return WalkResult{}, err
	}
	log.Ctx(ctx).Debug().Int("resolved", result.Resolved).Int("skipped", result.Skipped).Msg("dependency walk completed")
	return result, nil
}

// groupSelected applies the include/exclude filters. Inclusion
// defaults to all groups; exclusion overrides inclusion.
func (w *Walker) groupSelected(name string) bool {
	for _, excluded := range w.Exclude {
		if excluded == name {
			return false
		}
	}
	if len(w.Include) == 0 {
		return true
	}
	for _, included := range w.Include {
		if included == name {
			return true
		}
	}
	return false
}

func (w *Walker) markSeen(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.seen[id]; ok {
		return false
	}
	w.seen[id] = struct{}{}
	return true
}
