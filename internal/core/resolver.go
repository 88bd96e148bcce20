package core

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"gradle-sources-list/internal/ports"
	"gradle-sources-list/internal/types"
)

// Group prefix that marks a build-tool plugin published through the
// plugin portal, and the suffix of its synthetic marker artifact.
const (
	pluginGroupPrefix  = "gradle.plugin."
	pluginMarkerSuffix = ".gradle.plugin"
)

const binaryExtension = "jar"

// ArtifactResolver discovers the remote location of every file a
// dependency needs for an offline build and collects the results in a
// de-duplicated manifest. It is safe for use by concurrent workers;
// the manifest store accepts concurrent idempotent upserts.
type ArtifactResolver struct {
	dest    string
	fetcher ports.FetcherPort
	digests *DigestEngine
	poms    *PomHandler

	mu      sync.Mutex
	entries map[string]types.ManifestEntry
}

// NewArtifactResolver creates a resolver scoped to one run. dest is
// the destination-directory prefix for emitted entries and must end
// with a slash.
func NewArtifactResolver(dest string, fetcher ports.FetcherPort, digests *DigestEngine) *ArtifactResolver {
	r := &ArtifactResolver{
		dest:    dest,
		fetcher: fetcher,
		digests: digests,
		entries: map[string]types.ManifestEntry{},
	}
	r.poms = newPomHandler(r)
	return r
}

// ResolveDependency locates the files for one dependency, trying each
// candidate repository in declared order. The loop stops at the first
// repository that yields either a usable module-metadata document or
// a description document; any evidence of the dependency's existence
// satisfies it and the remaining repositories are skipped.
//
// Known limitation, preserved for output compatibility: when one
// repository holds only part of the files (say the metadata but not
// the binary), the remainder is not retried against later
// repositories.
func (r *ArtifactResolver) ResolveDependency(ctx context.Context, dep types.Coordinate, variant string, repositories []string, artifacts []types.CachedArtifact) error {
	for _, repository := range repositories {
		moduleBytes, moduleOK, err := r.TryResolve(ctx, dep, repository, dep.Filename("module"))
		if err != nil {
			return err
		}

		if moduleOK {
			// A redirecting metadata document whose target is missing
			// counts as no metadata for the break decision below.
			moduleOK, err = r.resolveFromMetadata(ctx, dep, variant, repository, moduleBytes, artifacts)
			if err != nil {
				return err
			}
		} else {
			// No metadata document at this repository; look for the
			// default binary in the local cache.
			if err := r.ResolveCached(ctx, artifacts, dep, repository, dep.Filename(binaryExtension), false, ""); err != nil {
				return err
			}
		}

		pomBytes, pomOK, err := r.TryResolve(ctx, dep, repository, dep.Filename("pom"))
		if err != nil {
			return err
		}
		if pomOK {
			if err := r.poms.AddAncestors(ctx, pomBytes, repository); err != nil {
				return err
			}
		}

		if repository == types.PluginPortal && strings.HasPrefix(dep.Group, pluginGroupPrefix) {
			if err := r.addPluginMarker(ctx, dep); err != nil {
				return err
			}
		}

		if moduleOK || pomOK {
			break
		}
	}
	return nil
}

// resolveFromMetadata registers the files a metadata document
// declares. The returned bool reports whether the repository still
// counts as holding metadata: a redirect whose target fails to fetch
// returns false, so the repository loop falls through to the next
// candidate.
func (r *ArtifactResolver) resolveFromMetadata(ctx context.Context, dep types.Coordinate, variant string, repository string, moduleBytes []byte, artifacts []types.CachedArtifact) (bool, error) {
	result, err := ParseModuleMetadata(moduleBytes, variant)
	if err != nil {
		// A broken metadata document is treated like one that
		// declares no files: the local cache still knows the binary.
		log.Ctx(ctx).Warn().Err(err).Str("dependency", dep.Path()).Msg("unparsable module metadata")
		result = MetadataResult{Kind: MetadataNoFiles}
	}

	if result.Kind == MetadataRedirect {
		// Re-fetch the document from the redirect target, still
		// within the same repository context, and parse once more.
		redirected, ok, err := r.TryResolve(ctx, dep, repository, result.RedirectURL)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		result, err = ParseModuleMetadata(redirected, variant)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("dependency", dep.Path()).Msg("unparsable redirected module metadata")
			result = MetadataResult{Kind: MetadataNoFiles}
		}
		if result.Kind == MetadataRedirect {
			return true, nil
		}
	}

	if result.Kind == MetadataNoFiles {
		return true, r.ResolveCached(ctx, artifacts, dep, repository, dep.Filename(binaryExtension), false, "")
	}
	for _, file := range result.Files {
		if err := r.ResolveCached(ctx, artifacts, dep, repository, file.URL, true, file.Name); err != nil {
			return true, err
		}
	}
	return true, nil
}

// TryResolve downloads repository + path + filename, digests the
// bytes and registers a manifest entry. A filename carrying an
// embedded path contributes that path to the destination directory.
// Snapshot coordinates additionally register an alias entry under the
// literal SNAPSHOT filename, so offline builds can address either
// name. Returns the downloaded contents for callers that parse them.
func (r *ArtifactResolver) TryResolve(ctx context.Context, dep types.Coordinate, repository string, filename string) ([]byte, bool, error) {
	url := repository + dep.Path() + "/" + filename
	contents, ok := r.fetcher.Fetch(ctx, url)
	if !ok {
		return nil, false, nil
	}

	sha512, err := r.digests.DigestBytes(ctx, contents)
	if err != nil {
		return nil, false, err
	}

	path := dep.Path()
	destFilename := filename
	if idx := strings.LastIndex(filename, "/"); idx >= 0 {
		dir := filename[:idx]
		if !strings.HasPrefix(filename, "/") {
			dir = "/" + dir
		}
		path += dir
		destFilename = filename[idx+1:]
	}

	r.GenerateEntry(url, sha512, path, destFilename)

	if dep.IsSnapshot {
		ext := destFilename[strings.LastIndex(destFilename, ".")+1:]
		alias := dep.Name + "-" + dep.Version + "." + ext
		r.GenerateEntry(url, sha512, path, alias)
	}
	return contents, true, nil
}

// ResolveCached registers a remote file whose bytes the build tool
// has already materialized locally, probing for its URL without
// downloading. The probe ladder tries the locally cached name, then
// the requested name, then the requested name with the snapshot
// detail substituted.
func (r *ArtifactResolver) ResolveCached(ctx context.Context, artifacts []types.CachedArtifact, dep types.Coordinate, repository string, filename string, checkName bool, altName string) error {
	for _, artifact := range artifacts {
		if checkName && artifact.Name != filename && artifact.Name != altName {
			continue
		}

		destFilename := artifact.Name
		if checkName {
			destFilename = filename
		}
		if r.hasEntry(dep.Path() + "/" + destFilename) {
			continue
		}

		base := repository + dep.Path() + "/"
		url := base + artifact.Name
		valid := r.fetcher.Probe(ctx, url)
		if !valid && artifact.Name != filename {
			url = base + filename
			valid = r.fetcher.Probe(ctx, url)
		}
		if !valid && strings.Contains(filename, types.SnapshotMarker) {
			url = base + strings.ReplaceAll(filename, types.SnapshotMarker, dep.SnapshotDetail)
			valid = r.fetcher.Probe(ctx, url)
		}
		if !valid {
			continue
		}

		sha512, err := r.digestLocal(ctx, artifact.Path)
		if err != nil {
			return err
		}
		r.GenerateEntry(url, sha512, dep.Path(), destFilename)
	}
	return nil
}

func (r *ArtifactResolver) digestLocal(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("failed to open cached artifact").
			WithCause(err)
	}
	defer file.Close()
	return r.digests.Digest(ctx, file)
}

func (r *ArtifactResolver) addPluginMarker(ctx context.Context, dep types.Coordinate) error {
	group := strings.TrimPrefix(dep.Group, pluginGroupPrefix)
	marker := types.Coordinate{
		Group:          group,
		Name:           group + pluginMarkerSuffix,
		Version:        dep.Version,
		SnapshotDetail: dep.SnapshotDetail,
		IsSnapshot:     dep.IsSnapshot,
	}
	_, _, err := r.TryResolve(ctx, marker, types.PluginPortal, marker.Filename("pom"))
	return err
}

// GenerateEntry upserts a manifest entry keyed by path and filename.
// The last write for a key wins; concurrent writers are safe.
func (r *ArtifactResolver) GenerateEntry(url string, sha512 string, path string, destFilename string) {
	entry := types.ManifestEntry{
		Type:         "file",
		URL:          url,
		SHA512:       sha512,
		Dest:         r.dest + path,
		DestFilename: destFilename,
	}
	r.mu.Lock()
	r.entries[path+"/"+destFilename] = entry
	r.mu.Unlock()
}

func (r *ArtifactResolver) hasEntry(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[key]
	return ok
}

// Entries returns all registered manifest entries sorted by their
// key in ascending lexical order, making serialization byte-for-byte
// reproducible regardless of worker completion order.
func (r *ArtifactResolver) Entries() []types.ManifestEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.entries))
	for key := range r.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	entries := make([]types.ManifestEntry, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, r.entries[key])
	}
	return entries
}
