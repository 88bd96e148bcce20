package core

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"gradle-sources-list/internal/ports"
	"gradle-sources-list/internal/types"
)

// stubFetcher serves a fixed URL-to-content table and records every
// probe and fetch, so tests can assert on network traffic without a
// server.
type stubFetcher struct {
	mu      sync.Mutex
	files   map[string][]byte
	probed  map[string]int
	fetched map[string]int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		files:   map[string][]byte{},
		probed:  map[string]int{},
		fetched: map[string]int{},
	}
}

func (f *stubFetcher) add(url string, content string) {
	f.files[url] = []byte(content)
}

func (f *stubFetcher) Probe(_ context.Context, url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probed[url]++
	_, ok := f.files[url]
	return ok
}

func (f *stubFetcher) Fetch(_ context.Context, url string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched[url]++
	content, ok := f.files[url]
	return content, ok
}

func (f *stubFetcher) fetchCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetched[url]
}

var _ ports.FetcherPort = (*stubFetcher)(nil)

func sha512Hex(content string) string {
	sum := sha512.Sum512([]byte(content))
	return hex.EncodeToString(sum[:])
}

func writeCachedArtifact(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func mustCoordinate(t *testing.T, id string) types.Coordinate {
	t.Helper()
	dep, err := types.ParseCoordinate(id)
	require.NoError(t, err)
	return dep
}

func newTestResolver(fetcher ports.FetcherPort) *ArtifactResolver {
	return NewArtifactResolver("offline-repository/", fetcher, NewDigestEngine())
}

func TestResolveDependencyModuleWithFiles(t *testing.T) {
	const repo = "https://repo.example/"
	moduleDoc := `{"variants":[{"name":"runtimeElements","attributes":{"org.gradle.category":"library"},"files":[{"name":"lib-1.0.jar","url":"lib-1.0.jar"}]}]}`

	fetcher := newStubFetcher()
	fetcher.add(repo+"com/example/lib/1.0/lib-1.0.module", moduleDoc)
	fetcher.add(repo+"com/example/lib/1.0/lib-1.0.jar", "remote jar bytes")

	jarPath := writeCachedArtifact(t, "lib-1.0.jar", "cached jar bytes")
	artifacts := []types.CachedArtifact{{ID: "com.example:lib:1.0", Name: "lib-1.0.jar", Path: jarPath}}

	resolver := newTestResolver(fetcher)
	dep := mustCoordinate(t, "com.example:lib:1.0")
	require.NoError(t, resolver.ResolveDependency(t.Context(), dep, "runtimeElements", []string{repo}, artifacts))

	expect := []types.ManifestEntry{
		{
			Type:         "file",
			URL:          repo + "com/example/lib/1.0/lib-1.0.jar",
			SHA512:       sha512Hex("cached jar bytes"),
			Dest:         "offline-repository/com/example/lib/1.0",
			DestFilename: "lib-1.0.jar",
		},
		{
			Type:         "file",
			URL:          repo + "com/example/lib/1.0/lib-1.0.module",
			SHA512:       sha512Hex(moduleDoc),
			Dest:         "offline-repository/com/example/lib/1.0",
			DestFilename: "lib-1.0.module",
		},
	}
	if diff := cmp.Diff(expect, resolver.Entries()); diff != "" {
		t.Fatalf("unexpected entries (-want +got):\n%s", diff)
	}
}

func TestResolveDependencyPomAncestorChain(t *testing.T) {
	const repo = "https://repo.example/"

	fetcher := newStubFetcher()
	fetcher.add(repo+"com/example/lib/1.0/lib-1.0.pom", `<project>
		<parent>
			<groupId>com.example</groupId>
			<artifactId>parent</artifactId>
			<version>5</version>
		</parent>
	</project>`)
	fetcher.add(repo+"com/example/parent/5/parent-5.pom", `<project>
		<parent>
			<groupId>com.example</groupId>
			<artifactId>root</artifactId>
			<version>7</version>
		</parent>
	</project>`)
	fetcher.add(repo+"com/example/root/7/root-7.pom", `<project/>`)

	resolver := newTestResolver(fetcher)
	dep := mustCoordinate(t, "com.example:lib:1.0")
	require.NoError(t, resolver.ResolveDependency(t.Context(), dep, "runtime", []string{repo}, nil))

	entries := resolver.Entries()
	var filenames []string
	for _, entry := range entries {
		filenames = append(filenames, entry.DestFilename)
	}
	require.Equal(t, []string{"lib-1.0.pom", "parent-5.pom", "root-7.pom"}, filenames)
}

func TestResolveDependencyStopsAtFirstEvidence(t *testing.T) {
	const first = "https://first.example/"
	const second = "https://second.example/"

	fetcher := newStubFetcher()
	fetcher.add(first+"com/example/lib/1.0/lib-1.0.pom", `<project/>`)
	fetcher.add(second+"com/example/lib/1.0/lib-1.0.pom", `<project/>`)
	fetcher.add(second+"com/example/lib/1.0/lib-1.0.module", `{"variants":[]}`)

	resolver := newTestResolver(fetcher)
	dep := mustCoordinate(t, "com.example:lib:1.0")
	require.NoError(t, resolver.ResolveDependency(t.Context(), dep, "runtime", []string{first, second}, nil))

	entries := resolver.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, first+"com/example/lib/1.0/lib-1.0.pom", entries[0].URL)
	require.Zero(t, fetcher.fetchCount(second+"com/example/lib/1.0/lib-1.0.pom"))
	require.Zero(t, fetcher.fetchCount(second+"com/example/lib/1.0/lib-1.0.module"))
}

func TestResolveDependencyFallsThroughEmptyRepository(t *testing.T) {
	const empty = "https://empty.example/"
	const stocked = "https://stocked.example/"

	fetcher := newStubFetcher()
	fetcher.add(stocked+"com/example/lib/1.0/lib-1.0.pom", `<project/>`)

	resolver := newTestResolver(fetcher)
	dep := mustCoordinate(t, "com.example:lib:1.0")
	require.NoError(t, resolver.ResolveDependency(t.Context(), dep, "runtime", []string{empty, stocked}, nil))

	entries := resolver.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, stocked+"com/example/lib/1.0/lib-1.0.pom", entries[0].URL)
}

func TestResolveDependencyMetadataRedirect(t *testing.T) {
	const repo = "https://repo.example/"
	redirecting := `{"variants":[{"name":"runtimeElements","available-at":{"url":"other/lib-other-1.0.module"}}]}`
	target := `{"variants":[{"name":"runtimeElements","files":[{"name":"lib-other-1.0.jar","url":"lib-other-1.0.jar"}]}]}`

	fetcher := newStubFetcher()
	fetcher.add(repo+"com/example/lib/1.0/lib-1.0.module", redirecting)
	fetcher.add(repo+"com/example/lib/1.0/other/lib-other-1.0.module", target)
	fetcher.add(repo+"com/example/lib/1.0/lib-other-1.0.jar", "redirected jar")

	jarPath := writeCachedArtifact(t, "lib-other-1.0.jar", "redirected jar")
	artifacts := []types.CachedArtifact{{ID: "com.example:lib:1.0", Name: "lib-other-1.0.jar", Path: jarPath}}

	resolver := newTestResolver(fetcher)
	dep := mustCoordinate(t, "com.example:lib:1.0")
	require.NoError(t, resolver.ResolveDependency(t.Context(), dep, "runtimeElements", []string{repo}, artifacts))

	byKey := map[string]types.ManifestEntry{}
	for _, entry := range resolver.Entries() {
		byKey[entry.Key()] = entry
	}
	require.Contains(t, byKey, "offline-repository/com/example/lib/1.0/lib-1.0.module")
	// The redirect target keeps its embedded directory in the dest.
	require.Contains(t, byKey, "offline-repository/com/example/lib/1.0/other/lib-other-1.0.module")
	require.Contains(t, byKey, "offline-repository/com/example/lib/1.0/lib-other-1.0.jar")
	require.Len(t, byKey, 3)
}

func TestResolveDependencyBrokenRedirectFallsThrough(t *testing.T) {
	const first = "https://first.example/"
	const second = "https://second.example/"
	redirecting := `{"variants":[{"name":"runtimeElements","available-at":{"url":"other/lib-other-1.0.module"}}]}`

	// The first repository holds a metadata document whose redirect
	// target is gone and no pom; the dependency must still resolve
	// from the second repository.
	fetcher := newStubFetcher()
	fetcher.add(first+"com/example/lib/1.0/lib-1.0.module", redirecting)
	fetcher.add(second+"com/example/lib/1.0/lib-1.0.pom", `<project/>`)

	resolver := newTestResolver(fetcher)
	dep := mustCoordinate(t, "com.example:lib:1.0")
	require.NoError(t, resolver.ResolveDependency(t.Context(), dep, "runtimeElements", []string{first, second}, nil))

	byKey := map[string]types.ManifestEntry{}
	for _, entry := range resolver.Entries() {
		byKey[entry.Key()] = entry
	}
	require.Contains(t, byKey, "offline-repository/com/example/lib/1.0/lib-1.0.pom")
	require.Equal(t, second+"com/example/lib/1.0/lib-1.0.pom", byKey["offline-repository/com/example/lib/1.0/lib-1.0.pom"].URL)
}

func TestTryResolveSnapshotAlias(t *testing.T) {
	const repo = "https://repo.example/"
	content := "snapshot module doc"

	fetcher := newStubFetcher()
	fetcher.add(repo+"com/example/lib/2.0-SNAPSHOT/lib-2.0-20240115.101530-3.jar", content)

	resolver := newTestResolver(fetcher)
	dep := mustCoordinate(t, "com.example:lib:2.0-SNAPSHOT:20240115.101530-3")

	_, ok, err := resolver.TryResolve(t.Context(), dep, repo, dep.Filename("jar"))
	require.NoError(t, err)
	require.True(t, ok)

	// The timestamped file is registered twice: under its resolved
	// name and under the literal marker alias, pointing at the same
	// bytes.
	entries := resolver.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "lib-2.0-20240115.101530-3.jar", entries[0].DestFilename)
	require.Equal(t, "lib-2.0-SNAPSHOT.jar", entries[1].DestFilename)
	for _, entry := range entries {
		require.Equal(t, repo+"com/example/lib/2.0-SNAPSHOT/lib-2.0-20240115.101530-3.jar", entry.URL)
		require.Equal(t, sha512Hex(content), entry.SHA512)
	}
}

func TestTryResolveSnapshotDescriptionSingleEntry(t *testing.T) {
	const repo = "https://repo.example/"

	fetcher := newStubFetcher()
	fetcher.add(repo+"com/example/lib/2.0-SNAPSHOT/lib-2.0-SNAPSHOT.pom", `<project/>`)

	resolver := newTestResolver(fetcher)
	dep := mustCoordinate(t, "com.example:lib:2.0-SNAPSHOT:20240115.101530-3")

	_, ok, err := resolver.TryResolve(t.Context(), dep, repo, dep.Filename("pom"))
	require.NoError(t, err)
	require.True(t, ok)

	// Description files keep the literal marker name, so the alias
	// collapses into the same entry.
	require.Len(t, resolver.Entries(), 1)
}

func TestResolveCachedProbeLadder(t *testing.T) {
	const repo = "https://repo.example/"

	// The remote only publishes the timestamped snapshot name; the
	// cache holds the literal marker name.
	fetcher := newStubFetcher()
	fetcher.add(repo+"com/example/lib/2.0-SNAPSHOT/lib-2.0-20240115.101530-3.jar", "snapshot jar")

	jarPath := writeCachedArtifact(t, "lib-2.0-SNAPSHOT.jar", "snapshot jar")
	artifacts := []types.CachedArtifact{{ID: "com.example:lib:2.0-SNAPSHOT", Name: "lib-2.0-SNAPSHOT.jar", Path: jarPath}}

	resolver := newTestResolver(fetcher)
	dep := mustCoordinate(t, "com.example:lib:2.0-SNAPSHOT:20240115.101530-3")

	require.NoError(t, resolver.ResolveCached(t.Context(), artifacts, dep, repo, "lib-2.0-SNAPSHOT.jar", true, ""))

	entries := resolver.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, repo+"com/example/lib/2.0-SNAPSHOT/lib-2.0-20240115.101530-3.jar", entries[0].URL)
	// Offline builds address the artifact under the name the cache used.
	require.Equal(t, "lib-2.0-SNAPSHOT.jar", entries[0].DestFilename)
	require.Equal(t, sha512Hex("snapshot jar"), entries[0].SHA512)
}

func TestResolveCachedNameFilter(t *testing.T) {
	const repo = "https://repo.example/"

	fetcher := newStubFetcher()
	fetcher.add(repo+"com/example/lib/1.0/lib-1.0.jar", "jar")
	fetcher.add(repo+"com/example/lib/1.0/lib-1.0-sources.jar", "sources")

	artifacts := []types.CachedArtifact{
		{ID: "com.example:lib:1.0", Name: "lib-1.0.jar", Path: writeCachedArtifact(t, "lib-1.0.jar", "jar")},
		{ID: "com.example:lib:1.0", Name: "lib-1.0-sources.jar", Path: writeCachedArtifact(t, "lib-1.0-sources.jar", "sources")},
	}

	resolver := newTestResolver(fetcher)
	dep := mustCoordinate(t, "com.example:lib:1.0")

	// With checkName the declared filename selects a single artifact.
	require.NoError(t, resolver.ResolveCached(t.Context(), artifacts, dep, repo, "lib-1.0.jar", true, ""))
	require.Len(t, resolver.Entries(), 1)
	require.Equal(t, "lib-1.0.jar", resolver.Entries()[0].DestFilename)

	// Without checkName every cached artifact is registered.
	unfiltered := newTestResolver(fetcher)
	require.NoError(t, unfiltered.ResolveCached(t.Context(), artifacts, dep, repo, "lib-1.0.jar", false, ""))
	require.Len(t, unfiltered.Entries(), 2)
}

func TestResolveDependencyPluginMarker(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.add(types.PluginPortal+"gradle/plugin/com/acme/greeter/1.4/greeter-1.4.pom", `<project/>`)
	fetcher.add(types.PluginPortal+"com/acme/com.acme.gradle.plugin/1.4/com.acme.gradle.plugin-1.4.pom", "<project/>")

	resolver := newTestResolver(fetcher)
	dep := mustCoordinate(t, "gradle.plugin.com.acme:greeter:1.4")
	require.NoError(t, resolver.ResolveDependency(t.Context(), dep, "runtime", []string{types.PluginPortal}, nil))

	byKey := map[string]types.ManifestEntry{}
	for _, entry := range resolver.Entries() {
		byKey[entry.Key()] = entry
	}
	require.Contains(t, byKey, "offline-repository/gradle/plugin/com/acme/greeter/1.4/greeter-1.4.pom")
	require.Contains(t, byKey, "offline-repository/com/acme/com.acme.gradle.plugin/1.4/com.acme.gradle.plugin-1.4.pom")
}

func TestResolveDependencyNoMarkerOutsidePortal(t *testing.T) {
	const repo = "https://mirror.example/"

	fetcher := newStubFetcher()
	fetcher.add(repo+"gradle/plugin/com/acme/greeter/1.4/greeter-1.4.pom", `<project/>`)

	resolver := newTestResolver(fetcher)
	dep := mustCoordinate(t, "gradle.plugin.com.acme:greeter:1.4")
	require.NoError(t, resolver.ResolveDependency(t.Context(), dep, "runtime", []string{repo}, nil))

	require.Len(t, resolver.Entries(), 1)
}

func TestGenerateEntryUpsert(t *testing.T) {
	resolver := newTestResolver(newStubFetcher())

	resolver.GenerateEntry("https://a.example/x", "aaa", "com/example/lib/1.0", "lib-1.0.jar")
	resolver.GenerateEntry("https://b.example/x", "bbb", "com/example/lib/1.0", "lib-1.0.jar")
	resolver.GenerateEntry("https://a.example/y", "ccc", "com/example/alpha/1.0", "alpha-1.0.jar")

	entries := resolver.Entries()
	require.Len(t, entries, 2)
	// Sorted ascending by dest path plus filename.
	require.Equal(t, "alpha-1.0.jar", entries[0].DestFilename)
	// Last registration for a key wins.
	require.Equal(t, "https://b.example/x", entries[1].URL)
	require.Equal(t, "bbb", entries[1].SHA512)
}
