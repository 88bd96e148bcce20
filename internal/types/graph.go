package types

// Graph is the dependency-graph export produced by the host build
// tool. It carries everything the generator needs: the declared
// repositories, the fully resolved dependency sets per configuration,
// and the artifacts the build tool has already materialized in its
// local cache.
type Graph struct {
	// Repositories declared in the build file.
	Repositories []string `json:"repositories" yaml:"repositories"`
	// PluginRepositories declared in the settings pluginManagement
	// block. The plugin portal is appended separately.
	PluginRepositories []string `json:"pluginRepositories" yaml:"pluginRepositories"`
	// Buildscript holds the build tool's own classpath configurations.
	Buildscript []DependencyGroup `json:"buildscript" yaml:"buildscript"`
	// Configurations holds the project's resolvable dependency groups.
	Configurations []DependencyGroup `json:"configurations" yaml:"configurations"`
}

// DependencyGroup is one resolvable configuration: its resolved
// dependency set (direct and transitive) and the locally cached
// artifacts belonging to it.
type DependencyGroup struct {
	Name         string               `json:"name" yaml:"name"`
	Dependencies []ResolvedDependency `json:"dependencies" yaml:"dependencies"`
	Artifacts    []CachedArtifact     `json:"artifacts" yaml:"artifacts"`
}

// ResolvedDependency is one dependency identifier as selected by the
// build tool, tagged with the resolved build-variant name.
type ResolvedDependency struct {
	ID      string `json:"id" yaml:"id"`
	Variant string `json:"variant" yaml:"variant"`
}

// CachedArtifact is a file the build tool already downloaded for a
// module version, readable from the local filesystem.
type CachedArtifact struct {
	// ID is the owning module-version identifier (group:name:version).
	ID string `json:"id" yaml:"id"`
	// Name is the filename as stored in the cache.
	Name string `json:"name" yaml:"name"`
	// Path is the local filesystem location of the cached bytes.
	Path string `json:"path" yaml:"path"`
}

// ArtifactsFor returns the cached artifacts whose module-version
// identifier matches id.
func (g DependencyGroup) ArtifactsFor(id string) []CachedArtifact {
	var out []CachedArtifact
	for _, artifact := range g.Artifacts {
		if artifact.ID == id {
			out = append(out, artifact)
		}
	}
	return out
}
