package types

import (
	"strings"

	"gradle-sources-list/internal/shared"
)

// PluginPortal is the default plugin repository. It is always
// appended to the plugin repository list.
const PluginPortal = "https://plugins.gradle.org/m2/"

// NewRepositoryList normalizes a set of declared repository base URLs
// into an ordered, de-duplicated list of remote repositories. Every
// URL gets a trailing slash; local filesystem repositories are
// dropped since they cannot serve remote downloads.
func NewRepositoryList(urls ...[]string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, list := range urls {
		for _, raw := range list {
			repo := strings.TrimSpace(raw)
			if repo == "" || strings.HasPrefix(repo, "file:/") {
				continue
			}
			repo = shared.EnsureTrailingSlash(repo)
			if _, ok := seen[repo]; ok {
				continue
			}
			seen[repo] = struct{}{}
			out = append(out, repo)
		}
	}
	return out
}
