// Package shared provides common utility functions used across
// multiple packages in the gradle-sources-list codebase.
package shared

import (
	"fmt"
	"strings"
)

// HTTPStatusError creates a formatted error for non-2xx HTTP responses.
func HTTPStatusError(status int, url string) error {
	return fmt.Errorf("status=%d url=%s", status, url)
}

// EnsureTrailingSlash appends a slash when the value lacks one.
// Repository base URLs and destination prefixes are always joined
// with plain concatenation, so they must end with a slash.
func EnsureTrailingSlash(value string) string {
	if strings.HasSuffix(value, "/") {
		return value
	}
	return value + "/"
}
