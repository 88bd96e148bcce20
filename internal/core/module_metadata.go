package core

import (
	"encoding/json"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// MetadataResultKind tags the outcome of parsing a module-metadata
// document.
type MetadataResultKind int

const (
	// MetadataFiles means the document declared downloadable files.
	MetadataFiles MetadataResultKind = iota
	// MetadataRedirect means the matching variant points at another
	// document via available-at; the caller must re-fetch from
	// RedirectURL and parse again.
	MetadataRedirect
	// MetadataNoFiles means no library variant declared any files.
	// Not every module publishes a binary artifact for every variant;
	// the caller falls back to cache-assisted resolution.
	MetadataNoFiles
)

// MetadataResult is the tagged outcome of ParseModuleMetadata.
type MetadataResult struct {
	Kind        MetadataResultKind
	Files       []ModuleFile
	RedirectURL string
}

// ModuleFile is one file declared by a library variant.
type ModuleFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type moduleDocument struct {
	Variants []moduleVariant `json:"variants"`
}

type moduleVariant struct {
	Name        string           `json:"name"`
	Attributes  moduleAttributes `json:"attributes"`
	AvailableAt *availableAt     `json:"available-at"`
	Files       []ModuleFile     `json:"files"`
}

// Only the category attribute matters; everything else in the
// attributes object is ignored.
type moduleAttributes struct {
	Category string `json:"org.gradle.category"`
}

type availableAt struct {
	URL string `json:"url"`
}

// library variants carry no category attribute or the "library" value
func (v moduleVariant) isLibrary() bool {
	return v.Attributes.Category == "" || v.Attributes.Category == "library"
}

// ParseModuleMetadata parses a module-metadata JSON document and
// returns the declared files for the requested variant.
//
// When the matching library variant declares an available-at URL the
// result is tagged MetadataRedirect. Otherwise the file lists of all
// library variants are flattened and de-duplicated by (name, url).
// Declared sha512 values inside the document are ignored; digests are
// always recomputed from actual bytes, since published checksums have
// proven unreliable.
func ParseModuleMetadata(data []byte, variant string) (MetadataResult, error) {
	var doc moduleDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return MetadataResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse module metadata").
			WithCause(err)
	}

	for _, v := range doc.Variants {
		if v.Name == variant && v.isLibrary() && v.AvailableAt != nil && v.AvailableAt.URL != "" {
			return MetadataResult{Kind: MetadataRedirect, RedirectURL: v.AvailableAt.URL}, nil
		}
	}

	var files []ModuleFile
	seen := map[ModuleFile]struct{}{}
	for _, v := range doc.Variants {
		if !v.isLibrary() || len(v.Files) == 0 {
			continue
		}
		for _, file := range v.Files {
			if _, ok := seen[file]; ok {
				continue
			}
			seen[file] = struct{}{}
			files = append(files, file)
		}
	}
	if len(files) == 0 {
		return MetadataResult{Kind: MetadataNoFiles}, nil
	}
	return MetadataResult{Kind: MetadataFiles, Files: files}, nil
}
