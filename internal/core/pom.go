package core

import (
	"bytes"
	"context"
	"encoding/xml"
	"strings"

	"gradle-sources-list/internal/types"
)

// Ancestor chains in the wild are a handful of levels deep; the cap
// guards against cyclic or malicious parent declarations.
const maxAncestorDepth = 50

// Guard against cyclic ${...} property references.
const maxPropertyDepth = 10

// Managed dependencies with this suffix are bill-of-materials
// imports whose own parent chain must be resolved as well.
const bomSuffix = "-bom"

// PomHandler parses package-description (POM) documents for parent
// and dependency-management declarations and registers the ancestor
// descriptions through the owning resolver.
//
// Malformed or unparsable XML is not an error: a broken parent chain
// degrades to "no further ancestors".
type PomHandler struct {
	resolver *ArtifactResolver
}

func newPomHandler(resolver *ArtifactResolver) *PomHandler {
	return &PomHandler{resolver: resolver}
}

// AddAncestors walks the description document and registers every
// reachable ancestor description fetched from the same repository.
func (h *PomHandler) AddAncestors(ctx context.Context, pom []byte, repository string) error {
	return h.addAncestors(ctx, pom, repository, 0)
}

func (h *PomHandler) addAncestors(ctx context.Context, pom []byte, repository string, depth int) error {
	if depth >= maxAncestorDepth {
		return nil
	}

	decoder := xml.NewDecoder(bytes.NewReader(pom))
	var path elementPath
	var characters strings.Builder
	properties := map[string]string{}
	var groupID, artifactID, version string

	for {
		token, err := decoder.Token()
		if err != nil {
			// io.EOF ends the walk; malformed XML stops it silently.
			return nil
		}
		switch t := token.(type) {
		case xml.StartElement:
			path.push(t.Name.Local)
			characters.Reset()
		case xml.CharData:
			characters.WriteString(strings.TrimSpace(string(t)))
		case xml.EndElement:
			name := t.Name.Local
			switch {
			case path.isProperty():
				properties[name] = substitute(characters.String(), properties, 0)
			case path.isProjectHeader(name):
				// Record project self-references for ${project.*}
				// placeholders used further down the document.
				properties["project."+name] = characters.String()
			case path.inParent() || path.inManagedDependency():
				value := substitute(characters.String(), properties, 0)
				switch name {
				case "groupId":
					groupID = value
				case "artifactId":
					artifactID = value
				case "version":
					version = value
				case "parent", "dependency":
					if err := h.registerAncestor(ctx, groupID, artifactID, version, name, repository, depth); err != nil {
						return err
					}
					groupID, artifactID, version = "", "", ""
				}
			}
			characters.Reset()
			path.pop()
		}
	}
}

func (h *PomHandler) registerAncestor(ctx context.Context, groupID, artifactID, version, element, repository string, depth int) error {
	dep, err := types.ParseCoordinate(groupID + ":" + artifactID + ":" + version)
	if err != nil {
		// Incomplete parent/dependency declaration; nothing to fetch.
		return nil
	}
	contents, ok, err := h.resolver.TryResolve(ctx, dep, repository, dep.Filename("pom"))
	if err != nil {
		return err
	}
	if ok && (element == "parent" || strings.HasSuffix(dep.Name, bomSuffix)) {
		return h.addAncestors(ctx, contents, repository, depth+1)
	}
	return nil
}

// substitute resolves ${name} placeholder references against the
// recorded properties, recursively. Unknown placeholders are left in
// place so a broken property never takes down the whole walk.
func substitute(raw string, properties map[string]string, depth int) string {
	if depth >= maxPropertyDepth {
		return raw
	}
	start := strings.Index(raw, "${")
	if start < 0 {
		return raw
	}
	end := strings.Index(raw[start:], "}")
	if end < 0 {
		return raw
	}
	end += start
	name := raw[start+2 : end]
	value, ok := properties[name]
	if !ok {
		return raw
	}
	return substitute(raw[:start]+value+raw[end+1:], properties, depth+1)
}

// elementPath tracks the path of the element currently being parsed.
// One instance per document; never shared across parses.
type elementPath struct {
	stack []string
}

func (p *elementPath) push(name string) {
	p.stack = append(p.stack, name)
}

func (p *elementPath) pop() {
	if len(p.stack) > 0 {
		p.stack = p.stack[:len(p.stack)-1]
	}
}

func (p *elementPath) is(prefix ...string) bool {
	if len(p.stack) < len(prefix) {
		return false
	}
	for i, name := range prefix {
		if p.stack[i] != name {
			return false
		}
	}
	return true
}

// isProperty reports a direct child of /project/properties.
func (p *elementPath) isProperty() bool {
	return len(p.stack) == 3 && p.is("project", "properties")
}

// isProjectHeader reports the top-level groupId/version elements.
func (p *elementPath) isProjectHeader(name string) bool {
	return len(p.stack) == 2 && p.is("project") && (name == "groupId" || name == "version")
}

func (p *elementPath) inParent() bool {
	return p.is("project", "parent")
}

func (p *elementPath) inManagedDependency() bool {
	return p.is("project", "dependencyManagement", "dependencies", "dependency")
}
