package project

// preprocess.go - textual macro directives resolved before the Project
// Model is constructed. Two directives exist: the !include tag splices
// another file's YAML content in at parse time, and ${ref:dotted.path}
// substitutes another field's already-resolved scalar value. The model
// constructor never sees unresolved directive text.

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// maxIncludeDepth bounds nested includes to guard against include cycles.
const maxIncludeDepth = 16

var refPattern = regexp.MustCompile(`\$\{ref:([^}]+)\}`)

// Preprocess parses raw YAML and resolves all directives. baseDir anchors
// relative include paths.
func Preprocess(data []byte, baseDir string) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing project file: %w", err)
	}
	root := &doc
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root = doc.Content[0]
	}
	if err := resolveIncludes(root, baseDir, 0); err != nil {
		return nil, err
	}
	if err := resolveRefs(root, root); err != nil {
		return nil, err
	}
	return root, nil
}

// resolveIncludes replaces every !include-tagged scalar with the parsed
// content of the referenced file.
func resolveIncludes(node *yaml.Node, baseDir string, depth int) error {
	if depth > maxIncludeDepth {
		return fmt.Errorf("include nesting exceeds %d levels (include cycle?)", maxIncludeDepth)
	}
	if node.Tag == "!include" {
		if node.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: !include expects a file path", node.Line)
		}
		path := node.Value
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("line %d: include: %w", node.Line, err)
		}
		var included yaml.Node
		if err := yaml.Unmarshal(data, &included); err != nil {
			return fmt.Errorf("include %s: %w", path, err)
		}
		if included.Kind != yaml.DocumentNode || len(included.Content) == 0 {
			return fmt.Errorf("include %s: empty document", path)
		}
		*node = *included.Content[0]
		return resolveIncludes(node, filepath.Dir(path), depth+1)
	}
	for _, child := range node.Content {
		if err := resolveIncludes(child, baseDir, depth); err != nil {
			return err
		}
	}
	return nil
}

// resolveRefs substitutes ${ref:dotted.path} occurrences in scalar values
// with the scalar found at that path in the document root.
func resolveRefs(node, root *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && strings.Contains(node.Value, "${ref:") {
		resolved, err := substituteRefs(node.Value, root)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		node.Value = resolved
		// Force plain-string interpretation of the substituted value.
		node.Tag = "!!str"
	}
	for _, child := range node.Content {
		if err := resolveRefs(child, root); err != nil {
			return err
		}
	}
	return nil
}

func substituteRefs(value string, root *yaml.Node) (string, error) {
	var firstErr error
	out := refPattern.ReplaceAllStringFunc(value, func(match string) string {
		path := refPattern.FindStringSubmatch(match)[1]
		target := lookupPath(root, strings.Split(path, "."))
		if target == nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("unresolved reference %q", path)
			}
			return match
		}
		if target.Kind != yaml.ScalarNode {
			if firstErr == nil {
				firstErr = fmt.Errorf("reference %q does not resolve to a scalar", path)
			}
			return match
		}
		if strings.Contains(target.Value, "${ref:") {
			if firstErr == nil {
				firstErr = fmt.Errorf("reference %q resolves to another reference", path)
			}
			return match
		}
		return target.Value
	})
	return out, firstErr
}

// lookupPath walks mapping keys along a dotted path.
func lookupPath(node *yaml.Node, path []string) *yaml.Node {
	cur := node
	for _, key := range path {
		if cur.Kind != yaml.MappingNode {
			return nil
		}
		var next *yaml.Node
		for i := 0; i < len(cur.Content); i += 2 {
			if cur.Content[i].Value == key {
				next = cur.Content[i+1]
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}
