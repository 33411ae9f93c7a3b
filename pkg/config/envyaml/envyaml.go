// Package envyaml parses YAML documents whose string scalars may reference
// environment variables as ${VAR}, either through an explicit !ENV tag or
// implicitly.
package envyaml

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/oddcollector/pkg/errors"
)

// Tag is the explicit environment tag.
const Tag = "!ENV"

var placeholder = regexp.MustCompile(`\$\{(\w+)\}`)

// LookupFunc resolves one variable; ok is false when it is unset.
type LookupFunc func(name string) (value string, ok bool)

// Parse reads one YAML mapping from r, resolving placeholders against the
// process environment. An empty document yields an empty map.
func Parse(r io.Reader) (map[string]interface{}, error) {
	return ParseWith(r, os.LookupEnv)
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(data []byte) (map[string]interface{}, error) {
	return ParseWith(bytes.NewReader(data), os.LookupEnv)
}

// ParseWith is Parse with a custom variable lookup.
func ParseWith(r io.Reader, lookup LookupFunc) (map[string]interface{}, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if err == io.EOF {
			return map[string]interface{}{}, nil
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := resolve(&root, lookup); err != nil {
		return nil, err
	}

	out := map[string]interface{}{}
	if err := root.Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode YAML mapping: %w", err)
	}
	return out, nil
}

func resolve(node *yaml.Node, lookup LookupFunc) error {
	if node.Kind == yaml.AliasNode {
		return nil
	}
	if node.Kind != yaml.ScalarNode {
		for _, child := range node.Content {
			if err := resolve(child, lookup); err != nil {
				return err
			}
		}
		return nil
	}

	explicit := node.Tag == Tag
	if !explicit && node.ShortTag() != "!!str" {
		return nil
	}
	if !placeholder.MatchString(node.Value) {
		if explicit {
			node.Tag = "!!str"
		}
		return nil
	}

	value, err := Expand(node.Value, lookup)
	if err != nil {
		var pe *errors.ParserError
		if errors.As(err, &pe) {
			pe.Line = node.Line
		}
		return err
	}
	node.Value = value
	node.Tag = "!!str"
	return nil
}

// Expand replaces every ${VAR} in s. The first unset variable is reported as
// a *errors.ParserError; nothing is ever substituted with an empty string
// because a variable is missing.
func Expand(s string, lookup LookupFunc) (string, error) {
	var missing string
	out := placeholder.ReplaceAllStringFunc(s, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		v, ok := lookup(name)
		if !ok && missing == "" {
			missing = name
		}
		return v
	})
	if missing != "" {
		return "", &errors.ParserError{Variable: missing}
	}
	return out, nil
}
