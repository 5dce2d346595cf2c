package dsl

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aescanero/dago-rulekit/pkg/rulekit"
)

// Format is the encoding of a rule file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported rule file extension %q: use .yaml, .yml or .json", filepath.Ext(path))
	}
}

// Load reads and validates a rule file.
func Load(path string) (*RuleSet, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}

	set, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return set, nil
}

// Parse decodes and validates a rule set. JSON is decoded by the YAML parser,
// which accepts it as a subset.
func Parse(data []byte, format Format) (*RuleSet, error) {
	if format != FormatYAML && format != FormatJSON {
		return nil, fmt.Errorf("unsupported format %q", format)
	}

	set := &RuleSet{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(set); err != nil {
		return nil, fmt.Errorf("failed to parse rule set: %w", err)
	}

	if err := Validate(set); err != nil {
		return nil, err
	}

	return set, nil
}

// Validate checks the structure of a rule set. CEL syntax is checked by Compile.
func Validate(set *RuleSet) error {
	verr := &ValidationError{}

	if set == nil {
		verr.add("rule set is nil")
		return verr
	}

	if _, err := rulekit.ParsePriorityOrder(set.Order); err != nil {
		verr.add("order: %v", err)
	}

	seen := make(map[string]bool, len(set.Rules))
	for i, def := range set.Rules {
		where := fmt.Sprintf("rules[%d]", i)
		if def.Name == "" {
			verr.add("%s: name is required", where)
		} else {
			where = fmt.Sprintf("rule %q", def.Name)
			if seen[def.Name] {
				verr.add("%s: duplicate name", where)
			}
			seen[def.Name] = true
		}

		if strings.TrimSpace(def.When) == "" {
			verr.add("%s: when is required", where)
		}

		if def.MaxApplications < 0 {
			verr.add("%s: max_applications must be non-negative", where)
		}

		for j, action := range def.Then {
			validateAction(verr, fmt.Sprintf("%s then[%d]", where, j), action)
		}
	}

	if len(verr.Issues) > 0 {
		return verr
	}
	return nil
}

func validateAction(verr *ValidationError, where string, a Action) {
	switch {
	case a.Set != "" && a.Unset != "":
		verr.add("%s: set and unset are mutually exclusive", where)
		return
	case a.Set == "" && a.Unset == "":
		verr.add("%s: one of set or unset is required", where)
		return
	}

	if _, err := splitPath(a.Path()); err != nil {
		verr.add("%s: %v", where, err)
	}

	sources := 0
	if a.Expr != "" {
		sources++
	}
	if a.Template != "" {
		sources++
	}
	if a.Value != nil {
		sources++
	}

	if a.Unset != "" {
		if sources > 0 {
			verr.add("%s: unset takes no value", where)
		}
		return
	}
	if sources != 1 {
		verr.add("%s: set needs exactly one of expr, template or value", where)
	}
}
