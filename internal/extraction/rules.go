package extraction

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// Rule maps a set of file-name keywords to a fixed extraction.
type Rule struct {
	Name     string   `json:"name" yaml:"name"`
	Keywords []string `json:"keywords" yaml:"keywords"`
	Result   Result   `json:"result" yaml:"result"`
}

// Matches reports whether every keyword occurs in the lowercased name.
func (r Rule) Matches(lowerName string) bool {
	for _, kw := range r.Keywords {
		if !strings.Contains(lowerName, kw) {
			return false
		}
	}
	return true
}

func (r Rule) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("rule name is required")
	}
	if len(r.Keywords) == 0 {
		return fmt.Errorf("rule %q has no keywords", r.Name)
	}
	for _, kw := range r.Keywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("rule %q has an empty keyword", r.Name)
		}
	}
	return nil
}

// DefaultRules returns the built-in rule set.
func DefaultRules() ([]Rule, error) {
	return ParseRules(bytes.NewReader(defaultRules))
}

// LoadRulesFile reads a rule set from a YAML file.
func LoadRulesFile(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules file: %w", err)
	}
	defer f.Close()
	return ParseRules(f)
}

// ParseRules decodes and validates a YAML rule list. Keywords are lowercased.
func ParseRules(r io.Reader) ([]Rule, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var rules []Rule
	if err := dec.Decode(&rules); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	for i := range rules {
		if err := rules[i].validate(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		kws := make([]string, len(rules[i].Keywords))
		for j, kw := range rules[i].Keywords {
			kws[j] = strings.ToLower(strings.TrimSpace(kw))
		}
		rules[i].Keywords = kws
		rules[i].Result.Rule = rules[i].Name
	}
	return rules, nil
}
