package domain

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAML []byte

// Rule maps an analysis finding to the signal it raises. A zero TTL means
// signals from this rule never expire on their own.
type Rule struct {
	Finding  string
	Category Category
	Subtype  string
	Severity int
	TTL      time.Duration
}

type yamlRule struct {
	Finding  string `yaml:"finding"`
	Category string `yaml:"category"`
	Subtype  string `yaml:"subtype"`
	Severity int    `yaml:"severity"`
	TTL      string `yaml:"ttl"`
}

type ruleFile struct {
	Rules []yamlRule `yaml:"rules"`
}

// LoadRules parses the embedded rule table. The table is static per build;
// a malformed table is a packaging error and fails loudly at startup.
func LoadRules() (map[string]Rule, error) {
	return parseRules(rulesYAML)
}

func parseRules(data []byte) (map[string]Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse signal rules: %w", err)
	}

	rules := make(map[string]Rule, len(f.Rules))
	for _, raw := range f.Rules {
		if raw.Finding == "" || raw.Subtype == "" {
			return nil, fmt.Errorf("signal rule missing finding or subtype: %+v", raw)
		}
		if raw.Severity < 1 || raw.Severity > 5 {
			return nil, fmt.Errorf("signal rule %q has severity %d, want 1..5", raw.Finding, raw.Severity)
		}
		if !Category(raw.Category).IsKnown() {
			return nil, fmt.Errorf("signal rule %q has unknown category %q", raw.Finding, raw.Category)
		}
		if _, dup := rules[raw.Finding]; dup {
			return nil, fmt.Errorf("duplicate signal rule for finding %q", raw.Finding)
		}

		var ttl time.Duration
		if raw.TTL != "" && raw.TTL != "0" {
			parsed, err := time.ParseDuration(raw.TTL)
			if err != nil {
				return nil, fmt.Errorf("signal rule %q has invalid ttl %q: %w", raw.Finding, raw.TTL, err)
			}
			ttl = parsed
		}

		rules[raw.Finding] = Rule{
			Finding:  raw.Finding,
			Category: Category(raw.Category),
			Subtype:  raw.Subtype,
			Severity: raw.Severity,
			TTL:      ttl,
		}
	}
	return rules, nil
}

// MustLoadRules is LoadRules for composition roots.
func MustLoadRules() map[string]Rule {
	rules, err := LoadRules()
	if err != nil {
		panic(err)
	}
	return rules
}
