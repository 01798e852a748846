// Package synonyms resolves drifting spreadsheet column names to logical roles.
package synonyms

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed synonyms.yaml
var defaultYAML []byte

// Pair is a (code column, name column) join or grouping key.
type Pair struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// Field is a display field filled from the first non-empty source column.
type Field struct {
	Name    string   `yaml:"name"`
	Output  string   `yaml:"output,omitempty"`
	Sources []string `yaml:"sources,omitempty"`
}

type IndexRoles struct {
	Code        Rule `yaml:"code"`
	Serial      Rule `yaml:"serial"`
	MachineCode Rule `yaml:"machine_code"`
	Name        Rule `yaml:"name"`
}

type VisitRoles struct {
	Date   Rule `yaml:"date"`
	Serial Rule `yaml:"serial"`
	Code   Rule `yaml:"code"`
	Name   Rule `yaml:"name"`
	Type   Rule `yaml:"type"`
}

type MergeKeys struct {
	Entity       map[string][]Pair `yaml:"entity"`
	Office       []Pair            `yaml:"office"`
	OfficeTokens []string          `yaml:"office_tokens"`
}

type Grouping struct {
	Pairs   map[string][]Pair `yaml:"pairs"`
	Generic []Pair            `yaml:"generic"`
	Code    Rule              `yaml:"code"`
	Name    Rule              `yaml:"name"`
}

type PrimaryKeys struct {
	CodeExact    []string `yaml:"code_exact"`
	NameExact    []string `yaml:"name_exact"`
	CodeTokens   []string `yaml:"code_tokens"`
	NameTokens   []string `yaml:"name_tokens"`
	EntityTokens []string `yaml:"entity_tokens"`
}

type Machine struct {
	CodeField         string   `yaml:"code_field"`
	SerialField       string   `yaml:"serial_field"`
	SimFields         []string `yaml:"sim_fields"`
	Fields            []Field  `yaml:"fields"`
	ExcludeFromCommon []string `yaml:"exclude_from_common"`
}

// Config is the whole synonym table set.
type Config struct {
	Index          IndexRoles  `yaml:"index"`
	Visit          VisitRoles  `yaml:"visit"`
	Merge          MergeKeys   `yaml:"merge"`
	Grouping       Grouping    `yaml:"grouping"`
	Primary        PrimaryKeys `yaml:"primary"`
	CustomerFields []Field     `yaml:"customer_fields"`
	DynamicFields  []Field     `yaml:"dynamic_fields"`
	PrimaryFields  []Field     `yaml:"primary_fields"`
	BranchFields   []Field     `yaml:"branch_fields"`
	Machine        Machine     `yaml:"machine"`
}

// Default returns the embedded tables.
func Default() *Config {
	cfg, err := parse(defaultYAML, nil)
	if err != nil {
		panic(fmt.Sprintf("synonyms: embedded table: %v", err))
	}
	return cfg
}

// Load reads the embedded tables and overlays path when it is set. Sections
// present in the file replace the embedded ones.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read synonyms %s: %w", path, err)
	}
	return parse(b, cfg)
}

func parse(b []byte, base *Config) (*Config, error) {
	cfg := base
	if cfg == nil {
		cfg = &Config{}
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse synonyms: %w", err)
	}
	return cfg, nil
}

// EntityPairs returns the merge key pairs for a category: the first default
// pair, the category's own pairs, then the defaults, without repeats.
func (c *Config) EntityPairs(category string) []Pair {
	def := c.Merge.Entity["default"]
	var all []Pair
	if len(def) > 0 {
		all = append(all, def[0])
	}
	all = append(all, c.Merge.Entity[category]...)
	all = append(all, def...)
	return uniquePairs(all)
}

// GroupingPairs returns the grouping key pairs for a category.
func (c *Config) GroupingPairs(category string) []Pair {
	own, ok := c.Grouping.Pairs[category]
	if !ok {
		own = c.Grouping.Pairs["default"]
	}
	return uniquePairs(append(append([]Pair(nil), own...), c.Grouping.Generic...))
}

func uniquePairs(in []Pair) []Pair {
	seen := map[Pair]struct{}{}
	out := make([]Pair, 0, len(in))
	for _, p := range in {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
