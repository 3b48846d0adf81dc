// Package workflow holds the program under construction and resolves the
// model's function calls against it.
package workflow

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Param describes one input of an integration action.
type Param struct {
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type" json:"type"`
	Required    bool   `yaml:"required" json:"required"`
	Description string `yaml:"description" json:"description,omitempty"`
}

// Operation is a single callable action of an integration.
type Operation struct {
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Params      []Param `yaml:"params" json:"params"`
}

// Integration is a service the workflow can call, such as a CRM or mail API.
type Integration struct {
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description" json:"description"`
	Operations  []Operation `yaml:"operations" json:"operations"`
}

// Catalog is the set of integrations offered to the model.
type Catalog struct {
	Integrations []Integration `yaml:"integrations" json:"integrations"`
}

// LoadCatalog reads a YAML catalog from disk.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog yaml: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks names are present and unique.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool)
	for i, in := range c.Integrations {
		if in.Name == "" {
			return fmt.Errorf("integration %d has no name", i)
		}
		if seen[in.Name] {
			return fmt.Errorf("duplicate integration %q", in.Name)
		}
		seen[in.Name] = true

		ops := make(map[string]bool)
		for j, op := range in.Operations {
			if op.Name == "" {
				return fmt.Errorf("integration %s: operation %d has no name", in.Name, j)
			}
			if ops[op.Name] {
				return fmt.Errorf("integration %s: duplicate operation %q", in.Name, op.Name)
			}
			ops[op.Name] = true
		}
	}
	return nil
}

// Lookup finds an integration operation.
func (c *Catalog) Lookup(integration, operation string) (Operation, bool) {
	for _, in := range c.Integrations {
		if in.Name != integration {
			continue
		}
		for _, op := range in.Operations {
			if op.Name == operation {
				return op, true
			}
		}
	}
	return Operation{}, false
}

// Render flattens the catalog into the text embedded in the task prompt.
func (c *Catalog) Render() string {
	if c == nil || len(c.Integrations) == 0 {
		return "(no integrations available)"
	}

	integrations := append([]Integration(nil), c.Integrations...)
	sort.Slice(integrations, func(i, j int) bool { return integrations[i].Name < integrations[j].Name })

	var b strings.Builder
	for _, in := range integrations {
		fmt.Fprintf(&b, "- %s: %s\n", in.Name, in.Description)
		for _, op := range in.Operations {
			fmt.Fprintf(&b, "    - %s.%s: %s\n", in.Name, op.Name, op.Description)
			for _, p := range op.Params {
				req := "optional"
				if p.Required {
					req = "required"
				}
				fmt.Fprintf(&b, "        %s (%s, %s)", p.Name, p.Type, req)
				if p.Description != "" {
					fmt.Fprintf(&b, ": %s", p.Description)
				}
				b.WriteString("\n")
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
