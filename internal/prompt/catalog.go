package prompt

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is a named collection of templates, typically loaded once at
// startup and treated as read-only afterwards.
type Catalog struct {
	templates map[string]Template
}

// catalogFile is the YAML shape of a catalog on disk.
type catalogFile struct {
	Templates []Template `yaml:"templates"`
}

// LoadCatalog reads a YAML catalog file and validates it.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses YAML catalog bytes and validates the result.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	c := &Catalog{templates: make(map[string]Template, len(file.Templates))}
	for _, tpl := range file.Templates {
		if tpl.ID == "" {
			return nil, fmt.Errorf("catalog contains a template with no id")
		}
		if _, dup := c.templates[tpl.ID]; dup {
			return nil, fmt.Errorf("catalog contains duplicate template id %q", tpl.ID)
		}
		if err := validateTemplate(tpl); err != nil {
			return nil, err
		}
		c.templates[tpl.ID] = tpl
	}
	return c, nil
}

// validateTemplate checks that every declared variable actually appears in
// the template text. A declared-but-unused required variable would make the
// template impossible to render meaningfully, so it is rejected up front.
func validateTemplate(tpl Template) error {
	present := make(map[string]bool)
	for _, name := range Placeholders(tpl) {
		present[name] = true
	}
	for _, v := range tpl.Variables {
		if !present[v.Name] {
			return fmt.Errorf("template %q declares variable %q which never appears in the text", tpl.ID, v.Name)
		}
	}
	return nil
}

// Get returns the template with the given id.
func (c *Catalog) Get(id string) (Template, bool) {
	tpl, ok := c.templates[id]
	return tpl, ok
}

// IDs returns all template ids in the catalog.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.templates))
	for id := range c.templates {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of templates in the catalog.
func (c *Catalog) Len() int {
	return len(c.templates)
}
