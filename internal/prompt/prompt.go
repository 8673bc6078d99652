// Package prompt renders parameterized prompt templates before they are sent
// to the completion provider. Templates use {{name}} placeholders and declare
// their variables up front, so a missing required variable is caught here
// rather than surfacing as a confusing model response.
package prompt

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// VarType describes the expected shape of a template variable. It is advisory:
// all values are substituted as strings, but catalogs document the intent.
type VarType string

const (
	VarString VarType = "string"
	VarNumber VarType = "number"
	VarList   VarType = "list"
)

// Variable declares a single template placeholder.
type Variable struct {
	Name     string  `yaml:"name"`
	Required bool    `yaml:"required"`
	Type     VarType `yaml:"type"`
}

// Template is an immutable prompt blueprint with named placeholders.
type Template struct {
	ID        string     `yaml:"id"`
	Text      string     `yaml:"template"`
	Variables []Variable `yaml:"variables"`
}

// placeholderRe matches {{name}} placeholders. Whitespace inside the braces
// is tolerated so {{ name }} renders the same as {{name}}.
var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// MissingVariablesError reports required variables that were not supplied.
type MissingVariablesError struct {
	TemplateID string
	Names      []string
}

func (e *MissingVariablesError) Error() string {
	return fmt.Sprintf("template %q: missing required variables: %s",
		e.TemplateID, strings.Join(e.Names, ", "))
}

// Render fills the template's placeholders with the supplied values.
//
// Every required variable must be present in vars or Render fails with a
// *MissingVariablesError naming all of them at once. Optional variables that
// are absent render as the empty string. Supplied values with no matching
// placeholder are ignored.
func Render(tpl Template, vars map[string]string) (string, error) {
	var missing []string
	for _, v := range tpl.Variables {
		if !v.Required {
			continue
		}
		if _, ok := vars[v.Name]; !ok {
			missing = append(missing, v.Name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", &MissingVariablesError{TemplateID: tpl.ID, Names: missing}
	}

	rendered := placeholderRe.ReplaceAllStringFunc(tpl.Text, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		return vars[name]
	})
	return rendered, nil
}

// Placeholders returns the distinct placeholder names that appear in the
// template text, in order of first appearance.
func Placeholders(tpl Template) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(tpl.Text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
