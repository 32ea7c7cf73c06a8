// Package locale holds the country table of the welcome step and the
// country/language guess that pre-fills it.
package locale

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed countries.yaml
var countriesYAML []byte

// Country is one selectable country.
type Country struct {
	Name      string   `yaml:"name" json:"name"`
	Languages []string `yaml:"languages" json:"languages"`
	States    []string `yaml:"states,omitempty" json:"states,omitempty"`

	tags []language.Tag
}

type tableFile struct {
	Unsupported []string          `yaml:"unsupported"`
	Countries   []Country         `yaml:"countries"`
	Timezones   map[string]string `yaml:"timezones"`
}

// Table answers country questions: supported or not, which states, which languages.
type Table struct {
	countries   map[string]Country
	names       []string
	unsupported map[string]bool
	timezones   map[string]string
}

// Parse reads a country table in YAML form.
func Parse(data []byte) (*Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse country table: %w", err)
	}

	t := &Table{
		countries:   make(map[string]Country, len(file.Countries)),
		unsupported: make(map[string]bool, len(file.Unsupported)),
		timezones:   file.Timezones,
	}
	for _, name := range file.Unsupported {
		t.unsupported[name] = true
	}
	for _, c := range file.Countries {
		if c.Name == "" {
			return nil, fmt.Errorf("country table: entry without name")
		}
		if _, dup := t.countries[c.Name]; dup {
			return nil, fmt.Errorf("country table: duplicate country %q", c.Name)
		}
		if len(c.Languages) == 0 {
			return nil, fmt.Errorf("country table: %s has no languages", c.Name)
		}
		for _, l := range c.Languages {
			tag, err := language.Parse(l)
			if err != nil {
				return nil, fmt.Errorf("country table: %s: %w", c.Name, err)
			}
			c.tags = append(c.tags, tag)
		}
		t.countries[c.Name] = c
		t.names = append(t.names, c.Name)
	}
	sort.Strings(t.names)
	return t, nil
}

var defaultTable = sync.OnceValue(func() *Table {
	t, err := Parse(countriesYAML)
	if err != nil {
		panic(err)
	}
	return t
})

// Default returns the embedded country table.
func Default() *Table {
	return defaultTable()
}

// Lookup returns a country by name.
func (t *Table) Lookup(name string) (Country, bool) {
	c, ok := t.countries[name]
	return c, ok
}

// Names returns every selectable country, sorted.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Supported reports whether recordings may be collected in the country.
func (t *Table) Supported(name string) bool {
	return !t.unsupported[name]
}

// HasStates reports whether the country requires a region.
func (t *Table) HasStates(name string) bool {
	return len(t.countries[name].States) > 0
}

// States returns the regions of a country.
func (t *Table) States(name string) []string {
	return t.countries[name].States
}

// DefaultLanguage returns the country's first language, English when unknown.
func (t *Table) DefaultLanguage(name string) language.Tag {
	c, ok := t.countries[name]
	if !ok || len(c.tags) == 0 {
		return language.English
	}
	return c.tags[0]
}

// Languages returns the languages offered for a country, English when unknown.
func (t *Table) Languages(name string) []language.Tag {
	c, ok := t.countries[name]
	if !ok || len(c.tags) == 0 {
		return []language.Tag{language.English}
	}
	out := make([]language.Tag, len(c.tags))
	copy(out, c.tags)
	return out
}

// MatchLanguage picks the country language closest to an Accept-Language header.
func (t *Table) MatchLanguage(name, acceptLanguage string) language.Tag {
	supported := t.Languages(name)
	if acceptLanguage == "" {
		return supported[0]
	}
	matcher := language.NewMatcher(supported)
	_, idx, confidence := matcher.Match(parseAccept(acceptLanguage)...)
	if confidence == language.No {
		return supported[0]
	}
	return supported[idx]
}

func parseAccept(header string) []language.Tag {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return nil
	}
	return tags
}

// CountryForTimezone maps an IANA zone (e.g. "America/Sao_Paulo") to a country
// using the zone's city segment.
func (t *Table) CountryForTimezone(tz string) (string, bool) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return "", false
	}
	city := tz
	if i := strings.LastIndex(tz, "/"); i >= 0 {
		city = tz[i+1:]
	}
	country, ok := t.timezones[city]
	return country, ok
}
