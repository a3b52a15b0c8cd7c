package linkedin

import (
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed facets.yaml
var defaultFacets []byte

// Facets maps human-readable search facets to LinkedIn IDs.
type Facets struct {
	Locations  map[string]string `yaml:"locations"`
	Industries map[string]string `yaml:"industries"`
}

// LoadFacets reads a facet catalog from path, or the built-in catalog when
// path is empty.
func LoadFacets(path string) (*Facets, error) {
	data := defaultFacets
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "linkedin: read facets %s", path)
		}
		data = b
	}
	return ParseFacets(data)
}

// ParseFacets decodes a YAML facet catalog.
func ParseFacets(data []byte) (*Facets, error) {
	var f Facets
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "linkedin: parse facets")
	}
	if f.Locations == nil {
		f.Locations = make(map[string]string)
	}
	if f.Industries == nil {
		f.Industries = make(map[string]string)
	}
	return &f, nil
}

// Location resolves a location name to its geo ID.
func (f *Facets) Location(name string) (string, bool) {
	return lookup(f.Locations, name)
}

// Industry resolves an industry name to its ID.
func (f *Facets) Industry(name string) (string, bool) {
	return lookup(f.Industries, name)
}

// lookup matches names case-insensitively; a bare numeric value is taken
// as an ID.
func lookup(m map[string]string, name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	if id, ok := m[name]; ok {
		return id, true
	}
	for k, id := range m {
		if strings.EqualFold(k, name) {
			return id, true
		}
	}
	if isDigits(name) {
		return name, true
	}
	return "", false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
