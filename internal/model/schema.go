package model

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// FieldGroup is the closed set of merge-strategy families a scalar field
// can belong to. Membership is resolved once at schema load, never
// re-derived per merge call.
type FieldGroup int

const (
	// GroupDefault resolves by the plain trust cascade.
	GroupDefault FieldGroup = iota
	// GroupGeo resolves coordinates: presence beats trust.
	GroupGeo
	// GroupNarrative resolves free text: length beats trust.
	GroupNarrative
)

// String returns the group name used in schema files and logs.
func (g FieldGroup) String() string {
	switch g {
	case GroupGeo:
		return "geo"
	case GroupNarrative:
		return "narrative"
	default:
		return "default"
	}
}

// Schema classifies field names into merge-strategy groups. Fields not
// listed in any group fall into GroupDefault.
type Schema struct {
	groups map[string]FieldGroup
}

// schemaFile is the on-disk YAML shape of a field schema.
type schemaFile struct {
	Geo       []string `yaml:"geo"`
	Narrative []string `yaml:"narrative"`
}

// NewSchema builds a schema from explicit group membership lists.
func NewSchema(geo, narrative []string) *Schema {
	s := &Schema{groups: make(map[string]FieldGroup, len(geo)+len(narrative))}
	for _, f := range geo {
		s.groups[f] = GroupGeo
	}
	for _, f := range narrative {
		s.groups[f] = GroupNarrative
	}
	return s
}

// DefaultSchema covers the common place/organization field names.
func DefaultSchema() *Schema {
	return NewSchema(
		[]string{"latitude", "longitude", "lat", "lng"},
		[]string{"summary", "description", "about"},
	)
}

// LoadSchema reads a field schema from a YAML file. The file lists field
// names per group; anything unlisted merges with the default strategy.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "model: read schema %s", path)
	}
	var f schemaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "model: parse schema %s", path)
	}
	return NewSchema(f.Geo, f.Narrative), nil
}

// Group returns the merge-strategy group for a field name.
func (s *Schema) Group(field string) FieldGroup {
	if g, ok := s.groups[field]; ok {
		return g
	}
	return GroupDefault
}
