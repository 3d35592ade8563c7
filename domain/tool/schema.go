package tool

import (
	"encoding/json"
	"errors"
)

// Property describes one named argument of an object schema.
// Declaration order is significant: compiled tools bind positional
// parameters in property order.
type Property struct {
	Name        string
	Type        string
	Description string
}

// Schema wraps a JSON Schema for tool input.
// Schemas built from Property lists preserve declaration order; schemas
// received as raw JSON (provider discovery) are kept verbatim.
type Schema struct {
	raw        json.RawMessage
	properties []Property
	required   []string
}

// NewSchema creates a schema from raw JSON.
func NewSchema(raw json.RawMessage) Schema {
	return Schema{raw: raw}
}

// EmptySchema returns a schema that accepts any input.
func EmptySchema() Schema {
	return Schema{raw: json.RawMessage(`{"type":"object","properties":{}}`)}
}

// ObjectSchema returns an object schema with ordered properties and a
// required subset.
func ObjectSchema(properties []Property, required []string) Schema {
	return Schema{properties: properties, required: required}
}

// Properties returns the ordered property list, or nil for raw schemas.
func (s Schema) Properties() []Property {
	return s.properties
}

// Required returns the required property names.
func (s Schema) Required() []string {
	return s.required
}

// IsRequired returns true if the named property is in the required subset.
func (s Schema) IsRequired(name string) bool {
	for _, r := range s.required {
		if r == name {
			return true
		}
	}
	return false
}

// IsEmpty returns true if the schema declares nothing.
func (s Schema) IsEmpty() bool {
	return len(s.raw) == 0 && len(s.properties) == 0
}

// Raw returns the schema as JSON.
func (s Schema) Raw() json.RawMessage {
	raw, _ := s.MarshalJSON()
	return raw
}

// Validate checks data against the schema's required subset.
func (s Schema) Validate(data json.RawMessage) error {
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	if !json.Valid(data) {
		return errors.New("input is not valid JSON")
	}
	if len(s.required) == 0 {
		return nil
	}

	var args map[string]json.RawMessage
	if err := json.Unmarshal(data, &args); err != nil {
		return errors.New("input is not a JSON object")
	}
	for _, name := range s.required {
		if _, ok := args[name]; !ok {
			return errors.New("missing required argument: " + name)
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s.raw != nil {
		return s.raw, nil
	}

	// Hand-assemble the properties object so declaration order survives;
	// a map would serialize in sorted key order.
	buf := []byte(`{"type":"object","properties":{`)
	for i, p := range s.properties {
		if i > 0 {
			buf = append(buf, ',')
		}
		name, _ := json.Marshal(p.Name)
		buf = append(buf, name...)
		buf = append(buf, []byte(`:{"type":`)...)
		typ := p.Type
		if typ == "" {
			typ = "string"
		}
		typJSON, _ := json.Marshal(typ)
		buf = append(buf, typJSON...)
		if p.Description != "" {
			buf = append(buf, []byte(`,"description":`)...)
			desc, _ := json.Marshal(p.Description)
			buf = append(buf, desc...)
		}
		buf = append(buf, '}')
	}
	buf = append(buf, []byte(`}`)...)
	if len(s.required) > 0 {
		buf = append(buf, []byte(`,"required":`)...)
		req, err := json.Marshal(s.required)
		if err != nil {
			return nil, err
		}
		buf = append(buf, req...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Schema) UnmarshalJSON(data []byte) error {
	s.raw = append(json.RawMessage(nil), data...)
	s.properties = nil
	s.required = nil
	return nil
}
