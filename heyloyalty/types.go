package heyloyalty

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// List represents a Heyloyalty mailing list
type List struct {
	ID     int         `json:"id"`
	Name   string      `json:"name"`
	Fields []ListField `json:"fields,omitempty"`
	// Raw holds every key Heyloyalty returned for the list
	Raw map[string]any `json:"-"`
}

// UnmarshalJSON decodes a list and keeps the raw metadata
func (l *List) UnmarshalJSON(data []byte) error {
	type plain List
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	raw, err := decodeObject(data)
	if err != nil {
		return err
	}

	*l = List(p)
	l.Raw = raw
	return nil
}

// Field returns the field definition with the given name, or nil
func (l *List) Field(name string) *ListField {
	for i := range l.Fields {
		if l.Fields[i].Name == name {
			return &l.Fields[i]
		}
	}
	return nil
}

// ListField describes a custom field on a list
type ListField struct {
	ID      FlexibleID    `json:"id"`
	Name    string        `json:"name"`
	Label   string        `json:"label"`
	Format  string        `json:"format"`
	Options []FieldOption `json:"options,omitempty"`
}

// OptionLabel returns the label of the option with the given ID, falling
// back to the ID itself
func (f *ListField) OptionLabel(id string) string {
	for _, opt := range f.Options {
		if string(opt.ID) == id {
			return opt.Label
		}
	}
	return id
}

// FieldOption is one choice of a multi-choice field
type FieldOption struct {
	ID    FlexibleID `json:"id"`
	Label string     `json:"label"`
}

// FlexibleID accepts both JSON strings and numbers
type FlexibleID string

// UnmarshalJSON implements json.Unmarshaler
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = FlexibleID(n.String())
	return nil
}

// Member represents a contact on a Heyloyalty list
type Member struct {
	ID        string
	Email     string
	Firstname string
	Lastname  string
	// Fields holds every other field returned for the member
	Fields map[string]any
}

var memberKeys = []string{"id", "email", "firstname", "lastname"}

// UnmarshalJSON decodes a member, collecting custom fields into Fields
func (m *Member) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}

	m.ID = stringValue(raw["id"])
	m.Email = stringValue(raw["email"])
	m.Firstname = stringValue(raw["firstname"])
	m.Lastname = stringValue(raw["lastname"])
	m.Fields = make(map[string]any, len(raw))
	for k, v := range raw {
		if slices.Contains(memberKeys, k) {
			continue
		}
		m.Fields[k] = v
	}

	return nil
}

// AsMap flattens the member into a single map of all its fields
func (m Member) AsMap() map[string]any {
	out := make(map[string]any, len(m.Fields)+len(memberKeys))
	maps.Copy(out, m.Fields)
	out["id"] = m.ID
	out["email"] = m.Email
	out["firstname"] = m.Firstname
	out["lastname"] = m.Lastname
	return out
}

// MarshalJSON encodes the member as one flat object
func (m Member) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.AsMap())
}

// FieldValues returns the values of a custom field as strings. Multi-choice
// fields come back either as arrays or as objects wrapping a "value" key.
func (m *Member) FieldValues(name string) []string {
	return flattenValues(m.Fields[name])
}

func flattenValues(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		var out []string
		for _, item := range val {
			out = append(out, flattenValues(item)...)
		}
		return out
	case map[string]any:
		if inner, ok := val["value"]; ok {
			return flattenValues(inner)
		}
		var out []string
		for _, k := range slices.Sorted(maps.Keys(val)) {
			out = append(out, flattenValues(val[k])...)
		}
		return out
	default:
		if s := stringValue(val); s != "" {
			return []string{s}
		}
		return nil
	}
}

// Fields maps form field names to their values. A field with no non-empty
// values is a request to clear it.
type Fields map[string][]string

// Set replaces the values of a field
func (f Fields) Set(name string, values ...string) {
	f[name] = values
}

// Clear marks a field to be emptied
func (f Fields) Clear(name string) {
	f[name] = nil
}

// Merge returns a copy of f overlaid with other
func (f Fields) Merge(other Fields) Fields {
	out := make(Fields, len(f)+len(other))
	maps.Copy(out, f)
	maps.Copy(out, other)
	return out
}

// Values converts the fields to their form representation
func (f Fields) Values() url.Values {
	values := make(url.Values, len(f))
	for name, vals := range f {
		var nonEmpty []string
		for _, v := range vals {
			if v != "" {
				nonEmpty = append(nonEmpty, v)
			}
		}

		switch len(nonEmpty) {
		case 0:
			values[name+"[]"] = []string{""}
		case 1:
			values[name] = nonEmpty
		default:
			values[name+"[]"] = nonEmpty
		}
	}
	return values
}

// Encode returns the form encoded body, sorted by key
func (f Fields) Encode() string {
	return f.Values().Encode()
}

// CreateFields returns the body of a member create request: email and
// firstname, overridden by the supplied fields. An empty display name is
// sent as a cleared firstname like any other empty field.
func CreateFields(email, displayName string, fields Fields) Fields {
	defaults := Fields{
		"email":     {email},
		"firstname": {displayName},
	}
	return defaults.Merge(fields)
}

// ParseFields parses "name=value" pairs. Repeated names accumulate values and
// "name=" clears the field.
func ParseFields(pairs []string) (Fields, error) {
	fields := make(Fields, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field %q: expected name=value", pair)
		}
		if value == "" {
			if _, exists := fields[name]; !exists {
				fields[name] = nil
			}
			continue
		}
		fields[name] = append(fields[name], value)
	}
	return fields, nil
}

// UpsertResult reports the outcome of UpsertMember
type UpsertResult struct {
	// Created is true when a new member was added to the list
	Created bool
	// Member is the member returned by Heyloyalty; nil if the update
	// response had no body
	Member *Member
}

func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
