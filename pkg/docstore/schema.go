// SPDX-License-Identifier: Apache-2.0

package docstore

import (
	"fmt"
	"sort"

	"github.com/xataio/docsync/internal/searchstore"
)

// FieldType is the engine neutral name of a leaf field type.
type FieldType string

const (
	TypeInteger      FieldType = "integer"
	TypeFloat        FieldType = "float"
	TypeDouble       FieldType = "double"
	TypeText         FieldType = "text"
	TypeBoolean      FieldType = "boolean"
	TypeDateTime     FieldType = "datetime"
	TypeIntegerArray FieldType = "integer[]"
	TypeTextArray    FieldType = "text[]"
	TypeFloatArray   FieldType = "float[]"
	TypeDoubleArray  FieldType = "double[]"
	TypeDenseVector  FieldType = "dense_vector"
)

// typeTable is the closed set of supported leaf types. Array types map to
// their element type, since the engines index arrays natively.
var typeTable = map[FieldType]searchstore.Type{
	TypeInteger:      searchstore.IntegerType,
	TypeFloat:        searchstore.FloatType,
	TypeDouble:       searchstore.DoubleType,
	TypeText:         searchstore.TextType,
	TypeBoolean:      searchstore.BoolType,
	TypeDateTime:     searchstore.DateTimeType,
	TypeIntegerArray: searchstore.IntegerType,
	TypeTextArray:    searchstore.TextType,
	TypeFloatArray:   searchstore.FloatType,
	TypeDoubleArray:  searchstore.DoubleType,
	TypeDenseVector:  searchstore.DenseVectorType,
}

// SupportedTypes returns the supported leaf type names, sorted.
func SupportedTypes() []FieldType {
	types := make([]FieldType, 0, len(typeTable))
	for t := range typeTable {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func (t FieldType) IsValid() bool {
	_, found := typeTable[t]
	return found
}

// Field is either a leaf with a type, or an object with nested properties.
type Field struct {
	Type       FieldType
	Properties Mapping
}

// Mapping describes the fields of a collection. It can be nested to any
// depth.
type Mapping map[string]*Field

func Leaf(t FieldType) *Field {
	return &Field{Type: t}
}

func Object(properties Mapping) *Field {
	if properties == nil {
		properties = Mapping{}
	}
	return &Field{Properties: properties}
}

func (f *Field) IsObject() bool {
	return f.Properties != nil
}

// ParseMapping converts a decoded JSON or YAML mapping into a Mapping. String
// values are leaf types and map values are nested mappings. Unknown type names
// are kept, so that Validate can report them.
func ParseMapping(raw map[string]any) (Mapping, error) {
	return parseMapping(raw, "")
}

func parseMapping(raw map[string]any, prefix string) (Mapping, error) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	mapping := make(Mapping, len(raw))
	for _, name := range names {
		value := raw[name]
		path := fieldPath(prefix, name)
		switch v := value.(type) {
		case string:
			mapping[name] = Leaf(FieldType(v))
		case map[string]any:
			nested, err := parseMapping(v, path)
			if err != nil {
				return nil, err
			}
			mapping[name] = Object(nested)
		default:
			return nil, &ArgumentError{
				Argument: "schema",
				Index:    -1,
				Reason:   fmt.Sprintf("field %q must be a type name or a nested mapping, got %T", path, value),
			}
		}
	}
	return mapping, nil
}

// Validate returns a *SchemaError for the first invalid field, visiting fields
// in name order at every nesting level. It returns nil if every leaf type is
// part of the supported type table.
func (m Mapping) Validate() error {
	return m.validate("")
}

func (m Mapping) validate(prefix string) error {
	for _, name := range m.sortedNames() {
		field := m[name]
		path := fieldPath(prefix, name)
		switch {
		case field == nil:
			return &SchemaError{Field: path, Reason: "missing field definition"}
		case field.IsObject() && field.Type != "":
			return &SchemaError{Field: path, Type: string(field.Type), Reason: "a field can't have both a type and nested properties"}
		case field.IsObject():
			if err := field.Properties.validate(path); err != nil {
				return err
			}
		case !field.Type.IsValid():
			return &SchemaError{Field: path, Type: string(field.Type)}
		}
	}
	return nil
}

// Translate returns the engine native mapping for the fields, wrapped in the
// engine "properties" convention at every object level. Dense vector fields
// get the vector dimension on input when it's set.
func (m Mapping) Translate(mapper searchstore.Mapper, vectorDimension int) (map[string]any, error) {
	properties, err := m.translate(mapper, vectorDimension, "")
	if err != nil {
		return nil, err
	}
	return map[string]any{"properties": properties}, nil
}

func (m Mapping) translate(mapper searchstore.Mapper, vectorDimension int, prefix string) (map[string]any, error) {
	properties := make(map[string]any, len(m))
	for _, name := range m.sortedNames() {
		field := m[name]
		path := fieldPath(prefix, name)
		if field == nil {
			return nil, &SchemaError{Field: path, Reason: "missing field definition"}
		}
		if field.IsObject() && field.Type != "" {
			return nil, &SchemaError{Field: path, Type: string(field.Type), Reason: "a field can't have both a type and nested properties"}
		}

		if field.IsObject() {
			nested, err := field.Properties.translate(mapper, vectorDimension, path)
			if err != nil {
				return nil, err
			}
			properties[name] = map[string]any{"properties": nested}
			continue
		}

		searchType, found := typeTable[field.Type]
		if !found {
			return nil, &SchemaError{Field: path, Type: string(field.Type)}
		}
		native, err := mapper.FieldMapping(&searchstore.Field{
			SearchType: searchType,
			Metadata:   searchstore.Metadata{VectorDimension: vectorDimension},
		})
		if err != nil {
			return nil, &SchemaError{Field: path, Type: string(field.Type), Reason: err.Error()}
		}
		properties[name] = native
	}
	return properties, nil
}

func (m Mapping) sortedNames() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func fieldPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
