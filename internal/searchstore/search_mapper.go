// SPDX-License-Identifier: Apache-2.0

package searchstore

import "errors"

// Mapper translates engine agnostic field definitions into the engine
// specific index mapping and settings.
type Mapper interface {
	GetDefaultIndexSettings() map[string]any
	FieldMapping(*Field) (map[string]any, error)
}

type Field struct {
	SearchType Type
	Metadata   Metadata
}

type Metadata struct {
	VectorDimension int
}

type Type uint

const (
	IntegerType Type = iota
	FloatType
	DoubleType
	TextType
	BoolType
	DateTimeType
	DenseVectorType
)

var ErrMissingVectorDimension = errors.New("dense vector field requires a dimension")

func (t Type) String() string {
	switch t {
	case IntegerType:
		return "integer"
	case FloatType:
		return "float"
	case DoubleType:
		return "double"
	case TextType:
		return "text"
	case BoolType:
		return "boolean"
	case DateTimeType:
		return "datetime"
	case DenseVectorType:
		return "dense_vector"
	default:
		return "unknown"
	}
}
