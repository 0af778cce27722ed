// SPDX-License-Identifier: Apache-2.0

package elasticsearch

import (
	"fmt"

	"github.com/xataio/docsync/internal/searchstore"
)

type Mapper struct{}

func NewMapper() *Mapper {
	return &Mapper{}
}

// GetDefaultIndexSettings returns no settings, the cluster defaults apply.
func (m *Mapper) GetDefaultIndexSettings() map[string]any {
	return map[string]any{}
}

func (m *Mapper) FieldMapping(field *searchstore.Field) (map[string]any, error) {
	switch field.SearchType {
	case searchstore.IntegerType:
		return map[string]any{"type": "integer"}, nil
	case searchstore.FloatType:
		return map[string]any{"type": "float"}, nil
	case searchstore.DoubleType:
		return map[string]any{"type": "double"}, nil
	case searchstore.TextType:
		return map[string]any{"type": "text"}, nil
	case searchstore.BoolType:
		return map[string]any{"type": "boolean"}, nil
	case searchstore.DateTimeType:
		return map[string]any{"type": "date"}, nil
	case searchstore.DenseVectorType:
		mapping := map[string]any{"type": "dense_vector"}
		if field.Metadata.VectorDimension > 0 {
			mapping["dims"] = field.Metadata.VectorDimension
		}
		return mapping, nil
	default:
		return nil, fmt.Errorf("%w: %v", searchstore.ErrUnsupportedSearchFieldType, field.SearchType)
	}
}
