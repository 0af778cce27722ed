// SPDX-License-Identifier: Apache-2.0

package opensearch

import (
	"fmt"

	"github.com/xataio/docsync/internal/searchstore"
)

type Mapper struct{}

const openSearchDefaultEFSearch = 100

func NewMapper() *Mapper {
	return &Mapper{}
}

// GetDefaultIndexSettings enables the k-NN plugin so that dense vector fields
// can be mapped to knn_vector.
func (m *Mapper) GetDefaultIndexSettings() map[string]any {
	return map[string]any{
		"index.knn":                true,
		"knn.algo_param.ef_search": openSearchDefaultEFSearch,
	}
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
		if field.Metadata.VectorDimension <= 0 {
			return nil, searchstore.ErrMissingVectorDimension
		}
		return map[string]any{
			"type":      "knn_vector",
			"dimension": field.Metadata.VectorDimension,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %v", searchstore.ErrUnsupportedSearchFieldType, field.SearchType)
	}
}
