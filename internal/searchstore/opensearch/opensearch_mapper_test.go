// SPDX-License-Identifier: Apache-2.0

package opensearch

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xataio/docsync/internal/searchstore"
)

func TestMapper_FieldMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		field *searchstore.Field

		wantMapping map[string]any
		wantErr     error
	}{
		{
			name:        "text",
			field:       &searchstore.Field{SearchType: searchstore.TextType},
			wantMapping: map[string]any{"type": "text"},
		},
		{
			name:        "boolean",
			field:       &searchstore.Field{SearchType: searchstore.BoolType},
			wantMapping: map[string]any{"type": "boolean"},
		},
		{
			name: "dense vector",
			field: &searchstore.Field{
				SearchType: searchstore.DenseVectorType,
				Metadata:   searchstore.Metadata{VectorDimension: 3},
			},
			wantMapping: map[string]any{"type": "knn_vector", "dimension": 3},
		},
		{
			name:    "dense vector without dimension",
			field:   &searchstore.Field{SearchType: searchstore.DenseVectorType},
			wantErr: searchstore.ErrMissingVectorDimension,
		},
		{
			name:    "unsupported type",
			field:   &searchstore.Field{SearchType: searchstore.Type(42)},
			wantErr: searchstore.ErrUnsupportedSearchFieldType,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mapping, err := NewMapper().FieldMapping(tc.field)
			require.ErrorIs(t, err, tc.wantErr)
			require.Equal(t, tc.wantMapping, mapping)
		})
	}
}

func TestMapper_GetDefaultIndexSettings(t *testing.T) {
	t.Parallel()

	settings := NewMapper().GetDefaultIndexSettings()
	require.Equal(t, true, settings["index.knn"])
}
