// SPDX-License-Identifier: Apache-2.0

package testcontainers

import (
	"context"
	"fmt"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/elasticsearch"
	"github.com/testcontainers/testcontainers-go/modules/opensearch"
)

const (
	elasticsearchImage = "docker.elastic.co/elasticsearch/elasticsearch:8.15.3"
	opensearchImage    = "opensearchproject/opensearch:2.11.1"
)

// SearchContainer is a search engine running in a container for the duration
// of the integration tests.
type SearchContainer struct {
	URL       string
	container testcontainers.Container
}

// StartElasticsearch runs a single node elasticsearch cluster with security
// disabled.
func StartElasticsearch(ctx context.Context) (*SearchContainer, error) {
	ctr, err := elasticsearch.Run(ctx, elasticsearchImage,
		testcontainers.WithEnv(map[string]string{
			"xpack.security.enabled": "false",
			"ES_JAVA_OPTS":           "-Xms512m -Xmx512m",
		}))
	if err != nil {
		return nil, fmt.Errorf("starting elasticsearch container: %w", err)
	}

	return &SearchContainer{
		URL:       ctr.Settings.Address,
		container: ctr,
	}, nil
}

// StartOpenSearch runs a single node opensearch cluster with the security
// plugin disabled.
func StartOpenSearch(ctx context.Context) (*SearchContainer, error) {
	ctr, err := opensearch.Run(ctx, opensearchImage)
	if err != nil {
		return nil, fmt.Errorf("starting opensearch container: %w", err)
	}

	url, err := ctr.Address(ctx)
	if err != nil {
		ctr.Terminate(ctx)
		return nil, fmt.Errorf("retrieving opensearch container address: %w", err)
	}

	return &SearchContainer{
		URL:       url,
		container: ctr,
	}, nil
}

func (c *SearchContainer) Terminate(ctx context.Context) error {
	if c == nil || c.container == nil {
		return nil
	}
	return c.container.Terminate(ctx)
}
