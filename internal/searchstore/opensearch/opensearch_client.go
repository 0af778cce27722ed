// SPDX-License-Identifier: Apache-2.0

package opensearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/opensearch-project/opensearch-go"
	"github.com/opensearch-project/opensearch-go/opensearchapi"
	"github.com/xataio/docsync/internal/json"
	"github.com/xataio/docsync/internal/searchstore"
)

type Client struct {
	client *opensearch.Client
	mapper *Mapper
}

var errInvalidSearchEnvelope = errors.New("invalid search response")

func NewClient(cfg *searchstore.ClientConfig) (*Client, error) {
	osClient, err := newClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create opensearch client: %w", err)
	}
	return &Client{
		client: osClient,
		mapper: NewMapper(),
	}, nil
}

func (c *Client) GetMapper() searchstore.Mapper {
	return c.mapper
}

func (c *Client) Count(ctx context.Context, index string) (int, error) {
	res, err := c.client.Count(
		c.client.Count.WithIndex(index),
		c.client.Count.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("[Count] error from OpenSearch: %w", err)
	}
	defer res.Body.Close()

	if err := c.isErrResponse(res); err != nil {
		return 0, fmt.Errorf("[Count] error response from OpenSearch: %w", err)
	}

	count := &searchstore.CountResponse{}
	if err := json.NewDecoder(res.Body).Decode(count); err != nil {
		return 0, fmt.Errorf("[Count] error decoding OpenSearch response: %w", err)
	}

	return count.Count, nil
}

func (c *Client) CreateIndex(ctx context.Context, index string, body map[string]any) error {
	reader, err := searchstore.CreateReader(body)
	if err != nil {
		return err
	}
	res, err := c.client.Indices.Create(index,
		c.client.Indices.Create.WithContext(ctx),
		c.client.Indices.Create.WithBody(reader),
	)
	if err != nil {
		return fmt.Errorf("[CreateIndex] error from OpenSearch: %w", err)
	}
	defer res.Body.Close()

	if err := c.isErrResponse(res); err != nil {
		return fmt.Errorf("[CreateIndex] error response from OpenSearch: %w", err)
	}

	return nil
}

func (c *Client) DeleteIndex(ctx context.Context, index []string) error {
	res, err := c.client.Indices.Delete(
		index,
		c.client.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("[DeleteIndex] error from OpenSearch: %w", err)
	}
	defer res.Body.Close()

	if err := c.isErrResponse(res); err != nil {
		return fmt.Errorf("[DeleteIndex] error response from OpenSearch: %w", err)
	}

	return nil
}

func (c *Client) IndexExists(ctx context.Context, index string) (bool, error) {
	res, err := c.client.Indices.Exists([]string{index},
		c.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("[IndexExists] error from OpenSearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return false, fmt.Errorf("[IndexExists] error response from OpenSearch: [%d]", res.StatusCode)
	}

	return res.StatusCode == http.StatusOK, nil
}

func (c *Client) RefreshIndex(ctx context.Context, index string) error {
	res, err := c.client.Indices.Refresh(
		c.client.Indices.Refresh.WithIndex(index),
		c.client.Indices.Refresh.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("[RefreshIndex] error from OpenSearch: %w", err)
	}
	defer res.Body.Close()

	if err := c.isErrResponse(res); err != nil {
		return fmt.Errorf("[RefreshIndex] error response from OpenSearch: %w", err)
	}

	return nil
}

func (c *Client) DeleteDocument(ctx context.Context, req *searchstore.DeleteDocumentRequest) error {
	opts := []func(*opensearchapi.DeleteRequest){
		c.client.Delete.WithContext(ctx),
	}
	if req.Refresh != "" {
		opts = append(opts, c.client.Delete.WithRefresh(req.Refresh))
	}
	res, err := c.client.Delete(req.Index, req.ID, opts...)
	if err != nil {
		return fmt.Errorf("[DeleteDocument] error from OpenSearch: %w", err)
	}
	defer res.Body.Close()

	if err := c.isErrResponse(res); err != nil {
		return fmt.Errorf("[DeleteDocument] error response from OpenSearch: %w", err)
	}

	return nil
}

func (c *Client) UpdateByQuery(ctx context.Context, req *searchstore.UpdateByQueryRequest) (*searchstore.UpdateByQueryResponse, error) {
	reader, err := searchstore.NewUpdateByQueryBody(req)
	if err != nil {
		return nil, err
	}
	opts := []func(*opensearchapi.UpdateByQueryRequest){
		c.client.UpdateByQuery.WithContext(ctx),
		c.client.UpdateByQuery.WithBody(reader),
		c.client.UpdateByQuery.WithRefresh(req.Refresh),
	}
	if req.Conflicts != "" {
		opts = append(opts, c.client.UpdateByQuery.WithConflicts(req.Conflicts))
	}
	res, err := c.client.UpdateByQuery([]string{req.Index}, opts...)
	if err != nil {
		return nil, fmt.Errorf("[UpdateByQuery] error from OpenSearch: %w", err)
	}
	defer res.Body.Close()

	if err := c.isErrResponse(res); err != nil {
		return nil, fmt.Errorf("[UpdateByQuery] error response from OpenSearch: %w", err)
	}

	var response searchstore.UpdateByQueryResponse
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("[UpdateByQuery] decoding response body: %w", err)
	}
	return &response, nil
}

func (c *Client) Perform(req *http.Request) (*http.Response, error) {
	return c.client.Transport.Perform(req)
}

func (c *Client) Search(ctx context.Context, req *searchstore.SearchRequest) (*searchstore.SearchResponse, error) {
	res, err := c.client.Search(c.parseSearchRequest(ctx, req)...)
	if err != nil {
		return nil, fmt.Errorf("[Search] error from OpenSearch: %w", err)
	}
	defer res.Body.Close()
	if err := c.isErrResponse(res); err != nil {
		return nil, fmt.Errorf("[Search] error response from OpenSearch: %w", err)
	}

	return decodeSearchResponse("Search", res.Body)
}

func (c *Client) Scroll(ctx context.Context, req *searchstore.ScrollRequest) (*searchstore.SearchResponse, error) {
	reader, err := searchstore.NewScrollBody(req)
	if err != nil {
		return nil, err
	}
	res, err := c.client.Scroll(
		c.client.Scroll.WithContext(ctx),
		c.client.Scroll.WithBody(reader),
	)
	if err != nil {
		return nil, fmt.Errorf("[Scroll] error from OpenSearch: %w", err)
	}
	defer res.Body.Close()
	if err := c.isErrResponse(res); err != nil {
		return nil, fmt.Errorf("[Scroll] error response from OpenSearch: %w", err)
	}

	return decodeSearchResponse("Scroll", res.Body)
}

func (c *Client) ClearScroll(ctx context.Context, scrollID string) error {
	reader, err := searchstore.NewClearScrollBody(scrollID)
	if err != nil {
		return err
	}
	res, err := c.client.ClearScroll(
		c.client.ClearScroll.WithContext(ctx),
		c.client.ClearScroll.WithBody(reader),
	)
	if err != nil {
		return fmt.Errorf("[ClearScroll] error from OpenSearch: %w", err)
	}
	defer res.Body.Close()

	if err := c.isErrResponse(res); err != nil {
		return fmt.Errorf("[ClearScroll] error response from OpenSearch: %w", err)
	}
	return nil
}

// SendBulkRequest can perform multiple indexing, update or delete operations
// in a single call.
func (c *Client) SendBulkRequest(ctx context.Context, items []searchstore.BulkItem, onResult func(searchstore.BulkItemResult) error) error {
	if err := searchstore.SendBulk(ctx, c, items, onResult); err != nil {
		return fmt.Errorf("[SendBulkRequest] error from OpenSearch: %w", err)
	}
	return nil
}

func (c *Client) parseSearchRequest(ctx context.Context, req *searchstore.SearchRequest) []func(*opensearchapi.SearchRequest) {
	opts := []func(*opensearchapi.SearchRequest){
		c.client.Search.WithContext(ctx),
	}
	if req.Index != nil {
		opts = append(opts, c.client.Search.WithIndex(*req.Index))
	}
	if req.Size != nil {
		opts = append(opts, c.client.Search.WithSize(*req.Size))
	}
	if req.From != nil {
		opts = append(opts, c.client.Search.WithFrom(*req.From))
	}
	if req.Sort != nil {
		opts = append(opts, c.client.Search.WithSort(*req.Sort))
	}
	if req.Scroll != nil {
		opts = append(opts, c.client.Search.WithScroll(*req.Scroll))
	}
	if req.Query != nil {
		opts = append(opts, c.client.Search.WithBody(req.Query))
	}

	return opts
}

func (c *Client) isErrResponse(res *opensearchapi.Response) error {
	return searchstore.IsErrResponse(newAPIResponse(res))
}

func decodeSearchResponse(op string, body io.Reader) (*searchstore.SearchResponse, error) {
	var response searchstore.SearchResponse
	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return nil, fmt.Errorf("[%s] decoding response body: %w: %w", op, errInvalidSearchEnvelope, err)
	}
	return &response, nil
}

func newClient(cfg *searchstore.ClientConfig) (*opensearch.Client, error) {
	if cfg.URL == "" {
		return nil, searchstore.ErrMissingAddress
	}

	transport, err := cfg.Transport()
	if err != nil {
		return nil, err
	}

	return opensearch.NewClient(opensearch.Config{
		Addresses:     []string{cfg.URL},
		Username:      cfg.Username,
		Password:      cfg.Password,
		Transport:     transport,
		RetryOnStatus: searchstore.RetryOnStatus,
		MaxRetries:    cfg.GetMaxRetries(),
		RetryBackoff:  cfg.RetryBackoffFn(),
	})
}

type apiResponse struct {
	*opensearchapi.Response
}

func newAPIResponse(res *opensearchapi.Response) *apiResponse {
	return &apiResponse{Response: res}
}

func (r *apiResponse) GetBody() io.ReadCloser {
	return r.Body
}

func (r *apiResponse) GetStatusCode() int {
	return r.StatusCode
}
