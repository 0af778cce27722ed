// SPDX-License-Identifier: Apache-2.0

package elasticsearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/xataio/docsync/internal/json"
	"github.com/xataio/docsync/internal/searchstore"
)

type Client struct {
	client *elasticsearch.Client
	mapper *Mapper
}

var errInvalidSearchEnvelope = errors.New("invalid search response")

func NewClient(cfg *searchstore.ClientConfig) (*Client, error) {
	es, err := newClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &Client{
		client: es,
		mapper: NewMapper(),
	}, nil
}

func (ec *Client) GetMapper() searchstore.Mapper {
	return ec.mapper
}

func (ec *Client) Count(ctx context.Context, index string) (int, error) {
	res, err := ec.client.Count(
		ec.client.Count.WithIndex(index),
		ec.client.Count.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("[Count] error from Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if err := ec.isErrResponse(res); err != nil {
		return 0, fmt.Errorf("[Count] error response from Elasticsearch: %w", err)
	}

	count := &searchstore.CountResponse{}
	if err := json.NewDecoder(res.Body).Decode(count); err != nil {
		return 0, fmt.Errorf("[Count] error decoding Elasticsearch response: %w", err)
	}

	return count.Count, nil
}

func (ec *Client) CreateIndex(ctx context.Context, index string, body map[string]any) error {
	reader, err := searchstore.CreateReader(body)
	if err != nil {
		return err
	}
	res, err := ec.client.Indices.Create(index,
		ec.client.Indices.Create.WithContext(ctx),
		ec.client.Indices.Create.WithBody(reader),
	)
	if err != nil {
		return fmt.Errorf("[CreateIndex] error from Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if err := ec.isErrResponse(res); err != nil {
		return fmt.Errorf("[CreateIndex] error response from Elasticsearch: %w", err)
	}

	return nil
}

func (ec *Client) DeleteIndex(ctx context.Context, index []string) error {
	res, err := ec.client.Indices.Delete(
		index,
		ec.client.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("[DeleteIndex] error from Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if err := ec.isErrResponse(res); err != nil {
		return fmt.Errorf("[DeleteIndex] error response from Elasticsearch: %w", err)
	}

	return nil
}

func (ec *Client) IndexExists(ctx context.Context, index string) (bool, error) {
	res, err := ec.client.Indices.Exists([]string{index},
		ec.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("[IndexExists] error from Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return false, fmt.Errorf("[IndexExists] error response from Elasticsearch: [%d]", res.StatusCode)
	}

	return res.StatusCode == http.StatusOK, nil
}

func (ec *Client) RefreshIndex(ctx context.Context, index string) error {
	res, err := ec.client.Indices.Refresh(
		ec.client.Indices.Refresh.WithIndex(index),
		ec.client.Indices.Refresh.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("[RefreshIndex] error from Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if err := ec.isErrResponse(res); err != nil {
		return fmt.Errorf("[RefreshIndex] error response from Elasticsearch: %w", err)
	}

	return nil
}

func (ec *Client) DeleteDocument(ctx context.Context, req *searchstore.DeleteDocumentRequest) error {
	opts := []func(*esapi.DeleteRequest){
		ec.client.Delete.WithContext(ctx),
	}
	if req.Refresh != "" {
		opts = append(opts, ec.client.Delete.WithRefresh(req.Refresh))
	}
	res, err := ec.client.Delete(req.Index, req.ID, opts...)
	if err != nil {
		return fmt.Errorf("[DeleteDocument] error from Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if err := ec.isErrResponse(res); err != nil {
		return fmt.Errorf("[DeleteDocument] error response from Elasticsearch: %w", err)
	}

	return nil
}

func (ec *Client) UpdateByQuery(ctx context.Context, req *searchstore.UpdateByQueryRequest) (*searchstore.UpdateByQueryResponse, error) {
	reader, err := searchstore.NewUpdateByQueryBody(req)
	if err != nil {
		return nil, err
	}
	opts := []func(*esapi.UpdateByQueryRequest){
		ec.client.UpdateByQuery.WithContext(ctx),
		ec.client.UpdateByQuery.WithBody(reader),
		ec.client.UpdateByQuery.WithRefresh(req.Refresh),
	}
	if req.Conflicts != "" {
		opts = append(opts, ec.client.UpdateByQuery.WithConflicts(req.Conflicts))
	}
	res, err := ec.client.UpdateByQuery([]string{req.Index}, opts...)
	if err != nil {
		return nil, fmt.Errorf("[UpdateByQuery] error from Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if err := ec.isErrResponse(res); err != nil {
		return nil, fmt.Errorf("[UpdateByQuery] error response from Elasticsearch: %w", err)
	}

	var response searchstore.UpdateByQueryResponse
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("[UpdateByQuery] decoding response body: %w", err)
	}
	return &response, nil
}

func (ec *Client) Perform(req *http.Request) (*http.Response, error) {
	return ec.client.Transport.Perform(req)
}

func (ec *Client) Search(ctx context.Context, req *searchstore.SearchRequest) (*searchstore.SearchResponse, error) {
	res, err := ec.client.Search(ec.parseSearchRequest(ctx, req)...)
	if err != nil {
		return nil, fmt.Errorf("[Search] error from Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if err := ec.isErrResponse(res); err != nil {
		return nil, fmt.Errorf("[Search] error response from Elasticsearch: %w", err)
	}

	return decodeSearchResponse("Search", res.Body)
}

func (ec *Client) Scroll(ctx context.Context, req *searchstore.ScrollRequest) (*searchstore.SearchResponse, error) {
	reader, err := searchstore.NewScrollBody(req)
	if err != nil {
		return nil, err
	}
	res, err := ec.client.Scroll(
		ec.client.Scroll.WithContext(ctx),
		ec.client.Scroll.WithBody(reader),
	)
	if err != nil {
		return nil, fmt.Errorf("[Scroll] error from Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if err := ec.isErrResponse(res); err != nil {
		return nil, fmt.Errorf("[Scroll] error response from Elasticsearch: %w", err)
	}

	return decodeSearchResponse("Scroll", res.Body)
}

func (ec *Client) ClearScroll(ctx context.Context, scrollID string) error {
	reader, err := searchstore.NewClearScrollBody(scrollID)
	if err != nil {
		return err
	}
	res, err := ec.client.ClearScroll(
		ec.client.ClearScroll.WithContext(ctx),
		ec.client.ClearScroll.WithBody(reader),
	)
	if err != nil {
		return fmt.Errorf("[ClearScroll] error from Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if err := ec.isErrResponse(res); err != nil {
		return fmt.Errorf("[ClearScroll] error response from Elasticsearch: %w", err)
	}
	return nil
}

// SendBulkRequest can perform multiple indexing, update or delete operations
// in a single call.
func (ec *Client) SendBulkRequest(ctx context.Context, items []searchstore.BulkItem, onResult func(searchstore.BulkItemResult) error) error {
	if err := searchstore.SendBulk(ctx, ec, items, onResult); err != nil {
		return fmt.Errorf("[SendBulkRequest] error from Elasticsearch: %w", err)
	}
	return nil
}

func (ec *Client) parseSearchRequest(ctx context.Context, req *searchstore.SearchRequest) []func(*esapi.SearchRequest) {
	opts := []func(*esapi.SearchRequest){
		ec.client.Search.WithContext(ctx),
	}
	if req.Index != nil {
		opts = append(opts, ec.client.Search.WithIndex(*req.Index))
	}
	if req.Size != nil {
		opts = append(opts, ec.client.Search.WithSize(*req.Size))
	}
	if req.From != nil {
		opts = append(opts, ec.client.Search.WithFrom(*req.From))
	}
	if req.Sort != nil {
		opts = append(opts, ec.client.Search.WithSort(*req.Sort))
	}
	if req.Scroll != nil {
		opts = append(opts, ec.client.Search.WithScroll(*req.Scroll))
	}
	if req.Query != nil {
		opts = append(opts, ec.client.Search.WithBody(req.Query))
	}

	return opts
}

func (ec *Client) isErrResponse(res *esapi.Response) error {
	return searchstore.IsErrResponse(newAPIResponse(res))
}

func decodeSearchResponse(op string, body io.Reader) (*searchstore.SearchResponse, error) {
	var response searchstore.SearchResponse
	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return nil, fmt.Errorf("[%s] decoding response body: %w: %w", op, errInvalidSearchEnvelope, err)
	}
	return &response, nil
}

func newClient(cfg *searchstore.ClientConfig) (*elasticsearch.Client, error) {
	if cfg.URL == "" {
		return nil, searchstore.ErrMissingAddress
	}

	transport, err := cfg.Transport()
	if err != nil {
		return nil, err
	}

	return elasticsearch.NewClient(elasticsearch.Config{
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
	*esapi.Response
}

func newAPIResponse(res *esapi.Response) *apiResponse {
	return &apiResponse{Response: res}
}

func (r *apiResponse) GetBody() io.ReadCloser {
	return r.Body
}

func (r *apiResponse) GetStatusCode() int {
	return r.StatusCode
}
