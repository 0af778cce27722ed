// SPDX-License-Identifier: Apache-2.0

package searchstore

import (
	"bytes"
	"context"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
	"github.com/xataio/docsync/internal/json"
)

var errInvalidBulkItem = errors.New("bulk item must set exactly one action")

// SendBulk posts the items to the bulk API through the performer and streams
// the per item results to onResult as they are decoded.
func SendBulk(ctx context.Context, p Performer, items []BulkItem, onResult func(BulkItemResult) error) error {
	buffer := new(bytes.Buffer)
	if err := EncodeBulkItems(buffer, items); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/_bulk", buffer)
	if err != nil {
		return fmt.Errorf("new http request: %w", err)
	}
	req.Header.Add("Content-Type", "application/x-ndjson")

	resp, err := p.Perform(req)
	if err != nil {
		return fmt.Errorf("perform: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode > 299 {
		return ExtractResponseError(resp.Body, resp.StatusCode)
	}

	return DecodeBulkResponse(resp.Body, len(items), onResult)
}

// EncodeBulkItems writes the NDJSON bulk request body for the items.
func EncodeBulkItems(buffer io.Writer, items []BulkItem) error {
	encoder := json.NewEncoder(buffer)
	for _, item := range items {
		action, err := item.action()
		if err != nil {
			return err
		}
		if err := encoder.Encode(item); err != nil {
			return fmt.Errorf("encoding bulk action: %w", err)
		}

		switch action {
		case "index", "create":
			if err := encoder.Encode(item.Doc); err != nil {
				return fmt.Errorf("encoding bulk document: %w", err)
			}
		case "update":
			if err := encoder.Encode(map[string]any{"doc": item.Doc}); err != nil {
				return fmt.Errorf("encoding bulk update: %w", err)
			}
		}
	}
	return nil
}

// DecodeBulkResponse walks the bulk response body token by token, so that
// results are delivered without buffering the whole response. Keys other than
// the items array are skipped.
func DecodeBulkResponse(r io.Reader, expected int, onResult func(BulkItemResult) error) error {
	dec := stdjson.NewDecoder(r)
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}

	position := 0
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("reading bulk response key: %w", err)
		}
		if key, _ := tok.(string); key != "items" {
			var skip stdjson.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return fmt.Errorf("skipping bulk response field %v: %w", tok, err)
			}
			continue
		}

		if err := expectDelim(dec, '['); err != nil {
			return err
		}
		for dec.More() {
			var raw stdjson.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return fmt.Errorf("decoding bulk item %d: %w", position, err)
			}
			if err := onResult(parseBulkItemResult(raw, position)); err != nil {
				return err
			}
			position++
		}
		if err := expectDelim(dec, ']'); err != nil {
			return err
		}
	}

	if position != expected {
		return fmt.Errorf("%w: sent %d, received %d", ErrBulkResponseMismatch, expected, position)
	}
	return nil
}

func parseBulkItemResult(raw []byte, position int) BulkItemResult {
	result := BulkItemResult{Position: position}
	gjson.ParseBytes(raw).ForEach(func(key, value gjson.Result) bool {
		result.Action = key.String()
		result.Index = value.Get("_index").String()
		result.ID = value.Get("_id").String()
		result.Status = int(value.Get("status").Int())
		result.Result = value.Get("result").String()
		if e := value.Get("error"); e.Exists() {
			result.Error = stdjson.RawMessage(e.Raw)
		}
		return false
	})
	return result
}

func expectDelim(dec *stdjson.Decoder, want stdjson.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("reading bulk response: %w", err)
	}
	if d, ok := tok.(stdjson.Delim); !ok || d != want {
		return fmt.Errorf("unexpected token in bulk response: %v", tok)
	}
	return nil
}

func (i *BulkItem) action() (string, error) {
	action, count := "", 0
	if i.Index != nil {
		action, count = "index", count+1
	}
	if i.Create != nil {
		action, count = "create", count+1
	}
	if i.Update != nil {
		action, count = "update", count+1
	}
	if i.Delete != nil {
		action, count = "delete", count+1
	}
	if count != 1 {
		return "", errInvalidBulkItem
	}
	return action, nil
}
