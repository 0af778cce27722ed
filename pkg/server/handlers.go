// SPDX-License-Identifier: Apache-2.0

package server

import (
	"bytes"
	stdjson "encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xataio/docsync/internal/json"
	"github.com/xataio/docsync/pkg/docstore"
	loglib "github.com/xataio/docsync/pkg/log"
	"github.com/xataio/docsync/pkg/summarizer"
)

type createCollectionRequest struct {
	Schema       map[string]any `json:"schema"`
	CustomSchema bool           `json:"custom_schema"`
}

type createDocumentsRequest struct {
	// Documents is either an array of documents or a single document.
	Documents stdjson.RawMessage `json:"documents"`
	IDField   string             `json:"id_field"`
}

type customQueryRequest struct {
	Query map[string]any `json:"query"`
}

type summarizeRequest struct {
	Document string              `json:"document"`
	Targets  []summarizer.Target `json:"targets"`
}

type summarizeResponse struct {
	Summaries []summarizer.Summary `json:"summaries"`
}

var errSummarizerDisabled = errors.New("summarization is not configured")

const ndjsonContentType = "application/x-ndjson"

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, &docstore.Response{Status: docstore.StatusOK})
}

func (s *Server) summarize(c echo.Context) error {
	if s.summarizer == nil {
		return c.JSON(http.StatusServiceUnavailable, &docstore.Response{
			Status:  docstore.StatusError,
			Message: errSummarizerDisabled.Error(),
		})
	}

	req := &summarizeRequest{}
	if err := s.decodeBody(c, req); err != nil {
		return s.respond(c, nil, err, http.StatusOK)
	}

	summaries, err := s.summarizer.Summarize(c.Request().Context(), req.Document, req.Targets)
	if err != nil {
		s.logger.Error(err, "summarizing document", loglib.Fields{
			loglib.RequestIDField: requestID(c),
			"targets":             len(req.Targets),
		})
		return c.JSON(http.StatusBadGateway, &docstore.Response{
			Status:  docstore.StatusError,
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusOK, &summarizeResponse{Summaries: summaries})
}

func (s *Server) createCollection(c echo.Context) error {
	req := &createCollectionRequest{}
	if err := s.decodeBody(c, req); err != nil {
		return s.respond(c, nil, err, http.StatusCreated)
	}

	ctx := c.Request().Context()
	collection := c.Param("collection")
	if req.CustomSchema {
		err := s.store.CreateCollectionWithNativeMapping(ctx, collection, req.Schema)
		return s.respond(c, nil, err, http.StatusCreated)
	}

	mapping, err := docstore.ParseMapping(req.Schema)
	if err != nil {
		return s.respond(c, nil, err, http.StatusCreated)
	}
	err = s.store.CreateCollection(ctx, collection, mapping)
	return s.respond(c, nil, err, http.StatusCreated)
}

func (s *Server) deleteCollection(c echo.Context) error {
	err := s.store.DeleteCollection(c.Request().Context(), c.Param("collection"))
	return s.respond(c, nil, err, http.StatusOK)
}

func (s *Server) createDocuments(c echo.Context) error {
	req := &createDocumentsRequest{}
	if err := s.decodeBody(c, req); err != nil {
		return s.respond(c, nil, err, http.StatusCreated)
	}

	docs, err := decodeDocuments(req.Documents)
	if err != nil {
		return s.respond(c, nil, err, http.StatusCreated)
	}

	outcome, err := s.store.CreateDocuments(c.Request().Context(), c.Param("collection"), docs, req.IDField)
	success := http.StatusCreated
	if outcome != nil && outcome.HasFailures() {
		success = http.StatusMultiStatus
	}
	return s.respond(c, outcome, err, success)
}

func (s *Server) readDocument(c echo.Context) error {
	hit, err := s.store.ReadDocument(c.Request().Context(), c.Param("collection"), c.Param("id"))
	return s.respond(c, hit, err, http.StatusOK)
}

func (s *Server) updateDocument(c echo.Context) error {
	fields := docstore.Document{}
	if err := s.decodeBody(c, &fields); err != nil {
		return s.respond(c, nil, err, http.StatusOK)
	}

	err := s.store.UpdateDocument(c.Request().Context(), c.Param("collection"), c.Param("id"), fields)
	return s.respond(c, nil, err, http.StatusOK)
}

func (s *Server) deleteDocument(c echo.Context) error {
	err := s.store.DeleteDocument(c.Request().Context(), c.Param("collection"), c.Param("id"))
	return s.respond(c, nil, err, http.StatusOK)
}

func (s *Server) queryByFields(c echo.Context) error {
	fields := map[string]any{}
	if err := s.decodeBody(c, &fields); err != nil {
		return s.respond(c, nil, err, http.StatusOK)
	}

	result, err := s.store.QueryByFields(c.Request().Context(), c.Param("collection"), fields)
	return s.respond(c, result, err, http.StatusOK)
}

func (s *Server) customQuery(c echo.Context) error {
	req := &customQueryRequest{}
	if err := s.decodeBody(c, req); err != nil {
		return s.respond(c, nil, err, http.StatusOK)
	}

	result, err := s.store.CustomQuery(c.Request().Context(), c.Param("collection"), req.Query)
	return s.respond(c, result, err, http.StatusOK)
}

// export streams every document of the collection as one JSON object per
// line. Errors after the first document can only be logged, since the status
// has already been sent.
func (s *Server) export(c echo.Context) error {
	collection := c.Param("collection")
	resp := c.Response()
	enc := json.NewEncoder(resp)

	exported := 0
	err := s.store.ScanEach(c.Request().Context(), collection, func(hit *docstore.Hit) error {
		if exported == 0 {
			resp.Header().Set(echo.HeaderContentType, ndjsonContentType)
			resp.WriteHeader(http.StatusOK)
		}
		if err := enc.Encode(hit); err != nil {
			return err
		}
		exported++
		resp.Flush()
		return nil
	})

	if err != nil && exported == 0 {
		return s.respond(c, nil, err, http.StatusOK)
	}
	if err != nil {
		s.logger.Error(err, "export interrupted", loglib.Fields{
			loglib.RequestIDField:  requestID(c),
			loglib.CollectionField: collection,
			"exported":             exported,
		})
		return nil
	}

	if exported == 0 {
		resp.Header().Set(echo.HeaderContentType, ndjsonContentType)
		resp.WriteHeader(http.StatusOK)
	}
	s.logger.Debug("export completed", loglib.Fields{
		loglib.CollectionField: collection,
		"exported":             exported,
	})
	return nil
}

// decodeDocuments accepts a JSON array of documents or a single document
// object, which is wrapped into a one element batch. A missing or null value
// is an empty batch.
func decodeDocuments(raw []byte) ([]docstore.Document, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []docstore.Document{}, nil
	}

	switch raw[0] {
	case '[':
		docs := []docstore.Document{}
		if err := json.UnmarshalWithNumbers(raw, &docs); err != nil {
			return nil, &docstore.ArgumentError{Argument: "documents", Index: -1, Reason: err.Error()}
		}
		return docs, nil
	case '{':
		doc := docstore.Document{}
		if err := json.UnmarshalWithNumbers(raw, &doc); err != nil {
			return nil, &docstore.ArgumentError{Argument: "documents", Index: -1, Reason: err.Error()}
		}
		return []docstore.Document{doc}, nil
	default:
		return nil, &docstore.ArgumentError{Argument: "documents", Index: -1, Reason: "must be a document or an array of documents"}
	}
}

// decodeBody decodes the JSON request body into v. Decoding failures are
// returned as argument errors.
func (s *Server) decodeBody(c echo.Context, v any) error {
	if err := c.Echo().JSONSerializer.Deserialize(c, v); err != nil {
		reason := err.Error()
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			if msg, ok := httpErr.Message.(string); ok {
				reason = msg
			}
		}
		return &docstore.ArgumentError{Argument: "body", Index: -1, Reason: reason}
	}
	return nil
}

func (s *Server) respond(c echo.Context, data any, err error, success int) error {
	resp := docstore.NewResponse(data, err)
	status := httpStatus(resp, success)
	if err != nil {
		fields := loglib.Fields{
			loglib.RequestIDField:  requestID(c),
			loglib.CollectionField: c.Param("collection"),
			loglib.ErrorKindField:  resp.ErrorKind,
		}
		if status >= http.StatusInternalServerError {
			s.logger.Error(err, "request failed", fields)
		} else {
			s.logger.Debug("request rejected", loglib.MergeFields(fields, loglib.Fields{"error": err.Error()}))
		}
	}
	return c.JSON(status, resp)
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}
