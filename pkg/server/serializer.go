// SPDX-License-Identifier: Apache-2.0

package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xataio/docsync/internal/json"
)

// jsonSerializer uses the internal codec, so numbers in request bodies are
// decoded as json.Number and document ids keep their exact representation.
type jsonSerializer struct{}

func (s *jsonSerializer) Serialize(c echo.Context, i any, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (s *jsonSerializer) Deserialize(c echo.Context, i any) error {
	err := json.NewDecoder(c.Request().Body).Decode(i)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		return echo.NewHTTPError(http.StatusBadRequest, "empty request body").SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err)).SetInternal(err)
	}
}
