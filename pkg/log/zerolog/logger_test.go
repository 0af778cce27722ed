// SPDX-License-Identifier: Apache-2.0

package zerolog

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	loglib "github.com/xataio/docsync/pkg/log"
)

func newTestLogger(buf *bytes.Buffer) *Logger {
	zl := zerolog.New(buf).Level(zerolog.TraceLevel)
	return NewLogger(&zl)
}

func TestLogger_fields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := newTestLogger(buf).WithFields(loglib.Fields{loglib.ModuleField: "docstore"})

	logger.Error(errors.New("oh noes"), "bulk request failed", loglib.Fields{
		loglib.CollectionField: "books",
		"documents":            3,
		"latency":              1500 * time.Millisecond,
		"retryable":            true,
		"response":             json.RawMessage(`{"error":{"type":"mapper_parsing_exception"}}`),
	})

	line := buf.String()
	require.Equal(t, "error", gjson.Get(line, "level").String())
	require.Equal(t, "bulk request failed", gjson.Get(line, "message").String())
	require.Equal(t, "oh noes", gjson.Get(line, zerolog.ErrorFieldName).String())
	require.Equal(t, "docstore", gjson.Get(line, loglib.ModuleField).String())
	require.Equal(t, "books", gjson.Get(line, loglib.CollectionField).String())
	require.Equal(t, int64(3), gjson.Get(line, "documents").Int())
	require.True(t, gjson.Get(line, "retryable").Bool())
	require.Equal(t, "mapper_parsing_exception", gjson.Get(line, "response.error.type").String())
}

func TestLogger_WithFields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	base := newTestLogger(buf)
	child := base.WithFields(loglib.Fields{"a": "1"}).WithFields(loglib.Fields{"b": "2"})

	child.Info("child")
	base.Info("base")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "1", gjson.Get(lines[0], "a").String())
	require.Equal(t, "2", gjson.Get(lines[0], "b").String())
	require.False(t, gjson.Get(lines[1], "a").Exists())
}

func Test_truncate(t *testing.T) {
	t.Parallel()

	long := bytes.Repeat([]byte("x"), logMaxBytes+10)
	require.Len(t, truncate(long), logMaxBytes)
	require.Equal(t, []byte("short"), truncate([]byte("short")))

	buf := &bytes.Buffer{}
	newTestLogger(buf).Debug("invalid payload", loglib.Fields{"response": json.RawMessage("not json")})
	require.Equal(t, "not json", gjson.Get(buf.String(), "response").String())
}
