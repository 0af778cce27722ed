// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xataio/docsync/internal/json"
	"github.com/xataio/docsync/internal/progress"
	"github.com/xataio/docsync/pkg/docstore"
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Manages the documents of a collection",
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <collection>",
	Short: "Ingests the documents of a JSON array or NDJSON file into a collection",
	Args:  cobra.ExactArgs(1),
	RunE:  withProfiling(ingest),
	Example: `
	docsync documents ingest books --file books.ndjson --id-field isbn
	docsync documents ingest books --file books.json --refresh -c config.yaml`,
}

var getDocumentCmd = &cobra.Command{
	Use:   "get <collection> <id>",
	Short: "Reads a document by id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore(newLogger())
		if err != nil {
			return err
		}

		hit, err := store.ReadDocument(cmd.Context(), args[0], args[1])
		return printResponse(cmd.OutOrStdout(), hit, err)
	},
	Example: `
	docsync documents get books 9780441013593`,
}

var updateDocumentCmd = &cobra.Command{
	Use:   "update <collection> <id>",
	Short: "Sets the given fields on a document. Fields are updated one at a time, and the ones already applied are kept if a later one fails",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rawFields, _ := cmd.Flags().GetString("fields")
		fields, err := parseJSONObject(rawFields)
		if err != nil {
			return fmt.Errorf("parsing fields: %w", err)
		}

		store, err := newStore(newLogger())
		if err != nil {
			return err
		}

		err = store.UpdateDocument(cmd.Context(), args[0], args[1], fields)
		return printResponse(cmd.OutOrStdout(), nil, err)
	},
	Example: `
	docsync documents update books 9780441013593 --fields '{"status":"available","copies":3}'`,
}

var deleteDocumentCmd = &cobra.Command{
	Use:   "delete <collection> <id>",
	Short: "Deletes a document by id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore(newLogger())
		if err != nil {
			return err
		}

		err = store.DeleteDocument(cmd.Context(), args[0], args[1])
		return printResponse(cmd.OutOrStdout(), nil, err)
	},
	Example: `
	docsync documents delete books 9780441013593`,
}

var errNotAnObject = errors.New("value must be a JSON object")

func ingest(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	idField, _ := cmd.Flags().GetString("id-field")
	refresh, _ := cmd.Flags().GetBool("refresh")
	collection := args[0]

	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("opening documents file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("reading documents file: %w", err)
	}

	bar := progress.NewBytesBar(os.Stderr, info.Size(), fmt.Sprintf("reading %s", file))
	docs, err := readDocuments(f, bar)
	bar.Close()
	if err != nil {
		return err
	}

	store, err := newStore(newLogger())
	if err != nil {
		return err
	}

	sp := startSpinner(fmt.Sprintf("ingesting %d documents into %s...", len(docs), collection))
	outcome, err := store.CreateDocuments(cmd.Context(), collection, docs, idField)
	if err == nil && refresh {
		err = store.RefreshCollection(cmd.Context(), collection)
	}
	finishSpinner(sp, ingestSummary(outcome), err)

	return printResponse(cmd.OutOrStdout(), outcome, err)
}

func ingestSummary(outcome *docstore.FlushOutcome) string {
	if outcome == nil {
		return "no documents ingested"
	}
	return fmt.Sprintf("%d documents ingested, %d failed, in %d bulk requests", len(outcome.IDs), len(outcome.Failures), outcome.Flushes)
}

// readDocuments decodes either a JSON array of documents or a stream of
// newline delimited documents. Read progress is reported on the bar.
func readDocuments(r io.Reader, bar progress.Bar) ([]docstore.Document, error) {
	br := bufio.NewReader(&progressReader{reader: r, bar: bar})
	first, err := firstNonSpace(br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []docstore.Document{}, nil
		}
		return nil, fmt.Errorf("reading documents: %w", err)
	}

	if first == '[' {
		docs := []docstore.Document{}
		if err := json.NewDecoder(br).Decode(&docs); err != nil {
			return nil, fmt.Errorf("decoding documents array: %w", err)
		}
		return docs, nil
	}

	return readNDJSON(br)
}

// maxDocumentBytes bounds the size of a single NDJSON line.
const maxDocumentBytes = 64 << 20

// readNDJSON decodes one document per non blank line. A truncated or
// malformed line fails the whole read, reporting its line number.
func readNDJSON(r io.Reader) ([]docstore.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxDocumentBytes)

	docs := []docstore.Document{}
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var doc docstore.Document
		if err := json.UnmarshalWithNumbers(raw, &doc); err != nil {
			return nil, fmt.Errorf("decoding document on line %d: %w", line, err)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading document on line %d: %w", line+1, err)
	}
	return docs, nil
}

func firstNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !bytes.ContainsRune([]byte(" \t\r\n"), rune(b)) {
			return b, br.UnreadByte()
		}
	}
}

func parseJSONObject(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errNotAnObject
	}
	obj := map[string]any{}
	if err := json.NewDecoder(strings.NewReader(raw)).Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: %w", errNotAnObject, err)
	}
	return obj, nil
}

type progressReader struct {
	reader io.Reader
	bar    progress.Bar
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.bar.Add(n)
	}
	return n, err
}
