// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/xataio/docsync/internal/json"
	"github.com/xataio/docsync/internal/progress"
	"github.com/xataio/docsync/pkg/docstore"
)

var queryCmd = &cobra.Command{
	Use:   "query <collection>",
	Short: "Returns the documents matching any of the given field values",
	Args:  cobra.ExactArgs(1),
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

		result, err := store.QueryByFields(cmd.Context(), args[0], fields)
		return printResponse(cmd.OutOrStdout(), result, err)
	},
	Example: `
	docsync query books --fields '{"author":"Frank Herbert","status":"available"}'`,
}

var searchCmd = &cobra.Command{
	Use:   "search <collection>",
	Short: "Runs an engine native query against a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rawQuery, _ := cmd.Flags().GetString("query")
		if queryFile, _ := cmd.Flags().GetString("query-file"); queryFile != "" {
			content, err := os.ReadFile(queryFile)
			if err != nil {
				return fmt.Errorf("reading query file: %w", err)
			}
			rawQuery = string(content)
		}

		query, err := parseJSONObject(rawQuery)
		if err != nil {
			return fmt.Errorf("parsing query: %w", err)
		}

		store, err := newStore(newLogger())
		if err != nil {
			return err
		}

		result, err := store.CustomQuery(cmd.Context(), args[0], query)
		return printResponse(cmd.OutOrStdout(), result, err)
	},
	Example: `
	docsync search books --query '{"range":{"pages":{"gte":500}}}'
	docsync search books --query-file query.json`,
}

var exportCmd = &cobra.Command{
	Use:   "export <collection>",
	Short: "Exports all the documents of a collection as NDJSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if output, _ := cmd.Flags().GetString("output"); output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating export file: %w", err)
			}
			defer f.Close()
			out = f
		}

		store, err := newStore(newLogger())
		if err != nil {
			return err
		}

		bar := progress.NewCountBar(os.Stderr, fmt.Sprintf("exporting %s", args[0]))
		exported, err := exportDocuments(cmd.Context(), store, args[0], out, bar)
		bar.Close()
		if err != nil {
			return printResponse(os.Stderr, nil, err)
		}

		fmt.Fprintf(os.Stderr, "%d documents exported\n", exported)
		return nil
	},
	Example: `
	docsync export books --output books.ndjson`,
}

type scanner interface {
	ScanEach(ctx context.Context, collection string, fn func(*docstore.Hit) error) error
}

// exportDocuments writes the source of every document of the collection to
// w, one JSON object per line, and returns the number of documents written.
func exportDocuments(ctx context.Context, store scanner, collection string, w io.Writer, bar progress.Bar) (int, error) {
	enc := json.NewEncoder(w)
	exported := 0
	err := store.ScanEach(ctx, collection, func(hit *docstore.Hit) error {
		if err := enc.Encode(hit); err != nil {
			return fmt.Errorf("writing document %s: %w", hit.ID, err)
		}
		exported++
		return bar.Add(1)
	})
	return exported, err
}
