// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/xataio/docsync/internal/json"
	"github.com/xataio/docsync/pkg/docstore"
	"gopkg.in/yaml.v3"
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manages document store collections",
}

var createCollectionCmd = &cobra.Command{
	Use:   "create <collection>",
	Short: "Creates a collection from a schema file. The schema is validated and translated to the engine mapping, unless --custom is set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		schemaFile, _ := cmd.Flags().GetString("schema-file")
		custom, _ := cmd.Flags().GetBool("custom")

		raw, err := readSchemaFile(schemaFile)
		if err != nil {
			return err
		}

		store, err := newStore(newLogger())
		if err != nil {
			return err
		}

		sp := startSpinner(fmt.Sprintf("creating collection %s...", args[0]))
		if custom {
			err = store.CreateCollectionWithNativeMapping(cmd.Context(), args[0], raw)
		} else {
			var mapping docstore.Mapping
			mapping, err = docstore.ParseMapping(raw)
			if err == nil {
				err = store.CreateCollection(cmd.Context(), args[0], mapping)
			}
		}
		finishSpinner(sp, "collection created", err)
		return printResponse(cmd.OutOrStdout(), nil, err)
	},
	Example: `
	docsync collection create books --schema-file books.yaml
	docsync collection create books --schema-file mapping.json --custom --engine opensearch --engine-url http://localhost:9200`,
}

var deleteCollectionCmd = &cobra.Command{
	Use:   "delete <collection>",
	Short: "Deletes a collection and all its documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore(newLogger())
		if err != nil {
			return err
		}

		sp := startSpinner(fmt.Sprintf("deleting collection %s...", args[0]))
		err = store.DeleteCollection(cmd.Context(), args[0])
		finishSpinner(sp, "collection deleted", err)
		return printResponse(cmd.OutOrStdout(), nil, err)
	},
	Example: `
	docsync collection delete books -c config.env`,
}

// readSchemaFile decodes a YAML or JSON schema file. Files without a .json
// extension are parsed as YAML.
func readSchemaFile(file string) (map[string]any, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	return parseSchema(content, filepath.Ext(file) == ".json")
}

func parseSchema(content []byte, isJSON bool) (map[string]any, error) {
	schema := map[string]any{}
	if isJSON {
		if err := json.NewDecoder(bytes.NewReader(content)).Decode(&schema); err != nil {
			return nil, fmt.Errorf("parsing json schema: %w", err)
		}
		return schema, nil
	}

	if err := yaml.Unmarshal(content, &schema); err != nil {
		return nil, fmt.Errorf("parsing yaml schema: %w", err)
	}
	return schema, nil
}
