// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xataio/docsync/cmd/config"
	"github.com/xataio/docsync/pkg/service"
)

var serveCmd = &cobra.Command{
	Use:    "serve",
	Short:  "Serve starts the docsync HTTP API for the configured document store",
	PreRun: serveFlagBinding,
	RunE:   withProfiling(withSignalWatcher(serve)),
	Example: `
	docsync serve --engine opensearch --engine-url http://localhost:9200
	docsync serve --engine elasticsearch --engine-url http://localhost:9200 --generator-url http://localhost:8000/generate
	docsync serve --config config.yaml --log-level debug
	docsync serve --config config.env --profile`,
}

func serve(ctx context.Context) error {
	logger := newLogger()

	serviceConfig, err := config.ParseServiceConfig()
	if err != nil {
		return fmt.Errorf("parsing docsync config: %w", err)
	}

	provider, err := newInstrumentationProvider()
	if err != nil {
		return err
	}
	defer provider.Close()

	return service.Run(ctx, logger, serviceConfig, provider.NewInstrumentation("serve"))
}

func serveFlagBinding(cmd *cobra.Command, _ []string) {
	// flags overwrite both the yaml and the env configuration
	bindFlag(cmd.Flags().Lookup("address"), "server.address", "DOCSYNC_SERVER_ADDRESS")
	if generatorURL := cmd.Flags().Lookup("generator-url"); generatorURL.Changed {
		bindFlag(generatorURL, "summarization.generator.url", "DOCSYNC_GENERATOR_URL")
	}
}
