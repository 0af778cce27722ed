// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/xataio/docsync/cmd/config"
	"github.com/xataio/docsync/internal/log/zerolog"
	"github.com/xataio/docsync/internal/profiling"
	"github.com/xataio/docsync/pkg/docstore"
	loglib "github.com/xataio/docsync/pkg/log"
	"github.com/xataio/docsync/pkg/otel"
	"github.com/xataio/docsync/pkg/service"
)

// Version is the docsync version
var (
	Version = "development"
	Env     string
)

var errUnsupportedEngine = errors.New("unsupported engine, must be one of elasticsearch or opensearch")

const (
	elasticsearchEngine = "elasticsearch"
	opensearchEngine    = "opensearch"

	profilingAddress = "localhost:6060"
)

func Prepare() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "docsync",
		SilenceUsage: true,
		Version:      version(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// a .env file in the working directory is optional
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("loading .env file: %w", err)
			}

			if err := config.Load(); err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			return engineFlagBinding(cmd)
		},
	}

	viper.AutomaticEnv()

	// Flag definition

	// root cmd
	rootCmd.PersistentFlags().StringP("config", "c", "", ".env or .yaml config file to use with docsync if any")
	rootCmd.PersistentFlags().String("log-level", "info", "log level for the application. One of trace, debug, info, warn, error, fatal, panic")
	rootCmd.PersistentFlags().String("engine", "", "Document store engine. One of elasticsearch, opensearch")
	rootCmd.PersistentFlags().String("engine-url", "", "Document store engine URL")

	// serve cmd
	serveCmd.Flags().String("address", "", "Address for the docsync server to listen on, in the format host:port")
	serveCmd.Flags().String("generator-url", "", "URL of the text generation service used for summarization. Summarization is disabled if not set")
	serveCmd.Flags().Bool("profile", false, "Whether to expose a /debug/pprof endpoint on localhost:6060")

	// collection cmd
	createCollectionCmd.Flags().StringP("schema-file", "f", "", "Path to a YAML or JSON file containing the collection schema")
	createCollectionCmd.Flags().Bool("custom", false, "Whether the schema file contains an engine native mapping, sent as is")
	createCollectionCmd.MarkFlagRequired("schema-file")
	collectionCmd.AddCommand(createCollectionCmd)
	collectionCmd.AddCommand(deleteCollectionCmd)

	// documents cmd
	ingestCmd.Flags().StringP("file", "f", "", "Path to a JSON array or NDJSON file containing the documents to ingest")
	ingestCmd.Flags().String("id-field", "", "Document field to use as the document id. The engine generates ids if not set")
	ingestCmd.Flags().Bool("refresh", false, "Whether to refresh the collection after the ingestion, making the documents searchable straight away")
	ingestCmd.Flags().Bool("profile", false, "Whether to produce CPU and memory profile files, as well as exposing a /debug/pprof endpoint on localhost:6060")
	ingestCmd.MarkFlagRequired("file")
	updateDocumentCmd.Flags().String("fields", "", "JSON object with the fields to set on the document")
	updateDocumentCmd.MarkFlagRequired("fields")
	documentsCmd.AddCommand(ingestCmd)
	documentsCmd.AddCommand(getDocumentCmd)
	documentsCmd.AddCommand(updateDocumentCmd)
	documentsCmd.AddCommand(deleteDocumentCmd)

	// query cmd
	queryCmd.Flags().String("fields", "", "JSON object with the field values to match. Documents matching any of them are returned")
	queryCmd.MarkFlagRequired("fields")

	// search cmd
	searchCmd.Flags().String("query", "", "Engine native query, as a JSON object")
	searchCmd.Flags().String("query-file", "", "Path to a JSON file containing the engine native query")
	searchCmd.MarkFlagsMutuallyExclusive("query", "query-file")
	searchCmd.MarkFlagsOneRequired("query", "query-file")

	// export cmd
	exportCmd.Flags().StringP("output", "o", "", "File where the NDJSON export will be written. Defaults to stdout")

	// Flag binding for root cmd
	rootFlagBinding(rootCmd)

	// register subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(collectionCmd)
	rootCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(exportCmd)
	return rootCmd
}

// Execute executes the root command.
func Execute() error {
	cmd := Prepare()
	return cmd.Execute()
}

func withSignalWatcher(fn func(ctx context.Context) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(),
			syscall.SIGHUP,
			syscall.SIGINT,
			syscall.SIGTERM,
			syscall.SIGQUIT)
		defer cancel()
		return fn(ctx)
	}
}

func withProfiling(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) (err error) {
	return func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Lookup("profile").Value.String() == "false" {
			return fn(cmd, args)
		}

		logger := newLogger()
		srv := profiling.StartServer(profilingAddress, logger)
		defer srv.Close()
		// serve is a long running process, only the http endpoints are
		// exposed.
		if cmd.Name() == "serve" {
			return fn(cmd, args)
		}

		profiler, err := profiling.Start("cpu.prof", "mem.prof")
		if err != nil {
			return err
		}
		defer func() {
			if stopErr := profiler.Stop(); stopErr != nil {
				logger.Error(stopErr, "writing profiles")
			}
		}()

		return fn(cmd, args)
	}
}

func rootFlagBinding(cmd *cobra.Command) {
	bindFlag(cmd.PersistentFlags().Lookup("config"), "config")
	bindFlag(cmd.PersistentFlags().Lookup("log-level"), "DOCSYNC_LOG_LEVEL")
}

// engineFlagBinding makes the engine flags overwrite the configuration, both
// for yaml and env configuration files.
func engineFlagBinding(cmd *cobra.Command) error {
	engineFlag := cmd.Flags().Lookup("engine")
	urlFlag := cmd.Flags().Lookup("engine-url")
	if engineFlag == nil || !engineFlag.Changed {
		return nil
	}

	switch engine := engineFlag.Value.String(); engine {
	case elasticsearchEngine:
		bindFlag(urlFlag, "DOCSYNC_ELASTICSEARCH_URL")
		viper.Set("DOCSYNC_OPENSEARCH_URL", "")
	case opensearchEngine:
		bindFlag(urlFlag, "DOCSYNC_OPENSEARCH_URL")
		viper.Set("DOCSYNC_ELASTICSEARCH_URL", "")
	default:
		return fmt.Errorf("%w: %q", errUnsupportedEngine, engine)
	}

	viper.Set("engine.type", engineFlag.Value.String())
	bindFlag(urlFlag, "engine.url")
	return nil
}

// bindFlag binds the flag to all the configuration keys on input.
func bindFlag(flag *pflag.Flag, keys ...string) {
	if flag == nil {
		return
	}
	for _, key := range keys {
		viper.BindPFlag(key, flag)
	}
}

func version() string {
	if Env != "" {
		return Env + " (" + Version + ")"
	}
	return Version
}

func newLogger() loglib.Logger {
	logger := zerolog.NewLogger(config.ParseLogConfig())
	zerolog.SetGlobalLogger(logger)
	return zerolog.NewStdLogger(logger)
}

func newInstrumentationProvider() (otel.InstrumentationProvider, error) {
	cfg, err := config.ParseInstrumentationConfig()
	if err != nil {
		return nil, fmt.Errorf("parsing instrumentation config: %w", err)
	}
	if cfg != nil {
		cfg.ServiceVersion = Version
	}

	p, err := otel.NewInstrumentationProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialising instrumentation provider: %w", err)
	}
	return p, nil
}

func newStore(logger loglib.Logger) (*docstore.Client, error) {
	serviceConfig, err := config.ParseServiceConfig()
	if err != nil {
		return nil, fmt.Errorf("parsing docsync config: %w", err)
	}
	return service.NewStore(serviceConfig, logger, nil)
}
