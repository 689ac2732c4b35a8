package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/usestring/netquery-mcp/internal/composer"
	"github.com/usestring/netquery-mcp/internal/config"
	"github.com/usestring/netquery-mcp/internal/logging"
	"github.com/usestring/netquery-mcp/internal/memstore"
	"github.com/usestring/netquery-mcp/pkg/client"
	"github.com/usestring/netquery-mcp/pkg/netquery"
)

// globalFlags are shared by every command.
type globalFlags struct {
	baseURL  string
	fixture  string
	demo     bool
	logLevel string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "netquery-mcp",
		Short: "Search recorded network connections",
		Long: `netquery-mcp exposes an interactive connection search view as an MCP
server on stdio. The same view can be queried directly from the command line.

Connections come from the netquery API (NETQUERY_BASE_URL), a JSON fixture
file (--fixture) or a built-in sample (--demo).

Examples:
  netquery-mcp serve
  netquery-mcp --demo search --selection selection.yaml
  netquery-mcp --demo suggest country`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.baseURL, "base-url", "", "netquery API base URL (default $NETQUERY_BASE_URL or "+config.DefaultBaseURL+")")
	pf.StringVar(&flags.fixture, "fixture", "", "serve connections from a JSON fixture file instead of the API")
	pf.BoolVar(&flags.demo, "demo", false, "serve a built-in sample of connections")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (default $LOG_LEVEL or info)")
	root.MarkFlagsMutuallyExclusive("fixture", "demo")

	root.AddCommand(
		newServeCmd(flags),
		newSearchCmd(flags),
		newSuggestCmd(flags),
		newFieldsCmd(),
	)
	return root
}

// openStore returns the record store selected by the flags.
func openStore(flags *globalFlags, cfg *config.Config) (netquery.Store, error) {
	switch {
	case flags.demo:
		s := memstore.New()
		s.Add(memstore.SampleConnections(time.Now())...)
		return s, nil
	case flags.fixture != "":
		return memstore.LoadFile(flags.fixture)
	}

	baseURL := cfg.NetqueryBaseURL
	if flags.baseURL != "" {
		baseURL = flags.baseURL
	}
	return client.New(
		client.WithBaseURL(baseURL),
		client.WithHTTPClient(&http.Client{Timeout: cfg.HTTPClientTimeout}),
		client.WithQueryValidation(cfg.ValidateQueries),
	), nil
}

// setupLogging configures slog for the one-shot commands.
func setupLogging(flags *globalFlags, cfg *config.Config) (func() error, error) {
	level := cfg.LogLevel
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	return logging.Setup(logging.Config{
		Level:      level,
		Format:     cfg.LogFormat,
		FilePath:   cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	})
}

// loadSelection reads a YAML (or JSON) selection file. An empty path
// yields the empty selection.
func loadSelection(path string) (composer.Selection, error) {
	sel := composer.Selection{Values: map[string][]any{}}
	if path == "" {
		return sel, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return sel, fmt.Errorf("reading selection: %w", err)
	}
	if err := yaml.Unmarshal(data, &sel); err != nil {
		return sel, fmt.Errorf("parsing selection %s: %w", path, err)
	}
	if sel.Values == nil {
		sel.Values = map[string][]any{}
	}
	if err := composer.Validate(sel); err != nil {
		return sel, fmt.Errorf("selection %s: %w", path, err)
	}
	return sel, nil
}
