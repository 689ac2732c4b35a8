package mcpsrv

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/netquery-mcp/internal/cache"
	"github.com/usestring/netquery-mcp/internal/config"
	"github.com/usestring/netquery-mcp/internal/logging"
	"github.com/usestring/netquery-mcp/internal/mcp"
	"github.com/usestring/netquery-mcp/internal/mcp/tools"
	"github.com/usestring/netquery-mcp/internal/notify"
	"github.com/usestring/netquery-mcp/internal/query"
	"github.com/usestring/netquery-mcp/internal/viewer"
	"github.com/usestring/netquery-mcp/pkg/netquery"
)

// Server is the netquery MCP server.
// It wraps the internal implementation and provides extension points.
type Server struct {
	internal   *mcp.Server
	deps       *Deps
	logCleanup func() error
}

// NewServer creates a new MCP server with builtin netquery tools.
//
// The store parameter is required and answers the search view's queries;
// pass a *client.Client for a live netquery API.
// Use functional options to configure logging, add custom tools, etc.
func NewServer(store netquery.Store, opts ...Option) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}

	// Build configuration from options
	cfg := &serverConfig{
		config: config.Load(), // Load defaults from environment
	}
	for _, opt := range opts {
		opt(cfg)
	}

	// Setup logging
	logCfg := logging.Config{
		Level:      cfg.config.LogLevel,
		Format:     cfg.config.LogFormat,
		FilePath:   cfg.config.LogFile,
		MaxSizeMB:  cfg.config.LogMaxSizeMB,
		MaxBackups: cfg.config.LogMaxBackups,
		MaxAgeDays: cfg.config.LogMaxAgeDays,
		Compress:   cfg.config.LogCompress,
	}
	if cfg.logLevel != "" {
		logCfg.Level = cfg.logLevel
	}
	if cfg.logFile != "" {
		logCfg.FilePath = cfg.logFile
	}
	logCleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	// Create infrastructure
	var chartCache *cache.ChartCache
	if cfg.config.ChartCacheMaxItems > 0 {
		chartCache = cache.NewChartCache(cfg.config.ChartCacheMaxItems, cfg.config.ChartCacheTTL)
	}
	notices := notify.NewRecorder(cfg.config.NoticeHistory, notify.Log{})

	v := viewer.New(store, notices, viewer.Config{
		Debounce:          cfg.config.SearchDebounce,
		RequestTimeout:    cfg.config.StoreRequestTimeout,
		ChartCache:        chartCache,
		GroupChartWorkers: cfg.config.GroupChartWorkers,
	})
	queryEngine := query.NewEngine()

	// Create deps for internal tools and custom tools
	toolDeps := &tools.Deps{
		Viewer:  v,
		Notices: notices,
		Query:   queryEngine,
		Config:  cfg.config,
	}

	// Create public deps (same values, different type for public API)
	deps := &Deps{
		Store:   store,
		Viewer:  v,
		Notices: notices,
		Query:   queryEngine,
		Config:  cfg.config,
	}

	// Build internal server options
	var internalOpts []mcp.ServerOption
	if !cfg.disableBuiltinTools {
		internalOpts = append(internalOpts, mcp.WithBuiltinTools())
	}
	if !cfg.disableBuiltinPrompts {
		internalOpts = append(internalOpts, mcp.WithBuiltinPrompts())
	}

	// Add custom extension registration callbacks
	for _, fn := range cfg.toolRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(fn))
	}
	for _, fn := range cfg.promptRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(fn))
	}
	for _, fn := range cfg.resourceRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(fn))
	}

	// Add deferred tool registrations (tools that need Deps access)
	for _, fn := range cfg.deferredToolRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(func(srv *sdkmcp.Server) {
			fn(srv, deps)
		}))
	}

	// Create internal server
	internal, err := mcp.NewServer(toolDeps, internalOpts...)
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	return &Server{
		internal:   internal,
		deps:       deps,
		logCleanup: logCleanup,
	}, nil
}

// Run starts the MCP server with stdio transport.
// The server runs until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.internal.Run(ctx)
}

// Close stops the search view and cleans up server resources.
func (s *Server) Close() error {
	s.deps.Viewer.Close()
	if s.logCleanup != nil {
		return s.logCleanup()
	}
	return nil
}

// Deps returns the dependencies for building custom tools.
func (s *Server) Deps() *Deps {
	return s.deps
}

// MCPServer returns the underlying MCP server, e.g. to connect it to a
// transport other than stdio.
func (s *Server) MCPServer() *sdkmcp.Server {
	return s.internal.MCPServer()
}
