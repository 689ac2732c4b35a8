package mcpsrv

import (
	"github.com/usestring/netquery-mcp/internal/config"
	"github.com/usestring/netquery-mcp/internal/notify"
	"github.com/usestring/netquery-mcp/internal/query"
	"github.com/usestring/netquery-mcp/internal/viewer"
	"github.com/usestring/netquery-mcp/pkg/netquery"
)

// Deps contains all dependencies available to custom tools.
// This gives custom tools access to the same infrastructure as builtin tools.
type Deps struct {
	Store   netquery.Store
	Viewer  *viewer.Viewer
	Notices *notify.Recorder
	Query   *query.Engine
	Config  *config.Config
}
