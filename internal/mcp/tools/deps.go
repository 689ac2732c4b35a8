package tools

import (
	"github.com/usestring/netquery-mcp/internal/config"
	"github.com/usestring/netquery-mcp/internal/notify"
	"github.com/usestring/netquery-mcp/internal/query"
	"github.com/usestring/netquery-mcp/internal/viewer"
)

// Deps contains all dependencies needed by tool handlers.
type Deps struct {
	Viewer  *viewer.Viewer
	Notices *notify.Recorder
	Query   *query.Engine
	Config  *config.Config
}

func (d *Deps) resultLimit(limit int) int {
	if limit <= 0 && d.Config != nil {
		limit = d.Config.DefaultResultLimit
	}
	if limit <= 0 {
		limit = config.DefaultResultLimitValue
	}
	return min(limit, 500)
}
