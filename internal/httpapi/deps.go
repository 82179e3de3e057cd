// Package httpapi is the local HTTP surface the desktop UI talks to. JSON
// in, JSON out, server-sent events for live updates.
package httpapi

import (
	"sync/atomic"

	"go.uber.org/zap"

	"jobtriage-engine/internal/events"
	"jobtriage-engine/internal/lifecycle"
	"jobtriage-engine/internal/pipeline"
	"jobtriage-engine/internal/rules"
	"jobtriage-engine/internal/store"
)

type Deps struct {
	DB  *store.DB
	Hub *events.Hub
	Log *zap.SugaredLogger

	Lifecycle *lifecycle.Service
	Rules     *rules.Service
	Runner    *pipeline.Runner

	// Owner is the single local user everything belongs to.
	Owner string

	// Config persistence
	CfgVal      *atomic.Value // stores config.Config
	UserCfgPath string
}
