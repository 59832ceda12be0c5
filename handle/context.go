package handle

import (
	"fmt"

	"github.com/jrobhoward/rustbridge/config"
	"github.com/jrobhoward/rustbridge/logbridge"
)

// handleContext is the plugin.Context a handle hands its plugin value on
// every hook and handler call. It is a thin read-only view; there is
// nothing here a plugin can use to mutate the handle's own lifecycle.
// requestID is set per dispatched request and empty during lifecycle
// hooks.
type handleContext struct {
	h         *Handle
	requestID string
}

func (c handleContext) ID() uint64 {
	return c.h.id
}

func (c handleContext) Config() *config.PluginConfig {
	return c.h.cfg
}

func (c handleContext) RequestID() string {
	return c.requestID
}

func (c handleContext) Log(level string, message string, args ...any) {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	target := c.h.pluginName
	if c.requestID != "" {
		// Tag request-scoped emissions so host-side aggregation can group
		// the records produced by one request.
		target = target + "#" + c.requestID[:8]
	}
	logbridge.Emit(logbridge.ParseLevel(level), target, message)
}
