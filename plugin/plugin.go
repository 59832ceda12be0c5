// Package plugin defines the contract a plugin author fulfils: the
// lifecycle hooks, the request dispatcher, and the introspection surface.
// Implementers expose one value satisfying this capability set rather
// than a class hierarchy — see DESIGN.md "Handlers as values".
package plugin

import "github.com/jrobhoward/rustbridge/config"

// Context is the read-only view of a handle a hook or handler receives.
// It is never mutable from the plugin side; any plugin-specific shared
// state is the plugin author's own responsibility.
type Context interface {
	// ID is the handle's opaque identifier.
	ID() uint64
	// Config is the parsed PluginConfig the handle was built from.
	Config() *config.PluginConfig
	// RequestID is a correlation id unique to the request being handled,
	// attached to every log emission made through this context. Empty
	// inside OnStart/OnStop, which run outside any request.
	RequestID() string
	// Log emits a structured record through the host-callback logging
	// bridge, tagged with this plugin's name as the target.
	Log(level string, message string, args ...any)
}

// Plugin is the capability set every implementer provides.
type Plugin interface {
	// OnStart runs once, synchronously, while the handle transitions
	// Installed -> Starting -> Active. A non-nil error fails init with
	// InitFailed(2).
	OnStart(ctx Context) error

	// HandleRequest dispatches one JSON-transport request. The returned
	// bytes become the response envelope's payload. A non-nil
	// *rberr.Error keeps its own code (e.g. UnknownMessageType(6)); any
	// other non-nil error becomes HandlerError(7).
	HandleRequest(ctx Context, typeTag string, payload []byte) ([]byte, error)

	// OnStop runs once during shutdown, bounded by shutdown_timeout_ms.
	// A non-nil error (or a timeout) fails shutdown with ShutdownFailed(3).
	OnStop(ctx Context) error

	// SupportedTypes lists the JSON type tags this plugin recognizes, for
	// introspection only — the dispatcher does not consult it to route
	// requests; HandleRequest itself decides UnknownMessageType(6).
	SupportedTypes() []string
}

// BinaryHandler handles one binary-transport message id.
type BinaryHandler func(ctx Context, messageID uint32, payload []byte) ([]byte, error)

// BinaryCapable is implemented by plugins that also accept the binary
// transport. Returning at least one handler from BinaryHandlers flips the
// plugin's "supports-binary-transport" self-description flag; an
// implementation that returns no handlers leaves it unset.
type BinaryCapable interface {
	BinaryHandlers() map[uint32]BinaryHandler
}

// Versioned is implemented by plugins that carry a version string; it
// shows up in the handle's self-description and nowhere else.
type Versioned interface {
	Version() string
}

// LightweightHints is an optional interface a plugin may implement to mark
// some JSON type tags as safe to run inline on the calling worker instead
// of taking a pool-queue hop — an optimization hint, not a different
// dispatch contract.
type LightweightHints interface {
	LightweightTypes() []string
}
