// Package entry is where a plugin author's main package binds its
// factory into the framework, the way a web handler registers a route.
// Calling Register at init time is what plugin_create later resolves
// through to produce the uninitialized plugin value.
package entry

import "github.com/jrobhoward/rustbridge/plugin"

// Factory constructs a fresh, uninitialized plugin value. It must not do
// any of the work OnStart is responsible for; plugin_create only
// constructs, plugin_init is what runs OnStart.
type Factory func() plugin.Plugin

var factory Factory

// Register binds the process's single plugin factory. A plugin binary
// calls this from an init() function; calling it twice replaces the
// previous registration.
func Register(name string, f Factory) {
	pluginName = name
	factory = f
}

var pluginName string

// Build invokes the registered factory. It panics if no factory has been
// registered — that is a build-time wiring bug in the plugin binary, not
// a runtime condition a caller should need to check for.
func Build() plugin.Plugin {
	if factory == nil {
		panic("entry: no plugin factory registered; call entry.Register from an init function")
	}
	return factory()
}

// Name returns the name passed to Register, which plugin_init passes on
// as the handle's plugin name (its logging target and descriptor name).
func Name() string {
	return pluginName
}
