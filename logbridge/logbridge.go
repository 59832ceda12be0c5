// Package logbridge is the process-wide host-callback logging sink. All
// active plugins share one installed callback and one level filter; a
// refcounted registration protocol prevents use-after-free when a plugin
// whose callback is installed unloads while another plugin is still
// active. The shared-state design is intentional: logging has one sink
// per process, not one per handle.
package logbridge

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Level is the sink's filter granularity, matching config.LogLevel.
type Level int32

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelOff
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelOff:
		return "off"
	default:
		return "unknown"
	}
}

// ParseLevel maps a config.LogLevel string onto a Level. Unrecognized
// strings default to LevelInfo; config.Parse is responsible for rejecting
// genuinely invalid values before they reach here.
func ParseLevel(s string) Level {
	switch s {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	case "off":
		return LevelOff
	default:
		return LevelInfo
	}
}

// Callback is the Go-side trampoline for a host log callback. The FFI
// layer is responsible for converting the host's raw C function pointer
// into one of these before calling Register.
type Callback func(level Level, target, message string)

// Token is returned by Register; its release via Deregister decrements the
// bridge's refcount.
type Token struct {
	id          uuid.UUID
	callbackKey uintptr
}

type sink struct {
	mu          sync.Mutex
	refcount    int
	callback    Callback
	callbackKey uintptr
	level       atomic.Int32
}

var global sink
var installOnce sync.Once

func ensureInstalled() {
	installOnce.Do(func() {
		global.level.Store(int32(LevelInfo))
	})
}

// Register increments the refcount. If cb is non-nil it atomically becomes
// the installed callback, replacing whatever was installed before (the
// most-recently-registered callback wins). callbackKey identifies the
// underlying host function pointer so a later Deregister can tell whether
// it is releasing the callback that is still current.
func Register(callbackKey uintptr, cb Callback, level Level) Token {
	ensureInstalled()

	global.mu.Lock()
	global.refcount++
	if cb != nil {
		global.callback = cb
		global.callbackKey = callbackKey
	}
	global.level.Store(int32(level))
	global.mu.Unlock()

	return Token{id: uuid.New(), callbackKey: callbackKey}
}

// Deregister decrements the refcount. When it reaches zero and tok's
// callback is still the one installed, the callback is cleared. If the
// refcount is still positive, the callback is left untouched — another
// active plugin may depend on it.
func Deregister(tok Token) {
	global.mu.Lock()
	defer global.mu.Unlock()

	if global.refcount > 0 {
		global.refcount--
	}
	if global.refcount == 0 && global.callbackKey == tok.callbackKey {
		global.callback = nil
		global.callbackKey = 0
	}
}

// SetLevel replaces the process-wide level filter. Takes effect on
// subsequent emissions; affects every active plugin.
func SetLevel(level Level) {
	ensureInstalled()
	global.level.Store(int32(level))
}

// CurrentLevel returns the process-wide level filter.
func CurrentLevel() Level {
	return Level(global.level.Load())
}

// Emit delivers one record to the installed callback, if the level passes
// the filter and a callback is installed. The callback pointer is read
// under the lock, the lock is released, and only then is the callback
// invoked — no callback is ever invoked while the lock is held, since a
// callback that itself logs would otherwise deadlock the process.
func Emit(level Level, target, message string) {
	filter := Level(global.level.Load())
	if filter == LevelOff || level < filter {
		return
	}

	global.mu.Lock()
	cb := global.callback
	global.mu.Unlock()

	if cb != nil {
		cb(level, target, message)
	}
}
