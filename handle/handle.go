// Package handle owns the plugin lifecycle state machine: construction,
// the Installed -> Starting -> Active -> Stopping -> Stopped/Failed
// transitions, the concurrency gate, request dispatch over the runtime
// pool, and the registry that maps an opaque numeric id back to a live
// handle.
package handle

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jrobhoward/rustbridge/config"
	"github.com/jrobhoward/rustbridge/logbridge"
	"github.com/jrobhoward/rustbridge/plugin"
	"github.com/jrobhoward/rustbridge/rberr"
	"github.com/jrobhoward/rustbridge/runtimepool"
	"github.com/jrobhoward/rustbridge/transport"
)

// Handle is one constructed, running instance of a plugin. It is the Go
// value an opaque FFI handle id resolves to.
type Handle struct {
	id         uint64
	pluginName string

	state atomic.Int32

	cfg    *config.PluginConfig
	pl     plugin.Plugin
	pool   *runtimepool.Pool
	gate   *gate
	schema *transport.SchemaValidator

	binaryHandlers  map[uint32]plugin.BinaryHandler
	lightweightTags map[string]bool

	logToken    logbridge.Token
	hasLogToken bool

	rejectedCount atomic.Uint64
	totalCount    atomic.Uint64
	errorCount    atomic.Uint64
}

func (h *Handle) currentState() State {
	return State(h.state.Load())
}

// casState performs a guarded state transition, returning false if the
// handle was not in the expected state.
func (h *Handle) casState(from, to State) bool {
	return h.state.CompareAndSwap(int32(from), int32(to))
}

func (h *Handle) setState(to State) {
	h.state.Store(int32(to))
}

func guard(f func() error) (err *rberr.Error) {
	defer func() {
		if r := recover(); r != nil {
			err = rberr.FromRecover(r)
		}
	}()
	if e := f(); e != nil {
		if re, ok := rberr.As(e); ok {
			return re
		}
		return rberr.Wrap(rberr.CodeHandlerError, e.Error(), e)
	}
	return nil
}

// Init constructs a handle around an already-built plugin value (the
// factory has already run by the time this is called), runs its
// validated config through OnStart, and leaves the handle Active on
// success or Failed on error. logCallbackKey/logCallback register this
// handle's interest in the host log sink; an unset callback (logCallback
// == nil) still participates in the refcount without installing a new
// sink.
func Init(
	pl plugin.Plugin,
	pluginName string,
	rawConfig []byte,
	logCallbackKey uintptr,
	logCallback logbridge.Callback,
	schemaDocsByTag map[string]string,
) (*Handle, *rberr.Error) {
	cfg, cerr := config.Parse(rawConfig)
	if cerr != nil {
		return nil, cerr
	}

	// Schemas usually arrive embedded in the config's data block under
	// "schemas"; an explicit non-nil map from the caller takes precedence.
	if schemaDocsByTag == nil {
		var derr *rberr.Error
		schemaDocsByTag, derr = cfg.SchemaDocs()
		if derr != nil {
			return nil, derr
		}
	}
	validator, verr := transport.NewSchemaValidator(schemaDocsByTag)
	if verr != nil {
		return nil, verr
	}

	h := &Handle{
		cfg:             cfg,
		pl:              pl,
		pluginName:      pluginName,
		gate:            newGate(cfg.MaxConcurrentOps),
		schema:          validator,
		lightweightTags: make(map[string]bool),
	}
	h.setState(StateInstalled)

	if bc, ok := pl.(plugin.BinaryCapable); ok {
		h.binaryHandlers = bc.BinaryHandlers()
	}
	if lh, ok := pl.(plugin.LightweightHints); ok {
		for _, tag := range lh.LightweightTypes() {
			h.lightweightTags[tag] = true
		}
	}

	h.id = allocateID()

	h.logToken = logbridge.Register(logCallbackKey, logCallback, logbridge.ParseLevel(string(cfg.LogLevel)))
	h.hasLogToken = true

	h.casState(StateInstalled, StateStarting)

	h.pool = runtimepool.New(cfg.WorkerCount(), nil)

	ctx := handleContext{h: h}
	if err := guard(func() error { return pl.OnStart(ctx) }); err != nil {
		h.setState(StateFailed)
		h.failInit()
		return h, rberr.Wrap(rberr.CodeInitFailed, "plugin OnStart failed", err)
	}

	if !h.casState(StateStarting, StateActive) {
		h.setState(StateFailed)
		h.failInit()
		return h, rberr.New(rberr.CodeInvalidState, "handle left starting state mid-init")
	}

	// The handle only becomes visible to Lookup once fully Active; a
	// failed init is never observable through the registry.
	insert(h)

	return h, nil
}

// failInit unwinds the resources a partially-constructed handle already
// acquired: the runtime pool and the logging registration. The handle was
// never inserted into the registry, so there is nothing to remove.
func (h *Handle) failInit() {
	h.pool.Shutdown(h.cfg.ShutdownTimeout())
	if h.hasLogToken {
		logbridge.Deregister(h.logToken)
		h.hasLogToken = false
	}
}

// Call dispatches one JSON-transport request. Returns the payload bytes
// the plugin produced, or a taxonomy error.
func (h *Handle) Call(typeTag string, payload []byte) ([]byte, *rberr.Error) {
	if !h.currentState().acceptingCalls() {
		return nil, rberr.Newf(rberr.CodeInvalidState, "handle is %s, not active", h.currentState())
	}
	if serr := h.schema.Validate(typeTag, payload); serr != nil {
		return nil, serr
	}
	if !h.gate.tryAcquire() {
		h.rejectedCount.Add(1)
		return nil, rberr.New(rberr.CodeTooManyRequests, "max_concurrent_ops exceeded")
	}
	defer h.gate.release()
	h.totalCount.Add(1)

	ctx := handleContext{h: h, requestID: uuid.NewString()}
	job := func() ([]byte, *rberr.Error) {
		out, err := h.pl.HandleRequest(ctx, typeTag, payload)
		if err != nil {
			if re, ok := rberr.As(err); ok {
				return nil, re
			}
			return nil, rberr.Wrap(rberr.CodeHandlerError, err.Error(), err)
		}
		return out, nil
	}

	var out []byte
	var jerr *rberr.Error
	if h.lightweightTags[typeTag] {
		out, jerr = invokeInline(job)
	} else {
		out, jerr = h.pool.SubmitAndAwait(0, job)
	}
	if jerr != nil {
		h.errorCount.Add(1)
	}
	return out, jerr
}

// CallRaw dispatches one binary-transport request by numeric message id.
// frame is the whole request buffer, header included; the frame is
// validated and stripped before the handler sees it, and the handler's
// return bytes come back wrapped in a freshly written header. A plugin
// with no registered handler for messageID fails with
// UnknownMessageType(6); a malformed frame with SerializationError(5).
func (h *Handle) CallRaw(messageID uint32, frame []byte) ([]byte, *rberr.Error) {
	if !h.currentState().acceptingCalls() {
		return nil, rberr.Newf(rberr.CodeInvalidState, "handle is %s, not active", h.currentState())
	}
	bh, ok := h.binaryHandlers[messageID]
	if !ok {
		return nil, rberr.Newf(rberr.CodeUnknownMessageType, "no binary handler registered for message id %d", messageID)
	}
	payload, derr := transport.DecodeFrame(frame)
	if derr != nil {
		return nil, derr
	}
	if !h.gate.tryAcquire() {
		h.rejectedCount.Add(1)
		return nil, rberr.New(rberr.CodeTooManyRequests, "max_concurrent_ops exceeded")
	}
	defer h.gate.release()
	h.totalCount.Add(1)

	ctx := handleContext{h: h, requestID: uuid.NewString()}
	job := func() ([]byte, *rberr.Error) {
		out, err := bh(ctx, messageID, payload)
		if err != nil {
			if re, ok := rberr.As(err); ok {
				return nil, re
			}
			return nil, rberr.Wrap(rberr.CodeHandlerError, err.Error(), err)
		}
		return out, nil
	}
	out, jerr := h.pool.SubmitAndAwait(0, job)
	if jerr != nil {
		h.errorCount.Add(1)
		return nil, jerr
	}
	return transport.EncodeFrame(out), nil
}

func invokeInline(job func() ([]byte, *rberr.Error)) (data []byte, err *rberr.Error) {
	defer func() {
		if r := recover(); r != nil {
			err = rberr.FromRecover(r)
		}
	}()
	return job()
}

// Shutdown transitions Active -> Stopping -> Stopped/Failed, running the
// plugin's OnStop bounded by the handle's configured shutdown timeout,
// then draining the runtime pool, then releasing this handle's interest
// in the log sink and removing it from the registry.
func (h *Handle) Shutdown() *rberr.Error {
	if !h.casState(StateActive, StateStopping) {
		return rberr.Newf(rberr.CodeInvalidState, "handle is %s, cannot begin shutdown", h.currentState())
	}

	ctx := handleContext{h: h}
	deadline := h.cfg.ShutdownTimeout()
	_, stopErr := h.pool.SubmitAndAwait(deadline, func() ([]byte, *rberr.Error) {
		if err := h.pl.OnStop(ctx); err != nil {
			if re, ok := rberr.As(err); ok && re.Code == rberr.CodeShutdownFailed {
				return nil, re
			}
			return nil, rberr.Wrap(rberr.CodeShutdownFailed, err.Error(), err)
		}
		return nil, nil
	})

	h.pool.Shutdown(deadline)

	if h.hasLogToken {
		logbridge.Deregister(h.logToken)
	}
	remove(h.id)

	if stopErr != nil {
		h.setState(StateFailed)
		if stopErr.Code == rberr.CodeTimeout {
			return rberr.Wrap(rberr.CodeShutdownFailed, "on_stop exceeded shutdown_timeout_ms", stopErr)
		}
		return stopErr
	}

	h.setState(StateStopped)
	return nil
}

// ID returns the handle's opaque identifier.
func (h *Handle) ID() uint64 { return h.id }

// State returns the handle's current lifecycle state.
func (h *Handle) State() State { return h.currentState() }

// RejectedCount returns the number of requests this handle has turned
// away with TooManyRequests(13) since construction.
func (h *Handle) RejectedCount() uint64 { return h.rejectedCount.Load() }

// SetLogLevel updates the process-wide log sink's level filter. Per-handle
// because the FFI symbol takes a handle argument, but the effect is
// global: there is one sink, not one per handle.
func (h *Handle) SetLogLevel(level string) {
	logbridge.SetLevel(logbridge.ParseLevel(level))
}

// Describe renders a short human-readable status line for logs and
// debugging; plugin_describe returns the structured Descriptor instead.
func (h *Handle) Describe() string {
	return h.pluginName + " [" + h.currentState().String() + "] id=" + strconv.FormatUint(h.id, 10) +
		" rejected=" + strconv.FormatUint(h.rejectedCount.Load(), 10)
}
