// Package ffi is the C-calling-convention export surface: the only place
// in this module that imports "C". Every exported symbol validates its
// pointer arguments and returns either a status/handle scalar or an
// rb_owned_buffer_t the host must release through plugin_free_buffer
// exactly once. plugin_init, plugin_call, plugin_call_raw,
// plugin_shutdown, plugin_set_log_level and plugin_describe run their
// body under a panic guard; plugin_get_state,
// plugin_rejected_request_count, plugin_request_stats and
// plugin_free_buffer, which only look up the registry, load counters or
// free memory, have no guard of their own.
package ffi

/*
#include "shim.h"
*/
import "C"

import (
	"encoding/json"
	"runtime/cgo"
	"unsafe"

	"github.com/jrobhoward/rustbridge/entry"
	"github.com/jrobhoward/rustbridge/handle"
	"github.com/jrobhoward/rustbridge/logbridge"
	"github.com/jrobhoward/rustbridge/plugin"
	"github.com/jrobhoward/rustbridge/rberr"
)

// plugin_create returns an opaque pointer to an uninitialized plugin
// value produced by the linked factory (entry.Register). plugin_init
// consumes this pointer.
//
//export plugin_create
func plugin_create() unsafe.Pointer {
	pl := entry.Build()
	h := cgo.NewHandle(pl)
	return unsafe.Pointer(uintptr(h))
}

// plugin_init consumes pluginPtr (previously returned by plugin_create),
// parses config_bytes as a PluginConfig, registers the optional log
// callback, and constructs the handle. Returns 0 on failure.
//
//export plugin_init
func plugin_init(pluginPtr unsafe.Pointer, configBytes *C.uint8_t, configLen C.uint64_t, logCallback C.rb_log_callback_t, userData unsafe.Pointer) (id C.uint64_t) {
	defer func() {
		if r := recover(); r != nil {
			logInternalPanic(r)
			id = 0
		}
	}()

	if pluginPtr == nil {
		return 0
	}
	hCgo := cgo.Handle(uintptr(pluginPtr))
	pl, ok := hCgo.Value().(plugin.Plugin)
	hCgo.Delete()
	if !ok {
		return 0
	}

	raw, ferr := readBuffer(configBytes, configLen)
	if ferr != nil {
		return 0
	}

	var cb logbridge.Callback
	var key uintptr
	if logCallback != nil {
		key = uintptr(unsafe.Pointer(logCallback))
		cb = wrapLogCallback(logCallback, userData)
	}

	hd, err := handle.Init(pl, entry.Name(), raw, key, cb, nil)
	if err != nil {
		return 0
	}
	return C.uint64_t(hd.ID())
}

// plugin_call dispatches a JSON-transport request.
//
//export plugin_call
func plugin_call(handleID C.uint64_t, typeTag *C.char, requestBytes *C.uint8_t, requestLen C.uint64_t) C.rb_owned_buffer_t {
	var result C.rb_owned_buffer_t
	func() {
		defer func() {
			if r := recover(); r != nil {
				logInternalPanic(r)
				result = errorBuffer(rberr.FromRecover(r))
			}
		}()

		hd, ok := handle.Lookup(uint64(handleID))
		if !ok {
			result = errorBuffer(rberr.New(rberr.CodeInvalidState, "unknown handle"))
			return
		}
		if typeTag == nil {
			result = errorBuffer(rberr.New(rberr.CodeFfiError, "null type_tag"))
			return
		}
		payload, ferr := readBuffer(requestBytes, requestLen)
		if ferr != nil {
			result = errorBuffer(ferr)
			return
		}

		out, cerr := hd.Call(C.GoString(typeTag), payload)
		if cerr != nil {
			result = errorBuffer(cerr)
			return
		}
		result = dataBuffer(out)
	}()
	return result
}

// plugin_call_raw dispatches a binary-transport request by numeric
// message id. requestBytes is a whole frame (header + payload); the
// returned buffer's data is likewise a whole frame with a freshly
// written header.
//
//export plugin_call_raw
func plugin_call_raw(handleID C.uint64_t, messageID C.uint32_t, requestBytes *C.uint8_t, requestLen C.uint64_t) C.rb_owned_buffer_t {
	var result C.rb_owned_buffer_t
	func() {
		defer func() {
			if r := recover(); r != nil {
				logInternalPanic(r)
				result = errorBuffer(rberr.FromRecover(r))
			}
		}()

		hd, ok := handle.Lookup(uint64(handleID))
		if !ok {
			result = errorBuffer(rberr.New(rberr.CodeInvalidState, "unknown handle"))
			return
		}
		frame, ferr := readBuffer(requestBytes, requestLen)
		if ferr != nil {
			result = errorBuffer(ferr)
			return
		}

		out, cerr := hd.CallRaw(uint32(messageID), frame)
		if cerr != nil {
			result = errorBuffer(cerr)
			return
		}
		result = dataBuffer(out)
	}()
	return result
}

// plugin_free_buffer releases a buffer previously returned by plugin_call
// or plugin_call_raw. Exactly-once per buffer; freeing a zero-length,
// null-data buffer is a safe no-op.
//
//export plugin_free_buffer
func plugin_free_buffer(buf C.rb_owned_buffer_t) {
	if buf.data_ptr != nil {
		C.free(unsafe.Pointer(buf.data_ptr))
	}
}

// plugin_shutdown runs the handle's shutdown sequence and removes it from
// the registry. Returns 1 on success, 0 otherwise (including unknown
// handle).
//
//export plugin_shutdown
func plugin_shutdown(handleID C.uint64_t) (ok C.uint8_t) {
	defer func() {
		if r := recover(); r != nil {
			logInternalPanic(r)
			ok = 0
		}
	}()

	hd, found := handle.Lookup(uint64(handleID))
	if !found {
		return 0
	}
	if err := hd.Shutdown(); err != nil {
		return 0
	}
	return 1
}

// plugin_set_log_level adjusts the process-wide level filter. See
// logbridge for the shared-state caveats this implies.
//
//export plugin_set_log_level
func plugin_set_log_level(handleID C.uint64_t, level C.uint32_t) {
	defer func() {
		recover()
	}()
	hd, ok := handle.Lookup(uint64(handleID))
	if !ok {
		return
	}
	hd.SetLogLevel(levelName(uint32(level)))
}

// plugin_get_state returns the handle's current lifecycle-state code, or
// 255 for an unknown handle.
//
//export plugin_get_state
func plugin_get_state(handleID C.uint64_t) C.uint8_t {
	hd, ok := handle.Lookup(uint64(handleID))
	if !ok {
		return 255
	}
	return C.uint8_t(hd.State())
}

// plugin_rejected_request_count returns the handle's saturated-gate
// rejection counter.
//
//export plugin_rejected_request_count
func plugin_rejected_request_count(handleID C.uint64_t) C.uint64_t {
	hd, ok := handle.Lookup(uint64(handleID))
	if !ok {
		return 0
	}
	return C.uint64_t(hd.RejectedCount())
}

// plugin_describe is an additive introspection export returning the
// handle's self-description as a JSON-encoded owned buffer: name,
// version, state, supported type tags, and binary message ids. An
// unknown handle yields InvalidState(1), as in plugin_call,
// plugin_call_raw and plugin_request_stats.
//
//export plugin_describe
func plugin_describe(handleID C.uint64_t) (result C.rb_owned_buffer_t) {
	defer func() {
		if r := recover(); r != nil {
			logInternalPanic(r)
			result = errorBuffer(rberr.FromRecover(r))
		}
	}()
	hd, ok := handle.Lookup(uint64(handleID))
	if !ok {
		return errorBuffer(rberr.New(rberr.CodeInvalidState, "unknown handle"))
	}
	out, err := json.Marshal(hd.Descriptor())
	if err != nil {
		return errorBuffer(rberr.Wrap(rberr.CodeSerializationError, "failed to encode descriptor", err))
	}
	return dataBuffer(out)
}

// plugin_request_stats is an additive introspection export returning the
// handle's request counters (total, rejected, handler errors) packed into
// one JSON-encoded owned buffer.
//
//export plugin_request_stats
func plugin_request_stats(handleID C.uint64_t) C.rb_owned_buffer_t {
	hd, ok := handle.Lookup(uint64(handleID))
	if !ok {
		return errorBuffer(rberr.New(rberr.CodeInvalidState, "unknown handle"))
	}
	out, err := json.Marshal(hd.Stats())
	if err != nil {
		return errorBuffer(rberr.Wrap(rberr.CodeSerializationError, "failed to encode stats", err))
	}
	return dataBuffer(out)
}

func levelName(level uint32) string {
	switch level {
	case 0:
		return "trace"
	case 1:
		return "debug"
	case 2:
		return "info"
	case 3:
		return "warn"
	case 4:
		return "error"
	case 5:
		return "off"
	default:
		return "info"
	}
}

func logInternalPanic(r any) {
	logbridge.Emit(logbridge.LevelError, "ffi", rberr.FromRecover(r).Error())
}

// wrapLogCallback adapts a raw C function pointer into a logbridge.Callback.
// The C trampoline (rb_invoke_log_callback) is the only code that actually
// dereferences the function pointer; Go never calls it directly.
func wrapLogCallback(cb C.rb_log_callback_t, userData unsafe.Pointer) logbridge.Callback {
	return func(level logbridge.Level, target, message string) {
		cTarget := C.CString(target)
		cMessage := C.CString(message)
		defer C.free(unsafe.Pointer(cTarget))
		defer C.free(unsafe.Pointer(cMessage))
		C.rb_invoke_log_callback(cb, C.uint32_t(level), cTarget, cMessage, userData)
	}
}
