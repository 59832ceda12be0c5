package ffi

/*
#include "shim.h"
*/
import "C"

import (
	"unsafe"

	"github.com/jrobhoward/rustbridge/rberr"
)

// readBuffer validates and copies a caller-provided (pointer, length) pair
// into a Go byte slice. A null pointer with zero length is accepted as an
// empty payload; a null pointer with a positive length is rejected with
// FfiError(12), per the boundary rules every exported symbol follows.
func readBuffer(ptr *C.uint8_t, length C.uint64_t) ([]byte, *rberr.Error) {
	if ptr == nil {
		if length == 0 {
			return nil, nil
		}
		return nil, rberr.New(rberr.CodeFfiError, "null buffer pointer with non-zero length")
	}
	if length == 0 {
		return nil, nil
	}
	return C.GoBytes(unsafe.Pointer(ptr), C.int(length)), nil
}

// dataBuffer allocates a host-owned buffer from Go bytes. A nil/empty
// slice yields a zero-length buffer with a null data pointer and
// error_code 0.
func dataBuffer(data []byte) C.rb_owned_buffer_t {
	if len(data) == 0 {
		return C.rb_empty_buffer(0)
	}
	cPtr := C.malloc(C.size_t(len(data)))
	C.memcpy(cPtr, unsafe.Pointer(&data[0]), C.size_t(len(data)))
	return C.rb_owned_buffer_t{
		data_ptr:   (*C.uint8_t)(cPtr),
		len:        C.uint64_t(len(data)),
		capacity:   C.uint64_t(len(data)),
		error_code: 0,
	}
}

// errorBuffer allocates a host-owned buffer carrying a null-terminated
// UTF-8 error message and the taxonomy code that produced it. len
// excludes the terminator, matching the wire format's error-code
// convention.
func errorBuffer(err *rberr.Error) C.rb_owned_buffer_t {
	msg := err.Error()
	cPtr := C.malloc(C.size_t(len(msg) + 1))
	if len(msg) > 0 {
		C.memcpy(cPtr, unsafe.Pointer(&[]byte(msg)[0]), C.size_t(len(msg)))
	}
	*(*C.uint8_t)(unsafe.Pointer(uintptr(cPtr) + uintptr(len(msg)))) = 0
	return C.rb_owned_buffer_t{
		data_ptr:   (*C.uint8_t)(cPtr),
		len:        C.uint64_t(len(msg)),
		capacity:   C.uint64_t(len(msg) + 1),
		error_code: C.uint32_t(err.Code),
	}
}
