// Package pool
// Author: momentics <momentics@gmail.com>
//
// Memory reuse for hioload-reactor: fixed-size byte buffers for connection
// read/write staging and a generic object pool for connection state.
// See bytepool.go and objpool.go.
package pool
