// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp accepts TCP connections and hands their raw descriptors to a
// reactor. The listener sets SO_REUSEADDR/SO_REUSEPORT and a deep backlog;
// accepted sockets get TCP_NODELAY and are detached from the Go runtime
// poller before admission.
package tcp
