// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration loading, logging, metrics exposition and debug introspection
// for hioload-reactor processes.
//
// Provides:
//   - Settings loaded from YAML and HIOLOAD_* environment variables via viper,
//     with file-change hot reload hooks
//   - zap logger construction with a runtime-adjustable level
//   - A prometheus registry preloaded with Go and process collectors
//   - A probe registry for state dumps
package control
