// control/hotreload.go
// Author: momentics <momentics@gmail.com>
//
// Reload hooks driven by config file changes.

package control

import (
	"slices"

	"github.com/fsnotify/fsnotify"
)

// OnReload registers a hook receiving freshly decoded settings after the
// config file changes. Only runtime-adjustable fields should be applied.
func (l *Loader) OnReload(fn func(*Settings)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, fn)
}

// Watch starts watching the config file. onError receives decode failures;
// the previous settings stay in effect. No-op without a config file.
func (l *Loader) Watch(onError func(error)) {
	if l.path == "" {
		return
	}
	l.v.OnConfigChange(func(fsnotify.Event) {
		l.reload(onError)
	})
	l.v.WatchConfig()
}

// reload decodes the current settings and runs every hook synchronously.
func (l *Loader) reload(onError func(error)) {
	s, err := l.Load()
	if err != nil {
		if onError != nil {
			onError(err)
		}
		return
	}
	l.mu.Lock()
	hooks := slices.Clone(l.hooks)
	l.mu.Unlock()
	for _, fn := range hooks {
		fn(s)
	}
}
