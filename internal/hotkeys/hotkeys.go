// Package hotkeys binds global keyboard shortcuts to trigger callbacks.
// Combos use the "ctrl+shift+j" form; modifier spellings are mapped per
// platform.
package hotkeys

import (
	"log/slog"

	"golang.design/x/hotkey"

	"github.com/earshot-app/earshot/internal/errors"
)

// Manager owns the registered hotkeys for the process lifetime.
type Manager struct {
	hks []*hotkey.Hotkey
}

// NewManager creates an empty hotkey manager.
func NewManager() *Manager { return &Manager{} }

// Bind registers combo and invokes fn on every keydown. On platforms
// where global shortcuts need the main run loop the binding is skipped
// with a warning instead of failing.
func (m *Manager) Bind(combo string, fn func()) error {
	if !supported {
		slog.Warn("global hotkeys not supported on this platform, skipping", "combo", combo)
		return nil
	}

	mods, key, err := Parse(combo)
	if err != nil {
		return err
	}

	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return errors.Wrapf(err, errors.CodeUnavailable, "register hotkey %q", combo)
	}
	m.hks = append(m.hks, hk)

	go func() {
		for range hk.Keydown() {
			slog.Debug("hotkey pressed", "combo", combo)
			fn()
		}
	}()

	slog.Info("hotkey registered", "combo", combo)
	return nil
}

// Close unregisters every binding.
func (m *Manager) Close() {
	for _, hk := range m.hks {
		_ = hk.Unregister()
	}
	m.hks = nil
}
