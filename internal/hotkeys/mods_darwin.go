//go:build darwin

package hotkeys

import "golang.design/x/hotkey"

// Registration on macOS must run on the main run loop, which this
// process does not own; bindings are skipped there.
const supported = false

var modifierNames = map[string]hotkey.Modifier{
	"ctrl":   hotkey.ModCtrl,
	"shift":  hotkey.ModShift,
	"alt":    hotkey.ModOption,
	"option": hotkey.ModOption,
	"cmd":    hotkey.ModCmd,
	"super":  hotkey.ModCmd,
}
