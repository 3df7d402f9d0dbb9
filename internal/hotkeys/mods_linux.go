//go:build linux

package hotkeys

import "golang.design/x/hotkey"

const supported = true

// X11 modifier names: alt is Mod1, the super/win key is Mod4.
var modifierNames = map[string]hotkey.Modifier{
	"ctrl":  hotkey.ModCtrl,
	"shift": hotkey.ModShift,
	"alt":   hotkey.Mod1,
	"super": hotkey.Mod4,
	"win":   hotkey.Mod4,
	"cmd":   hotkey.Mod4,
}
