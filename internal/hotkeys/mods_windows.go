//go:build windows

package hotkeys

import "golang.design/x/hotkey"

const supported = true

var modifierNames = map[string]hotkey.Modifier{
	"ctrl":  hotkey.ModCtrl,
	"shift": hotkey.ModShift,
	"alt":   hotkey.ModAlt,
	"super": hotkey.ModWin,
	"win":   hotkey.ModWin,
	"cmd":   hotkey.ModWin,
}
