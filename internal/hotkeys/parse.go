package hotkeys

import (
	"strings"

	"golang.design/x/hotkey"

	"github.com/earshot-app/earshot/internal/errors"
)

// Parse splits a "mod+mod+key" combo into the library's modifier and
// key values. Matching is case-insensitive; the final token is the key.
func Parse(combo string) ([]hotkey.Modifier, hotkey.Key, error) {
	var tokens []string
	for _, part := range strings.Split(combo, "+") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			return nil, 0, errors.Newf(errors.CodeInvalidArgument, "malformed hotkey %q", combo)
		}
		tokens = append(tokens, part)
	}
	if len(tokens) == 0 {
		return nil, 0, errors.New(errors.CodeInvalidArgument, "empty hotkey")
	}

	keyToken := tokens[len(tokens)-1]
	key, ok := keyNames[keyToken]
	if !ok {
		return nil, 0, errors.Newf(errors.CodeInvalidArgument, "unknown key %q in hotkey %q", keyToken, combo)
	}

	var mods []hotkey.Modifier
	for _, token := range tokens[:len(tokens)-1] {
		mod, ok := modifierNames[token]
		if !ok {
			return nil, 0, errors.Newf(errors.CodeInvalidArgument, "unknown modifier %q in hotkey %q", token, combo)
		}
		mods = append(mods, mod)
	}

	return mods, key, nil
}

var keyNames = map[string]hotkey.Key{
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD,
	"e": hotkey.KeyE, "f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH,
	"i": hotkey.KeyI, "j": hotkey.KeyJ, "k": hotkey.KeyK, "l": hotkey.KeyL,
	"m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO, "p": hotkey.KeyP,
	"q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX,
	"y": hotkey.KeyY, "z": hotkey.KeyZ,

	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,

	"space":  hotkey.KeySpace,
	"enter":  hotkey.KeyReturn,
	"return": hotkey.KeyReturn,
	"esc":    hotkey.KeyEscape,
	"escape": hotkey.KeyEscape,
	"tab":    hotkey.KeyTab,
	"delete": hotkey.KeyDelete,
	"up":     hotkey.KeyUp,
	"down":   hotkey.KeyDown,
	"left":   hotkey.KeyLeft,
	"right":  hotkey.KeyRight,

	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3,
	"f4": hotkey.KeyF4, "f5": hotkey.KeyF5, "f6": hotkey.KeyF6,
	"f7": hotkey.KeyF7, "f8": hotkey.KeyF8, "f9": hotkey.KeyF9,
	"f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
}
