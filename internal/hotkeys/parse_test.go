package hotkeys

import (
	"testing"

	"golang.design/x/hotkey"
)

func TestParseCombos(t *testing.T) {
	tests := []struct {
		combo    string
		wantMods int
		wantKey  hotkey.Key
	}{
		{"ctrl+shift+j", 2, hotkey.KeyJ},
		{"CTRL+SHIFT+W", 2, hotkey.KeyW},
		{"alt+space", 1, hotkey.KeySpace},
		{"f5", 0, hotkey.KeyF5},
		{" ctrl + shift + q ", 2, hotkey.KeyQ},
	}
	for _, tt := range tests {
		t.Run(tt.combo, func(t *testing.T) {
			mods, key, err := Parse(tt.combo)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.combo, err)
			}
			if len(mods) != tt.wantMods {
				t.Errorf("Parse(%q) modifiers = %d, want %d", tt.combo, len(mods), tt.wantMods)
			}
			if key != tt.wantKey {
				t.Errorf("Parse(%q) key = %v, want %v", tt.combo, key, tt.wantKey)
			}
		})
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, combo := range []string{
		"",
		"ctrl+",
		"+j",
		"ctrl+bogus+j",
		"ctrl+notakey",
	} {
		t.Run(combo, func(t *testing.T) {
			if _, _, err := Parse(combo); err == nil {
				t.Errorf("Parse(%q) succeeded, want error", combo)
			}
		})
	}
}
